package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/maxbot-ai/dialogtree"
	fileStore "github.com/maxbot-ai/dialogtree/internal/adapters/file"
	"github.com/maxbot-ai/dialogtree/internal/nlu"
	"github.com/maxbot-ai/dialogtree/internal/presentation/tui"
	"github.com/maxbot-ai/dialogtree/pkg/domain"
)

var chatCmd = &cobra.Command{
	Use:   "chat <definition.yaml>",
	Short: "Talk to a bot in the terminal",
	Long: `Starts an interactive chat session. Intents and entities are
recognized with a built-in keyword matcher driven by the definition's
intent examples and entity declarations.

Commands inside the chat: /session shows the stored session state,
/reset clears it, /quit exits.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sessionKey, _ := cmd.Flags().GetString("session")
		storePath, _ := cmd.Flags().GetString("store-path")
		if err := runChat(args[0], sessionKey, storePath); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().String("session", "", "Session key to resume (default: a fresh random key)")
	chatCmd.Flags().String("store-path", "", "Persist sessions to this directory instead of memory")
}

func runChat(definition, sessionKey, storePath string) error {
	logger := newLogger()

	opts := []dialogtree.Option{dialogtree.WithLogger(logger)}
	if storePath != "" {
		opts = append(opts, dialogtree.WithSessionStore(fileStore.New(storePath)))
	}

	bot, err := dialogtree.Open(definition, opts...)
	if err != nil {
		return fmt.Errorf("failed to initialize bot: %w", err)
	}

	recognizer, err := nlu.New(bot.Definition())
	if err != nil {
		return fmt.Errorf("failed to build recognizer: %w", err)
	}

	render := tui.NewRenderer()

	if sessionKey == "" {
		sessionKey = uuid.NewString()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tui.PrintBanner()
	fmt.Printf("Chatting with %s (session %s). /quit to exit.\n\n", bot.Name(), sessionKey)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		switch text {
		case "/quit", "/exit":
			fmt.Println("Bye!")
			return nil
		case "/reset":
			if err := bot.ResetSession(ctx, sessionKey); err != nil {
				fmt.Printf("reset failed: %v\n", err)
				continue
			}
			fmt.Println("Session cleared.")
			continue
		case "/session":
			sess, err := bot.Session(ctx, sessionKey)
			if err != nil {
				fmt.Printf("no stored session: %v\n", err)
				continue
			}
			dump, _ := json.MarshalIndent(sess, "", "  ")
			fmt.Println(string(dump))
			continue
		}

		intents, entities := recognizer.Recognize(text)
		out, err := bot.ProcessTurn(ctx, domain.TurnInput{
			SessionKey: sessionKey,
			Text:       text,
			Intents:    intents,
			Entities:   entities,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Printf("turn failed: %v\n", err)
			continue
		}

		for _, segment := range out.Texts {
			fmt.Print(render(segment))
		}
	}
}
