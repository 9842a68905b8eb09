package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/maxbot-ai/dialogtree"
	presentation "github.com/maxbot-ai/dialogtree/internal/presentation/graph"
)

var graphCmd = &cobra.Command{
	Use:   "graph <definition.yaml>",
	Short: "Render a bot's dialog tree as a Mermaid flowchart",
	Long: `Compiles a bot definition and prints its topology in Mermaid syntax.
Paste the output into any Mermaid renderer to see the dialog tree,
including followup branches and handler jumps.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runGraph(args[0]); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}

func runGraph(path string) error {
	bot, err := dialogtree.Open(path)
	if err != nil {
		return err
	}
	fmt.Print(presentation.Mermaid(bot.Graph(), nil))
	return nil
}
