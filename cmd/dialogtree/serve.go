package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/maxbot-ai/dialogtree"
	fileStore "github.com/maxbot-ai/dialogtree/internal/adapters/file"
	memoryStore "github.com/maxbot-ai/dialogtree/internal/adapters/memory"
	redisStore "github.com/maxbot-ai/dialogtree/internal/adapters/redis"
	httpAdapter "github.com/maxbot-ai/dialogtree/pkg/adapters/http"
	"github.com/maxbot-ai/dialogtree/pkg/persistence/middleware"
	"github.com/maxbot-ai/dialogtree/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

var serveCmd = &cobra.Command{
	Use:   "serve <definition.yaml>",
	Short: "Start the HTTP server",
	Long: `Starts the dialog engine in server mode, exposing turn processing,
RPC triggers, and session inspection as a JSON API over HTTP.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runServe(args[0]); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().String("store", "memory", "Session store backend: memory, file, redis")
	serveCmd.Flags().String("store-path", "", "Directory for the file store")
	serveCmd.Flags().String("redis-addr", "localhost:6379", "Redis address")
	serveCmd.Flags().String("redis-password", "", "Redis password")
	serveCmd.Flags().Int("redis-db", 0, "Redis database number")
	serveCmd.Flags().Duration("session-ttl", 0, "Session expiration in Redis (0 = never)")
	serveCmd.Flags().Duration("lock-ttl", 30*time.Second, "Distributed lock TTL (redis store only)")
	serveCmd.Flags().StringSlice("redact", nil, "Slot name patterns masked before sessions are stored")
	serveCmd.Flags().String("encryption-key", "", "Hex-encoded 32-byte key; encrypts sessions at rest")

	_ = viper.BindPFlag("serve.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("serve.store", serveCmd.Flags().Lookup("store"))
	_ = viper.BindPFlag("serve.store_path", serveCmd.Flags().Lookup("store-path"))
	_ = viper.BindPFlag("serve.redis.addr", serveCmd.Flags().Lookup("redis-addr"))
	_ = viper.BindPFlag("serve.redis.password", serveCmd.Flags().Lookup("redis-password"))
	_ = viper.BindPFlag("serve.redis.db", serveCmd.Flags().Lookup("redis-db"))
	_ = viper.BindPFlag("serve.session_ttl", serveCmd.Flags().Lookup("session-ttl"))
	_ = viper.BindPFlag("serve.lock_ttl", serveCmd.Flags().Lookup("lock-ttl"))
	_ = viper.BindPFlag("serve.redact", serveCmd.Flags().Lookup("redact"))
	_ = viper.BindPFlag("serve.encryption_key", serveCmd.Flags().Lookup("encryption-key"))
}

func runServe(definition string) error {
	logger := newLogger()

	opts := []dialogtree.Option{dialogtree.WithLogger(logger)}

	var store ports.SessionStore
	switch viper.GetString("serve.store") {
	case "memory":
		store = memoryStore.NewStore()
	case "file":
		store = fileStore.New(viper.GetString("serve.store_path"))
	case "redis":
		client := backend.NewClient(&backend.Options{
			Addr:     viper.GetString("serve.redis.addr"),
			Password: viper.GetString("serve.redis.password"),
			DB:       viper.GetInt("serve.redis.db"),
		})
		store = redisStore.NewFromClient(client,
			redisStore.WithTTL(viper.GetDuration("serve.session_ttl")))
		// Redis also provides cross-replica exclusion.
		opts = append(opts,
			dialogtree.WithLocker(redisStore.NewLocker(client, "dialogtree:")),
			dialogtree.WithLockTTL(viper.GetDuration("serve.lock_ttl")),
		)
	default:
		return fmt.Errorf("unknown store backend %q (supported: memory, file, redis)", viper.GetString("serve.store"))
	}

	store, err := wrapStore(store)
	if err != nil {
		return err
	}
	opts = append(opts, dialogtree.WithSessionStore(store))

	bot, err := dialogtree.Open(definition, opts...)
	if err != nil {
		return fmt.Errorf("failed to initialize bot: %w", err)
	}

	srv := &http.Server{
		Addr:    ":" + viper.GetString("serve.port"),
		Handler: httpAdapter.NewHandler(bot, logger),
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)

	go func() {
		logger.Info("Starting dialogtree server", "addr", srv.Addr, "definition", definition)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info("Start shutdown", "signal", sig.String())

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("Graceful shutdown did not complete", "err", err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("error killing server: %w", err)
			}
		}
		logger.Info("Dialogtree server stopped gracefully")
	}
	return nil
}

// wrapStore applies the configured persistence middleware. Redaction runs
// before encryption so masked slots are what end up sealed at rest.
func wrapStore(store ports.SessionStore) (ports.SessionStore, error) {
	var chain []middleware.Middleware

	if patterns := viper.GetStringSlice("serve.redact"); len(patterns) > 0 {
		for _, p := range patterns {
			if _, err := regexp.Compile(p); err != nil {
				return nil, fmt.Errorf("invalid redact pattern %q: %w", p, err)
			}
		}
		chain = append(chain, middleware.NewRedaction(patterns))
	}

	if encoded := viper.GetString("serve.encryption_key"); encoded != "" {
		key, err := hex.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("encryption key is not valid hex: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
		}
		chain = append(chain, middleware.NewEncryption(middleware.EncryptionConfig{ActiveKey: key}))
	}

	if len(chain) == 0 {
		return store, nil
	}
	return middleware.Chain(store, chain...), nil
}
