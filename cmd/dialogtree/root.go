package main

import (
	"fmt"
	"os"
	"strings"

	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/maxbot-ai/dialogtree/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "dialogtree",
	Short: "Dialogtree is a deterministic dialog engine for conversational agents",
	Long: `Dialogtree executes declarative dialog trees: conditioned nodes,
ordered slot-filling with retries, digressions, and template directives,
against persistent per-session state.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to a config file (default: ./dialogtree.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")

	cobra.OnInitialize(initConfig)
}

// initConfig wires viper: flag < config file < DIALOGTREE_* environment.
func initConfig() {
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("dialogtree")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("DIALOGTREE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "error reading config: %v\n", err)
			os.Exit(1)
		}
	}
}

// newLogger builds the process logger from the --log-level flag.
func newLogger() *slog.Logger {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return logging.New(l)
}
