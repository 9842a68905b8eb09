package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/maxbot-ai/dialogtree"
	"github.com/maxbot-ai/dialogtree/pkg/schema"
)

var validateCmd = &cobra.Command{
	Use:   "validate <definition.yaml>",
	Short: "Check a bot definition for consistency",
	Long: `Parses and compiles a bot definition, reporting schema violations,
duplicate labels, unresolved jump targets, and invalid settings.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(args[0]); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Definition is valid.")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(path string) error {
	_, err := dialogtree.Open(path)
	if err == nil {
		return nil
	}

	// Schema violations arrive aggregated; list them one per line.
	if issues := schema.ValidationErrors(err); len(issues) > 0 {
		for _, issue := range issues {
			fmt.Printf("  - %v\n", issue)
		}
		return fmt.Errorf("%d issue(s) found", len(issues))
	}
	return err
}
