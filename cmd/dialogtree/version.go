package main

import (
	"fmt"
	"strings"

	"github.com/maxbot-ai/dialogtree"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of dialogtree",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("dialogtree version %s\n", strings.TrimSpace(dialogtree.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
