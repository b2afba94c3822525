package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ternarybob/medguard/internal/common"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("MedGuard version %s\n", common.GetFullVersion())
	},
}
