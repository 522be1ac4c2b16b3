package main

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:   "warden",
	Short: "Release and recovery orchestration for multi-service systems",
	Long: `warden progressively shifts traffic to new versions with automatic
promotion or rollback, and runs dependency-ordered, time-boxed disaster
recovery over a service registry.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}
