package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "docbridge",
	Short: "docbridge is a Documentum REST Services gateway",
	Long: `A stateful gateway exposing a simplified REST API in front of Documentum
REST Services: session lifecycle, DQL execution with pagination aggregation,
object CRUD and version control, type, user and group lookups.`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// A .env file is optional; explicit environment wins.
	_ = godotenv.Load()
}
