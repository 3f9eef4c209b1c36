package main

// @title           Madison Connect API
// @version         1.0
// @description     OAuth connection manager for Madison Studio. Connects organizations to Etsy, LinkedIn, Google Calendar and Shopify.

// @BasePath  /api/v1
// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Session JWT. Format: "Bearer {token}"

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "madison-connect",
		Short:         "OAuth connection manager for Madison Studio",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "load environment variables from this file (default: ./.env if present)")

	serve := newServeCmd(&envFile)
	root.AddCommand(serve, newCleanupStatesCmd(&envFile), newVersionCmd())

	// Running the binary without a subcommand starts the server.
	root.RunE = serve.RunE
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
