// Command irisd serves credential signing and proof verification over HTTP.
package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/smartbcity/iris-go/cmd/irisd/startcmd"
)

func main() {
	logger := zap.Must(zap.NewProduction())

	rootCmd := &cobra.Command{
		Use: "irisd",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	startCmd, err := startcmd.Cmd(&startcmd.HTTPServer{})
	if err != nil {
		logger.Fatal("failed to create start command", zap.Error(err))
	}
	rootCmd.AddCommand(startCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Fatal("failed to run irisd", zap.Error(err))
	}
}
