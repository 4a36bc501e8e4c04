package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	mailpilot "github.com/mailpilot/mailpilot/sdk/go"
)

var v = viper.New()

var rootCmd = &cobra.Command{
	Use:           "mailpilot",
	Short:         "Command line client for the Mail Pilot API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("server", "http://localhost:8080", "Mail Pilot server URL")
	flags.String("token", "", "API access token")

	v.BindPFlag("server", flags.Lookup("server"))
	v.BindPFlag("token", flags.Lookup("token"))
	v.BindEnv("server", "MAILPILOT_SERVER_URL")
	v.BindEnv("token", "MAILPILOT_TOKEN")
	v.BindEnv("smtp_password", "MAILPILOT_SMTP_PASSWORD")

	rootCmd.AddCommand(
		tokenCmd,
		importCmd,
		recipientsCmd,
		previewCmd,
		sendCmd,
		progressCmd,
		cancelCmd,
		historyCmd,
		statsCmd,
		smtpTestCmd,
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newClient() *mailpilot.Client {
	return mailpilot.NewClient(mailpilot.Config{
		BaseURL: v.GetString("server"),
		Token:   v.GetString("token"),
	})
}
