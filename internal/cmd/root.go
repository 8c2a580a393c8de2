package cmd

import (
	"os"

	"github.com/rudransh-shrivastava/peer-assist/internal/config"
	"github.com/rudransh-shrivastava/peer-assist/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	v       = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   `peer-assist`,
	Short: "peer-to-peer assistant over WebRTC data channels",
	Long: `peer-assist connects an assistant host (offer side) and a remote terminal
(answer side) over WebRTC. A small HTTP relay carries the offer and answer.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.NewLogger().Error(err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default ./peer-assist.{yaml,toml,json})")
	flags.String("signal-url", "", "signaling relay url (env SIGNAL_SERVER_URL)")
	flags.String("client-id", "", "session identifier (env CLIENT_ID)")
	flags.String("wire-format", "json", "envelope wire format: json or proto")
	flags.String("log-level", "debug", "log level")
	flags.String("db-path", "peer-assist.db", "assistant memory database")

	_ = v.BindPFlag(config.KeySignalURL, flags.Lookup("signal-url"))
	_ = v.BindPFlag(config.KeyClientID, flags.Lookup("client-id"))
	_ = v.BindPFlag(config.KeyWireFormat, flags.Lookup("wire-format"))
	_ = v.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))
	_ = v.BindPFlag(config.KeyDBPath, flags.Lookup("db-path"))

	rootCmd.AddCommand(relayCmd)
	rootCmd.AddCommand(offerCmd)
	rootCmd.AddCommand(answerCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(actionsCmd)
	rootCmd.AddCommand(documentsCmd)
}
