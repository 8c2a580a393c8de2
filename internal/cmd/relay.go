package cmd

import (
	"github.com/rudransh-shrivastava/peer-assist/internal/config"
	"github.com/rudransh-shrivastava/peer-assist/internal/relay"
	"github.com/spf13/cobra"
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "runs the signaling relay",
	Long:  `runs the HTTP relay that holds at most one pending offer and one pending answer`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}

		opts := relay.Options{Addr: cfg.RelayAddr, Logger: log}
		if cfg.AnthropicAPIKey != "" {
			deps, err := openAssistant(cfg, log)
			if err != nil {
				return err
			}
			defer deps.Close()
			opts.Summarizer = deps.rag
		} else {
			log.Info("No Anthropic key configured, /summarize is disabled")
		}

		ctx, stop := signalContext()
		defer stop()
		return relay.NewServer(opts).Serve(ctx)
	},
}

func init() {
	relayCmd.Flags().String("addr", ":8000", "listen address")
	_ = v.BindPFlag(config.KeyRelayAddr, relayCmd.Flags().Lookup("addr"))
}
