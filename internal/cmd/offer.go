package cmd

import (
	"errors"

	"github.com/rudransh-shrivastava/peer-assist/internal/config"
	"github.com/rudransh-shrivastava/peer-assist/internal/node"
	"github.com/rudransh-shrivastava/peer-assist/internal/session"
	"github.com/spf13/cobra"
)

var offerCmd = &cobra.Command{
	Use:   "offer [documents...]",
	Short: "runs the assistant host",
	Long: `runs the offer side: it ingests the given documents, declares the data
channels, publishes an offer and answers questions from the remote terminal`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}

		deps, err := openAssistant(cfg, log)
		if err != nil {
			return err
		}
		defer deps.Close()

		ctx, stop := signalContext()
		defer stop()

		for _, path := range args {
			if err := deps.rag.Ingest(ctx, path); err != nil {
				log.Warnf("Failed to ingest %s: %v", path, err)
			}
		}

		host, err := node.NewHost(node.HostOptions{
			Assistant: deps.rag,
			SaveDir:   cfg.SaveDir,
			Logger:    log,
		})
		if err != nil {
			return err
		}

		sess, err := newSession(ctx, cfg, session.RoleInitiator, host.Handlers(), host.Fallback, log)
		if err != nil {
			return err
		}
		defer sess.Close()

		if err := sess.Run(ctx); err != nil && !errors.Is(err, ctx.Err()) {
			return err
		}
		return nil
	},
}

func init() {
	offerCmd.Flags().String("save-dir", "", "keep a copy of uploaded images here")
	_ = v.BindPFlag(config.KeySaveDir, offerCmd.Flags().Lookup("save-dir"))
}
