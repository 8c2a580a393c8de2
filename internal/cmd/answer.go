package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/rudransh-shrivastava/peer-assist/internal/node"
	"github.com/rudransh-shrivastava/peer-assist/internal/session"
	"github.com/spf13/cobra"
)

var answerCmd = &cobra.Command{
	Use:   "answer",
	Short: "runs the remote terminal",
	Long:  `runs the answer side: it waits for an offer, answers it and forwards typed questions to the assistant host`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}

		term := node.NewTerminal(node.TerminalOptions{
			In:      os.Stdin,
			Out:     os.Stdout,
			SaveDir: cfg.SaveDir,
			Spinner: true,
			Logger:  log,
		})

		ctx, stop := signalContext()
		defer stop()

		sess, err := newSession(ctx, cfg, session.RoleResponder, term.Handlers(), term.Fallback, log)
		if err != nil {
			return err
		}
		defer sess.Close()

		errCh := make(chan error, 1)
		go func() {
			errCh <- sess.Run(ctx)
		}()

		if err := term.Run(ctx, sess); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		_ = sess.Close()
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}
