package cmd

import (
	"fmt"

	"github.com/rudransh-shrivastava/peer-assist/internal/db"
	"github.com/rudransh-shrivastava/peer-assist/internal/store"
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest path...",
	Short: "adds documents to the assistant memory",
	Long:  `ingests text, markdown and image files into the assistant memory without starting a session`,
	Args:  cobra.MinimumNArgs(1),
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

		var failed int
		for _, path := range args {
			if err := deps.rag.Ingest(ctx, path); err != nil {
				log.Errorf("Failed to ingest %s: %v", path, err)
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d documents failed", failed, len(args))
		}
		return nil
	},
}

var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "lists actions found in ingested content",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		gormDB, err := db.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close(gormDB)

		actions, err := store.NewActionStore(gormDB).GetActions(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, a := range actions {
			fmt.Fprintf(out, "%-12s %s\n", a.Kind, a.Details)
		}
		return nil
	},
}

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "lists the documents in the assistant memory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		gormDB, err := db.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close(gormDB)

		memory := store.NewMemoryStore(gormDB)
		docs, err := memory.GetDocuments(cmd.Context())
		if err != nil {
			return err
		}
		chunks, err := memory.CountChunks(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, d := range docs {
			fmt.Fprintf(out, "%4d %-6s %s\n", d.ID, d.Kind, d.Source)
		}
		fmt.Fprintf(out, "%d documents, %d chunks\n", len(docs), chunks)
		return nil
	},
}
