package cmd

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rudransh-shrivastava/peer-assist/internal/db"
	"github.com/rudransh-shrivastava/peer-assist/internal/logger"
	"github.com/rudransh-shrivastava/peer-assist/internal/relay"
	"github.com/rudransh-shrivastava/peer-assist/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Subcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"relay", "offer", "answer", "ingest", "actions", "documents"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestActionsCommand_ListsRecordedActions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assist.db")

	gormDB, err := db.Open(path)
	require.NoError(t, err)
	_, err = store.NewActionStore(gormDB).CreateAction(context.Background(), "ADD_TODO", "water the plants", "water the plants")
	require.NoError(t, err)
	require.NoError(t, db.Close(gormDB))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"actions", "--db-path", path, "--log-level", "error"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.True(t, strings.Contains(out.String(), "water the plants"), out.String())
}

func TestDocumentsCommand_ListsMemory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assist.db")

	gormDB, err := db.Open(path)
	require.NoError(t, err)
	memory := store.NewMemoryStore(gormDB)
	_, err = memory.AddDocument(context.Background(), "notes.md", "text", []string{"first", "second"})
	require.NoError(t, err)
	_, err = memory.AddDocument(context.Background(), "board.png", "image", []string{"whiteboard"})
	require.NoError(t, err)
	require.NoError(t, db.Close(gormDB))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"documents", "--db-path", path, "--log-level", "error"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "notes.md")
	assert.Contains(t, out.String(), "board.png")
	assert.Contains(t, out.String(), "2 documents, 3 chunks")
}

func TestCheckRelay(t *testing.T) {
	log := logger.Discard()

	ts := httptest.NewServer(relay.NewServer(relay.Options{Logger: log}).Handler())
	client := relay.NewClient(ts.URL, ts.Client())
	assert.True(t, checkRelay(context.Background(), client, log))

	ts.Close()
	assert.False(t, checkRelay(context.Background(), client, log))
}

func TestAnswerCommand_RequiresPeerConfig(t *testing.T) {
	t.Setenv("SIGNAL_SERVER_URL", "")
	t.Setenv("CLIENT_ID", "")

	rootCmd.SetArgs([]string{"answer", "--signal-url", "", "--client-id", ""})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signaling server url is required")
}
