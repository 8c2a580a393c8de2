package assistant

import (
	"context"
	"strings"
	"sync"

	"github.com/rudransh-shrivastava/peer-assist/internal/db"
)

type fakeCompleter struct {
	mu        sync.Mutex
	answer    string
	analysis  string
	describe  string
	err       error
	prompts   []string
	systems   []string
	described int
}

func (f *fakeCompleter) Complete(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.systems = append(f.systems, system)
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	if strings.HasPrefix(system, "Analyze") {
		return f.analysis, nil
	}
	return f.answer, nil
}

func (f *fakeCompleter) Describe(ctx context.Context, png []byte, instruction string, maxTokens int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.described++
	if f.err != nil {
		return "", f.err
	}
	return f.describe, nil
}

type fakeMemory struct {
	docs   []db.Document
	chunks []db.Chunk
	gets   int
}

func (m *fakeMemory) AddDocument(ctx context.Context, source, kind string, chunks []string) (db.Document, error) {
	doc := db.Document{ID: uint(len(m.docs) + 1), Source: source, Kind: kind}
	m.docs = append(m.docs, doc)
	for i, c := range chunks {
		m.chunks = append(m.chunks, db.Chunk{
			ID:         uint(len(m.chunks) + 1),
			DocumentID: doc.ID,
			Document:   doc,
			Position:   i,
			Content:    c,
		})
	}
	return doc, nil
}

func (m *fakeMemory) GetChunks(ctx context.Context) ([]db.Chunk, error) {
	m.gets++
	return m.chunks, nil
}

type fakeActions struct {
	recorded []db.Action
}

func (a *fakeActions) CreateAction(ctx context.Context, kind, details, text string) (db.Action, error) {
	act := db.Action{ID: uint(len(a.recorded) + 1), Kind: kind, Details: details, Text: text}
	a.recorded = append(a.recorded, act)
	return act, nil
}
