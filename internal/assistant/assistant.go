// Package assistant answers questions from ingested notes and images and
// spots actionable items in them.
package assistant

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/rudransh-shrivastava/peer-assist/internal/db"
	"github.com/sirupsen/logrus"
)

const (
	DefaultTopK = 3

	answerMaxTokens  = 512
	extractMaxTokens = 300
	analyzeMaxTokens = 150
	summaryMaxTokens = 300
	extractText      = "Extract only text from this image"
	noActionSentinel = "No action required"
	kindText         = "text"
	kindImage        = "image"
)

var (
	ErrUnsupportedDocument = errors.New("unsupported document type")
	ErrNoTextFound         = errors.New("no text found")
)

// Assistant is what the offer side calls for inbound user and upload messages.
type Assistant interface {
	Ask(ctx context.Context, question string) (string, error)
	Ingest(ctx context.Context, path string) error
	IngestImage(ctx context.Context, img image.Image, label string) error
	AnalyzeTextForActions(ctx context.Context, text string) ([]Action, error)
}

type MemoryRepository interface {
	AddDocument(ctx context.Context, source, kind string, chunks []string) (db.Document, error)
	GetChunks(ctx context.Context) ([]db.Chunk, error)
}

type ActionRepository interface {
	CreateAction(ctx context.Context, kind, details, text string) (db.Action, error)
}

type Options struct {
	Memory    MemoryRepository
	Actions   ActionRepository
	Completer Completer

	ChunkSize    int
	ChunkOverlap int
	TopK         int
	// MinScore drops retrieved chunks scoring below it.
	MinScore float64

	Now    func() time.Time
	Logger *logrus.Logger
}

// RAG retrieves stored chunks with BM25 and answers through a Completer.
type RAG struct {
	memory    MemoryRepository
	actions   ActionRepository
	completer Completer

	chunkSize    int
	chunkOverlap int
	topK         int
	minScore     float64

	now    func() time.Time
	logger *logrus.Logger

	mu    sync.Mutex
	index *index
}

func New(opts Options) (*RAG, error) {
	if opts.Memory == nil {
		return nil, errors.New("memory repository is required")
	}
	if opts.Completer == nil {
		return nil, errors.New("completer is required")
	}

	r := &RAG{
		memory:       opts.Memory,
		actions:      opts.Actions,
		completer:    opts.Completer,
		chunkSize:    opts.ChunkSize,
		chunkOverlap: opts.ChunkOverlap,
		topK:         opts.TopK,
		minScore:     opts.MinScore,
		now:          opts.Now,
		logger:       opts.Logger,
	}
	if r.chunkSize <= 0 {
		r.chunkSize = DefaultChunkSize
	}
	if r.chunkOverlap <= 0 {
		r.chunkOverlap = DefaultChunkOverlap
	}
	if r.topK <= 0 {
		r.topK = DefaultTopK
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.logger == nil {
		r.logger = logrus.StandardLogger()
	}
	return r, nil
}

func (r *RAG) Ask(ctx context.Context, question string) (string, error) {
	idx, err := r.loadIndex(ctx)
	if err != nil {
		return "", err
	}

	hits := idx.search(question, r.topK, r.minScore)
	r.logger.Debugf("Retrieved %d chunks for question", len(hits))

	parts := make([]string, 0, len(hits))
	for _, h := range hits {
		parts = append(parts, h.Content)
	}

	prompt := fmt.Sprintf("Question: %s\nContext: %s\nAnswer:", question, strings.Join(parts, "\n\n"))
	answer, err := r.completer.Complete(ctx, answerSystemPrompt, prompt, answerMaxTokens)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

const answerSystemPrompt = "You are an assistant for question-answering tasks. Use the following pieces of " +
	"retrieved context to answer the question. If you don't know the answer, just say that you don't know. " +
	"Use three sentences maximum and keep the answer concise."

// Ingest stores a text, markdown or image file.
func (r *RAG) Ingest(ctx context.Context, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		return r.store(ctx, path, kindText, string(data))

	case ".pdf":
		text, err := readPDF(path)
		if err != nil {
			return err
		}
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("%w: %s", ErrNoTextFound, path)
		}
		return r.store(ctx, path, kindText, text)

	case ".png", ".jpg", ".jpeg", ".gif":
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()

		img, _, err := image.Decode(f)
		if err != nil {
			return fmt.Errorf("failed to decode %s: %w", path, err)
		}
		return r.IngestImage(ctx, img, filepath.Base(path))

	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedDocument, path)
	}
}

func readPDF(path string) (string, error) {
	f, doc, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	rd, err := doc.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract text from %s: %w", path, err)
	}
	text, err := io.ReadAll(rd)
	if err != nil {
		return "", fmt.Errorf("failed to extract text from %s: %w", path, err)
	}
	return string(text), nil
}

// IngestImage extracts the text in img and stores it under label.
func (r *RAG) IngestImage(ctx context.Context, img image.Image, label string) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}

	text, err := r.completer.Describe(ctx, buf.Bytes(), extractText, extractMaxTokens)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: %s", ErrNoTextFound, label)
	}

	return r.store(ctx, label, kindImage, text)
}

func (r *RAG) store(ctx context.Context, source, kind, text string) error {
	chunks := SplitText(text, r.chunkSize, r.chunkOverlap)

	if _, err := r.memory.AddDocument(ctx, source, kind, chunks); err != nil {
		return fmt.Errorf("failed to store %s: %w", source, err)
	}
	r.invalidate()
	r.logger.Infof("Ingested %s (%d chunks)", source, len(chunks))

	for _, chunk := range chunks {
		if _, err := r.AnalyzeTextForActions(ctx, chunk); err != nil {
			r.logger.Warnf("Failed to analyze %s for actions: %v", source, err)
		}
	}
	return nil
}

// AnalyzeTextForActions asks the model for alarms, todos and reminders in
// text and records the ones it finds.
func (r *RAG) AnalyzeTextForActions(ctx context.Context, text string) ([]Action, error) {
	system := fmt.Sprintf(analyzeSystemPrompt, r.now().Format("2006-01-02"))

	analysis, err := r.completer.Complete(ctx, system, text, analyzeMaxTokens)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(analysis, "ACTION:") {
		r.logger.Debug(noActionSentinel)
		return nil, nil
	}

	actions := ParseActions(analysis)
	for _, a := range actions {
		r.perform(ctx, a, text)
	}
	return actions, nil
}

const analyzeSystemPrompt = "Analyze the following text and identify if any actions need to be taken. " +
	"Specifically, look for: 1. Dates of events or appointments 2. Tasks or to-do items 3. Reminders. " +
	"Today's date is %s. For any dates mentioned in relative terms (e.g., 'this Friday', 'next Monday'), " +
	"calculate and provide the actual date. If an action is found, provide it in the following format: " +
	"ACTION: [Type of action (SET_ALARM, ADD_TODO, SET_REMINDER)] " +
	"DETAILS: [Relevant details including specific date (YYYY-MM-DD), time, and description] " +
	"If no action is needed, respond with '" + noActionSentinel + ".'"

func (r *RAG) perform(ctx context.Context, a Action, text string) {
	switch a.Kind {
	case ActionSetAlarm:
		r.logger.Infof("Alarm set: %s", a.Details)
	case ActionAddTodo:
		r.logger.Infof("Todo added: %s", a.Details)
	case ActionSetReminder:
		r.logger.Infof("Reminder set: %s", a.Details)
	}

	if r.actions == nil {
		return
	}
	if _, err := r.actions.CreateAction(ctx, string(a.Kind), a.Details, text); err != nil {
		r.logger.Warnf("Failed to record action %s: %v", a.Kind, err)
	}
}

// Summarize condenses text in a few sentences.
func (r *RAG) Summarize(ctx context.Context, text string) (string, error) {
	summary, err := r.completer.Complete(ctx, "Summarize the following text in at most three sentences.", text, summaryMaxTokens)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(summary), nil
}

func (r *RAG) invalidate() {
	r.mu.Lock()
	r.index = nil
	r.mu.Unlock()
}

func (r *RAG) loadIndex(ctx context.Context) (*index, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.index != nil {
		return r.index, nil
	}

	chunks, err := r.memory.GetChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load memory: %w", err)
	}

	passages := make([]passage, 0, len(chunks))
	for _, c := range chunks {
		passages = append(passages, passage{Source: c.Document.Source, Content: c.Content})
	}
	r.index = newIndex(passages)
	return r.index, nil
}
