package node

import (
	"context"
	"errors"
	"image"
	"sync"

	"github.com/rudransh-shrivastava/peer-assist/internal/assistant"
	"github.com/rudransh-shrivastava/peer-assist/internal/protocol"
	"github.com/rudransh-shrivastava/peer-assist/internal/session"
)

type sent struct {
	channel     string
	env         protocol.Envelope
	expectReply bool
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sent
	err  error
}

func (f *fakeSender) Send(_ context.Context, channel string, env protocol.Envelope, expectReply bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{channel: channel, env: env, expectReply: expectReply})
	return "", f.err
}

type fakeAssistant struct {
	mu        sync.Mutex
	answer    string
	askErr    error
	questions []string
	images    []image.Image
	labels    []string
}

var _ assistant.Assistant = (*fakeAssistant)(nil)

func (f *fakeAssistant) Ask(_ context.Context, question string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.questions = append(f.questions, question)
	return f.answer, f.askErr
}

func (f *fakeAssistant) Ingest(context.Context, string) error {
	return errors.New("not used")
}

func (f *fakeAssistant) IngestImage(_ context.Context, img image.Image, label string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images = append(f.images, img)
	f.labels = append(f.labels, label)
	return nil
}

func (f *fakeAssistant) AnalyzeTextForActions(context.Context, string) ([]assistant.Action, error) {
	return nil, nil
}

type call struct {
	channel     string
	payload     string
	expectReply bool
}

type fakeConn struct {
	mu         sync.Mutex
	calls      []call
	reply      string
	err        error
	state      session.State
	closed     bool
	reconnects int
}

func (f *fakeConn) SendText(_ context.Context, channel, text string, expectReply bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{channel: channel, payload: text, expectReply: expectReply})
	return f.reply, f.err
}

func (f *fakeConn) SendImageFile(_ context.Context, channel, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{channel: channel, payload: path})
	return f.err
}

func (f *fakeConn) State() session.State {
	return f.state
}

func (f *fakeConn) Reconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reconnects++
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
