package node

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"testing"
	"time"

	"github.com/rudransh-shrivastava/peer-assist/internal/logger"
	"github.com/rudransh-shrivastava/peer-assist/internal/protocol"
	"github.com/rudransh-shrivastava/peer-assist/internal/session"
)

func newTestHost(t *testing.T, a *fakeAssistant, saveDir string) *Host {
	t.Helper()
	h, err := NewHost(HostOptions{Assistant: a, SaveDir: saveDir, Logger: logger.Discard()})
	if err != nil {
		t.Fatalf("NewHost failed: %v", err)
	}
	return h
}

func dispatch(t *testing.T, h *Host, s session.Sender, channel string, env protocol.Envelope) error {
	t.Helper()
	handler, ok := h.Handlers()[channel]
	if !ok {
		return h.Fallback(context.Background(), s, session.Message{Channel: channel, Envelope: env})
	}
	return handler(context.Background(), s, session.Message{Channel: channel, Envelope: env})
}

func TestNewHost_RequiresAssistant(t *testing.T) {
	if _, err := NewHost(HostOptions{}); err == nil {
		t.Fatal("expected error without assistant")
	}
}

func TestHost_UserQuestionIsAnsweredOnResponse(t *testing.T) {
	a := &fakeAssistant{answer: "Paris."}
	s := &fakeSender{}
	h := newTestHost(t, a, "")

	if err := dispatch(t, h, s, protocol.ChannelUser, protocol.Text("capital of France?")); err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	if len(a.questions) != 1 || a.questions[0] != "capital of France?" {
		t.Errorf("unexpected questions %v", a.questions)
	}
	if len(s.sent) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(s.sent))
	}
	if s.sent[0].channel != protocol.ChannelResponse || s.sent[0].env.Payload != "Paris." || s.sent[0].expectReply {
		t.Errorf("unexpected reply %+v", s.sent[0])
	}
}

func TestHost_UserQuestionFailureStillReplies(t *testing.T) {
	a := &fakeAssistant{askErr: errors.New("model down")}
	s := &fakeSender{}
	h := newTestHost(t, a, "")

	if err := dispatch(t, h, s, protocol.ChannelUser, protocol.Text("hi")); err == nil {
		t.Fatal("expected handler error")
	}
	if len(s.sent) != 1 || s.sent[0].env.Payload != askFailed {
		t.Errorf("expected failure notice, got %+v", s.sent)
	}
}

func TestHost_UploadImageIngestedOnce(t *testing.T) {
	a := &fakeAssistant{}
	s := &fakeSender{}
	dir := t.TempDir()
	h := newTestHost(t, a, dir)

	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Set(2, 1, color.RGBA{G: 200, A: 255})
	env, err := protocol.EncodeImage(img)
	if err != nil {
		t.Fatal(err)
	}

	if err := dispatch(t, h, s, protocol.ChannelUpload, env); err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	if len(a.images) != 1 {
		t.Fatalf("expected exactly one ingestion, got %d", len(a.images))
	}
	if got := a.images[0].Bounds(); got != img.Bounds() {
		t.Errorf("expected bounds %v, got %v", img.Bounds(), got)
	}
	if len(s.sent) != 0 {
		t.Errorf("upload should not reply, sent %+v", s.sent)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected one saved upload, got %d", len(entries))
	}
}

func TestHost_UploadsInOneSecondGetDistinctLabels(t *testing.T) {
	a := &fakeAssistant{}
	s := &fakeSender{}
	h := newTestHost(t, a, "")

	base := time.Date(2024, 5, 6, 9, 30, 15, 0, time.UTC)
	stamps := []time.Time{base.Add(120 * time.Millisecond), base.Add(121 * time.Millisecond)}
	calls := 0
	h.now = func() time.Time {
		now := stamps[calls]
		calls++
		return now
	}

	env, err := protocol.EncodeImage(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	if err != nil {
		t.Fatal(err)
	}
	for range stamps {
		if err := dispatch(t, h, s, protocol.ChannelUpload, env); err != nil {
			t.Fatalf("handler failed: %v", err)
		}
	}

	want := []string{"upload-20240506-093015.120", "upload-20240506-093015.121"}
	if len(a.labels) != len(want) {
		t.Fatalf("expected %d labels, got %v", len(want), a.labels)
	}
	for i := range want {
		if a.labels[i] != want[i] {
			t.Errorf("label %d: expected %s, got %s", i, want[i], a.labels[i])
		}
	}
}

func TestHost_UploadBadImage(t *testing.T) {
	a := &fakeAssistant{}
	h := newTestHost(t, a, "")

	err := dispatch(t, h, &fakeSender{}, protocol.ChannelUpload, protocol.Envelope{Kind: protocol.KindImage, Payload: "***"})
	if !errors.Is(err, protocol.ErrMalformedEnvelope) {
		t.Errorf("expected ErrMalformedEnvelope, got %v", err)
	}
	if len(a.images) != 0 {
		t.Errorf("expected no ingestion, got %d", len(a.images))
	}
}

func TestHost_UploadTextIsOnlyLogged(t *testing.T) {
	a := &fakeAssistant{}
	s := &fakeSender{}
	h := newTestHost(t, a, "")

	if err := dispatch(t, h, s, protocol.ChannelUpload, protocol.Text("notes")); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if len(a.images) != 0 || len(s.sent) != 0 {
		t.Error("text upload should neither ingest nor reply")
	}
}

func TestHost_ChatIsAcknowledged(t *testing.T) {
	s := &fakeSender{}
	h := newTestHost(t, &fakeAssistant{}, "")

	if err := dispatch(t, h, s, protocol.ChannelChat, protocol.Text("hello")); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if len(s.sent) != 1 || s.sent[0].channel != protocol.ChannelResponse || s.sent[0].env.Payload != chatAck {
		t.Errorf("unexpected ack %+v", s.sent)
	}
}

func TestHost_KeepAliveAndUnknownChannels(t *testing.T) {
	a := &fakeAssistant{}
	s := &fakeSender{}
	h := newTestHost(t, a, "")

	if err := dispatch(t, h, s, protocol.ChannelKeepAlive, protocol.Text(protocol.KeepAliveMarker)); err != nil {
		t.Errorf("keep-alive handler failed: %v", err)
	}
	if err := dispatch(t, h, s, "extra", protocol.Text("hi")); err != nil {
		t.Errorf("fallback failed: %v", err)
	}
	if len(s.sent) != 0 || len(a.questions) != 0 {
		t.Error("expected no side effects")
	}
}
