package node

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rudransh-shrivastava/peer-assist/internal/assistant"
	"github.com/rudransh-shrivastava/peer-assist/internal/protocol"
	"github.com/rudransh-shrivastava/peer-assist/internal/session"
	"github.com/sirupsen/logrus"
)

const (
	chatAck     = "Response"
	askFailed   = "Sorry, I could not answer that right now."
	uploadLabel = "upload"
)

type HostOptions struct {
	Assistant assistant.Assistant
	// SaveDir keeps a copy of uploaded images when set.
	SaveDir string
	Logger  *logrus.Logger
}

// Host serves the offer side: questions on user go to the assistant and
// uploaded images are ingested.
type Host struct {
	assistant assistant.Assistant
	saveDir   string
	logger    *logrus.Logger
	now       func() time.Time
}

func NewHost(opts HostOptions) (*Host, error) {
	if opts.Assistant == nil {
		return nil, errors.New("assistant is required")
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Host{
		assistant: opts.Assistant,
		saveDir:   opts.SaveDir,
		logger:    log,
		now:       time.Now,
	}, nil
}

func (h *Host) Handlers() session.Handlers {
	return session.Handlers{
		protocol.ChannelUser:      h.handleUser,
		protocol.ChannelUpload:    h.handleUpload,
		protocol.ChannelChat:      h.handleChat,
		protocol.ChannelKeepAlive: h.handleKeepAlive,
	}
}

func (h *Host) Fallback(_ context.Context, _ session.Sender, msg session.Message) error {
	h.logger.Infof("Message on %s: %s", msg.Channel, describe(msg.Envelope))
	return nil
}

func (h *Host) handleUser(ctx context.Context, reply session.Sender, msg session.Message) error {
	if !msg.Envelope.IsText() {
		h.logger.Warnf("Ignoring %s message on user", msg.Envelope.Kind)
		return nil
	}

	question := msg.Envelope.Payload
	h.logger.Infof("Question: %s", question)

	answer, err := h.assistant.Ask(ctx, question)
	if err != nil {
		if _, sendErr := reply.Send(ctx, protocol.ChannelResponse, protocol.Text(askFailed), false); sendErr != nil {
			h.logger.Warnf("Failed to send failure notice: %v", sendErr)
		}
		return fmt.Errorf("failed to answer question: %w", err)
	}

	h.logger.Infof("Answer: %s", answer)
	_, err = reply.Send(ctx, protocol.ChannelResponse, protocol.Text(answer), false)
	return err
}

func (h *Host) handleUpload(ctx context.Context, _ session.Sender, msg session.Message) error {
	if msg.Envelope.IsText() {
		h.logger.Infof("Upload text: %s", msg.Envelope.Payload)
		return nil
	}

	img, err := protocol.DecodeImage(msg.Envelope)
	if err != nil {
		return err
	}

	now := h.now()
	label := fmt.Sprintf("%s-%s", uploadLabel, now.Format(stampLayout))

	if h.saveDir != "" {
		path, err := saveImage(h.saveDir, uploadLabel, msg.Envelope, now)
		if err != nil {
			h.logger.Warnf("Failed to keep uploaded image: %v", err)
		} else {
			h.logger.Debugf("Saved upload to %s", path)
		}
	}

	if err := h.assistant.IngestImage(ctx, img, label); err != nil {
		return fmt.Errorf("failed to ingest %s: %w", label, err)
	}
	h.logger.Infof("Ingested uploaded image %s", label)
	return nil
}

func (h *Host) handleChat(ctx context.Context, reply session.Sender, msg session.Message) error {
	h.logger.Infof("Chat: %s", describe(msg.Envelope))
	_, err := reply.Send(ctx, protocol.ChannelResponse, protocol.Text(chatAck), false)
	return err
}

func (h *Host) handleKeepAlive(_ context.Context, _ session.Sender, msg session.Message) error {
	h.logger.Debugf("Keep-alive: %s", msg.Envelope.Payload)
	return nil
}

func describe(env protocol.Envelope) string {
	if env.IsText() {
		return env.Payload
	}
	return fmt.Sprintf("<%s, %d bytes encoded>", env.Kind, len(env.Payload))
}
