package session

import (
	"context"

	"github.com/rudransh-shrivastava/peer-assist/internal/protocol"
)

const inboxSize = 32

// Message is one decoded inbound envelope and the channel it arrived on.
type Message struct {
	Channel  string
	Envelope protocol.Envelope
}

type HandlerFunc func(ctx context.Context, reply Sender, msg Message) error

// Handlers maps a channel name to the handler for its inbound messages.
type Handlers map[string]HandlerFunc

func (s *Session) receive(gen *generation, channel string, data []byte) {
	log := gen.log.WithField("channel", channel)

	env, err := s.codec.Decode(data)
	if err != nil {
		log.Warnf("Dropping message: %v", err)
		return
	}

	if channel == protocol.ChannelResponse && env.IsText() {
		if s.pending.resolve(env.Payload) {
			return
		}
		log.Debug("Response with no outstanding request")
	}

	s.enqueue(gen, Message{Channel: channel, Envelope: env})
}

// enqueue hands msg to its channel's worker, starting one on first use.
// Messages on one channel are handled in arrival order; channels do not
// wait on each other.
func (s *Session) enqueue(gen *generation, msg Message) {
	gen.inboxMu.Lock()
	inbox, ok := gen.inboxes[msg.Channel]
	if !ok {
		inbox = make(chan Message, inboxSize)
		gen.inboxes[msg.Channel] = inbox
		go s.work(gen, inbox)
	}
	gen.inboxMu.Unlock()

	select {
	case inbox <- msg:
	case <-gen.ctx.Done():
	}
}

func (s *Session) work(gen *generation, inbox <-chan Message) {
	for {
		select {
		case <-gen.ctx.Done():
			return
		case msg := <-inbox:
			s.dispatch(gen, msg)
		}
	}
}

func (s *Session) dispatch(gen *generation, msg Message) {
	log := gen.log.WithField("channel", msg.Channel)

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Handler panicked: %v", r)
		}
	}()

	handler, ok := s.handlers[msg.Channel]
	if !ok {
		handler = s.fallback
	}
	if handler == nil {
		log.Debugf("No handler, dropping %s message", msg.Envelope.Kind)
		return
	}

	if err := handler(gen.ctx, s, msg); err != nil {
		log.Errorf("Handler failed: %v", err)
	}
}
