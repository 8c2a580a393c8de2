package session

import (
	"context"
	"fmt"
	"time"

	"github.com/rudransh-shrivastava/peer-assist/internal/protocol"
	"github.com/rudransh-shrivastava/peer-assist/internal/transport"
)

// Sender is the part of a Session handlers use to reply.
type Sender interface {
	Send(ctx context.Context, channel string, env protocol.Envelope, expectReply bool) (string, error)
}

// Send transmits env on channel. With expectReply it waits for the next text
// envelope on the response channel, for at most the reply timeout. Only one
// such request may be outstanding; a second fails with ErrRequestInFlight.
func (s *Session) Send(ctx context.Context, channel string, env protocol.Envelope, expectReply bool) (string, error) {
	select {
	case <-s.closed:
		return "", ErrSessionClosed
	default:
	}

	gen := s.current()
	if gen == nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownChannel, channel)
	}
	dc, err := gen.registry.lookup(channel)
	if err != nil {
		return "", err
	}

	data, err := s.codec.Encode(env)
	if err != nil {
		return "", err
	}

	if !expectReply {
		return "", s.transmit(dc, data)
	}

	req, err := s.pending.register()
	if err != nil {
		return "", err
	}
	defer s.pending.release(req)

	if err := s.transmit(dc, data); err != nil {
		return "", err
	}

	timer := time.NewTimer(s.replyTimeout)
	defer timer.Stop()

	select {
	case reply := <-req.reply:
		return reply, nil
	case <-timer.C:
		return "", ErrReplyTimeout
	case <-s.closed:
		return "", ErrSessionClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *Session) SendText(ctx context.Context, channel, text string, expectReply bool) (string, error) {
	return s.Send(ctx, channel, protocol.Text(text), expectReply)
}

func (s *Session) SendImageFile(ctx context.Context, channel, path string) error {
	env, err := protocol.EncodeImageFile(path)
	if err != nil {
		return err
	}
	_, err = s.Send(ctx, channel, env, false)
	return err
}

func (s *Session) transmit(dc transport.DataChannel, data []byte) error {
	var err error
	if s.codec.Binary() {
		err = dc.Send(data)
	} else {
		err = dc.SendText(string(data))
	}
	if err != nil {
		return fmt.Errorf("failed to send on %s: %w", dc.Label(), err)
	}
	return nil
}
