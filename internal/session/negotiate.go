package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rudransh-shrivastava/peer-assist/internal/protocol"
	"github.com/rudransh-shrivastava/peer-assist/internal/transport"
)

// negotiate builds a fresh peer connection and runs one offer/answer exchange.
// On error the caller drops the half-built generation.
func (s *Session) negotiate(ctx context.Context) error {
	s.setState(StateNegotiating)

	gen := s.newGeneration(ctx)
	s.install(gen)

	peer, err := s.peers.NewPeer(gen.log)
	if err != nil {
		return fmt.Errorf("failed to create peer connection: %w", err)
	}
	if err := s.attach(gen, peer); err != nil {
		return err
	}

	peer.OnDataChannel(func(dc transport.DataChannel) {
		gen.log.Infof("Remote opened channel %s", dc.Label())
		s.track(gen, dc)
	})

	if s.role == RoleInitiator {
		err = s.offer(gen)
	} else {
		err = s.answer(gen)
	}
	if err != nil {
		return err
	}

	s.setState(StateConnected)
	return nil
}

func (s *Session) offer(gen *generation) error {
	for _, name := range protocol.Channels() {
		dc, err := gen.peer.CreateDataChannel(name)
		if err != nil {
			return err
		}
		s.track(gen, dc)
	}

	sdp, err := gen.peer.CreateOffer(gen.ctx)
	if err != nil {
		return err
	}

	desc := transport.Description{ID: s.id, Type: transport.SDPTypeOffer, SDP: sdp}
	if err := s.signaler.PublishOffer(gen.ctx, desc); err != nil {
		return fmt.Errorf("failed to publish offer: %w", err)
	}
	gen.log.Info("Offer published, waiting for answer")

	answer, err := s.poll(gen.ctx, s.signaler.TakeAnswer)
	if err != nil {
		return fmt.Errorf("failed to get answer: %w", err)
	}
	if answer.Type != transport.SDPTypeAnswer {
		return fmt.Errorf("expected answer description, got %q", answer.Type)
	}
	gen.log.WithField("remote", answer.ID).Info("Answer received")

	return gen.peer.SetAnswer(answer.SDP)
}

func (s *Session) answer(gen *generation) error {
	gen.log.Info("Waiting for offer")
	offer, err := s.poll(gen.ctx, s.signaler.TakeOffer)
	if err != nil {
		return fmt.Errorf("failed to get offer: %w", err)
	}
	if offer.Type != transport.SDPTypeOffer {
		return fmt.Errorf("expected offer description, got %q", offer.Type)
	}
	gen.log.WithField("remote", offer.ID).Info("Offer received")

	sdp, err := gen.peer.CreateAnswer(gen.ctx, offer.SDP)
	if err != nil {
		return err
	}

	desc := transport.Description{ID: s.id, Type: transport.SDPTypeAnswer, SDP: sdp}
	if err := s.signaler.PublishAnswer(gen.ctx, desc); err != nil {
		return fmt.Errorf("failed to publish answer: %w", err)
	}
	gen.log.Info("Answer published")
	return nil
}

// poll calls take every poll interval until a description arrives. Any error
// other than ErrNotPresent ends the poll.
func (s *Session) poll(ctx context.Context, take func(context.Context) (transport.Description, error)) (transport.Description, error) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		desc, err := take(ctx)
		if err == nil {
			return desc, nil
		}
		if !errors.Is(err, transport.ErrNotPresent) {
			return transport.Description{}, err
		}

		select {
		case <-ctx.Done():
			return transport.Description{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// track registers dc in gen and wires its readiness and message events.
func (s *Session) track(gen *generation, dc transport.DataChannel) {
	name := dc.Label()
	gen.registry.add(dc)
	log := gen.log.WithField("channel", name)

	dc.OnOpen(func() {
		gen.registry.setReady(name, true)
		log.Debug("Channel open")
		if name == protocol.ChannelKeepAlive {
			gen.pulseOnce.Do(func() {
				go s.pulse(gen)
			})
		}
	})

	dc.OnClose(func() {
		gen.registry.setReady(name, false)
		log.Debug("Channel closed")
	})

	dc.OnMessage(func(data []byte, _ bool) {
		s.receive(gen, name, data)
	})
}
