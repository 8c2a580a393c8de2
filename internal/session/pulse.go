package session

import (
	"time"

	"github.com/rudransh-shrivastava/peer-assist/internal/protocol"
)

// pulse sends the keep-alive marker immediately and then every pulse interval
// until the generation ends. Send failures are logged and the loop continues.
func (s *Session) pulse(gen *generation) {
	log := gen.log.WithField("channel", protocol.ChannelKeepAlive)
	log.Debug("Liveness pulse started")

	data, err := s.codec.Encode(protocol.Text(protocol.KeepAliveMarker))
	if err != nil {
		log.Errorf("Failed to encode keep-alive: %v", err)
		return
	}

	ticker := time.NewTicker(s.pulseInterval)
	defer ticker.Stop()

	for {
		if gen.ctx.Err() != nil {
			return
		}
		dc, err := gen.registry.lookup(protocol.ChannelKeepAlive)
		if err == nil {
			err = s.transmit(dc, data)
		}
		if err != nil {
			log.Warnf("Keep-alive failed: %v", err)
		}

		select {
		case <-gen.ctx.Done():
			log.Debug("Liveness pulse stopped")
			return
		case <-ticker.C:
		}
	}
}
