package session

import (
	"fmt"
	"sync"

	"github.com/rudransh-shrivastava/peer-assist/internal/transport"
)

type channelEntry struct {
	dc    transport.DataChannel
	ready bool
}

// registry tracks the channels of one connection and whether each is open.
type registry struct {
	mu       sync.Mutex
	channels map[string]*channelEntry
}

func newRegistry() *registry {
	return &registry{channels: make(map[string]*channelEntry)}
}

func (r *registry) add(dc transport.DataChannel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[dc.Label()] = &channelEntry{dc: dc}
}

func (r *registry) setReady(name string, ready bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.channels[name]; ok {
		entry.ready = ready
	}
}

func (r *registry) ready(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.channels[name]
	return ok && entry.ready
}

// lookup returns the channel only when it is known and open.
func (r *registry) lookup(name string) (transport.DataChannel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.channels[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChannel, name)
	}
	if !entry.ready {
		return nil, fmt.Errorf("%w: %s", ErrChannelNotReady, name)
	}
	return entry.dc, nil
}

func (r *registry) snapshot() map[string]bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]bool, len(r.channels))
	for name, entry := range r.channels {
		out[name] = entry.ready
	}
	return out
}

func (r *registry) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels = make(map[string]*channelEntry)
}
