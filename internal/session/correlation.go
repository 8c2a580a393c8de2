package session

import "sync"

// request is the single outstanding send awaiting a text reply on the
// response channel.
type request struct {
	reply chan string
}

type correlator struct {
	mu   sync.Mutex
	slot *request
}

// register claims the slot, failing with ErrRequestInFlight while another
// request holds it.
func (c *correlator) register() (*request, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.slot != nil {
		return nil, ErrRequestInFlight
	}
	c.slot = &request{reply: make(chan string, 1)}
	return c.slot, nil
}

// resolve hands text to the outstanding request, if any, and frees the slot.
func (c *correlator) resolve(text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.slot == nil {
		return false
	}
	c.slot.reply <- text
	c.slot = nil
	return true
}

func (c *correlator) release(req *request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.slot == req {
		c.slot = nil
	}
}

func (c *correlator) outstanding() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slot != nil
}
