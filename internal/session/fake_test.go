package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rudransh-shrivastava/peer-assist/internal/transport"
	"github.com/sirupsen/logrus"
)

// fakeExchange links peers created by different factories once an
// offer/answer pair completes.
type fakeExchange struct {
	mu      sync.Mutex
	offers  map[string]*fakePeer
	answers map[string]*fakePeer
}

func newFakeExchange() *fakeExchange {
	return &fakeExchange{
		offers:  make(map[string]*fakePeer),
		answers: make(map[string]*fakePeer),
	}
}

type fakeFactory struct {
	name string
	ex   *fakeExchange

	mu    sync.Mutex
	peers []*fakePeer
}

func newFakeFactory(name string, ex *fakeExchange) *fakeFactory {
	return &fakeFactory{name: name, ex: ex}
}

func (f *fakeFactory) NewPeer(_ *logrus.Entry) (transport.Peer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p := &fakePeer{ex: f.ex, id: fmt.Sprintf("%s-%d", f.name, len(f.peers)+1)}
	f.peers = append(f.peers, p)
	return p, nil
}

func (f *fakeFactory) created() []*fakePeer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakePeer(nil), f.peers...)
}

type fakePeer struct {
	ex *fakeExchange
	id string

	mu       sync.Mutex
	channels []*fakeChannel
	onDC     func(transport.DataChannel)
	closed   bool
}

func (p *fakePeer) CreateDataChannel(label string) (transport.DataChannel, error) {
	ch := &fakeChannel{label: label}
	p.mu.Lock()
	p.channels = append(p.channels, ch)
	p.mu.Unlock()
	return ch, nil
}

func (p *fakePeer) OnDataChannel(fn func(transport.DataChannel)) {
	p.mu.Lock()
	p.onDC = fn
	p.mu.Unlock()
}

func (p *fakePeer) CreateOffer(_ context.Context) (string, error) {
	sdp := "offer-" + p.id
	p.ex.mu.Lock()
	p.ex.offers[sdp] = p
	p.ex.mu.Unlock()
	return sdp, nil
}

func (p *fakePeer) CreateAnswer(_ context.Context, offer string) (string, error) {
	p.ex.mu.Lock()
	defer p.ex.mu.Unlock()

	if _, ok := p.ex.offers[offer]; !ok {
		return "", fmt.Errorf("unknown offer %q", offer)
	}
	sdp := "answer-" + p.id
	p.ex.answers[sdp] = p
	return sdp, nil
}

func (p *fakePeer) SetAnswer(answer string) error {
	p.ex.mu.Lock()
	remote := p.ex.answers[answer]
	p.ex.mu.Unlock()

	if remote == nil {
		return fmt.Errorf("unknown answer %q", answer)
	}
	link(p, remote)
	return nil
}

// link mirrors every channel of a onto b, announces them to b and opens both ends.
func link(a, b *fakePeer) {
	a.mu.Lock()
	local := append([]*fakeChannel(nil), a.channels...)
	a.mu.Unlock()

	b.mu.Lock()
	onDC := b.onDC
	b.mu.Unlock()

	mirrors := make([]*fakeChannel, 0, len(local))
	for _, ch := range local {
		m := &fakeChannel{label: ch.label}
		ch.setRemote(m)
		m.setRemote(ch)

		b.mu.Lock()
		b.channels = append(b.channels, m)
		b.mu.Unlock()

		if onDC != nil {
			onDC(m)
		}
		mirrors = append(mirrors, m)
	}

	for i, ch := range local {
		ch.open()
		mirrors[i].open()
	}
}

func (p *fakePeer) channel(label string) *fakeChannel {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ch := range p.channels {
		if ch.label == label {
			return ch
		}
	}
	return nil
}

func (p *fakePeer) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *fakePeer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	channels := append([]*fakeChannel(nil), p.channels...)
	p.mu.Unlock()

	for _, ch := range channels {
		ch.close()
		if remote := ch.remoteEnd(); remote != nil {
			remote.close()
		}
	}
	return nil
}

var errFakeClosed = errors.New("fake channel closed")

type fakeChannel struct {
	label string

	mu      sync.Mutex
	isOpen  bool
	closed  bool
	failing bool
	onOpen  func()
	onClose func()
	onMsg   func([]byte, bool)
	remote  *fakeChannel
	sent    int
}

func (c *fakeChannel) Label() string { return c.label }

func (c *fakeChannel) Send(data []byte) error { return c.write(data, false) }

func (c *fakeChannel) SendText(s string) error { return c.write([]byte(s), true) }

func (c *fakeChannel) write(data []byte, isString bool) error {
	c.mu.Lock()
	c.sent++
	if !c.isOpen || c.failing {
		c.mu.Unlock()
		return errFakeClosed
	}
	remote := c.remote
	c.mu.Unlock()

	if remote != nil {
		remote.deliver(data, isString)
	}
	return nil
}

func (c *fakeChannel) deliver(data []byte, isString bool) {
	c.mu.Lock()
	fn := c.onMsg
	closed := c.closed
	c.mu.Unlock()

	if fn != nil && !closed {
		fn(data, isString)
	}
}

func (c *fakeChannel) OnOpen(fn func()) {
	c.mu.Lock()
	c.onOpen = fn
	open := c.isOpen
	c.mu.Unlock()

	if open {
		go fn()
	}
}

func (c *fakeChannel) OnClose(fn func()) {
	c.mu.Lock()
	c.onClose = fn
	c.mu.Unlock()
}

func (c *fakeChannel) OnMessage(fn func([]byte, bool)) {
	c.mu.Lock()
	c.onMsg = fn
	c.mu.Unlock()
}

func (c *fakeChannel) Close() error {
	c.close()
	return nil
}

func (c *fakeChannel) setRemote(r *fakeChannel) {
	c.mu.Lock()
	c.remote = r
	c.mu.Unlock()
}

func (c *fakeChannel) remoteEnd() *fakeChannel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remote
}

func (c *fakeChannel) open() {
	c.mu.Lock()
	if c.closed || c.isOpen {
		c.mu.Unlock()
		return
	}
	c.isOpen = true
	fn := c.onOpen
	c.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func (c *fakeChannel) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.isOpen = false
	fn := c.onClose
	c.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func (c *fakeChannel) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sent
}

// gatedFactory holds NewPeer until gate is closed.
type gatedFactory struct {
	*fakeFactory
	entered chan struct{}
	gate    chan struct{}
}

func newGatedFactory(name string) *gatedFactory {
	return &gatedFactory{
		fakeFactory: newFakeFactory(name, newFakeExchange()),
		entered:     make(chan struct{}, 1),
		gate:        make(chan struct{}),
	}
}

func (f *gatedFactory) NewPeer(log *logrus.Entry) (transport.Peer, error) {
	select {
	case f.entered <- struct{}{}:
	default:
	}
	<-f.gate
	return f.fakeFactory.NewPeer(log)
}
