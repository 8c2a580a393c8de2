package relay

import (
	"context"
	"fmt"

	"github.com/rudransh-shrivastava/peer-assist/internal/transport"
)

// MemorySignaler is an in-process Signaler over a Store.
type MemorySignaler struct {
	store *Store
}

func NewMemorySignaler() *MemorySignaler {
	return &MemorySignaler{store: NewStore()}
}

func (m *MemorySignaler) Store() *Store {
	return m.store
}

func (m *MemorySignaler) PublishOffer(_ context.Context, desc transport.Description) error {
	return m.publish(transport.SDPTypeOffer, desc)
}

func (m *MemorySignaler) PublishAnswer(_ context.Context, desc transport.Description) error {
	return m.publish(transport.SDPTypeAnswer, desc)
}

func (m *MemorySignaler) TakeOffer(ctx context.Context) (transport.Description, error) {
	return m.take(ctx, transport.SDPTypeOffer)
}

func (m *MemorySignaler) TakeAnswer(ctx context.Context) (transport.Description, error) {
	return m.take(ctx, transport.SDPTypeAnswer)
}

func (m *MemorySignaler) publish(want transport.SDPType, desc transport.Description) error {
	if desc.Type != want {
		return &StatusError{Op: "publish " + string(want), Code: 400}
	}
	m.store.Put(desc)
	return nil
}

func (m *MemorySignaler) take(ctx context.Context, t transport.SDPType) (transport.Description, error) {
	if err := ctx.Err(); err != nil {
		return transport.Description{}, err
	}
	desc, ok := m.store.Take(t)
	if !ok {
		return transport.Description{}, fmt.Errorf("take %s: %w", t, transport.ErrNotPresent)
	}
	return desc, nil
}
