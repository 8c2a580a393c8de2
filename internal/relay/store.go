package relay

import "github.com/rudransh-shrivastava/peer-assist/internal/transport"

// Store keeps the single pending offer and answer.
type Store struct {
	offers  Mailbox[transport.Description]
	answers Mailbox[transport.Description]
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) mailbox(t transport.SDPType) *Mailbox[transport.Description] {
	if t == transport.SDPTypeAnswer {
		return &s.answers
	}
	return &s.offers
}

func (s *Store) Put(desc transport.Description) bool {
	return s.mailbox(desc.Type).Put(desc)
}

func (s *Store) Take(t transport.SDPType) (transport.Description, bool) {
	return s.mailbox(t).Take()
}

// Pending reports whether a description of type t is waiting to be taken.
func (s *Store) Pending(t transport.SDPType) bool {
	return s.mailbox(t).Pending()
}
