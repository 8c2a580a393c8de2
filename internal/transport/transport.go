// Package transport defines the peer-connection surface the session drives.
package transport

import (
	"context"
	"errors"
	"io"

	"github.com/sirupsen/logrus"
)

var ErrNotPresent = errors.New("no description pending")

type SDPType string

const (
	SDPTypeOffer  SDPType = "offer"
	SDPTypeAnswer SDPType = "answer"
)

// Description is one side of the offer/answer exchange as carried by the relay.
type Description struct {
	ID   string  `json:"id"`
	Type SDPType `json:"type"`
	SDP  string  `json:"sdp"`
}

// Signaler ferries descriptions between the two roles. Take returns
// ErrNotPresent when nothing is pending.
type Signaler interface {
	PublishOffer(ctx context.Context, desc Description) error
	PublishAnswer(ctx context.Context, desc Description) error
	TakeOffer(ctx context.Context) (Description, error)
	TakeAnswer(ctx context.Context) (Description, error)
}

type ICEServer struct {
	URLs       []string `mapstructure:"urls" json:"urls"`
	Username   string   `mapstructure:"username" json:"username,omitempty"`
	Credential string   `mapstructure:"credential" json:"credential,omitempty"`
}

type DataChannel interface {
	Label() string
	Send(data []byte) error
	SendText(s string) error
	OnOpen(fn func())
	OnClose(fn func())
	OnMessage(fn func(data []byte, isString bool))
	io.Closer
}

// Peer is one negotiated connection. CreateOffer and CreateAnswer block until
// candidate gathering completes and return the full local SDP.
type Peer interface {
	CreateDataChannel(label string) (DataChannel, error)
	OnDataChannel(fn func(DataChannel))
	CreateOffer(ctx context.Context) (string, error)
	CreateAnswer(ctx context.Context, offer string) (string, error)
	SetAnswer(answer string) error
	io.Closer
}

type PeerFactory interface {
	NewPeer(log *logrus.Entry) (Peer, error)
}
