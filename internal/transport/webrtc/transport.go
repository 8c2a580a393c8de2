// Package webrtc implements the transport interfaces on pion/webrtc.
package webrtc

import (
	"github.com/pion/webrtc/v3"
	"github.com/rudransh-shrivastava/peer-assist/internal/transport"
	"github.com/sirupsen/logrus"
)

var defaultSTUNServers = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
	"stun:stun2.l.google.com:19302",
	"stun:stun3.l.google.com:19302",
	"stun:stun4.l.google.com:19302",
}

// dataChannelInit asks for reliable, ordered delivery on every channel.
func dataChannelInit() *webrtc.DataChannelInit {
	ordered := true
	return &webrtc.DataChannelInit{Ordered: &ordered}
}

// DefaultICEServers is the public STUN list used when none is configured.
func DefaultICEServers() []transport.ICEServer {
	return []transport.ICEServer{{URLs: append([]string(nil), defaultSTUNServers...)}}
}

// Configuration builds a pion configuration from servers. With no servers
// only host candidates are gathered.
func Configuration(servers []transport.ICEServer) webrtc.Configuration {
	iceServers := make([]webrtc.ICEServer, 0, len(servers))
	for _, s := range servers {
		server := webrtc.ICEServer{URLs: s.URLs}
		if s.Username != "" || s.Credential != "" {
			server.Username = s.Username
			server.Credential = s.Credential
			server.CredentialType = webrtc.ICECredentialTypePassword
		}
		iceServers = append(iceServers, server)
	}

	return webrtc.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: webrtc.ICETransportPolicyAll,
	}
}

type Options struct {
	ICEServers []transport.ICEServer
	// IncludeLoopback gathers loopback candidates, for peers on one host.
	IncludeLoopback bool
}

type Factory struct {
	config webrtc.Configuration
	api    *webrtc.API
}

func NewFactory(opts Options) *Factory {
	settingEngine := webrtc.SettingEngine{}
	if opts.IncludeLoopback {
		settingEngine.SetIncludeLoopbackCandidate(true)
	}

	return &Factory{
		config: Configuration(opts.ICEServers),
		api:    webrtc.NewAPI(webrtc.WithSettingEngine(settingEngine)),
	}
}

func (f *Factory) NewPeer(log *logrus.Entry) (transport.Peer, error) {
	pc, err := f.api.NewPeerConnection(f.config)
	if err != nil {
		return nil, err
	}
	return newPeer(pc, log), nil
}
