package webrtc

import (
	"context"
	"fmt"

	"github.com/pion/webrtc/v3"
	"github.com/rudransh-shrivastava/peer-assist/internal/transport"
	"github.com/sirupsen/logrus"
)

type peer struct {
	pc  *webrtc.PeerConnection
	log *logrus.Entry
}

func newPeer(pc *webrtc.PeerConnection, log *logrus.Entry) *peer {
	p := &peer{pc: pc, log: log}

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		p.log.Infof("Peer connection state has changed: %s", s.String())
	})
	pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		p.log.Infof("ICE connection state has changed: %s", s.String())
	})
	pc.OnICEGatheringStateChange(func(s webrtc.ICEGathererState) {
		p.log.Debugf("ICE gathering state has changed: %s", s.String())
	})
	pc.OnSignalingStateChange(func(s webrtc.SignalingState) {
		p.log.Debugf("Signaling state has changed: %s", s.String())
	})

	return p
}

func (p *peer) CreateDataChannel(label string) (transport.DataChannel, error) {
	dc, err := p.pc.CreateDataChannel(label, dataChannelInit())
	if err != nil {
		return nil, fmt.Errorf("failed to create data channel %s: %w", label, err)
	}
	return newDataChannel(dc, p.log), nil
}

func (p *peer) OnDataChannel(fn func(transport.DataChannel)) {
	p.pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		fn(newDataChannel(dc, p.log))
	})
}

func (p *peer) CreateOffer(ctx context.Context) (string, error) {
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return "", fmt.Errorf("failed to create offer: %w", err)
	}
	return p.setLocal(ctx, offer)
}

func (p *peer) CreateAnswer(ctx context.Context, offer string) (string, error) {
	remote := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: offer}
	if err := p.pc.SetRemoteDescription(remote); err != nil {
		return "", fmt.Errorf("failed to set remote description: %w", err)
	}

	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return "", fmt.Errorf("failed to create answer: %w", err)
	}
	return p.setLocal(ctx, answer)
}

func (p *peer) SetAnswer(answer string) error {
	remote := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: answer}
	if err := p.pc.SetRemoteDescription(remote); err != nil {
		return fmt.Errorf("failed to set remote description: %w", err)
	}
	return nil
}

// setLocal applies desc and waits for candidate gathering so the returned SDP
// carries every candidate.
func (p *peer) setLocal(ctx context.Context, desc webrtc.SessionDescription) (string, error) {
	gatherComplete := webrtc.GatheringCompletePromise(p.pc)

	if err := p.pc.SetLocalDescription(desc); err != nil {
		return "", fmt.Errorf("failed to set local description: %w", err)
	}

	select {
	case <-gatherComplete:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	local := p.pc.LocalDescription()
	if local == nil {
		return "", fmt.Errorf("local description missing after gathering")
	}
	return local.SDP, nil
}

func (p *peer) Close() error {
	return p.pc.Close()
}

type dataChannel struct {
	dc  *webrtc.DataChannel
	log *logrus.Entry
}

func newDataChannel(dc *webrtc.DataChannel, log *logrus.Entry) *dataChannel {
	d := &dataChannel{dc: dc, log: log.WithField("channel", dc.Label())}
	dc.OnError(func(err error) {
		d.log.Errorf("Data channel error: %v", err)
	})
	return d
}

func (d *dataChannel) Label() string {
	return d.dc.Label()
}

func (d *dataChannel) Send(data []byte) error {
	return d.dc.Send(data)
}

func (d *dataChannel) SendText(s string) error {
	return d.dc.SendText(s)
}

func (d *dataChannel) OnOpen(fn func()) {
	d.dc.OnOpen(fn)
}

func (d *dataChannel) OnClose(fn func()) {
	d.dc.OnClose(fn)
}

func (d *dataChannel) OnMessage(fn func(data []byte, isString bool)) {
	d.dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		fn(msg.Data, msg.IsString)
	})
}

func (d *dataChannel) Close() error {
	return d.dc.Close()
}
