package protocol

// Envelope is the unit exchanged on every channel. Payload is the raw string
// for text and base64 of a PNG encoding for images.
type Envelope struct {
	Kind    Kind
	Payload string
}

func Text(s string) Envelope {
	return Envelope{Kind: KindText, Payload: s}
}

func (e Envelope) IsText() bool {
	return e.Kind == KindText
}

func (e Envelope) IsImage() bool {
	return e.Kind == KindImage
}

// wireEnvelope keeps the keys used by existing peers on the wire.
type wireEnvelope struct {
	Type string  `json:"type"`
	Data *string `json:"data"`
}
