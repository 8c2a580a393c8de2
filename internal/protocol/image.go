package protocol

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
)

// EncodeImage wraps img as an image envelope carrying its PNG encoding.
func EncodeImage(img image.Image) (Envelope, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Envelope{}, fmt.Errorf("failed to encode png: %w", err)
	}
	return Envelope{Kind: KindImage, Payload: base64.StdEncoding.EncodeToString(buf.Bytes())}, nil
}

// EncodeImageFile decodes the png, jpeg or gif at path and wraps it as PNG.
func EncodeImageFile(path string) (Envelope, error) {
	f, err := os.Open(path)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return EncodeImage(img)
}

// ImageBytes returns the PNG bytes carried by an image envelope.
func ImageBytes(env Envelope) ([]byte, error) {
	if env.Kind != KindImage {
		return nil, fmt.Errorf("%w: expected image, got %q", ErrMalformedEnvelope, env.Kind)
	}
	data, err := base64.StdEncoding.DecodeString(env.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64: %v", ErrMalformedEnvelope, err)
	}
	return data, nil
}

func DecodeImage(env Envelope) (image.Image, error) {
	data, err := ImageBytes(env)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid image: %v", ErrMalformedEnvelope, err)
	}
	return img, nil
}
