// Package node wires the two peer roles onto a session: the host answers
// questions with the assistant, the terminal is a remote prompt.
package node

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rudransh-shrivastava/peer-assist/internal/protocol"
)

// stampLayout names uploads and snapshots down to the millisecond.
const stampLayout = "20060102-150405.000"

// saveImage writes the PNG carried by env into dir and returns its path.
func saveImage(dir, prefix string, env protocol.Envelope, now time.Time) (string, error) {
	data, err := protocol.ImageBytes(env)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s-%s.png", prefix, now.Format(stampLayout)))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}
	return path, nil
}
