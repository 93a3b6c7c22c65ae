package verify

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/google/renameio/v2/maybe"
)

// writeAtomic replaces path with data so readers never see a partial image.
// On Windows maybe.WriteFile degrades to a plain write.
func writeAtomic(path string, data []byte) error {
	if err := maybe.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	return nil
}

// pngSize reads the dimensions from a PNG header.
func pngSize(data []byte) (width, height int, err error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("screenshot is not a PNG: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}
