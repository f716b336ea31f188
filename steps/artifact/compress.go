package artifact

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies the algorithm applied to the packed archive.
type Compression uint8

const (
	// CompressionNone leaves the tar stream uncompressed. Useful when
	// the content is already compressed (images, archives).
	CompressionNone Compression = 0

	// CompressionLZ4 trades ratio for speed. Good default for large
	// mixed-content sites.
	CompressionLZ4 Compression = 1

	// CompressionZstd is the default: strong ratios on the HTML/CSS
	// text that dominates a built documentation site.
	CompressionZstd Compression = 2
)

// String returns the canonical name of a compression algorithm.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// Extension returns the archive file extension for the algorithm.
func (c Compression) Extension() string {
	switch c {
	case CompressionLZ4:
		return ".tar.lz4"
	case CompressionZstd:
		return ".tar.zst"
	default:
		return ".tar"
	}
}

// ParseCompression parses an algorithm from its canonical name. The
// empty string selects the default (zstd).
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	case "none":
		return CompressionNone, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", name)
	}
}

// compress applies the algorithm to the raw archive bytes.
func (c Compression) compress(raw []byte) ([]byte, error) {
	switch c {
	case CompressionNone:
		return raw, nil

	case CompressionLZ4:
		var out bytes.Buffer
		w := lz4.NewWriter(&out)
		if _, err := io.Copy(w, bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("lz4: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("lz4: %w", err)
		}
		return out.Bytes(), nil

	case CompressionZstd:
		w, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		defer w.Close()
		return w.EncodeAll(raw, nil), nil

	default:
		return nil, fmt.Errorf("unknown compression %d", uint8(c))
	}
}
