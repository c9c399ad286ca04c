// Package compress provides the pluggable manifest compression codecs
// used by remote (non-local) manifest store backends. Receipts, the
// LATEST pointer and log files are never compressed. Local
// filesystem storage never compresses: the "readers never observe a
// partial manifest" invariant only needs to hold for the bytes actually
// written to disk, and compression is applied as an outer envelope
// around those bytes before they leave the process, not an in-place
// rewrite.
package compress

import (
	"bytes"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/pgzip"
	"github.com/pierrec/lz4"
	"github.com/pkg/errors"
)

// CompressionType names a codec.
type CompressionType string

const (
	CompressionTypeNone   CompressionType = ""
	CompressionTypeGZIP   CompressionType = "gzip"
	CompressionTypeSnappy CompressionType = "snappy"
	CompressionTypeLZ4    CompressionType = "lz4"
	CompressionTypeS2     CompressionType = "s2"
)

// Compress encodes b with the named codec.
func Compress(b []byte, t CompressionType) ([]byte, error) {
	switch t {
	case CompressionTypeNone:
		return b, nil
	case CompressionTypeGZIP:
		var buf bytes.Buffer
		w := pgzip.NewWriter(&buf)
		if _, err := w.Write(b); err != nil {
			return nil, errors.Wrap(err, "gzip compress")
		}
		if err := w.Close(); err != nil {
			return nil, errors.Wrap(err, "gzip compress: close")
		}
		return buf.Bytes(), nil
	case CompressionTypeSnappy:
		var buf bytes.Buffer
		w := snappy.NewBufferedWriter(&buf)
		if _, err := w.Write(b); err != nil {
			return nil, errors.Wrap(err, "snappy compress")
		}
		if err := w.Close(); err != nil {
			return nil, errors.Wrap(err, "snappy compress: close")
		}
		return buf.Bytes(), nil
	case CompressionTypeLZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(b); err != nil {
			return nil, errors.Wrap(err, "lz4 compress")
		}
		if err := w.Close(); err != nil {
			return nil, errors.Wrap(err, "lz4 compress: close")
		}
		return buf.Bytes(), nil
	case CompressionTypeS2:
		var buf bytes.Buffer
		w := s2.NewWriter(&buf)
		if _, err := w.Write(b); err != nil {
			return nil, errors.Wrap(err, "s2 compress")
		}
		if err := w.Close(); err != nil {
			return nil, errors.Wrap(err, "s2 compress: close")
		}
		return buf.Bytes(), nil
	default:
		return nil, errors.Errorf("unknown compression type %q", t)
	}
}

// Decompress decodes r with the named codec. Snappy failures on data that
// is actually S2 are a known historical wrinkle (S2 is a Snappy superset
// written under the wrong extension by old releases); callers that can't
// trust the stored codec tag should retry with CompressionTypeS2 on a
// CompressionTypeSnappy decode error.
func Decompress(r io.Reader, t CompressionType) (io.ReadCloser, error) {
	switch t {
	case CompressionTypeNone:
		return io.NopCloser(r), nil
	case CompressionTypeGZIP:
		return pgzip.NewReader(r)
	case CompressionTypeSnappy:
		return io.NopCloser(snappy.NewReader(r)), nil
	case CompressionTypeLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	case CompressionTypeS2:
		return io.NopCloser(s2.NewReader(r)), nil
	default:
		return nil, errors.Errorf("unknown compression type %q", t)
	}
}
