package objstore

import (
	"bytes"
	"compress/zlib"
	"io"

	"github.com/libra-vcs/libra/internal/vcserrors"
)

// CompressFramed frames and zlib-compresses (kind, payload), the exact
// on-wire representation every Store backend persists. It is exported so
// non-filesystem backends (e.g. the S3 remote in package storage) can share
// the framing logic instead of reimplementing it.
func CompressFramed(kind Kind, payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(frame(kind, payload)); err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecompressFramed reverses CompressFramed, returning CorruptObject and
// InvalidHeader typed errors so remote backends report failures the same way
// FileStore does.
func DecompressFramed(compressed []byte, id ID) ([]byte, Kind, error) {
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, 0, vcserrors.CorruptObject(string(id), err)
	}
	defer zr.Close()

	framed, err := io.ReadAll(zr)
	if err != nil {
		return nil, 0, vcserrors.CorruptObject(string(id), err)
	}

	kind, payload, err := parseFrame(framed)
	if err != nil {
		return nil, 0, vcserrors.InvalidHeader(string(id))
	}
	return payload, kind, nil
}
