// Package wire implements the Git smart-protocol client: pkt-line
// framing, reference discovery, want/have negotiation and receive-pack,
// over HTTPS, git://, and local-pipe transports.
package wire

import (
	"bytes"
	"fmt"
	"io"
)

// flushLine is the encoded flush packet, the special zero-length pkt-line
// that terminates a section of the exchange.
const flushLine = "0000"

// EncodePktLine frames payload as "<4 hex length bytes><payload>". Length
// includes the 4-byte length header itself.
func EncodePktLine(payload []byte) []byte {
	total := len(payload) + 4
	return append([]byte(fmt.Sprintf("%04x", total)), payload...)
}

// EncodePktLineString is EncodePktLine for a string payload, the common
// case for command/want/have lines.
func EncodePktLineString(s string) []byte {
	return EncodePktLine([]byte(s))
}

// FlushPkt returns the encoded flush packet.
func FlushPkt() []byte {
	return []byte(flushLine)
}

// ReadPktLine reads a single pkt-line from r. A flush packet returns
// (nil, true, nil): zero-length payload, isFlush=true. A clean end of
// input before a length header returns io.EOF itself.
func ReadPktLine(r io.Reader) (payload []byte, isFlush bool, err error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if err == io.EOF {
			return nil, false, io.EOF
		}
		return nil, false, fmt.Errorf("read pkt-line length: %w", err)
	}

	length, err := parseHexLen(lenBuf[:])
	if err != nil {
		return nil, false, err
	}
	if length == 0 {
		return nil, true, nil
	}
	if length < 4 {
		return nil, false, fmt.Errorf("pkt-line length %d shorter than header", length)
	}

	data := make([]byte, length-4)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, false, fmt.Errorf("read pkt-line payload: %w", err)
	}
	return data, false, nil
}

func parseHexLen(b []byte) (int, error) {
	var n int
	if _, err := fmt.Sscanf(string(b), "%x", &n); err != nil {
		return 0, fmt.Errorf("invalid pkt-line length %q: %w", b, err)
	}
	return n, nil
}

// ReadAllPktLines reads pkt-lines from r until a flush packet or EOF,
// returning the payloads seen (parse(encode(msgs)) == msgs).
func ReadAllPktLines(r io.Reader) ([][]byte, error) {
	var lines [][]byte
	for {
		payload, isFlush, err := ReadPktLine(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if isFlush {
			break
		}
		lines = append(lines, payload)
	}
	return lines, nil
}

// EncodeAllPktLines frames a sequence of payloads followed by a flush
// packet, the counterpart to ReadAllPktLines.
func EncodeAllPktLines(lines [][]byte) []byte {
	var buf bytes.Buffer
	for _, line := range lines {
		buf.Write(EncodePktLine(line))
	}
	buf.Write(FlushPkt())
	return buf.Bytes()
}

// SideBand channel numbers: 1=pack, 2=progress, 3=error.
const (
	SideBandPack     byte = 1
	SideBandProgress byte = 2
	SideBandError    byte = 3
)

// DemuxSideBand splits a side-band-64k multiplexed payload into its
// channel and data. Non-side-band payloads (channel byte absent) are
// callers' responsibility to avoid feeding here.
func DemuxSideBand(payload []byte) (channel byte, data []byte, err error) {
	if len(payload) == 0 {
		return 0, nil, fmt.Errorf("empty side-band payload")
	}
	return payload[0], payload[1:], nil
}
