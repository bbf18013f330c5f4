package wire

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/libra-vcs/libra/internal/objstore"
	"github.com/libra-vcs/libra/internal/vcserrors"
)

// EncodeDiscoveryAdvertisement is the server-side counterpart to
// ParseDiscovery: it writes the ref advertisement a client's Discover
// call expects. HTTPS and git:// address a real external git-compatible
// peer and never need this module to speak the server half; the local
// ("file://") transport addresses another libra repository on the same
// machine, so this module must produce both halves of that exchange
// itself.
func EncodeDiscoveryAdvertisement(refs []DiscoveredRef, hashKind objstore.HashKind) []byte {
	var buf bytes.Buffer

	caps := []string{"side-band-64k", "ofs-delta", "report-status"}
	if hashKind == objstore.HashSHA256 {
		caps = append(caps, "object-format=sha256")
	}
	capStr := joinSpace(caps)

	if len(refs) == 0 {
		buf.Write(EncodePktLineString(fmt.Sprintf("%s capabilities^{}\x00%s\n", zeroHash(hashKind), capStr)))
		buf.Write(FlushPkt())
		return buf.Bytes()
	}

	for i, ref := range refs {
		if i == 0 {
			buf.Write(EncodePktLineString(fmt.Sprintf("%s %s\x00%s\n", ref.Hash, ref.Ref, capStr)))
		} else {
			buf.Write(EncodePktLineString(fmt.Sprintf("%s %s\n", ref.Hash, ref.Ref)))
		}
	}
	buf.Write(FlushPkt())
	return buf.Bytes()
}

// ParseUploadPackRequest is the server-side counterpart to
// BuildUploadPackRequest: it reads the want lines (+ optional "deepen"),
// the flush that separates wants from haves, the have lines, and the
// terminating "done" line.
func ParseUploadPackRequest(r io.Reader) (wants, haves []objstore.ID, depth *int, err error) {
	for {
		payload, isFlush, err := ReadPktLine(r)
		if err != nil {
			return nil, nil, nil, vcserrors.Wrap(vcserrors.KindProtocolError, "reading upload-pack want lines", err)
		}
		if isFlush {
			break
		}
		line := strings.TrimRight(string(payload), "\n")
		switch {
		case strings.HasPrefix(line, "want "):
			fields := strings.Fields(line)
			if len(fields) < 2 {
				return nil, nil, nil, vcserrors.New(vcserrors.KindProtocolError, "malformed want line")
			}
			wants = append(wants, objstore.ID(fields[1]))
		case strings.HasPrefix(line, "deepen "):
			fields := strings.Fields(line)
			if len(fields) != 2 {
				return nil, nil, nil, vcserrors.New(vcserrors.KindProtocolError, "malformed deepen line")
			}
			n, convErr := strconv.Atoi(fields[1])
			if convErr != nil {
				return nil, nil, nil, vcserrors.Wrap(vcserrors.KindProtocolError, "malformed deepen depth", convErr)
			}
			depth = &n
		}
	}

	for {
		payload, isFlush, err := ReadPktLine(r)
		if err == io.EOF || isFlush {
			break
		}
		if err != nil {
			return nil, nil, nil, vcserrors.Wrap(vcserrors.KindProtocolError, "reading upload-pack have lines", err)
		}
		line := strings.TrimRight(string(payload), "\n")
		if line == "done" {
			break
		}
		if strings.HasPrefix(line, "have ") {
			fields := strings.Fields(line)
			if len(fields) < 2 {
				return nil, nil, nil, vcserrors.New(vcserrors.KindProtocolError, "malformed have line")
			}
			haves = append(haves, objstore.ID(fields[1]))
		}
	}
	return wants, haves, depth, nil
}

// ParseReceivePackHeader is the server-side counterpart to
// BuildReceivePackHeader: one "<old> <new> <refname>" pkt-line per ref
// update, capabilities stripped from the first line, terminated by flush.
func ParseReceivePackHeader(r io.Reader) ([]RefUpdate, error) {
	var updates []RefUpdate
	first := true
	for {
		payload, isFlush, err := ReadPktLine(r)
		if err != nil {
			return nil, vcserrors.Wrap(vcserrors.KindProtocolError, "reading receive-pack command list", err)
		}
		if isFlush {
			break
		}
		line := strings.TrimRight(string(payload), "\n")
		if first {
			line, _, _ = strings.Cut(line, "\x00")
			first = false
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, vcserrors.New(vcserrors.KindProtocolError, fmt.Sprintf("malformed receive-pack command %q", line))
		}
		updates = append(updates, RefUpdate{Old: objstore.ID(fields[0]), New: objstore.ID(fields[1]), Name: fields[2]})
	}
	return updates, nil
}

// ObjectFetcher resolves a requested want to its stored payload; callers
// plug in an objstore.Store-backed closure.
type ObjectFetcher func(objstore.ID) ([]byte, error)

// ServeUploadPack drives the server half of a local-transport fetch: it
// writes the ref advertisement, parses the client's want/have negotiation,
// and streams back every requested want's stored payload framed as
// pkt-lines. internal/wire implements no delta-packfile assembler (pack
// assembly is out of this module's scope — see porcelain.Clone, which
// treats a fetched stream as a single opaque blob); the local transport is
// the only variant this module both writes and reads, so responding with
// plain framed object payloads rather than a real git PACK stream is
// self-consistent end to end.
func ServeUploadPack(r io.Reader, w io.Writer, refs []DiscoveredRef, hashKind objstore.HashKind, fetch ObjectFetcher) error {
	if _, err := w.Write(EncodeDiscoveryAdvertisement(refs, hashKind)); err != nil {
		return vcserrors.Wrap(vcserrors.KindTransport, "write upload-pack advertisement", err)
	}

	wants, _, _, err := ParseUploadPackRequest(r)
	if err != nil {
		return err
	}

	for _, want := range wants {
		payload, err := fetch(want)
		if err != nil {
			return vcserrors.Wrap(vcserrors.KindTransport, fmt.Sprintf("fetch requested object %s", want), err)
		}
		if _, err := w.Write(EncodePktLine(payload)); err != nil {
			return vcserrors.Wrap(vcserrors.KindTransport, "write upload-pack object", err)
		}
	}
	if _, err := w.Write(FlushPkt()); err != nil {
		return vcserrors.Wrap(vcserrors.KindTransport, "write upload-pack trailer", err)
	}
	return nil
}

// ReceivePackApplier persists a pushed pack and advances the refs it
// names; callers plug in an objstore.Store Put plus a ref-update closure.
type ReceivePackApplier func(updates []RefUpdate, packData []byte) error

// ServeReceivePack drives the server half of a local-transport push: it
// writes the advertisement, parses the ref-update command list and pack
// bytes, applies them via apply, and reports status on the side-band.
func ServeReceivePack(r io.Reader, w io.Writer, refs []DiscoveredRef, hashKind objstore.HashKind, apply ReceivePackApplier) error {
	if _, err := w.Write(EncodeDiscoveryAdvertisement(refs, hashKind)); err != nil {
		return vcserrors.Wrap(vcserrors.KindTransport, "write receive-pack advertisement", err)
	}

	updates, err := ParseReceivePackHeader(r)
	if err != nil {
		return err
	}
	packData, err := io.ReadAll(r)
	if err != nil {
		return vcserrors.Wrap(vcserrors.KindTransport, "read pushed pack data", err)
	}

	var buf bytes.Buffer
	if err := apply(updates, packData); err != nil {
		buf.Write(EncodePktLineString(fmt.Sprintf("unpack %s\n", err.Error())))
	} else {
		buf.Write(EncodePktLineString("unpack ok\n"))
		for _, u := range updates {
			buf.Write(EncodePktLineString(fmt.Sprintf("ok %s\n", u.Name)))
		}
	}
	buf.Write(FlushPkt())

	if _, err := w.Write(buf.Bytes()); err != nil {
		return vcserrors.Wrap(vcserrors.KindTransport, "write receive-pack status report", err)
	}
	return nil
}
