package wire

import (
	"bytes"
	"fmt"

	"github.com/libra-vcs/libra/internal/constants"
	"github.com/libra-vcs/libra/internal/objstore"
)

// BuildUploadPackRequest composes the upload-pack negotiation body:
// one "want <hash>" per want, capabilities on the first
// line only, an optional "deepen <n>", a flush, one "have <hash>" per
// known commit, then "done".
func BuildUploadPackRequest(wants, haves []objstore.ID, depth *int, hashKind objstore.HashKind) []byte {
	var buf bytes.Buffer

	caps := []string{"side-band-64k", "ofs-delta", "multi_ack_detailed"}
	if hashKind == objstore.HashSHA256 {
		caps = append(caps, "object-format=sha256")
	}
	caps = append(caps, fmt.Sprintf("agent=%s/%s", constants.AgentName, constants.AgentVersion))
	capStr := joinSpace(caps)

	for i, w := range wants {
		if i == 0 {
			buf.Write(EncodePktLineString(fmt.Sprintf("want %s %s\n", w, capStr)))
		} else {
			buf.Write(EncodePktLineString(fmt.Sprintf("want %s\n", w)))
		}
	}

	if depth != nil {
		buf.Write(EncodePktLineString(fmt.Sprintf("deepen %d\n", *depth)))
	}

	buf.Write(FlushPkt())

	for _, h := range haves {
		buf.Write(EncodePktLineString(fmt.Sprintf("have %s\n", h)))
	}

	buf.Write(EncodePktLineString("done\n"))

	return buf.Bytes()
}

// RefUpdate is one ref the client wants the remote to move during push.
type RefUpdate struct {
	Old  objstore.ID // zero hash for ref creation
	New  objstore.ID // zero hash for ref deletion
	Name string
}

// BuildReceivePackHeader composes the receive-pack command list:
// one "<old> <new> <refname>" pkt-line per update, capabilities
// appended to the first line, then a flush. The caller appends the PACK
// bytes being pushed after this header.
func BuildReceivePackHeader(updates []RefUpdate, hashKind objstore.HashKind) []byte {
	var buf bytes.Buffer

	caps := []string{"side-band-64k", "report-status"}
	if hashKind == objstore.HashSHA256 {
		caps = append(caps, "object-format=sha256")
	}
	caps = append(caps, fmt.Sprintf("agent=%s/%s", constants.AgentName, constants.AgentVersion))
	capStr := joinSpace(caps)

	for i, u := range updates {
		line := fmt.Sprintf("%s %s %s", u.Old, u.New, u.Name)
		if i == 0 {
			line = line + "\x00" + capStr
		}
		buf.Write(EncodePktLineString(line + "\n"))
	}
	buf.Write(FlushPkt())

	return buf.Bytes()
}

func joinSpace(ss []string) string {
	var buf bytes.Buffer
	for i, s := range ss {
		if i > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(s)
	}
	return buf.String()
}
