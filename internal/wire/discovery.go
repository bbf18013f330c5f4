package wire

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/libra-vcs/libra/internal/objstore"
	"github.com/libra-vcs/libra/internal/vcserrors"
)

// Service is the git smart-protocol service being discovered/negotiated.
type Service string

const (
	ServiceUploadPack  Service = "git-upload-pack"
	ServiceReceivePack Service = "git-receive-pack"
)

// DiscoveredRef is one (hash, refname) pair from a discovery advertisement.
type DiscoveredRef struct {
	Hash objstore.ID
	Ref  string
}

// DiscoveryResult is the parsed ref advertisement.
type DiscoveryResult struct {
	Refs         []DiscoveredRef
	Capabilities map[string]bool
	HashKind     objstore.HashKind
}

func zeroHash(kind objstore.HashKind) string {
	return strings.Repeat("0", kind.HexLen())
}

// ParseDiscovery parses pkt-lines from r into a DiscoveryResult:
//   - an initial "# service=..." header (smart-http only) is consumed silently
//   - the first non-header line carries "<hash> <refname>\0<capabilities>"
//   - subsequent lines omit the NUL and capabilities
//   - hash length determines the wire hash kind; an advertised
//     object-format=shaN capability must agree, else ProtocolError
//   - a "capabilities^{}" pseudo-ref is discarded but its capabilities kept
//   - an advertisement consisting solely of the zero-hash is a legal
//     empty-repository result
func ParseDiscovery(r io.Reader) (*DiscoveryResult, error) {
	result := &DiscoveryResult{Capabilities: map[string]bool{}}

	sawHeader := false
	sawServiceLine := false
	processedFirst := false

	for {
		payload, isFlush, err := ReadPktLine(r)
		if isFlush && sawServiceLine && !processedFirst {
			// smart-http sends a flush after the "# service=" header; the
			// ref lines follow it.
			continue
		}
		if err == io.EOF || isFlush {
			break
		}
		if err != nil {
			return nil, vcserrors.Wrap(vcserrors.KindProtocolError, "reading discovery advertisement", err)
		}
		line := bytes.TrimRight(payload, "\n")

		if !sawHeader && bytes.HasPrefix(line, []byte("# service=")) {
			sawHeader = true
			sawServiceLine = true
			continue
		}
		sawHeader = true

		hashStr, rest, ok := cutSpace(string(line))
		if !ok {
			return nil, vcserrors.New(vcserrors.KindProtocolError, "discovery line missing object id")
		}

		detectedKind, ok := objstore.KindFromHexLen(len(hashStr))
		if !ok {
			return nil, vcserrors.New(vcserrors.KindProtocolError, fmt.Sprintf("invalid hash length %d in discovery", len(hashStr)))
		}

		if !processedFirst {
			result.HashKind = detectedKind
		} else if detectedKind != result.HashKind {
			return nil, vcserrors.New(vcserrors.KindProtocolError, "hash kind mismatch across discovery lines")
		}

		if !processedFirst {
			refName, caps, hasCaps := strings.Cut(rest, "\x00")
			if hasCaps {
				for _, cap := range strings.Fields(caps) {
					result.Capabilities[cap] = true
					if strings.HasPrefix(cap, "object-format=") {
						formatKind, err := parseObjectFormatCapability(cap)
						if err != nil {
							return nil, err
						}
						if formatKind != detectedKind {
							return nil, vcserrors.New(vcserrors.KindProtocolError,
								fmt.Sprintf("object-format capability %s disagrees with observed hash length %d", cap, len(hashStr)))
						}
						result.HashKind = formatKind
					}
				}
			}

			if hashStr == zeroHash(result.HashKind) {
				// Empty repository: legal no-ref result.
				processedFirst = true
				break
			}

			if refName != "capabilities^{}" {
				result.Refs = append(result.Refs, DiscoveredRef{Hash: objstore.ID(hashStr), Ref: refName})
			}
			processedFirst = true
		} else {
			result.Refs = append(result.Refs, DiscoveredRef{Hash: objstore.ID(hashStr), Ref: rest})
		}
	}

	return result, nil
}

func cutSpace(s string) (before, after string, found bool) {
	i := strings.IndexByte(s, ' ')
	if i < 0 {
		return "", "", false
	}
	return s[:i], s[i+1:], true
}

func parseObjectFormatCapability(cap string) (objstore.HashKind, error) {
	switch cap {
	case "object-format=sha1":
		return objstore.HashSHA1, nil
	case "object-format=sha256":
		return objstore.HashSHA256, nil
	default:
		return 0, vcserrors.New(vcserrors.KindProtocolError, fmt.Sprintf("unsupported object-format capability %q", cap))
	}
}
