package wire

import (
	"context"
	"io"

	"github.com/libra-vcs/libra/internal/objstore"
)

// ProtocolClient is the single interface the three wire variants (HTTPS,
// git://, local-pipe) implement.
type ProtocolClient interface {
	Discover(ctx context.Context, service Service) (*DiscoveryResult, error)
	Fetch(ctx context.Context, haves, wants []objstore.ID, depth *int) (io.ReadCloser, error)
	Push(ctx context.Context, updates []RefUpdate, packData io.Reader) (io.ReadCloser, error)
}

var _ ProtocolClient = (*HTTPSClient)(nil)
var _ ProtocolClient = (*GitProtoClient)(nil)
var _ ProtocolClient = (*LocalClient)(nil)
