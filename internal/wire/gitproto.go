package wire

import (
	"context"
	"fmt"
	"io"
	"net"

	"github.com/libra-vcs/libra/internal/constants"
	"github.com/libra-vcs/libra/internal/objstore"
	"github.com/libra-vcs/libra/internal/vcserrors"
)

// GitProtoClient is the git:// transport: a bare TCP connection on port
// 9418, the service request sent as a single pkt-line, followed by the
// same pkt-line exchange as smart-http minus the HTTP framing.
type GitProtoClient struct {
	Host     string
	Port     int
	RepoPath string
}

// NewGitProtoClient builds a client for git://host[:port]/repoPath,
// defaulting to the well-known port when unspecified.
func NewGitProtoClient(host string, port int, repoPath string) *GitProtoClient {
	if port == 0 {
		port = constants.DefaultGitPort
	}
	return &GitProtoClient{Host: host, Port: port, RepoPath: repoPath}
}

func (c *GitProtoClient) dial(ctx context.Context) (net.Conn, error) {
	d := net.Dialer{Timeout: constants.DefaultNetworkTimeout}
	conn, err := d.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", c.Host, c.Port))
	if err != nil {
		return nil, vcserrors.Wrap(vcserrors.KindTransport, "dial git:// remote", err)
	}
	return conn, nil
}

func (c *GitProtoClient) serviceRequest(service Service) []byte {
	req := fmt.Sprintf("%s %s\x00host=%s\x00", service, c.RepoPath, c.Host)
	return EncodePktLineString(req)
}

// Discover connects, sends the service request, and parses the ref
// advertisement that follows.
func (c *GitProtoClient) Discover(ctx context.Context, service Service) (*DiscoveryResult, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if _, err := conn.Write(c.serviceRequest(service)); err != nil {
		return nil, vcserrors.Wrap(vcserrors.KindTransport, "send git:// service request", err)
	}

	return ParseDiscovery(conn)
}

// Fetch connects, discards the advertisement, sends the want/have body,
// and returns the remaining connection bytes as the fetch stream.
func (c *GitProtoClient) Fetch(ctx context.Context, haves, wants []objstore.ID, depth *int) (io.ReadCloser, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Write(c.serviceRequest(ServiceUploadPack)); err != nil {
		conn.Close()
		return nil, vcserrors.Wrap(vcserrors.KindTransport, "send git:// service request", err)
	}
	if _, err := ParseDiscovery(conn); err != nil {
		conn.Close()
		return nil, err
	}

	body := BuildUploadPackRequest(wants, haves, depth, objstore.HashSHA1)
	if _, err := conn.Write(body); err != nil {
		conn.Close()
		return nil, vcserrors.Wrap(vcserrors.KindTransport, "send git:// upload-pack body", err)
	}

	return conn, nil
}

// Push is not supported over the anonymous git:// protocol in this
// implementation (the protocol historically is read-only without a
// side-channel auth mechanism); callers needing push MUST use HTTPS.
func (c *GitProtoClient) Push(ctx context.Context, updates []RefUpdate, packData io.Reader) (io.ReadCloser, error) {
	return nil, vcserrors.New(vcserrors.KindTransport, "push is not supported over the anonymous git:// protocol")
}
