package wire

import (
	"context"
	"io"
	"os"
	"os/exec"

	"github.com/libra-vcs/libra/internal/objstore"
	"github.com/libra-vcs/libra/internal/vcserrors"
)

// LocalClient talks to a co-located repository by invoking the
// upload-pack/receive-pack logic as a subprocess and piping pkt-lines over
// its stdin/stdout, the same shape as git's "file://" and bare local
// transport.
type LocalClient struct {
	// RepoPath is the filesystem path of the remote repository.
	RepoPath string
	// Exe is the executable invoked for upload-pack/receive-pack
	// (defaults to the running binary's own argv[0] re-invoked with a
	// hidden subcommand, the way git re-invokes itself for file:// remotes).
	Exe string
}

// NewLocalClient builds a LocalClient against a repository directory.
func NewLocalClient(repoPath string) *LocalClient {
	exe, err := os.Executable()
	if err != nil {
		exe = "libra"
	}
	return &LocalClient{RepoPath: repoPath, Exe: exe}
}

func (c *LocalClient) command(ctx context.Context, service Service) *exec.Cmd {
	var sub string
	switch service {
	case ServiceUploadPack:
		sub = "upload-pack"
	case ServiceReceivePack:
		sub = "receive-pack"
	}
	return exec.CommandContext(ctx, c.Exe, "internal-serve", sub, c.RepoPath)
}

// Discover runs the local service and parses its stdout advertisement.
func (c *LocalClient) Discover(ctx context.Context, service Service) (*DiscoveryResult, error) {
	cmd := c.command(ctx, service)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, vcserrors.Wrap(vcserrors.KindTransport, "open local service stdout", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, vcserrors.Wrap(vcserrors.KindTransport, "start local service", err)
	}

	result, parseErr := ParseDiscovery(out)

	if waitErr := cmd.Wait(); waitErr != nil && parseErr == nil {
		return nil, vcserrors.Wrap(vcserrors.KindTransport, "local service exited with error", waitErr)
	}
	return result, parseErr
}

// Fetch pipes a want/have negotiation body to the local upload-pack
// process and returns its stdout as the fetch stream.
func (c *LocalClient) Fetch(ctx context.Context, haves, wants []objstore.ID, depth *int) (io.ReadCloser, error) {
	cmd := c.command(ctx, ServiceUploadPack)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, vcserrors.Wrap(vcserrors.KindTransport, "open local service stdin", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, vcserrors.Wrap(vcserrors.KindTransport, "open local service stdout", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, vcserrors.Wrap(vcserrors.KindTransport, "start local upload-pack", err)
	}

	// Discard the advertisement the subprocess writes on startup before
	// sending our negotiation body, mirroring the remote-process handshake.
	if _, err := ParseDiscovery(stdout); err != nil {
		stdin.Close()
		cmd.Wait()
		return nil, err
	}

	body := BuildUploadPackRequest(wants, haves, depth, objstore.HashSHA1)
	if _, err := stdin.Write(body); err != nil {
		stdin.Close()
		cmd.Wait()
		return nil, vcserrors.Wrap(vcserrors.KindTransport, "write local upload-pack body", err)
	}
	stdin.Close()

	return &processStream{ReadCloser: stdout, cmd: cmd}, nil
}

// Push pipes the receive-pack command list and pack data to the local
// receive-pack process and returns its status-report stream.
func (c *LocalClient) Push(ctx context.Context, updates []RefUpdate, packData io.Reader) (io.ReadCloser, error) {
	cmd := c.command(ctx, ServiceReceivePack)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, vcserrors.Wrap(vcserrors.KindTransport, "open local service stdin", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, vcserrors.Wrap(vcserrors.KindTransport, "open local service stdout", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, vcserrors.Wrap(vcserrors.KindTransport, "start local receive-pack", err)
	}

	if _, err := ParseDiscovery(stdout); err != nil {
		stdin.Close()
		cmd.Wait()
		return nil, err
	}

	header := BuildReceivePackHeader(updates, objstore.HashSHA1)
	if _, err := stdin.Write(header); err != nil {
		stdin.Close()
		cmd.Wait()
		return nil, vcserrors.Wrap(vcserrors.KindTransport, "write local receive-pack header", err)
	}
	if packData != nil {
		if _, err := io.Copy(stdin, packData); err != nil {
			stdin.Close()
			cmd.Wait()
			return nil, vcserrors.Wrap(vcserrors.KindTransport, "write local receive-pack data", err)
		}
	}
	stdin.Close()

	return &processStream{ReadCloser: stdout, cmd: cmd}, nil
}

// processStream wraps a subprocess's stdout pipe so Close also reaps the
// process, preventing zombies on early callers that stop reading.
type processStream struct {
	io.ReadCloser
	cmd *exec.Cmd
}

func (p *processStream) Close() error {
	err := p.ReadCloser.Close()
	_ = p.cmd.Wait()
	return err
}
