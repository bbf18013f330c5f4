package wire

import (
	"bytes"
	"testing"

	"github.com/libra-vcs/libra/internal/objstore"
)

func TestEncodeDiscoveryAdvertisement_RoundTrip(t *testing.T) {
	refs := []DiscoveredRef{
		{Hash: objstore.ID("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"), Ref: "refs/heads/main"},
		{Hash: objstore.ID("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"), Ref: "refs/heads/dev"},
	}
	encoded := EncodeDiscoveryAdvertisement(refs, objstore.HashSHA1)

	result, err := ParseDiscovery(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("ParseDiscovery: %v", err)
	}
	if len(result.Refs) != 2 {
		t.Fatalf("got %d refs, want 2", len(result.Refs))
	}
	if result.Refs[0].Hash != refs[0].Hash || result.Refs[0].Ref != refs[0].Ref {
		t.Errorf("ref[0] = %+v, want %+v", result.Refs[0], refs[0])
	}
	if result.Refs[1].Hash != refs[1].Hash || result.Refs[1].Ref != refs[1].Ref {
		t.Errorf("ref[1] = %+v, want %+v", result.Refs[1], refs[1])
	}
	if !result.Capabilities["side-band-64k"] {
		t.Error("expected side-band-64k capability to survive the round trip")
	}
}

func TestEncodeDiscoveryAdvertisement_Empty(t *testing.T) {
	encoded := EncodeDiscoveryAdvertisement(nil, objstore.HashSHA1)

	result, err := ParseDiscovery(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("ParseDiscovery: %v", err)
	}
	if len(result.Refs) != 0 {
		t.Errorf("expected no refs for an empty-repository advertisement, got %d", len(result.Refs))
	}
}

func TestServeUploadPack_RoundTripWithClientRequest(t *testing.T) {
	refs := []DiscoveredRef{
		{Hash: objstore.ID("cccccccccccccccccccccccccccccccccccccccc"), Ref: "refs/heads/main"},
	}
	objects := map[objstore.ID][]byte{
		refs[0].Hash: []byte("commit payload"),
	}

	clientRequest := BuildUploadPackRequest([]objstore.ID{refs[0].Hash}, nil, nil, objstore.HashSHA1)

	var serverOut bytes.Buffer
	err := ServeUploadPack(bytes.NewReader(clientRequest), &serverOut, refs, objstore.HashSHA1, func(id objstore.ID) ([]byte, error) {
		return objects[id], nil
	})
	if err != nil {
		t.Fatalf("ServeUploadPack: %v", err)
	}

	discovery, err := ParseDiscovery(&serverOut)
	if err != nil {
		t.Fatalf("ParseDiscovery of server output: %v", err)
	}
	if len(discovery.Refs) != 1 || discovery.Refs[0].Hash != refs[0].Hash {
		t.Fatalf("unexpected advertised refs: %+v", discovery.Refs)
	}

	lines, err := ReadAllPktLines(&serverOut)
	if err != nil {
		t.Fatalf("ReadAllPktLines of requested object: %v", err)
	}
	if len(lines) != 1 || string(lines[0]) != "commit payload" {
		t.Fatalf("got lines %v, want [%q]", lines, "commit payload")
	}
}

func TestServeReceivePack_AppliesUpdates(t *testing.T) {
	clientHeader := BuildReceivePackHeader([]RefUpdate{
		{Old: objstore.ID("0000000000000000000000000000000000000000"), New: objstore.ID("dddddddddddddddddddddddddddddddddddddddd"), Name: "refs/heads/main"},
	}, objstore.HashSHA1)
	packData := []byte("pack bytes")
	clientRequest := append(clientHeader, packData...)

	var applied []RefUpdate
	var receivedPack []byte

	var serverOut bytes.Buffer
	err := ServeReceivePack(bytes.NewReader(clientRequest), &serverOut, nil, objstore.HashSHA1, func(updates []RefUpdate, data []byte) error {
		applied = updates
		receivedPack = data
		return nil
	})
	if err != nil {
		t.Fatalf("ServeReceivePack: %v", err)
	}
	if len(applied) != 1 || applied[0].Name != "refs/heads/main" {
		t.Fatalf("unexpected applied updates: %+v", applied)
	}
	if !bytes.Equal(receivedPack, packData) {
		t.Fatalf("got pack data %q, want %q", receivedPack, packData)
	}
}
