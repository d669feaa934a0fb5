package gossip

import (
	"context"
	"testing"
	"time"

	"github.com/multiformats/go-multiaddr"

	"github.com/amaydixit11/deltacrdt/internal/crdt"
	"github.com/amaydixit11/deltacrdt/internal/environment"
)

func newTestService(t *testing.T, registry *crdt.Registry) *Service {
	t.Helper()
	cfg := DefaultConfig()
	svc, err := NewService(registry, cfg)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}

func dialableAddr(t *testing.T, svc *Service) multiaddr.Multiaddr {
	t.Helper()
	addrs := svc.Addrs()
	if len(addrs) == 0 {
		t.Fatal("service has no listen addresses")
	}
	full, err := multiaddr.NewMultiaddr(addrs[0].String() + "/p2p/" + svc.PeerID().String())
	if err != nil {
		t.Fatalf("building full peer address: %v", err)
	}
	return full
}

func TestGossipSyncExchangesDeltasBothWays(t *testing.T) {
	clockA := environment.NewClock("replica-a", 0)
	regA := crdt.NewRegistry(clockA)
	regA.LWWMap("profile").PutString("name", "ada", clockA.Next())

	clockB := environment.NewClock("replica-b", 0)
	regB := crdt.NewRegistry(clockB)
	regB.LWWMap("profile").PutString("city", "berlin", clockB.Next())

	svcA := newTestService(t, regA)
	svcB := newTestService(t, regB)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := svcA.Connect(ctx, dialableAddr(t, svcB)); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	// Give the responder goroutine a moment to finish its side of the
	// exchange before asserting on its state.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_, ok := regB.LWWMap("profile").GetString("name")
		if ok {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if v, ok := regA.LWWMap("profile").GetString("city"); !ok || v != "berlin" {
		t.Errorf("expected A to learn city=berlin from B, got %q ok=%v", v, ok)
	}
	if v, ok := regB.LWWMap("profile").GetString("name"); !ok || v != "ada" {
		t.Errorf("expected B to learn name=ada from A, got %q ok=%v", v, ok)
	}
}

func TestGossipConnectTracksPeer(t *testing.T) {
	clockA := environment.NewClock("replica-a", 0)
	regA := crdt.NewRegistry(clockA)
	clockB := environment.NewClock("replica-b", 0)
	regB := crdt.NewRegistry(clockB)

	svcA := newTestService(t, regA)
	svcB := newTestService(t, regB)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := svcA.Connect(ctx, dialableAddr(t, svcB)); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if len(svcA.Peers()) != 1 {
		t.Errorf("expected A to track exactly one peer, got %d", len(svcA.Peers()))
	}
}
