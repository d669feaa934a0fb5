// Package gossip exchanges crdt.Registry deltas between replicas over
// libp2p, the same two-phase push-pull shape as the teacher's
// internal/sync.SyncService: trade version vectors, then trade
// generate_delta(vv) results and merge them.
package gossip

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/peerstore"
	"github.com/libp2p/go-libp2p/core/protocol"
	"github.com/multiformats/go-multiaddr"

	"github.com/amaydixit11/deltacrdt/internal/core"
	"github.com/amaydixit11/deltacrdt/internal/crdt"
)

// ProtocolID identifies the delta-exchange stream protocol.
const ProtocolID = protocol.ID("/deltacrdt/gossip/1.0.0")

// Logger matches the minimal interface the teacher's sync package
// takes for event reporting.
type Logger interface {
	Printf(format string, v ...interface{})
}

type noopLogger struct{}

func (noopLogger) Printf(string, ...interface{}) {}

// Config configures a Service.
type Config struct {
	ListenAddrs []string
	Logger      Logger
}

// DefaultConfig returns a config listening on a random TCP port.
func DefaultConfig() Config {
	return Config{ListenAddrs: []string{"/ip4/0.0.0.0/tcp/0"}}
}

// handshake carries each side's per-collection version vectors. Each
// core.VersionVector already marshals to the §6.2 {"entries":{...}}
// shape, so the handshake just keys a map of them by collection name.
type handshake struct {
	VersionVectors map[string]*core.VersionVector `json:"versionVectors"`
}

// Service runs the delta-exchange protocol against a shared registry.
type Service struct {
	host     host.Host
	registry *crdt.Registry
	logger   Logger

	mu    sync.Mutex
	peers map[peer.ID]struct{}
}

// NewService creates a libp2p host and wires it to registry.
func NewService(registry *crdt.Registry, cfg Config) (*Service, error) {
	addrs := make([]multiaddr.Multiaddr, len(cfg.ListenAddrs))
	for i, a := range cfg.ListenAddrs {
		ma, err := multiaddr.NewMultiaddr(a)
		if err != nil {
			return nil, fmt.Errorf("gossip: invalid listen address %q: %w", a, err)
		}
		addrs[i] = ma
	}

	h, err := libp2p.New(libp2p.ListenAddrs(addrs...))
	if err != nil {
		return nil, fmt.Errorf("gossip: create libp2p host: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	s := &Service{host: h, registry: registry, logger: logger, peers: make(map[peer.ID]struct{})}
	h.SetStreamHandler(ProtocolID, s.handleStream)
	return s, nil
}

// Addrs returns the multiaddrs this service is reachable at.
func (s *Service) Addrs() []multiaddr.Multiaddr {
	return s.host.Addrs()
}

// PeerID returns the libp2p peer id of this service's host.
func (s *Service) PeerID() peer.ID {
	return s.host.ID()
}

// Connect dials a peer at addr and performs one sync round with it.
func (s *Service) Connect(ctx context.Context, addr multiaddr.Multiaddr) error {
	info, err := peer.AddrInfoFromP2pAddr(addr)
	if err != nil {
		return fmt.Errorf("gossip: parse peer address: %w", err)
	}
	s.host.Peerstore().AddAddrs(info.ID, info.Addrs, peerstore.PermanentAddrTTL)
	if err := s.host.Connect(ctx, *info); err != nil {
		return fmt.Errorf("gossip: connect to %s: %w", info.ID, err)
	}

	stream, err := s.host.NewStream(ctx, info.ID, ProtocolID)
	if err != nil {
		return fmt.Errorf("gossip: open stream to %s: %w", info.ID, err)
	}
	defer stream.Close()

	s.trackPeer(info.ID)
	return s.sync(stream)
}

func (s *Service) trackPeer(id peer.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peers[id] = struct{}{}
}

// Peers returns every peer this service has synced with.
func (s *Service) Peers() []peer.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]peer.ID, 0, len(s.peers))
	for id := range s.peers {
		out = append(out, id)
	}
	return out
}

func (s *Service) handleStream(stream network.Stream) {
	defer stream.Close()
	s.trackPeer(stream.Conn().RemotePeer())
	if err := s.sync(stream); err != nil {
		s.logger.Printf("gossip: sync with %s failed: %v", stream.Conn().RemotePeer(), err)
	}
}

// sync runs the push-pull exchange over an already-open stream:
// both sides write their version vectors, then both sides write the
// delta the other side's vectors say it's missing, then merge.
func (s *Service) sync(stream network.Stream) error {
	rw := bufio.NewReadWriter(bufio.NewReader(stream), bufio.NewWriter(stream))

	localVVs := s.registry.VersionVectors()
	if err := writeJSON(rw, toHandshake(localVVs)); err != nil {
		return fmt.Errorf("send handshake: %w", err)
	}
	if err := rw.Flush(); err != nil {
		return err
	}

	var peerHandshake handshake
	if err := readJSON(rw, &peerHandshake); err != nil {
		return fmt.Errorf("read handshake: %w", err)
	}
	peerVVs := fromHandshake(peerHandshake)

	outgoing := s.registry.GenerateDelta(peerVVs)
	outgoingJSON, err := outgoing.ToJSON()
	if err != nil {
		return fmt.Errorf("encode outgoing delta: %w", err)
	}
	if err := writeJSON(rw, json.RawMessage(outgoingJSON)); err != nil {
		return fmt.Errorf("send delta: %w", err)
	}
	if err := rw.Flush(); err != nil {
		return err
	}

	var incomingJSON json.RawMessage
	if err := readJSON(rw, &incomingJSON); err != nil {
		return fmt.Errorf("read delta: %w", err)
	}
	incoming, err := crdt.FromJSONRegistry(incomingJSON)
	if err != nil {
		return fmt.Errorf("decode incoming delta: %w", err)
	}

	s.registry.Merge(incoming)
	return nil
}

func toHandshake(vvs map[string]*core.VersionVector) handshake {
	return handshake{VersionVectors: vvs}
}

func fromHandshake(h handshake) map[string]*core.VersionVector {
	return h.VersionVectors
}

func writeJSON(w *bufio.ReadWriter, v interface{}) error {
	enc := json.NewEncoder(w)
	return enc.Encode(v)
}

func readJSON(r *bufio.ReadWriter, v interface{}) error {
	dec := json.NewDecoder(r)
	return dec.Decode(v)
}

// SyncLoop periodically syncs with every known peer until ctx is
// cancelled, in the same fixed-interval shape as the teacher's
// Config.SyncInterval loop.
func (s *Service) SyncLoop(ctx context.Context, interval time.Duration, addrs []multiaddr.Multiaddr) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, addr := range addrs {
				if err := s.Connect(ctx, addr); err != nil {
					s.logger.Printf("gossip: periodic sync failed: %v", err)
				}
			}
		}
	}
}

// Close shuts down the underlying libp2p host.
func (s *Service) Close() error {
	return s.host.Close()
}
