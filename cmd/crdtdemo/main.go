// Command crdtdemo is a small demo CLI wiring together the delta-state
// CRDT core and its storage/search/gossip/pairing collaborators, in the
// same switch-on-os.Args[1] shape as the teacher's cmd/vaultd.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/multiformats/go-multiaddr"
	"golang.org/x/term"

	"github.com/amaydixit11/deltacrdt/internal/core"
	"github.com/amaydixit11/deltacrdt/internal/crdt"
	"github.com/amaydixit11/deltacrdt/internal/environment"
	"github.com/amaydixit11/deltacrdt/internal/gossip"
	"github.com/amaydixit11/deltacrdt/internal/pairing"
	"github.com/amaydixit11/deltacrdt/internal/search"
	"github.com/amaydixit11/deltacrdt/internal/storage"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "init":
		cmdInit(args)
	case "put":
		cmdPut(args)
	case "get":
		cmdGet(args)
	case "daemon":
		cmdDaemon(args)
	case "invite":
		cmdInvite(args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`crdtdemo - delta-state CRDT replica demo

Usage: crdtdemo <command> [options]

Commands:
  init     Derive a replica identity from a passphrase
  put      Put a string value into the "profile" LWWMap
  get      Read a string value from the "profile" LWWMap
  daemon   Start the gossip service, discoverable via a pairing code
  invite   Print a pairing code for a running daemon
  help     Show this help

Examples:
  crdtdemo init --data ~/.crdtdemo
  crdtdemo put --data ~/.crdtdemo --key name --value ada
  crdtdemo get --data ~/.crdtdemo --key name
  crdtdemo daemon --data ~/.crdtdemo --port 4001`)
}

func defaultDataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".crdtdemo")
}

const saltFileName = "salt"
const replicaFileName = "replica-id"
const snapshotID = "registry"

func cmdInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	dataDir := fs.String("data", defaultDataDir(), "Data directory")
	fs.Parse(args)

	if err := os.MkdirAll(*dataDir, 0700); err != nil {
		log.Fatalf("failed to create data directory: %v", err)
	}

	fmt.Print("Enter a passphrase for this replica: ")
	passphrase, err := readPassword()
	if err != nil {
		log.Fatalf("\nerror reading passphrase: %v", err)
	}
	fmt.Println()

	salt := make([]byte, 16)
	if _, err := readRandomBytes(salt); err != nil {
		log.Fatalf("failed to generate salt: %v", err)
	}
	if err := os.WriteFile(filepath.Join(*dataDir, saltFileName), salt, 0600); err != nil {
		log.Fatalf("failed to persist salt: %v", err)
	}

	replicaID := environment.DeriveReplicaID(passphrase, salt)
	if err := os.WriteFile(filepath.Join(*dataDir, replicaFileName), []byte(replicaID), 0600); err != nil {
		log.Fatalf("failed to persist replica id: %v", err)
	}

	fmt.Printf("Replica initialized: %s\n", replicaID)
}

func readRandomBytes(b []byte) (int, error) {
	f, err := os.Open("/dev/urandom")
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return f.Read(b)
}

func readPassword() ([]byte, error) {
	fd := int(syscall.Stdin)
	if !term.IsTerminal(fd) {
		var password string
		fmt.Scanln(&password)
		return []byte(password), nil
	}
	return term.ReadPassword(fd)
}

func loadReplicaID(dataDir string) (core.ReplicaID, error) {
	data, err := os.ReadFile(filepath.Join(dataDir, replicaFileName))
	if err != nil {
		return "", fmt.Errorf("replica not initialized, run 'crdtdemo init' first: %w", err)
	}
	return core.ReplicaID(data), nil
}

func openRegistry(dataDir string) (*crdt.Registry, *environment.Clock, *storage.SQLiteStore, error) {
	replicaID, err := loadReplicaID(dataDir)
	if err != nil {
		return nil, nil, nil, err
	}

	store, err := storage.NewSQLiteStore(filepath.Join(dataDir, "snapshots.db"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open storage: %w", err)
	}

	clock := environment.NewClock(replicaID, 0)
	var reg *crdt.Registry
	if data, err := store.LoadSnapshot(snapshotID); err == nil {
		reg, err = crdt.FromJSONRegistry(data)
		if err != nil {
			store.Close()
			return nil, nil, nil, fmt.Errorf("decode snapshot: %w", err)
		}
		reg.Attach(clock)
		// Fast-forward past this replica's own restored timestamps so
		// Next() never re-mints a counter value already on disk.
		for _, vv := range reg.VersionVectors() {
			for id, counter := range vv.Entries() {
				clock.Observe(core.Timestamp{Counter: counter, Replica: id})
			}
		}
	} else if err == storage.ErrNotFound {
		reg = crdt.NewRegistry(clock)
	} else {
		store.Close()
		return nil, nil, nil, fmt.Errorf("load snapshot: %w", err)
	}

	return reg, clock, store, nil
}

func saveRegistry(reg *crdt.Registry, store *storage.SQLiteStore) error {
	data, err := reg.ToJSON()
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}
	return store.SaveSnapshot(snapshotID, data)
}

func cmdPut(args []string) {
	fs := flag.NewFlagSet("put", flag.ExitOnError)
	dataDir := fs.String("data", defaultDataDir(), "Data directory")
	key := fs.String("key", "", "Key to set")
	value := fs.String("value", "", "Value to set")
	fs.Parse(args)

	if *key == "" {
		fmt.Fprintln(os.Stderr, "Usage: crdtdemo put --key <key> --value <value>")
		os.Exit(1)
	}

	reg, clock, store, err := openRegistry(*dataDir)
	if err != nil {
		log.Fatalf("error: %v", err)
	}
	defer store.Close()

	reg.LWWMap("profile").PutString(*key, *value, clock.Next())

	if err := saveRegistry(reg, store); err != nil {
		log.Fatalf("error saving snapshot: %v", err)
	}
	fmt.Printf("Set %s = %s\n", *key, *value)
}

func cmdGet(args []string) {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	dataDir := fs.String("data", defaultDataDir(), "Data directory")
	key := fs.String("key", "", "Key to read")
	fs.Parse(args)

	if *key == "" {
		fmt.Fprintln(os.Stderr, "Usage: crdtdemo get --key <key>")
		os.Exit(1)
	}

	reg, _, store, err := openRegistry(*dataDir)
	if err != nil {
		log.Fatalf("error: %v", err)
	}
	defer store.Close()

	v, ok := reg.LWWMap("profile").GetString(*key)
	if !ok {
		fmt.Println("(not set)")
		return
	}
	fmt.Println(v)
}

type stdLogger struct{}

func (stdLogger) Printf(format string, v ...interface{}) { log.Printf(format, v...) }

func cmdDaemon(args []string) {
	fs := flag.NewFlagSet("daemon", flag.ExitOnError)
	dataDir := fs.String("data", defaultDataDir(), "Data directory")
	port := fs.Int("port", 0, "Port to listen on (0 = random)")
	fs.Parse(args)

	reg, _, store, err := openRegistry(*dataDir)
	if err != nil {
		log.Fatalf("error: %v", err)
	}
	defer store.Close()

	idx, err := search.NewIndex(*dataDir)
	if err != nil {
		log.Fatalf("failed to open search index: %v", err)
	}
	defer idx.Close()

	gossipCfg := gossip.DefaultConfig()
	if *port > 0 {
		gossipCfg.ListenAddrs = []string{fmt.Sprintf("/ip4/0.0.0.0/tcp/%d", *port)}
	}
	gossipCfg.Logger = stdLogger{}

	svc, err := gossip.NewService(reg, gossipCfg)
	if err != nil {
		log.Fatalf("failed to create gossip service: %v", err)
	}
	defer svc.Close()

	fmt.Println("Daemon started.")
	fmt.Printf("Peer ID: %s\n", svc.PeerID())
	for _, addr := range svc.Addrs() {
		fmt.Printf("Listening on: %s\n", addr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := saveRegistry(reg, store); err != nil {
					log.Printf("periodic snapshot failed: %v", err)
				}
				profile := reg.LWWMap("profile")
				idx.IndexLWWMap("profile", profile, profile.Keys(crdt.TagString))
				log.Printf("peers connected: %d", len(svc.Peers()))
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("shutting down...")
	if err := saveRegistry(reg, store); err != nil {
		log.Printf("final snapshot failed: %v", err)
	}
}

func cmdInvite(args []string) {
	fs := flag.NewFlagSet("invite", flag.ExitOnError)
	peerID := fs.String("peer", "", "Peer ID of the running daemon")
	addr := fs.String("addr", "", "Multiaddr the daemon is listening on")
	fs.Parse(args)

	if *peerID == "" || *addr == "" {
		fmt.Fprintln(os.Stderr, "Usage: crdtdemo invite --peer <id> --addr <multiaddr>")
		os.Exit(1)
	}
	if _, err := multiaddr.NewMultiaddr(*addr); err != nil {
		log.Fatalf("invalid address: %v", err)
	}

	code := pairing.New(*peerID, *addr, pairing.DefaultExpiry)
	qrStr, err := code.ToQRString()
	if err == nil {
		fmt.Println(qrStr)
	}

	encoded, err := code.Encode()
	if err != nil {
		log.Fatalf("failed to encode pairing code: %v", err)
	}
	fmt.Printf("\nPairing code: %s\n", encoded)
}
