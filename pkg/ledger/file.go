package ledger

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/telinkmesh/telinkmesh-go/pkg/address"
	"github.com/telinkmesh/telinkmesh-go/pkg/mesh"
)

// FileVersion is the current version of the ledger file format.
const FileVersion = 1

// fileState is the on-disk document.
type fileState struct {
	// Version is the ledger file format version.
	Version int `json:"version"`

	// SavedAt is when the ledger was last saved.
	SavedAt time.Time `json:"saved_at"`

	// Networks maps a network name to its used addresses.
	Networks map[string][]uint16 `json:"networks,omitempty"`
}

// File is a ledger persisted to a JSON file. Every call reads the file, so
// several processes may share it as long as they do not record at the same
// time.
type File struct {
	mu   sync.Mutex
	path string
}

var _ address.Ledger = (*File)(nil)

// NewFile creates a ledger backed by path. The file is created on the
// first RecordUsed.
func NewFile(path string) *File {
	return &File{path: path}
}

// AvailableAddresses implements address.Ledger.
func (f *File) AvailableAddresses(ctx context.Context, network mesh.Network) ([]uint16, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	state, err := f.load()
	if err != nil {
		return nil, err
	}
	return address.Free(toSet(state.Networks[network.Name])), nil
}

// RecordUsed implements address.Ledger.
func (f *File) RecordUsed(ctx context.Context, network mesh.Network, addrs ...uint16) ([]uint16, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	state, err := f.load()
	if err != nil {
		return nil, err
	}
	set := toSet(state.Networks[network.Name])
	added := merge(set, addrs)
	if len(added) == 0 {
		return nil, nil
	}
	state.Networks[network.Name] = sorted(set)
	if err := f.save(state); err != nil {
		return nil, err
	}
	return added, nil
}

// Forget drops every address recorded for network.
func (f *File) Forget(network mesh.Network) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	state, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := state.Networks[network.Name]; !ok {
		return nil
	}
	delete(state.Networks, network.Name)
	return f.save(state)
}

// Clear removes the ledger file.
func (f *File) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// load reads the ledger. A missing file is an empty ledger.
func (f *File) load() (*fileState, error) {
	state := &fileState{}
	data, err := os.ReadFile(f.path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, err
	default:
		if err := json.Unmarshal(data, state); err != nil {
			return nil, err
		}
	}
	if state.Networks == nil {
		state.Networks = make(map[string][]uint16)
	}
	return state, nil
}

func (f *File) save(state *fileState) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	state.Version = FileVersion
	state.SavedAt = time.Now()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0644)
}

func toSet(addrs []uint16) map[uint16]struct{} {
	set := make(map[uint16]struct{}, len(addrs))
	for _, a := range addrs {
		set[a] = struct{}{}
	}
	return set
}
