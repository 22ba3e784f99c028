package ledger

import (
	"context"
	"sort"
	"sync"

	"github.com/telinkmesh/telinkmesh-go/pkg/address"
	"github.com/telinkmesh/telinkmesh-go/pkg/mesh"
)

// Memory is an in-process ledger.
type Memory struct {
	mu   sync.Mutex
	used map[string]map[uint16]struct{}
}

var _ address.Ledger = (*Memory)(nil)

// NewMemory returns an empty ledger.
func NewMemory() *Memory {
	return &Memory{used: make(map[string]map[uint16]struct{})}
}

// AvailableAddresses implements address.Ledger.
func (m *Memory) AvailableAddresses(ctx context.Context, network mesh.Network) ([]uint16, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return address.Free(m.used[network.Name]), nil
}

// RecordUsed implements address.Ledger.
func (m *Memory) RecordUsed(ctx context.Context, network mesh.Network, addrs ...uint16) ([]uint16, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	set := m.used[network.Name]
	if set == nil {
		set = make(map[uint16]struct{})
		m.used[network.Name] = set
	}
	return merge(set, addrs), nil
}

// Used returns the recorded addresses of network, ascending.
func (m *Memory) Used(network mesh.Network) []uint16 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sorted(m.used[network.Name])
}

// merge adds the device addresses of addrs to set and returns those that
// were new.
func merge(set map[uint16]struct{}, addrs []uint16) []uint16 {
	var added []uint16
	for _, a := range addrs {
		if !mesh.IsDeviceAddress(a) {
			continue
		}
		if _, ok := set[a]; ok {
			continue
		}
		set[a] = struct{}{}
		added = append(added, a)
	}
	return added
}

func sorted(set map[uint16]struct{}) []uint16 {
	out := make([]uint16, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
