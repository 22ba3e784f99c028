package address

import (
	"context"
	"fmt"
	"sync"

	"github.com/telinkmesh/telinkmesh-go/pkg/mesh"
)

// Ledger records the device addresses in use on each network.
type Ledger interface {
	// AvailableAddresses returns the free device addresses of network in
	// ascending order.
	AvailableAddresses(ctx context.Context, network mesh.Network) ([]uint16, error)

	// RecordUsed marks addrs as used and returns the ones that were not
	// recorded before.
	RecordUsed(ctx context.Context, network mesh.Network, addrs ...uint16) ([]uint16, error)
}

// Free returns the device addresses 1..255 that are not in used, ascending.
func Free(used map[uint16]struct{}) []uint16 {
	out := make([]uint16, 0, int(mesh.MaxDeviceAddress))
	for a := mesh.MinDeviceAddress; a <= mesh.MaxDeviceAddress; a++ {
		if _, ok := used[a]; !ok {
			out = append(out, a)
		}
	}
	return out
}

// Allocator is a pool of free addresses. It is safe for concurrent use.
type Allocator struct {
	mu   sync.Mutex
	free []uint16
}

// NewAllocator returns a pool holding the device addresses of addrs, in
// order. Duplicates and non-device addresses are skipped.
func NewAllocator(addrs []uint16) *Allocator {
	seen := make(map[uint16]struct{}, len(addrs))
	free := make([]uint16, 0, len(addrs))
	for _, a := range addrs {
		if !mesh.IsDeviceAddress(a) {
			continue
		}
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		free = append(free, a)
	}
	return &Allocator{free: free}
}

// FromLedger snapshots the free addresses of network.
func FromLedger(ctx context.Context, l Ledger, network mesh.Network) (*Allocator, error) {
	addrs, err := l.AvailableAddresses(ctx, network)
	if err != nil {
		return nil, fmt.Errorf("available addresses of %s: %w", network, err)
	}
	return NewAllocator(addrs), nil
}

// Take removes and returns the first free address other than excluding.
// It returns false when no such address is left.
func (a *Allocator) Take(excluding uint16) (uint16, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, addr := range a.free {
		if addr == excluding {
			continue
		}
		a.free = append(a.free[:i], a.free[i+1:]...)
		return addr, true
	}
	return 0, false
}

// Len returns the number of free addresses.
func (a *Allocator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.free)
}
