package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/telinkmesh/telinkmesh-go/pkg/address"
	"github.com/telinkmesh/telinkmesh-go/pkg/mesh"
)

var (
	home   = mesh.Network{Name: "home", Password: "secret"}
	office = mesh.Network{Name: "office", Password: "secret"}
)

func newSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func backends(t *testing.T) map[string]address.Ledger {
	return map[string]address.Ledger{
		"Memory": NewMemory(),
		"File":   NewFile(filepath.Join(t.TempDir(), "nested", "ledger.json")),
		"SQLite": newSQLite(t),
	}
}

func TestLedgerBackends(t *testing.T) {
	ctx := context.Background()

	for name, l := range backends(t) {
		t.Run(name, func(t *testing.T) {
			free, err := l.AvailableAddresses(ctx, home)
			if err != nil {
				t.Fatalf("AvailableAddresses: %v", err)
			}
			if len(free) != 255 || free[0] != 1 {
				t.Fatalf("fresh ledger: got %d free starting at %v", len(free), free[:1])
			}

			added, err := l.RecordUsed(ctx, home, 1, 7, 7, 0, mesh.Broadcast)
			if err != nil {
				t.Fatalf("RecordUsed: %v", err)
			}
			if len(added) != 2 || added[0] != 1 || added[1] != 7 {
				t.Errorf("added = %v, want [1 7]", added)
			}

			added, err = l.RecordUsed(ctx, home, 7, 8)
			if err != nil {
				t.Fatalf("RecordUsed: %v", err)
			}
			if len(added) != 1 || added[0] != 8 {
				t.Errorf("added = %v, want [8]", added)
			}

			free, err = l.AvailableAddresses(ctx, home)
			if err != nil {
				t.Fatalf("AvailableAddresses: %v", err)
			}
			if len(free) != 252 {
				t.Errorf("len(free) = %d, want 252", len(free))
			}
			if free[0] != 2 {
				t.Errorf("free[0] = %d, want 2", free[0])
			}
			for _, a := range free {
				if a == 1 || a == 7 || a == 8 {
					t.Errorf("used address %d reported free", a)
				}
			}

			free, err = l.AvailableAddresses(ctx, office)
			if err != nil {
				t.Fatalf("AvailableAddresses: %v", err)
			}
			if len(free) != 255 {
				t.Errorf("other network: len(free) = %d, want 255", len(free))
			}
		})
	}
}

func TestLedgerCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for name, l := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := l.AvailableAddresses(ctx, home); err == nil {
				t.Error("AvailableAddresses: expected error")
			}
			if _, err := l.RecordUsed(ctx, home, 3); err == nil {
				t.Error("RecordUsed: expected error")
			}
		})
	}
}

func TestFilePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.json")

	if _, err := NewFile(path).RecordUsed(ctx, home, 4, 5); err != nil {
		t.Fatalf("RecordUsed: %v", err)
	}

	reopened := NewFile(path)
	free, err := reopened.AvailableAddresses(ctx, home)
	if err != nil {
		t.Fatalf("AvailableAddresses: %v", err)
	}
	if len(free) != 253 {
		t.Errorf("len(free) = %d, want 253", len(free))
	}

	if err := reopened.Forget(home); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	free, _ = reopened.AvailableAddresses(ctx, home)
	if len(free) != 255 {
		t.Errorf("after Forget: len(free) = %d, want 255", len(free))
	}

	if err := reopened.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file still present after Clear: %v", err)
	}
	if err := reopened.Clear(); err != nil {
		t.Errorf("second Clear: %v", err)
	}
}

func TestFileCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFile(path).AvailableAddresses(context.Background(), home); err == nil {
		t.Error("expected error for corrupt file")
	}
}

func TestSQLitePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	s, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	if _, err := s.RecordUsed(ctx, home, 10, 11); err != nil {
		t.Fatalf("RecordUsed: %v", err)
	}
	s.Close()

	s, err = NewSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	free, err := s.AvailableAddresses(ctx, home)
	if err != nil {
		t.Fatalf("AvailableAddresses: %v", err)
	}
	if len(free) != 253 {
		t.Errorf("len(free) = %d, want 253", len(free))
	}

	if err := s.Forget(ctx, home); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	free, _ = s.AvailableAddresses(ctx, home)
	if len(free) != 255 {
		t.Errorf("after Forget: len(free) = %d, want 255", len(free))
	}
}

func TestMemoryUsed(t *testing.T) {
	m := NewMemory()
	if _, err := m.RecordUsed(context.Background(), home, 9, 2, 5); err != nil {
		t.Fatal(err)
	}
	got := m.Used(home)
	want := []uint16{2, 5, 9}
	if len(got) != len(want) {
		t.Fatalf("Used = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Used[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}
