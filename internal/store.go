package internal

import (
	"sync/atomic"

	"github.com/Hanaasagi/builderr/pkg/diagparse"
)

// Snapshot is the complete diagnostic set of one parse
type Snapshot struct {
	Generation  uint64
	Diagnostics []diagparse.Diagnostic
}

// Len returns the number of diagnostics in the snapshot
func (s *Snapshot) Len() int {
	return len(s.Diagnostics)
}

// ForFile returns the diagnostics for a normalized path, in parse order
func (s *Snapshot) ForFile(path string) []diagparse.Diagnostic {
	var result []diagparse.Diagnostic
	for _, d := range s.Diagnostics {
		if d.File == path {
			result = append(result, d)
		}
	}
	return result
}

// Store holds the diagnostics of the most recent parse. Every write swaps in
// a whole new snapshot, so readers see either the old or the new set.
type Store struct {
	current    atomic.Pointer[Snapshot]
	generation atomic.Uint64
}

// NewStore creates an empty store at generation 0
func NewStore() *Store {
	s := &Store{}
	s.current.Store(&Snapshot{})
	return s
}

// Replace installs diagnostics as the new complete set
func (s *Store) Replace(diagnostics []diagparse.Diagnostic) *Snapshot {
	snapshot := &Snapshot{
		Generation:  s.generation.Add(1),
		Diagnostics: append([]diagparse.Diagnostic(nil), diagnostics...),
	}
	s.current.Store(snapshot)
	return snapshot
}

// Clear installs an empty set
func (s *Store) Clear() *Snapshot {
	return s.Replace(nil)
}

// Snapshot returns the current set
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// ForFile returns the current diagnostics for a normalized path
func (s *Store) ForFile(path string) []diagparse.Diagnostic {
	return s.Snapshot().ForFile(path)
}
