package internal

import (
	"sync"
	"testing"

	"github.com/Hanaasagi/builderr/pkg/diagparse"
)

func TestStoreGenerations(t *testing.T) {
	store := NewStore()
	if got := store.Snapshot(); got.Generation != 0 || got.Len() != 0 {
		t.Fatalf("Expected empty generation 0, got %+v", got)
	}

	first := store.Replace([]diagparse.Diagnostic{{File: "/a.c", Line: 1, Message: "x"}})
	second := store.Clear()

	if first.Generation != 1 || second.Generation != 2 {
		t.Errorf("Expected generations 1 and 2, got %d and %d", first.Generation, second.Generation)
	}
	if first.Len() != 1 {
		t.Errorf("Replaced snapshot must not change after a later swap")
	}
	if store.Snapshot() != second {
		t.Errorf("Expected the latest snapshot to be current")
	}
}

func TestStoreCopiesInput(t *testing.T) {
	store := NewStore()
	input := []diagparse.Diagnostic{{File: "/a.c", Line: 1, Message: "x"}}
	store.Replace(input)
	input[0].Message = "changed"

	if got := store.Snapshot().Diagnostics[0].Message; got != "x" {
		t.Errorf("Expected stored message 'x', got %q", got)
	}
}

func TestStoreForFile(t *testing.T) {
	store := NewStore()
	store.Replace([]diagparse.Diagnostic{
		{File: "/a.c", Line: 1, Message: "first"},
		{File: "/b.c", Line: 2, Message: "other"},
		{File: "/a.c", Line: 3, Message: "second"},
	})

	got := store.ForFile("/a.c")
	if len(got) != 2 || got[0].Message != "first" || got[1].Message != "second" {
		t.Errorf("Expected both /a.c diagnostics in parse order, got %+v", got)
	}
	if len(store.ForFile("/missing.c")) != 0 {
		t.Errorf("Expected nothing for an unknown file")
	}
}

func TestStoreReadersSeeWholeSets(t *testing.T) {
	store := NewStore()
	full := []diagparse.Diagnostic{
		{File: "/a.c", Line: 1, Message: "x"},
		{File: "/a.c", Line: 2, Message: "y"},
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			if i%2 == 0 {
				store.Replace(full)
			} else {
				store.Clear()
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			if n := store.Snapshot().Len(); n != 0 && n != len(full) {
				t.Errorf("Observed a partial set of %d diagnostics", n)
				return
			}
		}
	}()
	wg.Wait()
}
