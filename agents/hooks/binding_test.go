/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package hooks

import (
	"slices"
	"sync"
	"testing"
)

func TestBindingSwapRestore(t *testing.T) {
	b := Register("hooks_test.swap", "v1.0.0", func() string { return "fallback" })

	if got := b.Load(); got != "fallback" {
		t.Errorf("Load: got = %q, wanted = %q", got, "fallback")
	}

	prev, had := b.Swap("first")
	if had {
		t.Errorf("Swap on fresh binding: got had = true, wanted = false (prev %q)", prev)
	}
	if got := b.Load(); got != "first" {
		t.Errorf("Load after swap: got = %q, wanted = %q", got, "first")
	}

	prev2, had2 := b.Swap("second")
	if !had2 || prev2 != "first" {
		t.Errorf("second Swap: got = (%q, %v), wanted = (%q, true)", prev2, had2, "first")
	}

	b.Restore(prev2, had2)
	if got := b.Load(); got != "first" {
		t.Errorf("Load after restore: got = %q, wanted = %q", got, "first")
	}

	b.Restore(prev, had)
	if got := b.Load(); got != "fallback" {
		t.Errorf("Load after full restore: got = %q, wanted = %q", got, "fallback")
	}
	if b.Overridden() {
		t.Error("Overridden after full restore: got = true, wanted = false")
	}
}

func TestRegisterReturnsExisting(t *testing.T) {
	a := Register("hooks_test.existing", "v1.0.0", func() int { return 1 })
	b := Register("hooks_test.existing", "v9.0.0", func() int { return 2 })
	if a != b {
		t.Fatal("Register twice: got distinct bindings, wanted the same binding")
	}
	if got := b.Version(); got != "v1.0.0" {
		t.Errorf("Version: got = %q, wanted = %q", got, "v1.0.0")
	}
	if got := b.Load(); got != 1 {
		t.Errorf("Load: got = %d, wanted = 1", got)
	}
}

func TestRegisterTypeClashPanics(t *testing.T) {
	Register("hooks_test.clash", "v1.0.0", func() int { return 1 })

	defer func() {
		if recover() == nil {
			t.Error("Register with clashing type: got no panic, wanted panic")
		}
	}()
	Register("hooks_test.clash", "v1.0.0", func() string { return "x" })
}

func TestLookup(t *testing.T) {
	want := Register("hooks_test.lookup", "v1.0.0", func() float64 { return 0.5 })

	raw, ok := Lookup("hooks_test.lookup")
	if !ok {
		t.Fatal("Lookup: got ok = false, wanted = true")
	}
	got, ok := raw.(*Binding[float64])
	if !ok {
		t.Fatalf("Lookup type: got = %T, wanted = *Binding[float64]", raw)
	}
	if got != want {
		t.Error("Lookup: got a different binding than registered")
	}

	if _, ok := raw.(*Binding[string]); ok {
		t.Error("Lookup asserted to wrong shape: got ok = true, wanted = false")
	}

	if _, ok := Lookup("hooks_test.missing"); ok {
		t.Error("Lookup missing key: got ok = true, wanted = false")
	}

	if !slices.Contains(Keys(), "hooks_test.lookup") {
		t.Errorf("Keys: got = %v, wanted to contain %q", Keys(), "hooks_test.lookup")
	}
}

func TestBindingConcurrentAccess(t *testing.T) {
	b := Register("hooks_test.concurrent", "v1.0.0", func() int { return 0 })

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			prev, had := b.Swap(i)
			b.Restore(prev, had)
		}()
		go func() {
			defer wg.Done()
			_ = b.Load()
		}()
	}
	wg.Wait()
}
