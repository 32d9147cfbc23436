// SPDX-License-Identifier: Unlicense OR MIT

package registry

import "testing"

func TestInsertSetsFocusAndZ(t *testing.T) {
	r := New(800, 600)
	w1 := r.Insert(1, 0, 0, 100, 100)
	if f, ok := r.Focused(); !ok || f.ID != w1.ID {
		t.Fatalf("expected w1 focused")
	}
	w2 := r.Insert(2, 0, 0, 100, 100)
	if f, ok := r.Focused(); !ok || f.ID != w2.ID {
		t.Fatalf("expected w2 focused after insert")
	}
	if w2.Z <= w1.Z {
		t.Fatalf("w2.Z=%d should exceed w1.Z=%d", w2.Z, w1.Z)
	}
}

// TestZOrderStrictlyDecreasing is property 2 from spec.md §8.
func TestZOrderStrictlyDecreasing(t *testing.T) {
	r := New(800, 600)
	for i := 0; i < 5; i++ {
		r.Insert(ConnID(i), 0, 0, 10, 10)
	}
	ws := r.Windows()
	for i := 1; i < len(ws); i++ {
		if ws[i-1].Z <= ws[i].Z {
			t.Fatalf("z order not strictly decreasing at %d: %d <= %d", i, ws[i-1].Z, ws[i].Z)
		}
	}
}

func TestRemoveMovesFocusToNewTop(t *testing.T) {
	r := New(800, 600)
	w1 := r.Insert(1, 0, 0, 10, 10)
	w2 := r.Insert(2, 0, 0, 10, 10)
	r.Remove(w2.ID)
	f, ok := r.Focused()
	if !ok || f.ID != w1.ID {
		t.Fatalf("expected focus to fall back to w1")
	}
}

func TestRemoveLastLeavesNoFocus(t *testing.T) {
	r := New(800, 600)
	w1 := r.Insert(1, 0, 0, 10, 10)
	r.Remove(w1.ID)
	if _, ok := r.Focused(); ok {
		t.Fatalf("expected no focus with only background left")
	}
}

func TestRaiseDoesNotChangeFocus(t *testing.T) {
	r := New(800, 600)
	w1 := r.Insert(1, 0, 0, 10, 10)
	w2 := r.Insert(2, 0, 0, 10, 10)
	r.SetFocus(w1.ID)
	r.Raise(w2.ID)
	f, ok := r.Focused()
	if !ok || f.ID != w1.ID {
		t.Fatalf("raise should not change focus")
	}
	if r.Windows()[0].ID != w2.ID {
		t.Fatalf("raise should move w2 to top")
	}
}

// TestHitTestExcludesBackground is property 3 from spec.md §8.
func TestHitTestExcludesBackground(t *testing.T) {
	r := New(800, 600)
	if _, ok := r.HitTest(400, 300); ok {
		t.Fatalf("hit test should not find anything with no windows")
	}
	r.Insert(1, 0, 0, 800, 600)
	w, ok := r.HitTest(400, 300)
	if !ok {
		t.Fatalf("expected a hit")
	}
	if w.ID == BackgroundID {
		t.Fatalf("hit test returned background")
	}
}

func TestHitTestPicksTopmost(t *testing.T) {
	r := New(800, 600)
	r.Insert(1, 50, 50, 100, 100)
	w2 := r.Insert(2, 100, 100, 100, 100)
	w, ok := r.HitTest(120, 120)
	if !ok || w.ID != w2.ID {
		t.Fatalf("expected overlap resolved to topmost window")
	}
}

func TestWindowsBelowExcludesFrontAndBackground(t *testing.T) {
	r := New(800, 600)
	w1 := r.Insert(1, 0, 0, 10, 10)
	w2 := r.Insert(2, 0, 0, 10, 10)
	w3 := r.Insert(3, 0, 0, 10, 10)
	below := r.WindowsBelow(w3.ID)
	if len(below) != 2 || below[0].ID != w2.ID || below[1].ID != w1.ID {
		t.Fatalf("unexpected WindowsBelow result: %+v", below)
	}
	if len(r.WindowsBelow(w1.ID)) != 0 {
		t.Fatalf("bottom-most window should have nothing below it")
	}
}
