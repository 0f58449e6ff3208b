package atlas

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func item(key string, w, h int) Item {
	return Item{Key: key, Width: w, Height: h}
}

func TestPackRows(t *testing.T) {
	tests := []struct {
		name       string
		items      []Item
		width      int
		want       []PlacedRect
		wantHeight int
		wantPacked int
	}{
		{
			name:  "single row",
			items: []Item{item("a", 10, 5), item("b", 20, 8)},
			width: 100,
			want: []PlacedRect{
				{Key: "a", X: 0, Y: 0, Width: 10, Height: 5},
				{Key: "b", X: 10, Y: 0, Width: 20, Height: 8},
			},
			wantHeight: 8,
			wantPacked: 8,
		},
		{
			name:  "two rows of 600",
			items: []Item{item("a", 600, 100), item("b", 600, 100)},
			width: 1024,
			want: []PlacedRect{
				{Key: "a", X: 0, Y: 0, Width: 600, Height: 100},
				{Key: "b", X: 0, Y: 100, Width: 600, Height: 100},
			},
			wantHeight: 256,
			wantPacked: 200,
		},
		{
			name:  "exact fit stays on row",
			items: []Item{item("a", 50, 10), item("b", 50, 20), item("c", 1, 1)},
			width: 100,
			want: []PlacedRect{
				{Key: "a", X: 0, Y: 0, Width: 50, Height: 10},
				{Key: "b", X: 50, Y: 0, Width: 50, Height: 20},
				{Key: "c", X: 0, Y: 20, Width: 1, Height: 1},
			},
			wantHeight: 32,
			wantPacked: 21,
		},
		{
			name:  "wide item gets its own row",
			items: []Item{item("a", 10, 10), item("wide", 300, 4), item("b", 10, 10)},
			width: 100,
			want: []PlacedRect{
				{Key: "a", X: 0, Y: 0, Width: 10, Height: 10},
				{Key: "b", X: 0, Y: 14, Width: 10, Height: 10},
				{Key: "wide", X: 0, Y: 10, Width: 300, Height: 4},
			},
			wantHeight: 32,
			wantPacked: 24,
		},
		{
			name:  "wide item first",
			items: []Item{item("wide", 300, 4)},
			width: 100,
			want: []PlacedRect{
				{Key: "wide", X: 0, Y: 0, Width: 300, Height: 4},
			},
			wantHeight: 4,
			wantPacked: 4,
		},
		{
			name:  "duplicates keep first size",
			items: []Item{item("a", 10, 10), item("a", 99, 99), item("b", 5, 5)},
			width: 100,
			want: []PlacedRect{
				{Key: "a", X: 0, Y: 0, Width: 10, Height: 10},
				{Key: "b", X: 10, Y: 0, Width: 5, Height: 5},
			},
			wantHeight: 16,
			wantPacked: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Pack(tt.items, tt.width)
			if err != nil {
				t.Fatalf("Pack() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got.Mapping.Rects()); diff != "" {
				t.Errorf("rects mismatch (-want +got):\n%s", diff)
			}
			if got.Height != tt.wantHeight {
				t.Errorf("Height = %d, want %d", got.Height, tt.wantHeight)
			}
			if got.PackedHeight != tt.wantPacked {
				t.Errorf("PackedHeight = %d, want %d", got.PackedHeight, tt.wantPacked)
			}
			if got.Width != tt.width {
				t.Errorf("Width = %d, want %d", got.Width, tt.width)
			}
		})
	}
}

func TestPackEmpty(t *testing.T) {
	got, err := Pack(nil, 1024)
	if err != nil {
		t.Fatal(err)
	}
	if got.Mapping.Len() != 0 {
		t.Errorf("Len() = %d, want 0", got.Mapping.Len())
	}
	if got.Height != 1 || got.PackedHeight != 0 {
		t.Errorf("Height/PackedHeight = %d/%d, want 1/0", got.Height, got.PackedHeight)
	}
}

func TestPackErrors(t *testing.T) {
	var cfgErr *ConfigError
	if _, err := Pack(nil, 0); !errors.As(err, &cfgErr) || cfgErr.Field != "MaxSurfaceWidth" {
		t.Errorf("zero width: err = %v, want ConfigError on MaxSurfaceWidth", err)
	}

	tests := []struct {
		name string
		it   Item
	}{
		{"empty key", item("", 1, 1)},
		{"zero width", item("a", 0, 1)},
		{"negative height", item("a", 1, -1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Pack([]Item{tt.it}, 100)
			if !errors.Is(err, ErrInvalidItem) {
				t.Errorf("err = %v, want ErrInvalidItem", err)
			}
		})
	}
}

func TestPackDuplicateWithBadSizeIsIgnored(t *testing.T) {
	// Only the first occurrence is validated.
	_, err := Pack([]Item{item("a", 4, 4), item("a", 0, 0)}, 100)
	if err != nil {
		t.Errorf("Pack() error = %v, want nil", err)
	}
}

func randomItems(r *rand.Rand, n int) []Item {
	items := make([]Item, n)
	for i := range items {
		items[i] = item(fmt.Sprintf("k%d", r.Intn(n)), 1+r.Intn(120), 1+r.Intn(80))
	}
	return items
}

func TestPackProperties(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		items := randomItems(r, 1+r.Intn(200))
		width := 128 + r.Intn(1024)

		got, err := Pack(items, width)
		if err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
		rects := got.Mapping.Rects()

		if !IsPowerOfTwo(got.Height) {
			t.Fatalf("round %d: height %d not a power of two", round, got.Height)
		}
		if got.Height < got.PackedHeight {
			t.Fatalf("round %d: height %d < packed %d", round, got.Height, got.PackedHeight)
		}
		if len(rects) != len(UniqueItems(items)) {
			t.Fatalf("round %d: %d rects for %d unique keys", round, len(rects), len(UniqueItems(items)))
		}
		for i, a := range rects {
			if a.X < 0 || a.Y < 0 || a.X+a.Width > width || a.Y+a.Height > got.Height {
				t.Fatalf("round %d: %v out of %dx%d", round, a, width, got.Height)
			}
			for _, b := range rects[i+1:] {
				if a.Bounds().Overlaps(b.Bounds()) {
					t.Fatalf("round %d: %v overlaps %v", round, a, b)
				}
			}
		}

		again, _ := Pack(items, width)
		if diff := cmp.Diff(rects, again.Mapping.Rects()); diff != "" {
			t.Fatalf("round %d: not deterministic:\n%s", round, diff)
		}

		dedup, _ := Pack(UniqueItems(items), width)
		if diff := cmp.Diff(rects, dedup.Mapping.Rects()); diff != "" {
			t.Fatalf("round %d: dedup changed layout:\n%s", round, diff)
		}
	}
}

func TestPackAppendKeepsPlacements(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	items := randomItems(r, 60)
	base, _ := Pack(items, 512)

	extended := append(append([]Item(nil), items...), item("extra-1", 40, 40), item("extra-2", 500, 10))
	got, _ := Pack(extended, 512)

	for _, want := range base.Mapping.Rects() {
		r, ok := got.Mapping.Get(want.Key)
		if !ok {
			t.Fatalf("key %q lost after append", want.Key)
		}
		if diff := cmp.Diff(want, r); diff != "" {
			t.Errorf("key %q moved (-want +got):\n%s", want.Key, diff)
		}
	}
	if got.Mapping.Len() != base.Mapping.Len()+2 {
		t.Errorf("Len() = %d, want %d", got.Mapping.Len(), base.Mapping.Len()+2)
	}
}

func TestPackCarriesMetadata(t *testing.T) {
	it := Item{Key: "a", Width: 3, Height: 3, Mask: true, Meta: "poi"}
	it.Anchor.X, it.Anchor.Y = 1, 2
	got, _ := Pack([]Item{it}, 10)
	r, _ := got.Mapping.Get("a")
	if !r.Mask || r.Meta != "poi" || r.Anchor.X != 1 || r.Anchor.Y != 2 {
		t.Errorf("metadata not carried: %+v", r)
	}
	if r.Loaded() {
		t.Error("fresh rect should not be loaded")
	}
}

func TestNextPowerOfTwo(t *testing.T) {
	tests := []struct{ n, want int }{
		{-5, 1}, {0, 1}, {1, 1}, {2, 2}, {3, 4}, {200, 256}, {256, 256}, {257, 512},
	}
	for _, tt := range tests {
		if got := NextPowerOfTwo(tt.n); got != tt.want {
			t.Errorf("NextPowerOfTwo(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestUniqueItems(t *testing.T) {
	in := []Item{item("a", 1, 1), item("b", 2, 2), item("a", 3, 3)}
	want := []Item{item("a", 1, 1), item("b", 2, 2)}
	if diff := cmp.Diff(want, UniqueItems(in)); diff != "" {
		t.Errorf("UniqueItems mismatch (-want +got):\n%s", diff)
	}
}
