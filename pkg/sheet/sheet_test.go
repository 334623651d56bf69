package sheet

import (
	"image"
	"reflect"
	"testing"

	"github.com/matzehuels/spritestack/pkg/sprite"
)

func TestBuildSequenceLength(t *testing.T) {
	for columns := 1; columns <= 6; columns++ {
		for rows := 1; rows <= 6; rows++ {
			frames := BuildSequence(columns, rows)
			if want := rows * (2*columns - 1); len(frames) != want {
				t.Fatalf("BuildSequence(%d, %d) len = %d, want %d", columns, rows, len(frames), want)
			}
			for _, f := range frames {
				if f.X > 0 || f.X <= -columns || f.Y > 0 || f.Y <= -rows {
					t.Fatalf("BuildSequence(%d, %d) frame %+v out of range", columns, rows, f)
				}
			}
		}
	}
}

func TestBuildSequence(t *testing.T) {
	tests := []struct {
		name          string
		columns, rows int
		want          []sprite.Frame
	}{
		{"1x1", 1, 1, []sprite.Frame{{X: 0, Y: 0}}},
		{"2x1", 2, 1, []sprite.Frame{{X: 0, Y: 0}, {X: -1, Y: 0}, {X: 0, Y: 0}}},
		{"2x2", 2, 2, []sprite.Frame{
			{X: 0, Y: 0}, {X: -1, Y: 0}, {X: 0, Y: 0},
			{X: 0, Y: -1}, {X: -1, Y: -1}, {X: 0, Y: -1},
		}},
		{"3x1", 3, 1, []sprite.Frame{
			{X: 0, Y: 0}, {X: -1, Y: 0}, {X: -2, Y: 0}, {X: -1, Y: 0}, {X: 0, Y: 0},
		}},
		{"zero columns", 0, 3, nil},
		{"zero rows", 3, 0, nil},
		{"negative", -1, -1, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildSequence(tt.columns, tt.rows)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("BuildSequence(%d, %d) = %v, want %v", tt.columns, tt.rows, got, tt.want)
			}
		})
	}
}

func TestBuildSequenceRowsNotChained(t *testing.T) {
	frames := BuildSequence(3, 2)
	// Row 0 ends at column 0; row 1 starts at column 0 again.
	if frames[4] != (sprite.Frame{X: 0, Y: 0}) || frames[5] != (sprite.Frame{X: 0, Y: -1}) {
		t.Errorf("row boundary = %v, %v", frames[4], frames[5])
	}
}

func TestDeriveGrid(t *testing.T) {
	tests := []struct {
		w, h, cell int
		want       Grid
	}{
		{80, 40, 20, Grid{Columns: 4, Rows: 2}},
		{50, 30, 20, Grid{Columns: 2, Rows: 1}},
		{10, 10, 20, Grid{Columns: 0, Rows: 0}},
		{80, 40, 0, Grid{}},
		{80, 40, -5, Grid{}},
	}
	for _, tt := range tests {
		if got := DeriveGrid(tt.w, tt.h, tt.cell); got != tt.want {
			t.Errorf("DeriveGrid(%d, %d, %d) = %+v, want %+v", tt.w, tt.h, tt.cell, got, tt.want)
		}
	}
}

func TestGridLen(t *testing.T) {
	if (Grid{Columns: 2, Rows: 2}).Len() != 6 {
		t.Error("2x2 Len should be 6")
	}
	if !(Grid{Columns: 0, Rows: 2}).Empty() || (Grid{Columns: 0, Rows: 2}).Len() != 0 {
		t.Error("0x2 should be empty")
	}
}

func TestGeometryDerivesOnce(t *testing.T) {
	g := NewGeometry(20)
	if _, ok := g.Grid(); ok {
		t.Fatal("new geometry should be unset")
	}

	if !g.Observe(image.Pt(80, 40)) {
		t.Fatal("first Observe should derive")
	}
	if g.Observe(image.Pt(200, 200)) {
		t.Error("second Observe should be ignored")
	}
	grid, ok := g.Grid()
	if !ok || grid != (Grid{Columns: 4, Rows: 2}) {
		t.Errorf("Grid() = %+v, %v", grid, ok)
	}

	g.Reset(40)
	if _, ok := g.Grid(); ok {
		t.Error("Reset should clear the grid")
	}
	if g.CellSize() != 40 {
		t.Errorf("CellSize() = %d, want 40", g.CellSize())
	}
	g.Observe(image.Pt(200, 200))
	if grid, _ := g.Grid(); grid != (Grid{Columns: 5, Rows: 5}) {
		t.Errorf("Grid() after reset = %+v", grid)
	}
}

func TestSequencerMemoizes(t *testing.T) {
	var s Sequencer
	a := s.Frames(Grid{Columns: 3, Rows: 2})
	b := s.Frames(Grid{Columns: 3, Rows: 2})
	if &a[0] != &b[0] {
		t.Error("same grid should return the memoized slice")
	}
	c := s.Frames(Grid{Columns: 2, Rows: 1})
	if len(c) != 3 {
		t.Errorf("len = %d, want 3", len(c))
	}
	if len(s.Frames(Grid{})) != 0 {
		t.Error("empty grid should give empty sequence")
	}
}
