package grid

import "testing"

func TestGetGridCoords(t *testing.T) {
	tests := []struct {
		index int
		cols  int
		wantX int
		wantY int
	}{
		// Default floor
		{0, 10, 0, 0},
		{9, 10, 9, 0},
		{10, 10, 0, 1},
		{25, 10, 5, 2},
		{99, 10, 9, 9},

		// Narrow floor
		{0, 4, 0, 0},
		{3, 4, 3, 0},
		{4, 4, 0, 1},
		{23, 4, 3, 5},

		// Zero width falls back to the default
		{25, 0, 5, 2},
	}

	for _, tc := range tests {
		gotX, gotY := GetGridCoords(tc.index, tc.cols)
		if gotX != tc.wantX || gotY != tc.wantY {
			t.Errorf("GetGridCoords(%d, %d) = (%d, %d); want (%d, %d)", tc.index, tc.cols, gotX, gotY, tc.wantX, tc.wantY)
		}
	}
}

func TestRows(t *testing.T) {
	tests := []struct{ cells, cols, want int }{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{100, 10, 10},
		{25, 0, 3},
	}
	for _, tc := range tests {
		if got := Rows(tc.cells, tc.cols); got != tc.want {
			t.Errorf("Rows(%d, %d) = %d; want %d", tc.cells, tc.cols, got, tc.want)
		}
	}
}
