// Package grid lays memory cells out on a floor of fixed width.
package grid

// DefaultColumns is the floor width used by the CLI table and the desktop view.
const DefaultColumns = 10

// GetGridCoords returns the column and row of cell index on a floor cols wide.
func GetGridCoords(index, cols int) (x, y int) {
	if cols <= 0 {
		cols = DefaultColumns
	}
	return index % cols, index / cols
}

// Rows returns how many rows cells occupy on a floor cols wide.
func Rows(cells, cols int) int {
	if cols <= 0 {
		cols = DefaultColumns
	}
	return (cells + cols - 1) / cols
}
