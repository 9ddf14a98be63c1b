package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/kyberias/HRMC/pkg/compiler"
	"github.com/kyberias/HRMC/pkg/grid"
)

// floorTable renders memory as a grid cols wide. Cells that hold a named
// variable are shown as name=value.
func floorTable(mem []int, cols int, syms *compiler.SymbolTable) string {
	if cols <= 0 {
		cols = grid.DefaultColumns
	}
	names := make(map[int]string)
	if syms != nil {
		for _, sym := range syms.Symbols() {
			if sym.Size <= 1 {
				names[sym.Address] = sym.Name
			}
		}
	}

	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("Floor (%d cells)", len(mem)))
	header := table.Row{""}
	for c := 0; c < cols; c++ {
		header = append(header, c)
	}
	t.AppendHeader(header)

	rows := make([]table.Row, grid.Rows(len(mem), cols))
	for y := range rows {
		rows[y] = make(table.Row, cols+1)
		rows[y][0] = y * cols
	}
	for i, v := range mem {
		x, y := grid.GetGridCoords(i, cols)
		if name, ok := names[i]; ok {
			rows[y][x+1] = fmt.Sprintf("%s=%d", name, v)
		} else {
			rows[y][x+1] = v
		}
	}
	t.AppendRows(rows)
	return t.Render()
}

func symbolTable(syms *compiler.SymbolTable) string {
	t := table.NewWriter()
	t.SetTitle("Symbols")
	t.AppendHeader(table.Row{"Name", "Kind", "Address", "Size"})
	for _, sym := range syms.Symbols() {
		t.AppendRow(table.Row{sym.Name, sym.Kind, sym.Address, sym.Size})
	}
	return t.Render()
}
