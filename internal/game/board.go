// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fiverow Contributors

// Package game contains the match engine, matchmaker, and registry.
package game

// Board dimensions and the winning run length.
const (
	BoardSize = 15
	WinLength = 5
)

// Side identifies a match participant. Side A is always the connection that
// waited longest in the matchmaking queue and always moves first.
type Side string

const (
	SideA Side = "A"
	SideB Side = "B"
)

// Other returns the opposing side.
func (s Side) Other() Side {
	if s == SideA {
		return SideB
	}
	return SideA
}

// Cell is one board position.
type Cell uint8

const (
	CellEmpty Cell = iota
	CellA
	CellB
)

func (s Side) cell() Cell {
	if s == SideA {
		return CellA
	}
	return CellB
}

// Board is a fixed-size five-in-a-row grid.
type Board struct {
	cells  [BoardSize][BoardSize]Cell
	filled int
}

// InBounds reports whether (row, col) lies on the board.
func (b *Board) InBounds(row, col int) bool {
	return row >= 0 && row < BoardSize && col >= 0 && col < BoardSize
}

// At returns the cell at (row, col). Caller guarantees bounds.
func (b *Board) At(row, col int) Cell {
	return b.cells[row][col]
}

// Place marks (row, col) for side. Caller guarantees bounds and emptiness.
func (b *Board) Place(row, col int, side Side) {
	b.cells[row][col] = side.cell()
	b.filled++
}

// Full reports whether every cell is occupied.
func (b *Board) Full() bool {
	return b.filled == BoardSize*BoardSize
}

// winDirections are the four axes a winning run can lie on: horizontal,
// vertical, and both diagonals.
var winDirections = [4][2]int{{0, 1}, {1, 0}, {1, 1}, {1, -1}}

// WinAt reports whether the cell at (row, col) completes a run of WinLength.
// Only lines through the given cell are scanned, bounded by the board edge,
// so the check is O(WinLength) per axis regardless of board population.
func (b *Board) WinAt(row, col int) bool {
	v := b.cells[row][col]
	if v == CellEmpty {
		return false
	}

	for _, dir := range winDirections {
		count := 1
		for _, sign := range [2]int{1, -1} {
			for step := 1; step < WinLength; step++ {
				r := row + dir[0]*step*sign
				c := col + dir[1]*step*sign
				if !b.InBounds(r, c) || b.cells[r][c] != v {
					break
				}
				count++
			}
		}
		if count >= WinLength {
			return true
		}
	}
	return false
}
