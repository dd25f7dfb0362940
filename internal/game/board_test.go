// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fiverow Contributors

package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoard_WinAt(t *testing.T) {
	tests := []struct {
		name  string
		moves [][2]int // all placed for side A
		check [2]int
		want  bool
	}{
		{
			name:  "horizontal five",
			moves: [][2]int{{7, 3}, {7, 4}, {7, 5}, {7, 6}, {7, 7}},
			check: [2]int{7, 7},
			want:  true,
		},
		{
			name:  "horizontal five checked from the middle",
			moves: [][2]int{{7, 3}, {7, 4}, {7, 5}, {7, 6}, {7, 7}},
			check: [2]int{7, 5},
			want:  true,
		},
		{
			name:  "vertical five",
			moves: [][2]int{{2, 9}, {3, 9}, {4, 9}, {5, 9}, {6, 9}},
			check: [2]int{6, 9},
			want:  true,
		},
		{
			name:  "diagonal down-right",
			moves: [][2]int{{0, 0}, {1, 1}, {2, 2}, {3, 3}, {4, 4}},
			check: [2]int{0, 0},
			want:  true,
		},
		{
			name:  "diagonal down-left",
			moves: [][2]int{{4, 10}, {5, 9}, {6, 8}, {7, 7}, {8, 6}},
			check: [2]int{6, 8},
			want:  true,
		},
		{
			name:  "four is not enough",
			moves: [][2]int{{7, 3}, {7, 4}, {7, 5}, {7, 6}},
			check: [2]int{7, 6},
			want:  false,
		},
		{
			name:  "gap breaks the run",
			moves: [][2]int{{7, 3}, {7, 4}, {7, 6}, {7, 7}, {7, 8}},
			check: [2]int{7, 6},
			want:  false,
		},
		{
			name:  "run against the edge",
			moves: [][2]int{{14, 10}, {14, 11}, {14, 12}, {14, 13}, {14, 14}},
			check: [2]int{14, 14},
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b Board
			for _, mv := range tt.moves {
				b.Place(mv[0], mv[1], SideA)
			}
			assert.Equal(t, tt.want, b.WinAt(tt.check[0], tt.check[1]))
		})
	}
}

func TestBoard_WinAtMixedSides(t *testing.T) {
	// A run interrupted by the opponent never wins.
	var b Board
	b.Place(7, 3, SideA)
	b.Place(7, 4, SideA)
	b.Place(7, 5, SideB)
	b.Place(7, 6, SideA)
	b.Place(7, 7, SideA)
	b.Place(7, 8, SideA)

	assert.False(t, b.WinAt(7, 4))
	assert.False(t, b.WinAt(7, 7))
}

func TestBoard_InBounds(t *testing.T) {
	var b Board
	assert.True(t, b.InBounds(0, 0))
	assert.True(t, b.InBounds(14, 14))
	assert.False(t, b.InBounds(-1, 0))
	assert.False(t, b.InBounds(0, 15))
	assert.False(t, b.InBounds(15, 0))
}

func TestBoard_Full(t *testing.T) {
	var b Board
	require.False(t, b.Full())

	side := SideA
	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			b.Place(row, col, side)
			side = side.Other()
		}
	}
	assert.True(t, b.Full())
}

func TestSide_Other(t *testing.T) {
	assert.Equal(t, SideB, SideA.Other())
	assert.Equal(t, SideA, SideB.Other())
}
