// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package search

import (
	"io"
	"runtime"

	"github.com/pbnjay/memory"
)

// Context is the single-threaded host orchestration state: it drives
// allocation and worker sizing for a search.
type Context struct {
	Log        io.Writer
	MemoryMB   int
	MaxThreads int

	// RowBatchSize is the number of start-pixel rows evaluated per
	// dispatched goroutine. Sized off available memory so a search over
	// a very wide image doesn't overcommit RAM buffering per-row
	// Trajectory slices.
	RowBatchSize int
}

// NewContext builds a Context sized to the host's CPU count and memory.
func NewContext(log io.Writer) *Context {
	memoryMB := int(memory.TotalMemory() / 1024 / 1024)
	c := &Context{
		Log:        log,
		MemoryMB:   memoryMB,
		MaxThreads: runtime.GOMAXPROCS(0),
	}
	// One row per 64 MB of total host memory, at least 1 row per batch.
	c.RowBatchSize = 1
	if memoryMB > 0 {
		if rows := memoryMB / 64; rows > c.RowBatchSize {
			c.RowBatchSize = rows
		}
	}
	return c
}
