// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package parallel

// batchesPerWorker is how many contiguous group ranges each worker receives
// on average. More than one lets work stealing even out uneven groups.
const batchesPerWorker = 4

// Dispatch invokes fn once for every group in [0, groups) and returns after
// all invocations have finished. The return is the stage barrier: writes
// made by any group are visible to the caller and to the next dispatch.
//
// A zero or negative group count is a valid empty dispatch. Groups have no
// ordering guarantee relative to each other.
func (p *Pool) Dispatch(groups int, fn func(group int)) {
	if groups <= 0 {
		return
	}
	if groups == 1 || p.workers == 1 || !p.running.Load() {
		for g := range groups {
			fn(g)
		}
		return
	}

	batches := min(groups, p.workers*batchesPerWorker)
	work := make([]func(), batches)
	for b := range batches {
		lo := b * groups / batches
		hi := (b + 1) * groups / batches
		work[b] = func() {
			for g := lo; g < hi; g++ {
				fn(g)
			}
		}
	}
	p.ExecuteAll(work)
}

// Dispatch2D invokes fn for every group of a groupsX by groupsY grid and
// returns after all invocations have finished.
func (p *Pool) Dispatch2D(groupsX, groupsY int, fn func(x, y int)) {
	if groupsX <= 0 || groupsY <= 0 {
		return
	}
	p.Dispatch(groupsX*groupsY, func(g int) {
		fn(g%groupsX, g/groupsX)
	})
}
