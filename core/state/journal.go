package state

import "sort"

// journal is an undo stack. Every mutation pushes a closure restoring the
// value it replaced; reverting to a snapshot runs the closures recorded
// after it, newest first. Snapshot ids are monotonically increasing, so a
// revert invalidates the target id and every later one.
type journal struct {
	undos     []func()
	revisions []revision
	nextID    int
}

// revision pins the undo-stack height at the moment a snapshot was taken.
type revision struct {
	id     int
	height int
}

func (j *journal) record(undo func()) {
	j.undos = append(j.undos, undo)
}

func (j *journal) snapshot() int {
	id := j.nextID
	j.nextID++
	j.revisions = append(j.revisions, revision{id: id, height: len(j.undos)})
	return id
}

func (j *journal) revert(id int) {
	// Revisions are ordered by id; find the requested one.
	i := sort.Search(len(j.revisions), func(k int) bool {
		return j.revisions[k].id >= id
	})
	if i == len(j.revisions) || j.revisions[i].id != id {
		return
	}
	height := j.revisions[i].height
	for k := len(j.undos) - 1; k >= height; k-- {
		j.undos[k]()
	}
	j.undos = j.undos[:height]
	j.revisions = j.revisions[:i]
}
