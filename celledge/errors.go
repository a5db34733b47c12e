package celledge

import (
	"fmt"

	"github.com/notargets/polymesh/mesh"
)

// MalformedCellError reports a cell whose faces do not close up: a
// cell-edge is not shared by exactly two face-edges, or the faces meet with
// contradictory orientations
type MalformedCellError struct {
	Cell   int       // cell index, -1 for a standalone build
	Edge   mesh.Edge // offending edge as point labels
	Count  int       // number of face-edges found on Edge
	Reason string
}

func (e *MalformedCellError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("malformed cell %d: %s", e.Cell, e.Reason)
	}
	return fmt.Sprintf("malformed cell %d: edge %v is used by %d face-edges, expected 2",
		e.Cell, e.Edge, e.Count)
}

// DisconnectedCellError reports a cell whose faces are not all reachable
// from its first face through shared edges
type DisconnectedCellError struct {
	Cell     int
	NFaces   int
	NReached int
}

func (e *DisconnectedCellError) Error() string {
	return fmt.Sprintf("disconnected cell %d: only %d of %d faces are edge connected to the first face",
		e.Cell, e.NReached, e.NFaces)
}

// IndexOutOfRangeError reports a request for a cell that does not exist
type IndexOutOfRangeError struct {
	Index int
	Size  int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("cell index %d out of range [0, %d)", e.Index, e.Size)
}
