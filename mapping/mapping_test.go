package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentityAndReverse(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2}, Identity(3))
	assert.Empty(t, Identity(0))

	// new 0 <- old 2, new 1 <- added, new 2 <- old 0; old 1 removed
	m := []int{2, -1, 0}
	assert.Equal(t, []int{2, -1, 0}, Reverse(m, 3))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		m       []int
		nOld    int
		wantErr bool
	}{
		{"identity", []int{0, 1, 2}, 3, false},
		{"added", []int{-1, 0}, 1, false},
		{"too large", []int{0, 3}, 3, true},
		{"too small", []int{-2}, 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate("cell map", tt.m, tt.nOld)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTopoChangeMapValidate(t *testing.T) {
	m := &TopoChangeMap{
		CellMap:   []int{1, 0},
		FaceMap:   Identity(11),
		PointMap:  Identity(12),
		FlipFaces: []int{3},
	}
	assert.NoError(t, m.Validate(2, 11, 12))

	m.FlipFaces = []int{11}
	assert.Error(t, m.Validate(2, 11, 12))
}

func TestDistributionMap(t *testing.T) {
	m := &DistributionMap{
		CellMap:  []int{0, 2, 1, 3},
		FaceMap:  Identity(5),
		PointMap: Identity(6),
		CellProc: []int{0, 1, 0, 1},
	}
	assert.NoError(t, m.Validate(4, 5, 6))
	assert.Equal(t, 2, m.NProcs())

	m.CellProc = []int{0}
	assert.Error(t, m.Validate(4, 5, 6))
}

func TestMeshMapValidate(t *testing.T) {
	m := &MeshMap{CellMap: []int{0, 0, -1, 1}, NSourceCells: 2}
	assert.NoError(t, m.Validate())

	m.NSourceCells = 1
	assert.Error(t, m.Validate())
}

func TestValidateNilMaps(t *testing.T) {
	var tc *TopoChangeMap
	assert.ErrorIs(t, tc.Validate(1, 1, 1), ErrNilMap)
	var dm *DistributionMap
	assert.ErrorIs(t, dm.Validate(1, 1, 1), ErrNilMap)
	var mm *MeshMap
	assert.ErrorIs(t, mm.Validate(), ErrNilMap)
}
