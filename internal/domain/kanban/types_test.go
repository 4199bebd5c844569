package kanban

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildBoard_GroupsAndOrders(t *testing.T) {
	orders := []WorkOrder{
		{ID: "a", Status: StatusInRepair, Position: 2},
		{ID: "b", Status: StatusReception, Position: 0},
		{ID: "c", Status: StatusInRepair, Position: 1},
		{ID: "d", Status: Status("archivado"), Position: 0},
	}

	b := BuildBoard("t1", orders)
	require.Len(t, b.Columns, len(Columns()))
	assert.Equal(t, "t1", b.TenantID)

	assert.Equal(t, StatusReception, b.Columns[0].Status)
	assert.Len(t, b.Columns[0].Orders, 1)

	repair := b.Columns[2]
	assert.Equal(t, StatusInRepair, repair.Status)
	require.Len(t, repair.Orders, 2)
	assert.Equal(t, "c", repair.Orders[0].ID)
	assert.Equal(t, "a", repair.Orders[1].ID)

	total := 0
	for _, c := range b.Columns {
		assert.NotNil(t, c.Orders)
		total += len(c.Orders)
	}
	assert.Equal(t, 3, total)
}

func TestStatus_Valid(t *testing.T) {
	for _, s := range Columns() {
		assert.True(t, s.Valid())
		assert.NotEqual(t, string(s), s.Label())
	}
	assert.False(t, Status("cerrado").Valid())
}
