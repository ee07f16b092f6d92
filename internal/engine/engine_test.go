package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResultAccess(t *testing.T) {
	r := NewResult([]string{"id", "status"}, [][]any{
		{int64(1), "active"},
		{int64(2), "closed"},
	})

	assert.Equal(t, 2, r.RowCount())
	assert.Equal(t, "active", r.Value(0, "status"))
	assert.Equal(t, int64(2), r.Value(1, "id"))

	assert.Nil(t, r.Value(5, "id"))
	assert.Nil(t, r.Value(0, "missing"))
	assert.Nil(t, r.Value(-1, "id"))

	assert.Equal(t, map[string]any{"id": int64(1), "status": "active"}, r.Record(0))
	assert.Nil(t, r.Record(9))
}

func TestEmptyResult(t *testing.T) {
	r := NewResult([]string{"id"}, nil)
	assert.Equal(t, 0, r.RowCount())
	assert.Nil(t, r.Value(0, "id"))
}
