package storage

import (
	"context"
	"testing"

	pkgerrors "github.com/absmach/cohort/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	id  string
	val int
}

func TestTable(t *testing.T) {
	ctx := context.Background()
	tbl := newTable(func(r row) string { return r.id }, nil)

	cases := []struct {
		desc string
		op   func() error
		err  error
	}{
		{desc: "insert empty key", op: func() error { return tbl.insert(ctx, row{val: 1}) }, err: pkgerrors.ErrEmptyKey},
		{desc: "insert b", op: func() error { return tbl.insert(ctx, row{id: "b", val: 2}) }},
		{desc: "insert a", op: func() error { return tbl.insert(ctx, row{id: "a", val: 1}) }},
		{desc: "insert duplicate", op: func() error { return tbl.insert(ctx, row{id: "a", val: 3}) }, err: pkgerrors.ErrEntityExists},
		{desc: "update missing", op: func() error { return tbl.put(ctx, row{id: "z"}, true) }, err: pkgerrors.ErrNotFound},
		{desc: "upsert", op: func() error { return tbl.put(ctx, row{id: "c", val: 3}, false) }},
		{desc: "remove missing", op: func() error { return tbl.remove(ctx, "z") }, err: pkgerrors.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			err := tc.op()
			if tc.err == nil {
				assert.NoError(t, err)

				return
			}
			assert.ErrorIs(t, err, tc.err)
		})
	}

	rows, total := tbl.list(ctx, nil, 0, 2)
	assert.Equal(t, uint64(3), total)
	assert.Equal(t, []row{{"a", 1}, {"b", 2}}, rows, "listing is in key order")

	rows, total = tbl.list(ctx, func(r row) bool { return r.val > 1 }, 1, 10)
	assert.Equal(t, uint64(2), total)
	assert.Equal(t, []row{{"c", 3}}, rows)

	rows, _ = tbl.list(ctx, nil, 5, 2)
	assert.Empty(t, rows)

	got, err := tbl.get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 2, got.val)
}
