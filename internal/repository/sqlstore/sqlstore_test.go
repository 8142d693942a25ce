package sqlstore

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/recordkeeper/internal/apperror"
	"github.com/sakif/recordkeeper/internal/model"
)

// newTestDB opens a fresh in-memory database that is closed when the test ends.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(DriverSQLite, ":memory:", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedContainers(t *testing.T, db *DB, titles ...string) []model.Container {
	t.Helper()
	records := make([]model.NewContainer, len(titles))
	for i, title := range titles {
		records[i] = model.NewContainer{Title: title}
	}
	out, err := db.InsertContainers(context.Background(), records)
	require.NoError(t, err)
	return out
}

func seedSubContainer(t *testing.T, db *DB, containerID int64, title string) model.SubContainer {
	t.Helper()
	out, err := db.InsertSubContainers(context.Background(), []model.NewSubContainer{{ContainerID: containerID, Title: title}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	return out[0]
}

func ptr[T any](v T) *T { return &v }

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("mysql", "whatever", nil)
	assert.ErrorContains(t, err, `unsupported driver "mysql"`)
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, db.Ping(context.Background()))
}

// =========================================================================
// CONTAINERS
// =========================================================================

func TestContainers_InsertAllQuery(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	inserted := seedContainers(t, db, "groceries", "chores")
	require.Len(t, inserted, 2)
	assert.Equal(t, "groceries", inserted[0].Title)
	assert.Less(t, inserted[0].ID, inserted[1].ID)

	all, err := db.AllContainers(ctx)
	require.NoError(t, err)
	assert.Equal(t, inserted, all)

	got, err := db.QueryContainers(ctx, []int64{inserted[1].ID, inserted[1].ID, 999})
	require.NoError(t, err)
	assert.Equal(t, []model.Container{inserted[1]}, got)
}

func TestContainers_EmptyTablesReturnEmptySlices(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	containers, err := db.AllContainers(ctx)
	require.NoError(t, err)
	assert.NotNil(t, containers)
	assert.Empty(t, containers)

	leaves, err := db.AllLeaves(ctx)
	require.NoError(t, err)
	assert.NotNil(t, leaves)
}

func TestContainers_EmptyOperandsAreInvalid(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := db.InsertContainers(ctx, nil)
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)

	_, err = db.QueryContainers(ctx, []int64{})
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)

	_, err = db.UpdateContainers(ctx, nil)
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)

	_, err = db.DeleteContainers(ctx, nil)
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)

	_, err = db.DeleteLeaves(ctx, nil)
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
}

func TestContainers_Update(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	c := seedContainers(t, db, "old")[0]

	got, err := db.UpdateContainers(ctx, []model.ContainerUpdate{
		{ID: c.ID, Title: model.Some("first")},
		{ID: c.ID, Title: model.Some("second")},
	})
	require.NoError(t, err)
	assert.Equal(t, []model.Container{{ID: c.ID, Title: "second"}}, got)

	// A record with no fields still reports the entity it matched.
	got, err = db.UpdateContainers(ctx, []model.ContainerUpdate{{ID: c.ID}})
	require.NoError(t, err)
	assert.Equal(t, []model.Container{{ID: c.ID, Title: "second"}}, got)

	got, err = db.UpdateContainers(ctx, []model.ContainerUpdate{{ID: 999, Title: model.Some("ghost")}})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestContainers_DeleteIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seeded := seedContainers(t, db, "a", "b")

	deleted, err := db.DeleteContainers(ctx, []int64{seeded[0].ID, seeded[0].ID})
	require.NoError(t, err)
	assert.Equal(t, []int64{seeded[0].ID}, deleted)

	deleted, err = db.DeleteContainers(ctx, []int64{seeded[0].ID})
	require.NoError(t, err)
	assert.Equal(t, []int64{}, deleted)

	all, err := db.AllContainers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Container{seeded[1]}, all)
}

// =========================================================================
// SUB-CONTAINERS
// =========================================================================

func TestSubContainers_BatchIsAllOrNothing(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	c := seedContainers(t, db, "home")[0]

	_, err := db.InsertSubContainers(ctx, []model.NewSubContainer{
		{ContainerID: c.ID, Title: "kitchen"},
		{ContainerID: 999, Title: "nowhere"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlstore: inserting sub-containers")

	all, err := db.AllSubContainers(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "the valid record must be rolled back with the failing one")
}

func TestSubContainers_QueryByTargets(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	cs := seedContainers(t, db, "a", "b")
	s1 := seedSubContainer(t, db, cs[0].ID, "a1")
	s2 := seedSubContainer(t, db, cs[0].ID, "a2")
	s3 := seedSubContainer(t, db, cs[1].ID, "b1")

	got, err := db.QuerySubContainers(ctx, []model.SubContainerTarget{
		model.SubContainerWithID(s3.ID),
		model.SubContainersOf(cs[0].ID),
		model.SubContainerWithID(s1.ID),
	})
	require.NoError(t, err)
	assert.Equal(t, []model.SubContainer{s1, s2, s3}, got)
}

func TestSubContainers_MoveCarriesLeaves(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	cs := seedContainers(t, db, "from", "to")
	sub := seedSubContainer(t, db, cs[0].ID, "box")

	_, err := db.InsertLeaves(ctx, []model.NewLeaf{{ContainerID: cs[0].ID, SubContainerID: &sub.ID, Title: "item"}})
	require.NoError(t, err)

	moved, err := db.UpdateSubContainers(ctx, []model.SubContainerUpdate{{
		Target:      model.SubContainerWithID(sub.ID),
		ContainerID: model.Some(cs[1].ID),
	}})
	require.NoError(t, err)
	require.Len(t, moved, 1)
	assert.Equal(t, cs[1].ID, moved[0].ContainerID)

	leaves, err := db.QueryLeaves(ctx, []model.LeafTarget{model.LeavesOfSubContainer(sub.ID)})
	require.NoError(t, err)
	require.Len(t, leaves, 1)
	assert.Equal(t, cs[1].ID, leaves[0].ContainerID)
}

func TestSubContainers_DeleteCascadesToLeaves(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	c := seedContainers(t, db, "c")[0]
	sub := seedSubContainer(t, db, c.ID, "s")

	_, err := db.InsertLeaves(ctx, []model.NewLeaf{
		{ContainerID: c.ID, SubContainerID: &sub.ID, Title: "inside"},
		{ContainerID: c.ID, Title: "loose"},
	})
	require.NoError(t, err)

	deleted, err := db.DeleteSubContainers(ctx, []model.SubContainerTarget{model.SubContainersOf(c.ID)})
	require.NoError(t, err)
	assert.Equal(t, []int64{sub.ID}, deleted)

	leaves, err := db.AllLeaves(ctx)
	require.NoError(t, err)
	require.Len(t, leaves, 1)
	assert.Equal(t, "loose", leaves[0].Title)
}

// =========================================================================
// LEAVES
// =========================================================================

func TestLeaves_InsertDefaultsAndRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	c := seedContainers(t, db, "c")[0]
	sub := seedSubContainer(t, db, c.ID, "s")
	due := time.Date(2025, 6, 1, 9, 30, 0, 0, time.FixedZone("EST", -5*3600))

	inserted, err := db.InsertLeaves(ctx, []model.NewLeaf{
		{ContainerID: c.ID, Title: "plain"},
		{ContainerID: c.ID, SubContainerID: &sub.ID, Title: "full", Complete: ptr(true), Due: &due},
	})
	require.NoError(t, err)
	require.Len(t, inserted, 2)

	plain := inserted[0]
	assert.False(t, plain.Complete)
	assert.Nil(t, plain.SubContainerID)
	assert.Nil(t, plain.Due)

	full := inserted[1]
	assert.True(t, full.Complete)
	require.NotNil(t, full.SubContainerID)
	assert.Equal(t, sub.ID, *full.SubContainerID)
	require.NotNil(t, full.Due)
	assert.True(t, due.Equal(*full.Due))

	all, err := db.AllLeaves(ctx)
	require.NoError(t, err)
	assert.Equal(t, inserted, all)
}

func TestLeaves_SubContainerMustShareContainer(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	cs := seedContainers(t, db, "a", "b")
	sub := seedSubContainer(t, db, cs[0].ID, "a1")

	_, err := db.InsertLeaves(ctx, []model.NewLeaf{{ContainerID: cs[1].ID, SubContainerID: &sub.ID, Title: "misplaced"}})
	assert.Error(t, err)
}

func TestLeaves_UpdateAbsentNullAndValue(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	c := seedContainers(t, db, "c")[0]
	sub := seedSubContainer(t, db, c.ID, "s")
	due := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	inserted, err := db.InsertLeaves(ctx, []model.NewLeaf{{ContainerID: c.ID, SubContainerID: &sub.ID, Title: "task", Due: &due}})
	require.NoError(t, err)
	leaf := inserted[0]

	// Title changes, the nullable columns are left alone.
	got, err := db.UpdateLeaves(ctx, []model.LeafUpdate{{Target: model.LeafWithID(leaf.ID), Title: model.Some("renamed")}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "renamed", got[0].Title)
	require.NotNil(t, got[0].SubContainerID)
	require.NotNil(t, got[0].Due)

	// Explicit null clears them.
	got, err = db.UpdateLeaves(ctx, []model.LeafUpdate{{
		Target:         model.LeafWithID(leaf.ID),
		SubContainerID: model.Null[int64](),
		Due:            model.Null[time.Time](),
	}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].SubContainerID)
	assert.Nil(t, got[0].Due)
	assert.Equal(t, "renamed", got[0].Title)
}

func TestLeaves_UpdateByContainerTarget(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	cs := seedContainers(t, db, "a", "b")

	_, err := db.InsertLeaves(ctx, []model.NewLeaf{
		{ContainerID: cs[0].ID, Title: "a-1"},
		{ContainerID: cs[0].ID, Title: "a-2"},
		{ContainerID: cs[1].ID, Title: "b-1"},
	})
	require.NoError(t, err)

	got, err := db.UpdateLeaves(ctx, []model.LeafUpdate{{
		Target:   model.LeavesOfContainer(cs[0].ID),
		Complete: model.Some(true),
	}})
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, l := range got {
		assert.True(t, l.Complete)
		assert.Equal(t, cs[0].ID, l.ContainerID)
	}

	untouched, err := db.QueryLeaves(ctx, []model.LeafTarget{model.LeavesOfContainer(cs[1].ID)})
	require.NoError(t, err)
	require.Len(t, untouched, 1)
	assert.False(t, untouched[0].Complete)
}

func TestLeaves_FailedUpdateRollsBackBatch(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	c := seedContainers(t, db, "c")[0]

	inserted, err := db.InsertLeaves(ctx, []model.NewLeaf{{ContainerID: c.ID, Title: "keep"}})
	require.NoError(t, err)
	leaf := inserted[0]

	_, err = db.UpdateLeaves(ctx, []model.LeafUpdate{
		{Target: model.LeafWithID(leaf.ID), Title: model.Some("changed")},
		{Target: model.LeafWithID(leaf.ID), ContainerID: model.Some[int64](999)},
	})
	require.Error(t, err)

	got, err := db.QueryLeaves(ctx, []model.LeafTarget{model.LeafWithID(leaf.ID)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "keep", got[0].Title)
}

func TestLeaves_DeleteByMixedTargets(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	cs := seedContainers(t, db, "a", "b")
	sub := seedSubContainer(t, db, cs[1].ID, "b1")

	inserted, err := db.InsertLeaves(ctx, []model.NewLeaf{
		{ContainerID: cs[0].ID, Title: "a-1"},
		{ContainerID: cs[1].ID, SubContainerID: &sub.ID, Title: "b-sub"},
		{ContainerID: cs[1].ID, Title: "b-loose"},
	})
	require.NoError(t, err)

	deleted, err := db.DeleteLeaves(ctx, []model.LeafTarget{
		model.LeavesOfSubContainer(sub.ID),
		model.LeafWithID(inserted[0].ID),
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{inserted[0].ID, inserted[1].ID}, deleted)

	remaining, err := db.AllLeaves(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Leaf{inserted[2]}, remaining)
}

func TestContainers_DeleteCascades(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	c := seedContainers(t, db, "c")[0]
	sub := seedSubContainer(t, db, c.ID, "s")
	_, err := db.InsertLeaves(ctx, []model.NewLeaf{{ContainerID: c.ID, SubContainerID: &sub.ID, Title: "x"}})
	require.NoError(t, err)

	_, err = db.DeleteContainers(ctx, []int64{c.ID})
	require.NoError(t, err)

	subs, err := db.AllSubContainers(ctx)
	require.NoError(t, err)
	assert.Empty(t, subs)

	leaves, err := db.AllLeaves(ctx)
	require.NoError(t, err)
	assert.Empty(t, leaves)
}

func TestNullTime_Scan(t *testing.T) {
	want := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		src  any
	}{
		{"time value", want.In(time.FixedZone("X", 7200))},
		{"stored layout", want.Format(sqliteTimeLayout)},
		{"rfc3339 bytes", []byte(want.Format(time.RFC3339))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n nullTime
			require.NoError(t, n.Scan(tt.src))
			require.NotNil(t, n.Time)
			assert.Equal(t, want, *n.Time)
		})
	}

	var n nullTime
	require.NoError(t, n.Scan(nil))
	assert.Nil(t, n.Time)
	assert.Error(t, n.Scan(42))
	assert.Error(t, n.Scan("not a time"))
}
