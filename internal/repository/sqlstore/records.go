package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sakif/recordkeeper/internal/apperror"
	"github.com/sakif/recordkeeper/internal/model"
	"github.com/sakif/recordkeeper/internal/query"
	"github.com/sakif/recordkeeper/internal/repository"
)

var _ repository.Store = (*DB)(nil)

func scanContainer(s rowScanner) (model.Container, error) {
	var c model.Container
	err := s.Scan(&c.ID, &c.Title)
	return c, err
}

func scanSubContainer(s rowScanner) (model.SubContainer, error) {
	var sc model.SubContainer
	err := s.Scan(&sc.ID, &sc.ContainerID, &sc.Title)
	return sc, err
}

func scanLeaf(s rowScanner) (model.Leaf, error) {
	var (
		l     model.Leaf
		subID sql.NullInt64
		due   nullTime
	)
	if err := s.Scan(&l.ID, &subID, &l.ContainerID, &l.Title, &l.Complete, &due); err != nil {
		return l, err
	}
	if subID.Valid {
		id := subID.Int64
		l.SubContainerID = &id
	}
	l.Due = due.Time
	return l, nil
}

func scanID(s rowScanner) (int64, error) {
	var id int64
	err := s.Scan(&id)
	return id, err
}

// insertEach inserts one row per record inside tx and returns the rows the
// statements handed back.
func insertEach[R, T any](ctx context.Context, db *DB, tx *sql.Tx, table string, cols []string, returning []string, records []R, values func(R) []any, scan func(rowScanner) (T, error)) ([]T, error) {
	out := make([]T, 0, len(records))
	for i, rec := range records {
		stmt, args := query.Insert(table, cols, values(rec), returning)
		row := tx.QueryRowContext(ctx, query.Rebind(db.dialect, stmt), db.bindArgs(args)...)
		v, err := scan(row)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// applyUpdates runs each resolved update in input order inside tx. A record
// that assigns nothing selects the rows it matches instead, so the caller
// still sees them in the result.
func applyUpdates[T any](ctx context.Context, db *DB, tx *sql.Tx, updates []query.Update, cols []string, scan func(rowScanner) (T, error)) ([]T, error) {
	var out []T
	for i, u := range updates {
		var stmt string
		var args []any
		if u.NoOp() {
			stmt, args = query.Select(u.Table, cols, u.Where)
		} else {
			stmt, args = u.Statement(cols)
		}
		rows, err := queryRows(ctx, db, tx, stmt, args, scan)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, rows...)
	}
	return out, nil
}

// deleteWhere removes the matching rows and returns their ids.
func (db *DB) deleteWhere(ctx context.Context, table string, where query.Predicate) ([]int64, error) {
	var ids []int64
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		stmt, args := query.Delete(table, where, []string{query.ColID})
		var err error
		ids, err = queryRows(ctx, db, tx, stmt, args, scanID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return model.UniqueIDs(ids), nil
}

// =========================================================================
// CONTAINERS
// =========================================================================

func (db *DB) InsertContainers(ctx context.Context, records []model.NewContainer) ([]model.Container, error) {
	if len(records) == 0 {
		return nil, apperror.InvalidArgument("no containers to insert")
	}

	var inserted []model.Container
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		inserted, err = insertEach(ctx, db, tx, query.TableContainers,
			[]string{query.ColTitle}, query.ContainerColumns, records,
			func(r model.NewContainer) []any { return []any{r.Title} },
			scanContainer)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("sqlstore: inserting containers: %w", err)
	}
	return model.Collect(inserted), nil
}

func (db *DB) AllContainers(ctx context.Context) ([]model.Container, error) {
	stmt, args := query.Select(query.TableContainers, query.ContainerColumns, query.Predicate{})
	rows, err := queryRows(ctx, db, db.conn, stmt, args, scanContainer)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing containers: %w", err)
	}
	return model.Collect(rows), nil
}

func (db *DB) QueryContainers(ctx context.Context, ids []int64) ([]model.Container, error) {
	where, err := query.ContainerSelector(ids)
	if err != nil {
		return nil, err
	}
	stmt, args := query.Select(query.TableContainers, query.ContainerColumns, where)
	rows, err := queryRows(ctx, db, db.conn, stmt, args, scanContainer)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: querying containers: %w", err)
	}
	return model.Collect(rows), nil
}

func (db *DB) UpdateContainers(ctx context.Context, updates []model.ContainerUpdate) ([]model.Container, error) {
	if len(updates) == 0 {
		return nil, apperror.InvalidArgument("no container updates supplied")
	}
	resolved := make([]query.Update, 0, len(updates))
	for _, u := range updates {
		r, err := query.ResolveContainerUpdate(u)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, r)
	}

	var updated []model.Container
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		updated, err = applyUpdates(ctx, db, tx, resolved, query.ContainerColumns, scanContainer)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("sqlstore: updating containers: %w", err)
	}
	return model.Collect(updated), nil
}

func (db *DB) DeleteContainers(ctx context.Context, ids []int64) ([]int64, error) {
	where, err := query.ContainerSelector(ids)
	if err != nil {
		return nil, err
	}
	deleted, err := db.deleteWhere(ctx, query.TableContainers, where)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: deleting containers: %w", err)
	}
	return deleted, nil
}

// =========================================================================
// SUB-CONTAINERS
// =========================================================================

func (db *DB) InsertSubContainers(ctx context.Context, records []model.NewSubContainer) ([]model.SubContainer, error) {
	if len(records) == 0 {
		return nil, apperror.InvalidArgument("no sub-containers to insert")
	}

	var inserted []model.SubContainer
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		inserted, err = insertEach(ctx, db, tx, query.TableSubContainers,
			[]string{query.ColContainerID, query.ColTitle}, query.SubContainerColumns, records,
			func(r model.NewSubContainer) []any { return []any{r.ContainerID, r.Title} },
			scanSubContainer)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("sqlstore: inserting sub-containers: %w", err)
	}
	return model.Collect(inserted), nil
}

func (db *DB) AllSubContainers(ctx context.Context) ([]model.SubContainer, error) {
	stmt, args := query.Select(query.TableSubContainers, query.SubContainerColumns, query.Predicate{})
	rows, err := queryRows(ctx, db, db.conn, stmt, args, scanSubContainer)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing sub-containers: %w", err)
	}
	return model.Collect(rows), nil
}

func (db *DB) QuerySubContainers(ctx context.Context, targets []model.SubContainerTarget) ([]model.SubContainer, error) {
	where, err := query.SubContainerSelector(targets)
	if err != nil {
		return nil, err
	}
	stmt, args := query.Select(query.TableSubContainers, query.SubContainerColumns, where)
	rows, err := queryRows(ctx, db, db.conn, stmt, args, scanSubContainer)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: querying sub-containers: %w", err)
	}
	return model.Collect(rows), nil
}

func (db *DB) UpdateSubContainers(ctx context.Context, updates []model.SubContainerUpdate) ([]model.SubContainer, error) {
	if len(updates) == 0 {
		return nil, apperror.InvalidArgument("no sub-container updates supplied")
	}
	resolved := make([]query.Update, 0, len(updates))
	for _, u := range updates {
		r, err := query.ResolveSubContainerUpdate(u)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, r)
	}

	var updated []model.SubContainer
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		updated, err = applyUpdates(ctx, db, tx, resolved, query.SubContainerColumns, scanSubContainer)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("sqlstore: updating sub-containers: %w", err)
	}
	return model.Collect(updated), nil
}

func (db *DB) DeleteSubContainers(ctx context.Context, targets []model.SubContainerTarget) ([]int64, error) {
	where, err := query.SubContainerSelector(targets)
	if err != nil {
		return nil, err
	}
	deleted, err := db.deleteWhere(ctx, query.TableSubContainers, where)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: deleting sub-containers: %w", err)
	}
	return deleted, nil
}

// =========================================================================
// LEAVES
// =========================================================================

var leafInsertColumns = []string{
	query.ColSubContainerID, query.ColContainerID, query.ColTitle, query.ColComplete, query.ColDue,
}

func newLeafValues(r model.NewLeaf) []any {
	var subID any
	if r.SubContainerID != nil {
		subID = *r.SubContainerID
	}
	complete := false
	if r.Complete != nil {
		complete = *r.Complete
	}
	var due any
	if r.Due != nil {
		due = r.Due.UTC()
	}
	return []any{subID, r.ContainerID, r.Title, complete, due}
}

func (db *DB) InsertLeaves(ctx context.Context, records []model.NewLeaf) ([]model.Leaf, error) {
	if len(records) == 0 {
		return nil, apperror.InvalidArgument("no leaves to insert")
	}

	var inserted []model.Leaf
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		inserted, err = insertEach(ctx, db, tx, query.TableLeaves,
			leafInsertColumns, query.LeafColumns, records,
			newLeafValues, scanLeaf)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("sqlstore: inserting leaves: %w", err)
	}
	return model.Collect(inserted), nil
}

func (db *DB) AllLeaves(ctx context.Context) ([]model.Leaf, error) {
	stmt, args := query.Select(query.TableLeaves, query.LeafColumns, query.Predicate{})
	rows, err := queryRows(ctx, db, db.conn, stmt, args, scanLeaf)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing leaves: %w", err)
	}
	return model.Collect(rows), nil
}

func (db *DB) QueryLeaves(ctx context.Context, targets []model.LeafTarget) ([]model.Leaf, error) {
	where, err := query.LeafSelector(targets)
	if err != nil {
		return nil, err
	}
	stmt, args := query.Select(query.TableLeaves, query.LeafColumns, where)
	rows, err := queryRows(ctx, db, db.conn, stmt, args, scanLeaf)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: querying leaves: %w", err)
	}
	return model.Collect(rows), nil
}

func (db *DB) UpdateLeaves(ctx context.Context, updates []model.LeafUpdate) ([]model.Leaf, error) {
	if len(updates) == 0 {
		return nil, apperror.InvalidArgument("no leaf updates supplied")
	}
	resolved := make([]query.Update, 0, len(updates))
	for _, u := range updates {
		r, err := query.ResolveLeafUpdate(u)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, r)
	}

	var updated []model.Leaf
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		updated, err = applyUpdates(ctx, db, tx, resolved, query.LeafColumns, scanLeaf)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("sqlstore: updating leaves: %w", err)
	}
	return model.Collect(updated), nil
}

func (db *DB) DeleteLeaves(ctx context.Context, targets []model.LeafTarget) ([]int64, error) {
	where, err := query.LeafSelector(targets)
	if err != nil {
		return nil, err
	}
	deleted, err := db.deleteWhere(ctx, query.TableLeaves, where)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: deleting leaves: %w", err)
	}
	return deleted, nil
}
