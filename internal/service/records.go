// Package service holds the business layer between the HTTP handlers and the
// record store.
//
//	Handler     parses requests, writes responses
//	Service     validates, enforces rules, dispatches
//	Repository  reads and writes the database
//
// RecordService takes a repository.Store interface rather than a concrete
// database, so tests inject an in-memory stub and main.go picks SQLite or
// Postgres without this package knowing which.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/rs/xid"

	"github.com/sakif/recordkeeper/internal/apperror"
	"github.com/sakif/recordkeeper/internal/model"
	"github.com/sakif/recordkeeper/internal/repository"
)

const MaxTitleLength = 255

// RecordService validates record batches and hands them to the store.
type RecordService struct {
	store  repository.Store
	logger *slog.Logger
}

func NewRecordService(store repository.Store, logger *slog.Logger) *RecordService {
	return &RecordService{
		store:  store,
		logger: logger,
	}
}

// Ping reports whether the store is reachable.
func (s *RecordService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// =========================================================================
// VALIDATION
// =========================================================================

// cleanTitle trims the title and checks it is non-empty and short enough.
// index is the record's position in the batch, used in the message.
func cleanTitle(index int, title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", apperror.ValidationFailed("title",
			fmt.Sprintf("record %d: title is required", index))
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", apperror.ValidationFailed("title",
			fmt.Sprintf("record %d: title must be %d characters or less", index, MaxTitleLength))
	}
	return title, nil
}

// cleanOptionalTitle applies cleanTitle to a supplied title and leaves an
// absent one absent.
func cleanOptionalTitle(index int, title model.Optional[string]) (model.Optional[string], error) {
	v, ok := title.Get()
	if !ok {
		return title, nil
	}
	cleaned, err := cleanTitle(index, v)
	if err != nil {
		return title, err
	}
	return model.Some(cleaned), nil
}

func checkID(field string, index int, id int64) error {
	if id <= 0 {
		return apperror.ValidationFailed(field,
			fmt.Sprintf("record %d: %s must be a positive integer", index, field))
	}
	return nil
}

func checkIDs(ids []int64) error {
	for i, id := range ids {
		if err := checkID("id", i, id); err != nil {
			return err
		}
	}
	return nil
}

func checkOptionalID(field string, index int, id model.Optional[int64]) error {
	if v, ok := id.Get(); ok {
		return checkID(field, index, v)
	}
	return nil
}

// logged runs a mutating store call and logs its outcome under a fresh batch
// id so every line about one request can be found together.
func logged[T any](ctx context.Context, s *RecordService, action string, records int, run func(context.Context) ([]T, error)) ([]T, error) {
	batch := xid.New().String()
	out, err := run(ctx)
	if err != nil {
		s.logger.Error("batch failed",
			slog.String("action", action),
			slog.String("batch", batch),
			slog.Int("records", records),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	s.logger.Info("batch applied",
		slog.String("action", action),
		slog.String("batch", batch),
		slog.Int("records", records),
		slog.Int("affected", len(out)),
	)
	return out, nil
}

// =========================================================================
// CONTAINERS
// =========================================================================

func (s *RecordService) CreateContainers(ctx context.Context, records []model.NewContainer) ([]model.Container, error) {
	cleaned := make([]model.NewContainer, len(records))
	for i, r := range records {
		title, err := cleanTitle(i, r.Title)
		if err != nil {
			return nil, err
		}
		cleaned[i] = model.NewContainer{Title: title}
	}
	return logged(ctx, s, "create containers", len(cleaned), func(ctx context.Context) ([]model.Container, error) {
		return s.store.InsertContainers(ctx, cleaned)
	})
}

func (s *RecordService) AllContainers(ctx context.Context) ([]model.Container, error) {
	return s.store.AllContainers(ctx)
}

func (s *RecordService) QueryContainers(ctx context.Context, ids []int64) ([]model.Container, error) {
	if err := checkIDs(ids); err != nil {
		return nil, err
	}
	return s.store.QueryContainers(ctx, ids)
}

func (s *RecordService) UpdateContainers(ctx context.Context, updates []model.ContainerUpdate) ([]model.Container, error) {
	cleaned := make([]model.ContainerUpdate, len(updates))
	for i, u := range updates {
		if err := checkID("id", i, u.ID); err != nil {
			return nil, err
		}
		title, err := cleanOptionalTitle(i, u.Title)
		if err != nil {
			return nil, err
		}
		u.Title = title
		cleaned[i] = u
	}
	return logged(ctx, s, "update containers", len(cleaned), func(ctx context.Context) ([]model.Container, error) {
		return s.store.UpdateContainers(ctx, cleaned)
	})
}

func (s *RecordService) DeleteContainers(ctx context.Context, ids []int64) ([]int64, error) {
	if err := checkIDs(ids); err != nil {
		return nil, err
	}
	return logged(ctx, s, "delete containers", len(ids), func(ctx context.Context) ([]int64, error) {
		return s.store.DeleteContainers(ctx, ids)
	})
}

// =========================================================================
// SUB-CONTAINERS
// =========================================================================

func (s *RecordService) CreateSubContainers(ctx context.Context, records []model.NewSubContainer) ([]model.SubContainer, error) {
	cleaned := make([]model.NewSubContainer, len(records))
	for i, r := range records {
		if err := checkID("container_id", i, r.ContainerID); err != nil {
			return nil, err
		}
		title, err := cleanTitle(i, r.Title)
		if err != nil {
			return nil, err
		}
		cleaned[i] = model.NewSubContainer{ContainerID: r.ContainerID, Title: title}
	}
	return logged(ctx, s, "create sub-containers", len(cleaned), func(ctx context.Context) ([]model.SubContainer, error) {
		return s.store.InsertSubContainers(ctx, cleaned)
	})
}

func (s *RecordService) AllSubContainers(ctx context.Context) ([]model.SubContainer, error) {
	return s.store.AllSubContainers(ctx)
}

func (s *RecordService) QuerySubContainers(ctx context.Context, targets []model.SubContainerTarget) ([]model.SubContainer, error) {
	return s.store.QuerySubContainers(ctx, targets)
}

func (s *RecordService) UpdateSubContainers(ctx context.Context, updates []model.SubContainerUpdate) ([]model.SubContainer, error) {
	cleaned := make([]model.SubContainerUpdate, len(updates))
	for i, u := range updates {
		if err := checkOptionalID("container_id", i, u.ContainerID); err != nil {
			return nil, err
		}
		title, err := cleanOptionalTitle(i, u.Title)
		if err != nil {
			return nil, err
		}
		u.Title = title
		cleaned[i] = u
	}
	return logged(ctx, s, "update sub-containers", len(cleaned), func(ctx context.Context) ([]model.SubContainer, error) {
		return s.store.UpdateSubContainers(ctx, cleaned)
	})
}

func (s *RecordService) DeleteSubContainers(ctx context.Context, targets []model.SubContainerTarget) ([]int64, error) {
	return logged(ctx, s, "delete sub-containers", len(targets), func(ctx context.Context) ([]int64, error) {
		return s.store.DeleteSubContainers(ctx, targets)
	})
}

// =========================================================================
// LEAVES
// =========================================================================

func (s *RecordService) CreateLeaves(ctx context.Context, records []model.NewLeaf) ([]model.Leaf, error) {
	cleaned := make([]model.NewLeaf, len(records))
	for i, r := range records {
		if err := checkID("container_id", i, r.ContainerID); err != nil {
			return nil, err
		}
		if r.SubContainerID != nil {
			if err := checkID("sub_container_id", i, *r.SubContainerID); err != nil {
				return nil, err
			}
		}
		title, err := cleanTitle(i, r.Title)
		if err != nil {
			return nil, err
		}
		r.Title = title
		cleaned[i] = r
	}
	return logged(ctx, s, "create leaves", len(cleaned), func(ctx context.Context) ([]model.Leaf, error) {
		return s.store.InsertLeaves(ctx, cleaned)
	})
}

func (s *RecordService) AllLeaves(ctx context.Context) ([]model.Leaf, error) {
	return s.store.AllLeaves(ctx)
}

func (s *RecordService) QueryLeaves(ctx context.Context, targets []model.LeafTarget) ([]model.Leaf, error) {
	return s.store.QueryLeaves(ctx, targets)
}

func (s *RecordService) UpdateLeaves(ctx context.Context, updates []model.LeafUpdate) ([]model.Leaf, error) {
	cleaned := make([]model.LeafUpdate, len(updates))
	for i, u := range updates {
		if err := checkOptionalID("container_id", i, u.ContainerID); err != nil {
			return nil, err
		}
		if id := u.SubContainerID.Ptr(); id != nil {
			if err := checkID("sub_container_id", i, *id); err != nil {
				return nil, err
			}
		}
		title, err := cleanOptionalTitle(i, u.Title)
		if err != nil {
			return nil, err
		}
		u.Title = title
		cleaned[i] = u
	}
	return logged(ctx, s, "update leaves", len(cleaned), func(ctx context.Context) ([]model.Leaf, error) {
		return s.store.UpdateLeaves(ctx, cleaned)
	})
}

func (s *RecordService) DeleteLeaves(ctx context.Context, targets []model.LeafTarget) ([]int64, error) {
	return logged(ctx, s, "delete leaves", len(targets), func(ctx context.Context) ([]int64, error) {
		return s.store.DeleteLeaves(ctx, targets)
	})
}
