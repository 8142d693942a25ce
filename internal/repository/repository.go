package repository

import (
	"context"

	"github.com/sakif/recordkeeper/internal/model"
)

// Every mutating method runs its whole batch in one transaction: either all
// records apply or none do. Results are deduplicated by id and sorted
// ascending. An empty batch fails with apperror.ErrInvalidArgument.

type ContainerRepository interface {
	InsertContainers(ctx context.Context, records []model.NewContainer) ([]model.Container, error)
	AllContainers(ctx context.Context) ([]model.Container, error)
	QueryContainers(ctx context.Context, ids []int64) ([]model.Container, error)
	UpdateContainers(ctx context.Context, updates []model.ContainerUpdate) ([]model.Container, error)
	DeleteContainers(ctx context.Context, ids []int64) ([]int64, error)
}

type SubContainerRepository interface {
	InsertSubContainers(ctx context.Context, records []model.NewSubContainer) ([]model.SubContainer, error)
	AllSubContainers(ctx context.Context) ([]model.SubContainer, error)
	QuerySubContainers(ctx context.Context, targets []model.SubContainerTarget) ([]model.SubContainer, error)
	UpdateSubContainers(ctx context.Context, updates []model.SubContainerUpdate) ([]model.SubContainer, error)
	DeleteSubContainers(ctx context.Context, targets []model.SubContainerTarget) ([]int64, error)
}

type LeafRepository interface {
	InsertLeaves(ctx context.Context, records []model.NewLeaf) ([]model.Leaf, error)
	AllLeaves(ctx context.Context) ([]model.Leaf, error)
	QueryLeaves(ctx context.Context, targets []model.LeafTarget) ([]model.Leaf, error)
	UpdateLeaves(ctx context.Context, updates []model.LeafUpdate) ([]model.Leaf, error)
	DeleteLeaves(ctx context.Context, targets []model.LeafTarget) ([]int64, error)
}

// Store is the full record store.
type Store interface {
	ContainerRepository
	SubContainerRepository
	LeafRepository
	Ping(ctx context.Context) error
}
