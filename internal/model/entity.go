// Package model defines the records the service stores and the request shapes
// used to create, address, and update them.
//
// There are three entity kinds, each owned by the one above it:
//
//	Container       root grouping, no parent
//	SubContainer    owned by exactly one Container
//	Leaf            owned by one Container, optionally by one SubContainer in it
//
// Identity is the store-assigned id alone. Two values with the same id are the
// same entity, whatever their other fields say.
package model

import (
	"maps"
	"slices"
	"time"
)

// Container is a top-level grouping.
type Container struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// SubContainer is a grouping inside a Container.
type SubContainer struct {
	ID          int64  `json:"id"`
	ContainerID int64  `json:"container_id"`
	Title       string `json:"title"`
}

// Leaf is a single item. SubContainerID and Due are nil when unset.
type Leaf struct {
	ID             int64      `json:"id"`
	SubContainerID *int64     `json:"sub_container_id"`
	ContainerID    int64      `json:"container_id"`
	Title          string     `json:"title"`
	Complete       bool       `json:"complete"`
	Due            *time.Time `json:"due"`
}

func (c Container) Key() int64    { return c.ID }
func (s SubContainer) Key() int64 { return s.ID }
func (l Leaf) Key() int64         { return l.ID }

// Keyed is implemented by every entity kind.
type Keyed interface {
	Key() int64
}

// Collect de-duplicates rows by id and returns them in ascending id order.
// When the same id appears more than once the later row wins, so rows should
// be passed in the order they were produced.
func Collect[T Keyed](rows []T) []T {
	byID := make(map[int64]T, len(rows))
	for _, row := range rows {
		byID[row.Key()] = row
	}

	out := make([]T, 0, len(byID))
	for _, id := range slices.Sorted(maps.Keys(byID)) {
		out = append(out, byID[id])
	}
	return out
}

// UniqueIDs returns ids sorted ascending with duplicates removed. The result
// is never nil, so it always encodes as a JSON array.
func UniqueIDs(ids []int64) []int64 {
	out := make([]int64, len(ids))
	copy(out, ids)
	slices.Sort(out)
	return slices.Compact(out)
}
