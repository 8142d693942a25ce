package model

import "time"

// NewContainer is one entry of a create-containers request.
type NewContainer struct {
	Title string `json:"title"`
}

// NewSubContainer is one entry of a create-sub-containers request.
type NewSubContainer struct {
	ContainerID int64  `json:"container_id"`
	Title       string `json:"title"`
}

// NewLeaf is one entry of a create-leaves request. Complete defaults to false.
type NewLeaf struct {
	ContainerID    int64      `json:"container_id"`
	SubContainerID *int64     `json:"sub_container_id,omitempty"`
	Title          string     `json:"title"`
	Complete       *bool      `json:"complete,omitempty"`
	Due            *time.Time `json:"due,omitempty"`
}

// ContainerUpdate changes the container with the given id.
type ContainerUpdate struct {
	ID    int64            `json:"id"`
	Title Optional[string] `json:"title,omitzero"`
}

// SubContainerUpdate changes every sub-container matched by Target.
type SubContainerUpdate struct {
	Target      SubContainerTarget `json:"target"`
	ContainerID Optional[int64]    `json:"container_id,omitzero"`
	Title       Optional[string]   `json:"title,omitzero"`
}

// LeafUpdate changes every leaf matched by Target. SubContainerID and Due may
// be cleared with null.
type LeafUpdate struct {
	Target         LeafTarget          `json:"target"`
	ContainerID    Optional[int64]     `json:"container_id,omitzero"`
	SubContainerID Nullable[int64]     `json:"sub_container_id,omitzero"`
	Title          Optional[string]    `json:"title,omitzero"`
	Complete       Optional[bool]      `json:"complete,omitzero"`
	Due            Nullable[time.Time] `json:"due,omitzero"`
}
