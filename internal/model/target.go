package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Targets select entities either by their own id or through an ancestor.
// On the wire a target is always tagged:
//
//	{"target": "list", "id": 3}   every entity under container 3
//	{"target": "set",  "id": 7}   sub-container 7 (or every leaf under it)
//	{"target": "todo", "id": 9}   leaf 9
//
// Each entity kind has its own closed set of legal tags. Containers have no
// target type: they are always addressed by plain id.

// SubContainerTargetKind is the discriminant of a SubContainerTarget.
type SubContainerTargetKind string

const (
	SubContainerByContainer SubContainerTargetKind = "list"
	SubContainerBySelf      SubContainerTargetKind = "set"
)

// SubContainerTarget addresses sub-containers.
type SubContainerTarget struct {
	Kind SubContainerTargetKind
	ID   int64
}

func SubContainersOf(containerID int64) SubContainerTarget {
	return SubContainerTarget{Kind: SubContainerByContainer, ID: containerID}
}

func SubContainerWithID(id int64) SubContainerTarget {
	return SubContainerTarget{Kind: SubContainerBySelf, ID: id}
}

func (t SubContainerTarget) Valid() bool {
	switch t.Kind {
	case SubContainerByContainer, SubContainerBySelf:
		return true
	}
	return false
}

func (t SubContainerTarget) MarshalJSON() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("unknown sub-container target %q", t.Kind)
	}
	return json.Marshal(wireTarget{Target: string(t.Kind), ID: &t.ID})
}

func (t *SubContainerTarget) UnmarshalJSON(data []byte) error {
	tag, id, err := decodeTarget(data)
	if err != nil {
		return err
	}
	decoded := SubContainerTarget{Kind: SubContainerTargetKind(tag), ID: id}
	if !decoded.Valid() {
		return fmt.Errorf("unknown sub-container target %q", tag)
	}
	*t = decoded
	return nil
}

// LeafTargetKind is the discriminant of a LeafTarget.
type LeafTargetKind string

const (
	LeafByContainer    LeafTargetKind = "list"
	LeafBySubContainer LeafTargetKind = "set"
	LeafBySelf         LeafTargetKind = "todo"
)

// LeafTarget addresses leaves.
type LeafTarget struct {
	Kind LeafTargetKind
	ID   int64
}

func LeavesOfContainer(containerID int64) LeafTarget {
	return LeafTarget{Kind: LeafByContainer, ID: containerID}
}

func LeavesOfSubContainer(subContainerID int64) LeafTarget {
	return LeafTarget{Kind: LeafBySubContainer, ID: subContainerID}
}

func LeafWithID(id int64) LeafTarget {
	return LeafTarget{Kind: LeafBySelf, ID: id}
}

func (t LeafTarget) Valid() bool {
	switch t.Kind {
	case LeafByContainer, LeafBySubContainer, LeafBySelf:
		return true
	}
	return false
}

func (t LeafTarget) MarshalJSON() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("unknown leaf target %q", t.Kind)
	}
	return json.Marshal(wireTarget{Target: string(t.Kind), ID: &t.ID})
}

func (t *LeafTarget) UnmarshalJSON(data []byte) error {
	tag, id, err := decodeTarget(data)
	if err != nil {
		return err
	}
	decoded := LeafTarget{Kind: LeafTargetKind(tag), ID: id}
	if !decoded.Valid() {
		return fmt.Errorf("unknown leaf target %q", tag)
	}
	*t = decoded
	return nil
}

type wireTarget struct {
	Target string `json:"target"`
	ID     *int64 `json:"id"`
}

// decodeTarget reads the tagged wire form. Both fields are required and no
// others are allowed, so a bare number or positional array never decodes.
func decodeTarget(data []byte) (string, int64, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var w wireTarget
	if err := dec.Decode(&w); err != nil {
		return "", 0, fmt.Errorf("decoding target: %w", err)
	}
	if w.Target == "" {
		return "", 0, errors.New("target: missing \"target\" tag")
	}
	if w.ID == nil {
		return "", 0, errors.New("target: missing \"id\"")
	}
	return w.Target, *w.ID, nil
}
