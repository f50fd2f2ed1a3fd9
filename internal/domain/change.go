package domain

import (
	"fmt"
	"strings"
)

type ChangeStatus string

const (
	ChangeStatusNew       ChangeStatus = "NEW"
	ChangeStatusMerged    ChangeStatus = "MERGED"
	ChangeStatusAbandoned ChangeStatus = "ABANDONED"
)

// ChangeRef identifies a change: numbers are monotonic per project.
type ChangeRef struct {
	Project string
	Number  int
}

func (r ChangeRef) String() string {
	return fmt.Sprintf("%s~%d", r.Project, r.Number)
}

// Change is a snapshot of a review record. It is never cached across events.
type Change struct {
	Number          int
	ChangeID        string // Change-Id footer, I...
	Project         string
	Branch          string
	Topic           string // grouping key, empty when the change is not atomic
	Subject         string
	Status          ChangeStatus
	Mergeable       bool
	Submittable     bool
	CurrentRevision string
}

func (c *Change) Ref() ChangeRef {
	return ChangeRef{Project: c.Project, Number: c.Number}
}

// IsAtomic reports whether the change belongs to an atomic group.
func (c *Change) IsAtomic() bool {
	return strings.TrimSpace(c.Topic) != ""
}

func (c *Change) IsMerged() bool {
	return c.Status == ChangeStatusMerged
}
