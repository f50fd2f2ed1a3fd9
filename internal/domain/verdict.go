package domain

// Readiness holds the live submittable/mergeable flags of one member.
type Readiness struct {
	Submittable bool
	Mergeable   bool
}

// GroupVerdict is the AND over every member's readiness. PerMember is always
// complete, even when the reduction could have stopped early.
type GroupVerdict struct {
	Submittable bool
	Mergeable   bool
	PerMember   map[ChangeRef]Readiness
}

func (v *GroupVerdict) Ready() bool {
	return v.Submittable && v.Mergeable
}

// Unmergeable lists the members whose content does not apply cleanly.
func (v *GroupVerdict) Unmergeable(group []*Change) []ChangeRef {
	var refs []ChangeRef
	for _, c := range group {
		if r, ok := v.PerMember[c.Ref()]; ok && !r.Mergeable {
			refs = append(refs, c.Ref())
		}
	}
	return refs
}

// Unsubmittable lists the members still missing required approvals.
func (v *GroupVerdict) Unsubmittable(group []*Change) []ChangeRef {
	var refs []ChangeRef
	for _, c := range group {
		if r, ok := v.PerMember[c.Ref()]; ok && !r.Submittable {
			refs = append(refs, c.Ref())
		}
	}
	return refs
}
