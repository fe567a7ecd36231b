package ir

import (
	"fmt"
	"sort"
)

// ValidationIssue categories. Every relationship endpoint must refer
// to an entity present in the IR, and self-referential edges are only
// legal for CALLS (recursion).
const (
	IssueDanglingSource = "DANGLING_SOURCE_REF"
	IssueDanglingTarget = "DANGLING_TARGET_REF"
	IssueInvalidSelfRef = "INVALID_SELF_REF"
)

// ValidationIssue describes one integrity violation found in an IR.
type ValidationIssue struct {
	Kind     string
	SourceID string
	TargetID string
	RelType  RelType
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s -[%s]-> %s", v.Kind, v.SourceID, v.RelType, v.TargetID)
}

// Validate checks referential integrity of the IR: every relationship
// endpoint resolves to an entity, and no non-CALLS edge points at
// itself. Issues are returned sorted for stable reporting; a nil slice
// means the IR is internally consistent.
func (r *IR) Validate() []ValidationIssue {
	var issues []ValidationIssue
	for _, rel := range r.Relationships {
		if !r.HasEntity(rel.SourceID) {
			issues = append(issues, ValidationIssue{
				Kind:     IssueDanglingSource,
				SourceID: rel.SourceID,
				TargetID: rel.TargetID,
				RelType:  rel.Type,
			})
		}
		if !r.HasEntity(rel.TargetID) {
			issues = append(issues, ValidationIssue{
				Kind:     IssueDanglingTarget,
				SourceID: rel.SourceID,
				TargetID: rel.TargetID,
				RelType:  rel.Type,
			})
		}
		if rel.SourceID == rel.TargetID && rel.Type != RelCalls {
			issues = append(issues, ValidationIssue{
				Kind:     IssueInvalidSelfRef,
				SourceID: rel.SourceID,
				TargetID: rel.TargetID,
				RelType:  rel.Type,
			})
		}
	}
	sort.Slice(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.SourceID != b.SourceID {
			return a.SourceID < b.SourceID
		}
		if a.TargetID != b.TargetID {
			return a.TargetID < b.TargetID
		}
		return a.RelType < b.RelType
	})
	return issues
}
