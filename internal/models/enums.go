package models

// Match types produced by the session analysis.
var MatchTypes = []string{
	"topic_match",
	"symptom_match",
	"goal_match",
	"protocol_match",
	"nutrition_match",
	"lifestyle_match",
	"supplement_match",
	"behavior_match",
	"emotional_match",
	"education_match",
	"resource_match",
	"general_match",
}

const DefaultMatchType = "general_match"

// NormalizeMatchType maps unknown tags to DefaultMatchType.
func NormalizeMatchType(t string) string {
	for _, known := range MatchTypes {
		if t == known {
			return t
		}
	}
	return DefaultMatchType
}

var ActionTypes = []string{
	"task",
	"follow_up",
	"resource_share",
	"protocol_update",
	"supplement_change",
	"nutrition_change",
	"lifestyle_change",
	"referral",
	"schedule_session",
	"journey_update",
}

func IsActionType(t string) bool {
	for _, known := range ActionTypes {
		if t == known {
			return true
		}
	}
	return false
}

const (
	PriorityHigh   = "High"
	PriorityMedium = "Medium"
	PriorityLow    = "Low"
)

func IsPriority(p string) bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

// Score returns the relevance score clamped to 0..10.
func (r AppliedReference) Score() float64 {
	switch {
	case r.RelevanceScore < 0:
		return 0
	case r.RelevanceScore > 10:
		return 10
	}
	return r.RelevanceScore
}
