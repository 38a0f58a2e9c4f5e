// Package visibility decides which shared resources a viewer may see.
// Files and notes go through the same rules.
package visibility

import (
	"slices"

	"github.com/markdave123-py/CoachHub/internal/models"
)

// Shareable is implemented by records that carry an owner, a privacy flag
// and role/user share lists.
type Shareable interface {
	Owner() string
	Private() bool
	SharedRoles() []string
	SharedUsers() []string
}

// IsVisible applies the rules in order; the first match wins:
// owner sees everything, private hides from everyone else, then a role
// share or a user share grants access.
func IsVisible(r Shareable, viewer models.Viewer) bool {
	if viewer.Email != "" && r.Owner() == viewer.Email {
		return true
	}
	if r.Private() {
		return false
	}
	if viewer.Role != "" && slices.Contains(r.SharedRoles(), viewer.Role) {
		return true
	}
	if viewer.Email != "" && slices.Contains(r.SharedUsers(), viewer.Email) {
		return true
	}
	return false
}

// Filter returns the visible items, keeping input order.
func Filter[T Shareable](items []T, viewer models.Viewer) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if IsVisible(it, viewer) {
			out = append(out, it)
		}
	}
	return out
}

// CanModify reports whether the viewer may change sharing or delete the
// resource. Only the owner and admins can.
func CanModify(r Shareable, viewer models.Viewer) bool {
	if viewer.Role == models.RoleAdmin {
		return true
	}
	return viewer.Email != "" && r.Owner() == viewer.Email
}
