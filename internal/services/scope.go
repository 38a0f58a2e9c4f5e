package services

import (
	"context"
	"fmt"

	"github.com/markdave123-py/CoachHub/internal/core"
	"github.com/markdave123-py/CoachHub/internal/models"
)

// clientScope returns the client id the viewer's data is limited to, or
// "" for staff viewing everything. A staff member acting as a client is
// scoped to that client.
func clientScope(ctx context.Context, clients core.Collection[models.Client], viewer models.Viewer) (string, error) {
	if viewer.ActingAsID != "" && viewer.CanActAs() {
		return viewer.ActingAsID, nil
	}
	if viewer.Role != models.RoleClient {
		return "", nil
	}
	if viewer.Email == "" {
		return "", forbidden("no client profile for this account")
	}
	found, err := clients.Filter(ctx, map[string]any{"email": viewer.Email}, "created_date", 1)
	if err != nil {
		return "", fmt.Errorf("resolve client for %s: %w", viewer.Email, err)
	}
	if len(found) == 0 {
		return "", forbidden("no client profile for this account")
	}
	return found[0].ID, nil
}

// inScope reports whether a record belonging to clientID is visible under scope.
func inScope(scope, clientID string) bool {
	return scope == "" || scope == clientID
}

// requireStaff rejects client accounts.
func requireStaff(viewer models.Viewer) error {
	if !viewer.CanActAs() {
		return forbidden("this action requires a coach, practitioner or admin")
	}
	return nil
}
