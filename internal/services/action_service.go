package services

import (
	"context"

	"github.com/markdave123-py/CoachHub/internal/core"
	"github.com/markdave123-py/CoachHub/internal/models"
)

type ActionInput struct {
	SessionID        string `json:"session_id,omitempty"`
	ClientID         string `json:"client_id,omitempty"`
	Title            string `json:"title"`
	Description      string `json:"description,omitempty"`
	ActionType       string `json:"actionType"`
	Priority         string `json:"priority,omitempty"`
	RequiresApproval bool   `json:"requiresApproval"`
	DueDate          string `json:"dueDate,omitempty"`
}

// ActionService runs the recommended action lifecycle:
// recommended -> applied | dismissed, with an optional approval step
// before apply.
type ActionService struct {
	actions  core.Collection[models.Action]
	sessions core.Collection[models.Session]
	clients  core.Collection[models.Client]
}

func NewActionService(entities *core.Entities) *ActionService {
	return &ActionService{
		actions:  entities.Actions,
		sessions: entities.Sessions,
		clients:  entities.Clients,
	}
}

// List returns actions newest first, optionally for one session.
func (s *ActionService) List(ctx context.Context, viewer models.Viewer, sessionID string) ([]models.Action, error) {
	scope, err := clientScope(ctx, s.clients, viewer)
	if err != nil {
		return nil, err
	}
	query := map[string]any{}
	if sessionID != "" {
		query["session_id"] = sessionID
	}
	if scope != "" {
		query["client_id"] = scope
	}
	return s.actions.Filter(ctx, query, "-created_date", 0)
}

func (s *ActionService) Create(ctx context.Context, viewer models.Viewer, in ActionInput) (models.Action, error) {
	if err := requireStaff(viewer); err != nil {
		return models.Action{}, err
	}
	if in.Title == "" {
		return models.Action{}, validation("title is required")
	}
	if !models.IsActionType(in.ActionType) {
		return models.Action{}, validation("unknown actionType " + in.ActionType)
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	if !models.IsPriority(in.Priority) {
		return models.Action{}, validation("priority must be High, Medium or Low")
	}
	if in.SessionID != "" {
		session, err := s.sessions.Get(ctx, in.SessionID)
		if err != nil {
			return models.Action{}, lookupErr("session", err)
		}
		if in.ClientID == "" {
			in.ClientID = session.ClientID
		} else if in.ClientID != session.ClientID {
			return models.Action{}, validation("client_id does not match the session")
		}
	}

	return s.actions.Create(ctx, viewer.Email, models.Action{
		SessionID:        in.SessionID,
		ClientID:         in.ClientID,
		Title:            in.Title,
		Description:      in.Description,
		ActionType:       in.ActionType,
		Priority:         in.Priority,
		RequiresApproval: in.RequiresApproval,
		DueDate:          in.DueDate,
	})
}

// open loads an action that is neither applied nor dismissed.
func (s *ActionService) open(ctx context.Context, viewer models.Viewer, id string) (models.Action, error) {
	scope, err := clientScope(ctx, s.clients, viewer)
	if err != nil {
		return models.Action{}, err
	}
	a, err := s.actions.Get(ctx, id)
	if err != nil {
		return models.Action{}, lookupErr("action", err)
	}
	if !inScope(scope, a.ClientID) {
		return models.Action{}, notFound("action")
	}
	if a.IsApplied || a.IsDismissed {
		return models.Action{}, invalidState("action is already closed")
	}
	return a, nil
}

func (s *ActionService) update(ctx context.Context, id string, patch map[string]any) (models.Action, error) {
	a, err := s.actions.Update(ctx, id, patch)
	if err != nil {
		return models.Action{}, lookupErr("action", err)
	}
	return a, nil
}

// Apply carries out the action. Actions that need approval must be
// approved first; rejected actions can only be dismissed.
func (s *ActionService) Apply(ctx context.Context, viewer models.Viewer, id string) (models.Action, error) {
	if err := requireStaff(viewer); err != nil {
		return models.Action{}, err
	}
	a, err := s.open(ctx, viewer, id)
	if err != nil {
		return models.Action{}, err
	}
	if a.ApprovalStatus == models.ApprovalRejected {
		return models.Action{}, invalidState("rejected actions can only be dismissed")
	}
	if a.RequiresApproval && a.ApprovalStatus != models.ApprovalApproved {
		return models.Action{}, invalidState("action needs approval before it can be applied")
	}
	return s.update(ctx, id, map[string]any{"isApplied": true})
}

func (s *ActionService) Dismiss(ctx context.Context, viewer models.Viewer, id string) (models.Action, error) {
	if _, err := s.open(ctx, viewer, id); err != nil {
		return models.Action{}, err
	}
	return s.update(ctx, id, map[string]any{"isDismissed": true})
}

// RequestApproval puts the action in the approval queue.
func (s *ActionService) RequestApproval(ctx context.Context, viewer models.Viewer, id string) (models.Action, error) {
	if err := requireStaff(viewer); err != nil {
		return models.Action{}, err
	}
	a, err := s.open(ctx, viewer, id)
	if err != nil {
		return models.Action{}, err
	}
	switch a.ApprovalStatus {
	case models.ApprovalPending:
		return models.Action{}, invalidState("approval already requested")
	case models.ApprovalApproved:
		return models.Action{}, invalidState("action is already approved")
	case models.ApprovalRejected:
		return models.Action{}, invalidState("rejected actions can only be dismissed")
	}
	return s.update(ctx, id, map[string]any{
		"requiresApproval":    true,
		"approvalStatus":      models.ApprovalPending,
		"approvalRequestedBy": viewer.Email,
	})
}

func (s *ActionService) Approve(ctx context.Context, viewer models.Viewer, id string) (models.Action, error) {
	return s.decide(ctx, viewer, id, models.ApprovalApproved)
}

func (s *ActionService) Reject(ctx context.Context, viewer models.Viewer, id string) (models.Action, error) {
	return s.decide(ctx, viewer, id, models.ApprovalRejected)
}

// decide settles a pending approval. Coaches and admins only.
func (s *ActionService) decide(ctx context.Context, viewer models.Viewer, id, outcome string) (models.Action, error) {
	if viewer.Role != models.RoleCoach && viewer.Role != models.RoleAdmin {
		return models.Action{}, forbidden("only coaches and admins can approve actions")
	}
	a, err := s.open(ctx, viewer, id)
	if err != nil {
		return models.Action{}, err
	}
	if a.ApprovalStatus != models.ApprovalPending {
		return models.Action{}, invalidState("action has no pending approval")
	}
	return s.update(ctx, id, map[string]any{
		"approvalStatus": outcome,
		"approvedBy":     viewer.Email,
	})
}
