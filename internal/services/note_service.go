package services

import (
	"context"

	"github.com/markdave123-py/CoachHub/internal/core"
	"github.com/markdave123-py/CoachHub/internal/models"
	"github.com/markdave123-py/CoachHub/internal/visibility"
)

type NoteInput struct {
	Title           string   `json:"title"`
	Content         string   `json:"content"`
	IsPrivate       bool     `json:"isPrivate"`
	SharedWithRoles []string `json:"sharedWithRoles"`
	SharedWithUsers []string `json:"sharedWithUsers"`
	LinkedClient    string   `json:"linkedClient,omitempty"`
	LinkedSession   string   `json:"linkedSession,omitempty"`
}

type NotePatch struct {
	Sharing
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

type NoteService struct {
	notes core.Collection[models.Note]
}

func NewNoteService(notes core.Collection[models.Note]) *NoteService {
	return &NoteService{notes: notes}
}

func (s *NoteService) List(ctx context.Context, viewer models.Viewer, link Linkage) ([]models.Note, error) {
	link.LinkedJourney = ""
	notes, err := s.notes.Filter(ctx, link.query(), "-updated_date", 0)
	if err != nil {
		return nil, err
	}
	return visibility.Filter(notes, viewer), nil
}

func (s *NoteService) Create(ctx context.Context, viewer models.Viewer, in NoteInput) (models.Note, error) {
	if in.Title == "" && in.Content == "" {
		return models.Note{}, validation("a note needs a title or content")
	}
	if in.LinkedClient != "" && in.LinkedSession != "" {
		return models.Note{}, validation("a note can be linked to a client or a session, not both")
	}
	return s.notes.Create(ctx, viewer.Email, models.Note{
		Title:           in.Title,
		Content:         in.Content,
		IsPrivate:       in.IsPrivate,
		SharedWithRoles: in.SharedWithRoles,
		SharedWithUsers: in.SharedWithUsers,
		LinkedClient:    in.LinkedClient,
		LinkedSession:   in.LinkedSession,
	})
}

func (s *NoteService) editable(ctx context.Context, viewer models.Viewer, id string) (models.Note, error) {
	n, err := s.notes.Get(ctx, id)
	if err != nil {
		return models.Note{}, lookupErr("note", err)
	}
	if !visibility.IsVisible(n, viewer) {
		return models.Note{}, notFound("note")
	}
	if !visibility.CanModify(n, viewer) {
		return models.Note{}, forbidden("only the owner can change this note")
	}
	return n, nil
}

func (s *NoteService) Update(ctx context.Context, viewer models.Viewer, id string, p NotePatch) (models.Note, error) {
	n, err := s.editable(ctx, viewer, id)
	if err != nil {
		return models.Note{}, err
	}
	patch := p.patch()
	if p.Title != nil {
		patch["title"] = *p.Title
	}
	if p.Content != nil {
		patch["content"] = *p.Content
	}
	if len(patch) == 0 {
		return n, nil
	}
	updated, err := s.notes.Update(ctx, id, patch)
	if err != nil {
		return models.Note{}, lookupErr("note", err)
	}
	return updated, nil
}

func (s *NoteService) Delete(ctx context.Context, viewer models.Viewer, id string) error {
	if _, err := s.editable(ctx, viewer, id); err != nil {
		return err
	}
	return lookupErr("note", s.notes.Delete(ctx, id))
}
