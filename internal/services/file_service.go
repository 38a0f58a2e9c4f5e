package services

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/markdave123-py/CoachHub/internal/core"
	objectclient "github.com/markdave123-py/CoachHub/internal/core/object-client"
	"github.com/markdave123-py/CoachHub/internal/logging"
	"github.com/markdave123-py/CoachHub/internal/models"
	"github.com/markdave123-py/CoachHub/internal/visibility"
)

// Linkage narrows a file or note listing. Empty fields are ignored.
type Linkage struct {
	LinkedClient  string `json:"linkedClient,omitempty"`
	LinkedSession string `json:"linkedSession,omitempty"`
	LinkedJourney string `json:"linkedJourney,omitempty"`
}

func (l Linkage) query() map[string]any {
	q := map[string]any{}
	if l.LinkedClient != "" {
		q["linkedClient"] = l.LinkedClient
	}
	if l.LinkedSession != "" {
		q["linkedSession"] = l.LinkedSession
	}
	if l.LinkedJourney != "" {
		q["linkedJourney"] = l.LinkedJourney
	}
	return q
}

func (l Linkage) count() int {
	return len(l.query())
}

// Sharing is a partial update of the sharing fields.
type Sharing struct {
	IsPrivate       *bool     `json:"isPrivate,omitempty"`
	SharedWithRoles *[]string `json:"sharedWithRoles,omitempty"`
	SharedWithUsers *[]string `json:"sharedWithUsers,omitempty"`
}

func (s Sharing) patch() map[string]any {
	p := map[string]any{}
	if s.IsPrivate != nil {
		p["isPrivate"] = *s.IsPrivate
	}
	if s.SharedWithRoles != nil {
		p["sharedWithRoles"] = models.StringList(*s.SharedWithRoles)
	}
	if s.SharedWithUsers != nil {
		p["sharedWithUsers"] = models.StringList(*s.SharedWithUsers)
	}
	return p
}

type UploadFileInput struct {
	Linkage
	FileName        string
	ContentType     string
	Size            int64
	Description     string
	IsPrivate       bool
	SharedWithRoles []string
	SharedWithUsers []string
}

type FileService struct {
	files   core.Collection[models.File]
	storage core.ObjectClient
}

func NewFileService(files core.Collection[models.File], storage core.ObjectClient) *FileService {
	return &FileService{files: files, storage: storage}
}

// List returns the files the viewer may see, newest first.
func (s *FileService) List(ctx context.Context, viewer models.Viewer, link Linkage) ([]models.File, error) {
	files, err := s.files.Filter(ctx, link.query(), "-created_date", 0)
	if err != nil {
		return nil, err
	}
	return visibility.Filter(files, viewer), nil
}

// Get hides files the viewer may not see behind NOT_FOUND.
func (s *FileService) Get(ctx context.Context, viewer models.Viewer, id string) (models.File, error) {
	f, err := s.files.Get(ctx, id)
	if err != nil {
		return models.File{}, lookupErr("file", err)
	}
	if !visibility.IsVisible(f, viewer) {
		return models.File{}, notFound("file")
	}
	return f, nil
}

// Upload stores the content and creates the file record owned by the viewer.
func (s *FileService) Upload(ctx context.Context, viewer models.Viewer, in UploadFileInput, data io.Reader) (models.File, error) {
	if in.FileName == "" {
		return models.File{}, validation("file name is required")
	}
	if in.count() > 1 {
		return models.File{}, validation("a file can be linked to at most one of client, session or journey")
	}

	id := uuid.NewString()
	key := objectclient.ObjectKey("files", viewer.Email, id, in.FileName)
	url, err := s.storage.UploadFile(ctx, key, data, in.ContentType)
	if err != nil {
		return models.File{}, fmt.Errorf("upload file: %w", err)
	}

	f, err := s.files.Create(ctx, viewer.Email, models.File{
		Meta:            models.Meta{ID: id},
		FileName:        in.FileName,
		FileURL:         url,
		FileType:        in.ContentType,
		FileSize:        in.Size,
		Description:     in.Description,
		IsPrivate:       in.IsPrivate,
		SharedWithRoles: in.SharedWithRoles,
		SharedWithUsers: in.SharedWithUsers,
		LinkedClient:    in.LinkedClient,
		LinkedSession:   in.LinkedSession,
		LinkedJourney:   in.LinkedJourney,
	})
	if err != nil {
		if derr := s.storage.DeleteFile(ctx, key); derr != nil {
			logging.Logger.Warn("orphaned upload", "key", key, "error", derr)
		}
		return models.File{}, fmt.Errorf("create file record: %w", err)
	}
	return f, nil
}

// UpdateSharing changes privacy and share lists. Only the owner or an
// admin may do it.
func (s *FileService) UpdateSharing(ctx context.Context, viewer models.Viewer, id string, sharing Sharing) (models.File, error) {
	f, err := s.Get(ctx, viewer, id)
	if err != nil {
		return models.File{}, err
	}
	if !visibility.CanModify(f, viewer) {
		return models.File{}, forbidden("only the owner can change sharing")
	}
	patch := sharing.patch()
	if len(patch) == 0 {
		return f, nil
	}
	updated, err := s.files.Update(ctx, id, patch)
	if err != nil {
		return models.File{}, lookupErr("file", err)
	}
	return updated, nil
}

// Delete removes the record and then the stored object.
func (s *FileService) Delete(ctx context.Context, viewer models.Viewer, id string) error {
	f, err := s.Get(ctx, viewer, id)
	if err != nil {
		return err
	}
	if !visibility.CanModify(f, viewer) {
		return forbidden("only the owner can delete this file")
	}
	if err := s.files.Delete(ctx, id); err != nil {
		return lookupErr("file", err)
	}
	if key := s.storage.KeyFromURL(f.FileURL); key != "" {
		if err := s.storage.DeleteFile(ctx, key); err != nil {
			logging.Logger.Warn("file object not deleted", "file_id", id, "key", key, "error", err)
		}
	}
	return nil
}
