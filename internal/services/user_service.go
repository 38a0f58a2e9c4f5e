package services

import (
	"context"
	"errors"

	"github.com/markdave123-py/CoachHub/internal/core"
	"github.com/markdave123-py/CoachHub/internal/models"
)

// Profile is the answer to /api/me: the verified viewer plus the client
// record they are scoped to, if any.
type Profile struct {
	models.Viewer
	Client *models.Client `json:"client,omitempty"`
}

type UserService struct {
	clients core.Collection[models.Client]
}

func NewUserService(clients core.Collection[models.Client]) *UserService {
	return &UserService{clients: clients}
}

func (s *UserService) Me(ctx context.Context, viewer models.Viewer) (*Profile, error) {
	p := &Profile{Viewer: viewer}
	scope, err := clientScope(ctx, s.clients, viewer)
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		// a client account without a profile still gets its identity back
		return p, nil
	}
	if err != nil || scope == "" {
		return p, err
	}
	c, err := s.clients.Get(ctx, scope)
	if err != nil {
		return nil, lookupErr("client", err)
	}
	p.Client = &c
	return p, nil
}
