package services

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/CoachHub/internal/core"
	"github.com/markdave123-py/CoachHub/internal/core/functions"
	"github.com/markdave123-py/CoachHub/internal/highlight"
	"github.com/markdave123-py/CoachHub/internal/logging"
	"github.com/markdave123-py/CoachHub/internal/models"
)

// ReferenceView is an applied reference joined with its article.
type ReferenceView struct {
	models.AppliedReference
	Article *models.KnowledgeBaseArticle `json:"article,omitempty"`
}

type AnalysisView struct {
	SessionID      string           `json:"session_id"`
	References     []ReferenceView  `json:"references"`
	Highlight      highlight.Result `json:"highlight"`
	TranscriptHTML string           `json:"transcript_html"`
}

type AnalysisService struct {
	sessions core.Collection[models.Session]
	clients  core.Collection[models.Client]
	refs     core.Collection[models.AppliedReference]
	articles core.Collection[models.KnowledgeBaseArticle]
	invoker  core.FunctionInvoker
}

func NewAnalysisService(entities *core.Entities, invoker core.FunctionInvoker) *AnalysisService {
	return &AnalysisService{
		sessions: entities.Sessions,
		clients:  entities.Clients,
		refs:     entities.AppliedReferences,
		articles: entities.KnowledgeBase,
		invoker:  invoker,
	}
}

// Generate replaces the session's references with a fresh analysis.
// Existing references are deleted before the remote function runs, so a
// failed run leaves the session without references.
func (s *AnalysisService) Generate(ctx context.Context, viewer models.Viewer, sessionID string) (*AnalysisView, error) {
	if err := requireStaff(viewer); err != nil {
		return nil, err
	}
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, lookupErr("session", err)
	}
	if viewer.ActingAsID != "" && session.ClientID != viewer.ActingAsID {
		return nil, notFound("session")
	}
	if session.Transcript == "" {
		return nil, validation("session has no transcript to analyse")
	}

	existing, err := s.refs.Filter(ctx, map[string]any{"session_id": sessionID}, "", 0)
	if err != nil {
		return nil, err
	}
	for _, ref := range existing {
		if err := s.refs.Delete(ctx, ref.ID); err != nil {
			return nil, fmt.Errorf("delete reference %s: %w", ref.ID, lookupErr("reference", err))
		}
	}
	logging.Logger.Info("session analysis requested", "session_id", sessionID, "replaced", len(existing))

	if _, err := s.invoker.Invoke(ctx, functions.GenerateSessionAnalysis, map[string]any{"session_id": sessionID}); err != nil {
		return nil, remoteFailure(err)
	}
	return s.Get(ctx, viewer, sessionID)
}

// Get loads the session, its references and the knowledge base together
// and highlights the transcript. References come best score first.
func (s *AnalysisService) Get(ctx context.Context, viewer models.Viewer, sessionID string) (*AnalysisView, error) {
	scope, err := clientScope(ctx, s.clients, viewer)
	if err != nil {
		return nil, err
	}

	var (
		session  models.Session
		refs     []models.AppliedReference
		articles []models.KnowledgeBaseArticle
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		session, err = s.sessions.Get(gctx, sessionID)
		return lookupErr("session", err)
	})
	g.Go(func() error {
		var err error
		refs, err = s.refs.Filter(gctx, map[string]any{"session_id": sessionID}, "created_date", 0)
		return err
	})
	g.Go(func() error {
		var err error
		articles, err = s.articles.List(gctx, "title", 0)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if !inScope(scope, session.ClientID) {
		return nil, notFound("session")
	}

	byID := make(map[string]models.KnowledgeBaseArticle, len(articles))
	for _, a := range articles {
		byID[a.ID] = a
	}

	views := make([]ReferenceView, len(refs))
	for i, ref := range refs {
		ref.RelevanceScore = ref.Score()
		ref.MatchType = models.NormalizeMatchType(ref.MatchType)
		refs[i] = ref
	}
	// scores are stored as JSON numbers, which sort as text in the store
	slices.SortStableFunc(refs, func(a, b models.AppliedReference) int {
		return cmp.Compare(b.RelevanceScore, a.RelevanceScore)
	})
	for i, ref := range refs {
		views[i] = ReferenceView{AppliedReference: ref}
		if a, ok := byID[ref.KnowledgeBaseID]; ok {
			views[i].Article = &a
		}
	}

	res := highlight.Highlight(session.Transcript, refs)
	return &AnalysisView{
		SessionID:      session.ID,
		References:     views,
		Highlight:      res,
		TranscriptHTML: res.HTML(),
	}, nil
}
