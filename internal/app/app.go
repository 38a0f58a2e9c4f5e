package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/CoachHub/internal/config"
	"github.com/markdave123-py/CoachHub/internal/core"
	db "github.com/markdave123-py/CoachHub/internal/core/database"
	"github.com/markdave123-py/CoachHub/internal/core/functions"
	"github.com/markdave123-py/CoachHub/internal/core/memstore"
	objectclient "github.com/markdave123-py/CoachHub/internal/core/object-client"
	"github.com/markdave123-py/CoachHub/internal/core/querycache"
	"github.com/markdave123-py/CoachHub/internal/core/transcript_engine"
	"github.com/markdave123-py/CoachHub/internal/lifecycle"
	"github.com/markdave123-py/CoachHub/internal/logging"
	"github.com/markdave123-py/CoachHub/internal/services"
)

type App struct {
	cfg      *config.Config
	DB       *sql.DB
	Cache    core.QueryCache
	Ingestor *transcript_engine.Ingestor
	Server   *Server

	closers []func() error
}

// Deps are the adapters the services run on.
type Deps struct {
	Entities *core.Entities
	Objects  core.ObjectClient
	Invoker  core.FunctionInvoker
	Cache    core.QueryCache
	Queue    services.TranscriptQueue
}

// NewServices builds every service over deps.
func NewServices(cfg *config.Config, deps Deps) (*Services, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return &Services{
		Users:    services.NewUserService(deps.Entities.Clients),
		Sessions: services.NewSessionService(deps.Entities, deps.Invoker, deps.Objects, deps.Queue, deps.Cache, lifecycle.NewResolver(loc), cfg.BoardCacheBucket),
		Analysis: services.NewAnalysisService(deps.Entities, deps.Invoker),
		Files:    services.NewFileService(deps.Entities.Files, deps.Objects),
		Notes:    services.NewNoteService(deps.Entities.Notes),
		Actions:  services.NewActionService(deps.Entities),
	}, nil
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	a := &App{cfg: cfg}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	var entities *core.Entities
	switch cfg.EntityBackend {
	case config.BackendMemory:
		entities = memstore.NewEntities()
		logging.Logger.Warn("using in-memory entity store; data is lost on restart")
	default:
		conn, err := db.Open(appCtx, cfg)
		if err != nil {
			return nil, err
		}
		a.DB = conn
		a.closers = append(a.closers, conn.Close)
		entities = db.NewEntities(conn)
		logging.Logger.Info("database initialized and ready")
	}

	objClient, err := objectclient.NewS3Client(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	logging.Logger.Info("object client initialized and ready", "bucket", cfg.BucketName)

	a.Cache = querycache.Noop{}
	if cfg.RedisURL != "" {
		redisCache, err := querycache.NewRedisCache(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("query cache: %w", err)
		}
		a.Cache = redisCache
		a.closers = append(a.closers, redisCache.Close)
		logging.Logger.Info("query cache connected")
	}

	invoker := functions.NewHTTPInvoker(cfg.FunctionsURL, cfg.FunctionsToken, &http.Client{Timeout: 2 * time.Minute})

	useReadability := false
	extractor := transcript_engine.NewDocconvExtractor(useReadability)
	a.Ingestor = transcript_engine.NewIngestor(entities.Sessions, objClient, extractor, a.Cache)

	svc, err := NewServices(cfg, Deps{
		Entities: entities,
		Objects:  objClient,
		Invoker:  invoker,
		Cache:    a.Cache,
		Queue:    a.Ingestor,
	})
	if err != nil {
		return nil, err
	}
	a.Server = NewServer(cfg, NewRouter(cfg, svc))

	ok = true
	return a, nil
}

// Run serves HTTP and runs the transcript workers until ctx is done, then
// shuts both down.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	a.Ingestor.Start(gctx, a.cfg.TranscriptWorkers)

	g.Go(a.Server.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return a.Server.Shutdown(shutdownCtx)
	})
	g.Go(a.Ingestor.Wait)
	return g.Wait()
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logging.Logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}
