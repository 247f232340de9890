package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/bryanwahyu/automaton-risk/internal/application"
	aiapp "github.com/bryanwahyu/automaton-risk/internal/application/ai"
	appassess "github.com/bryanwahyu/automaton-risk/internal/application/assessments"
	appstats "github.com/bryanwahyu/automaton-risk/internal/application/stats"
	"github.com/bryanwahyu/automaton-risk/internal/config"
	"github.com/bryanwahyu/automaton-risk/internal/domain/ai"
	"github.com/bryanwahyu/automaton-risk/internal/domain/assessment"
	"github.com/bryanwahyu/automaton-risk/internal/infra/ai/agent"
	openaip "github.com/bryanwahyu/automaton-risk/internal/infra/ai/openai"
	"github.com/bryanwahyu/automaton-risk/internal/infra/ai/prompt"
	"github.com/bryanwahyu/automaton-risk/internal/infra/db/memory"
	mysqlp "github.com/bryanwahyu/automaton-risk/internal/infra/db/mysql"
	"github.com/bryanwahyu/automaton-risk/internal/infra/db/postgres"
	"github.com/bryanwahyu/automaton-risk/internal/infra/metrics"
	"github.com/bryanwahyu/automaton-risk/internal/infra/sequence"
	minioStore "github.com/bryanwahyu/automaton-risk/internal/infra/storage"
	"github.com/bryanwahyu/automaton-risk/internal/logging"
	"github.com/bryanwahyu/automaton-risk/internal/middleware"
)

type store interface {
	Repos() (assessment.Repository, assessment.RiskRepository, assessment.ControlRepository, assessment.ResultRepository)
	Ping(ctx context.Context) error
}

type app struct {
	assess  *appassess.Service
	stats   *appstats.Service
	metrics *metrics.Recorder
	health  map[string]middleware.HealthChecker
	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

func connectSQL(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		return postgres.Connect(ctx, cfg.DSN())
	default:
		return mysqlp.Connect(ctx, cfg.DSN())
	}
}

func buildApp(ctx context.Context, cfg *config.Config, logger *logging.Logger) (_ *app, err error) {
	a := &app{metrics: metrics.New(), health: map[string]middleware.HealthChecker{}}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	// storage
	var st store
	if cfg.Database.Driver == config.DriverMemory {
		logger.Warn("using in-memory store, data is lost on restart")
		st = memory.New()
	} else {
		db, err := connectSQL(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("%s connect error: %w", cfg.Database.Driver, err)
		}
		a.closers = append(a.closers, db.Close)
		if cfg.Database.Driver == config.DriverPostgres {
			st = postgres.NewStore(db)
		} else {
			st = mysqlp.NewStore(db)
		}
	}
	a.health["database"] = &middleware.DatabaseHealthChecker{DB: st}
	repo, risks, controls, results := st.Repos()

	// analysis provider
	var client ai.Client
	switch cfg.Analysis.Provider {
	case config.ProviderOpenAI:
		lib := prompt.DefaultLibrary()
		if cfg.Analysis.LibraryPath != "" {
			if lib, err = prompt.LoadLibrary(cfg.Analysis.LibraryPath); err != nil {
				return nil, fmt.Errorf("risk library: %w", err)
			}
		}
		client = openaip.NewClient(cfg.Analysis.OpenAI.APIKey, cfg.Analysis.OpenAI.Model, lib)
	default:
		client = agent.NewClient(cfg.Analysis.Endpoint, cfg.AnalysisTimeout())
	}
	analysis := aiapp.NewService(client, cfg.Analysis.Provider, cfg.AnalysisTimeout(), logger.Named("analysis"), a.metrics)

	a.assess = &appassess.Service{
		Repo:     repo,
		Risks:    risks,
		Controls: controls,
		Results:  results,
		Analysis: analysis,
		Codes:    appassess.RandomCodes{},
		Clock:    application.SystemClock{},
		Log:      logger.Named("assessments"),
		Metrics:  a.metrics,
	}
	a.stats = &appstats.Service{Results: results, Risks: risks, Log: logger.Named("stats")}

	// redis sequence allocator
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		a.closers = append(a.closers, rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping error: %w", err)
		}
		a.assess.Sequence = sequence.NewRedisAllocator(rdb, "")
		a.health["redis"] = &middleware.RedisHealthChecker{Client: rdb}
	}

	// init minio
	if cfg.Minio.Enabled {
		ms, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			return nil, fmt.Errorf("minio init error: %w", err)
		}
		a.assess.Artifacts = ms
	}

	return a, nil
}
