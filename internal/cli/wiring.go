package cli

import (
	"context"
	"log/slog"
	"os"
	"time"

	"course-ledger-service/internal/app"
	"course-ledger-service/internal/config"
	"course-ledger-service/internal/domain"
	"course-ledger-service/internal/infra/memory"
	"course-ledger-service/internal/infra/postgres"
	infraredis "course-ledger-service/internal/infra/redis"
	"course-ledger-service/internal/retry"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
)

// runtime is the wired ledger plus the resources that must be released with it.
type runtime struct {
	ledger  *app.Ledger
	hub     *app.EventHub
	closers []func()
}

func (r *runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: config.LogLevel(cfg.Log.Level)}))
	slog.SetDefault(logger)
	return logger
}

// buildRuntime wires Postgres and Redis when configured and falls back to seeded
// in-memory collaborators otherwise.
func buildRuntime(ctx context.Context, cfg config.Config, logger *slog.Logger) (*runtime, error) {
	rt := &runtime{hub: app.NewEventHub()}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rt.closers = append(rt.closers, func() { _ = redisClient.Close() })
	}

	var (
		loader       memory.StructureLoader
		progress     app.ProgressStore
		learners     app.LearnerDirectory
		certificates app.CertificateStore
	)
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, pool.Close)
		db := postgres.OpenBun(cfg.Postgres.URL)
		rt.closers = append(rt.closers, func() { _ = db.Close() })

		loader = postgres.NewStructureLoader(pool)
		progress = postgres.NewProgressStore(pool)
		learners = postgres.NewLearnerDirectory(pool)
		certificates = postgres.NewCertificateStore(db)
	} else {
		logger.Warn("postgres not configured, using in-memory sample data")
		courses, progressStore, directory := sampleData()
		loader = courses
		progress = progressStore
		learners = directory
		certificates = memory.NewCertificateStore()
	}

	structures := structureProvider(cfg, redisClient, loader)

	attempts := cfg.Retry.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	policy := retry.Exponential(attempts,
		config.TTLDuration(cfg.Retry.InitialInterval, 100*time.Millisecond),
		config.TTLDuration(cfg.Retry.MaxInterval, 2*time.Second),
	)

	sinks := app.MultiSink{app.NewLogSink(logger), rt.hub}
	if redisClient != nil {
		sinks = append(sinks, infraredis.NewEventPublisher(redisClient, cfg.Redis.Channel))
	}

	rt.ledger = app.NewLedger(
		retry.NewStructures(structures, policy),
		retry.NewProgress(progress, policy),
		retry.NewLearners(learners, policy),
		retry.NewCertificates(certificates, policy),
		app.WithEvents(sinks),
		app.WithConcurrency(cfg.Sweep.Concurrency),
	)
	return rt, nil
}

// structureProvider puts the loader behind a cache only when structure.ttl is set.
// Without a TTL every evaluation reads the current course structure.
func structureProvider(cfg config.Config, redisClient *redis.Client, loader memory.StructureLoader) app.CourseStructureProvider {
	ttl := config.TTLDuration(cfg.Structure.TTL, 0)
	if ttl > 0 && redisClient != nil {
		return infraredis.NewStructureCache(redisClient, loader, ttl)
	}
	// memory.StructureCache reads through when ttl <= 0
	return memory.NewStructureCache(loader, ttl)
}

// sampleData seeds a small demo course for running without Postgres.
func sampleData() (*memory.StaticStructureLoader, *memory.ProgressStore, *memory.LearnerDirectory) {
	courses := memory.NewStaticStructureLoader(map[string]domain.CourseStructure{
		"go-101": {
			CourseID:   "go-101",
			CourseName: "Go Fundamentals",
			Sections: []domain.Section{
				{ID: "basics", Name: "Basics", SubItems: []domain.SubItem{
					{ID: "hello-world", Title: "Hello, World", QuizID: "quiz-hello"},
					{ID: "types", Title: "Types and Values"},
				}},
				{ID: "concurrency", Name: "Concurrency", SubItems: []domain.SubItem{
					{ID: "goroutines", Title: "Goroutines", QuizID: "quiz-goroutines"},
				}},
			},
		},
	})

	progress := memory.NewProgressStore()
	progress.Put(domain.CourseProgress{
		CourseID:          "go-101",
		LearnerID:         "learner-1",
		CompletedVideoIDs: []string{"hello-world", "types", "goroutines"},
		CompletedQuizIDs:  []string{"quiz-hello", "quiz-goroutines"},
	})
	progress.Put(domain.CourseProgress{
		CourseID:          "go-101",
		LearnerID:         "learner-2",
		CompletedVideoIDs: []string{"hello-world", "types"},
		CompletedQuizIDs:  []string{"quiz-hello"},
	})

	learners := memory.NewLearnerDirectory(
		domain.LearnerSnapshot{LearnerID: "learner-1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"},
		domain.LearnerSnapshot{LearnerID: "learner-2", FirstName: "Alan", LastName: "Turing", Email: "alan@example.com"},
	)
	return courses, progress, learners
}
