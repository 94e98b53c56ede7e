package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
	pgstore "quiz-session-service/internal/infra/postgres"
	pgmigrations "quiz-session-service/internal/infra/postgres/migrations"
	infraredis "quiz-session-service/internal/infra/redis"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"golang.org/x/sync/errgroup"
)

func TestSubmitEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuiz(t, ctx, pgURL, sampleQuiz())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	quizRepo := infraredis.NewQuizRepository(redisClient, pgstore.NewQuizLoader(pool), 5*time.Minute)
	registry := pgstore.NewSessionRegistry(pool)
	ledger := pgstore.NewSubmissionLedger(pool)
	service := app.NewSessionService(registry, ledger, quizRepo)

	until := time.Now().Add(time.Hour)
	session, err := service.CreateSession(ctx, "quiz-1", "final-exam", time.Now().Add(-time.Minute), &until)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	result, err := service.Submit(ctx, "final-exam", "alice", domain.AnswerSet{
		"q1": {"o2"},
		"q2": {"o1", "o3"},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	// q1 exact (1) + q2 partial 2/3 of weight 3 (2) = 3 of 4.
	if result.Score != 3 || result.MaxScore != 4 {
		t.Fatalf("expected 3/4, got %d/%d", result.Score, result.MaxScore)
	}

	// Result withheld while the bounded session is open.
	_, err = service.GetResult(ctx, result.Handle)
	var withheld *domain.ResultWithheldError
	if !errors.As(err, &withheld) {
		t.Fatalf("expected withheld result, got %v", err)
	}

	// The unique index admits exactly one of many concurrent submits.
	const attempts = 8
	var successes int64
	var group errgroup.Group
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		group.Go(func() error {
			_, err := service.Submit(ctx, "final-exam", "bob", domain.AnswerSet{"q1": {"o2"}})
			results <- err
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		t.Fatalf("group: %v", err)
	}
	close(results)
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		var duplicate *domain.DuplicateSubmissionError
		if !errors.As(err, &duplicate) {
			t.Fatalf("unexpected submit error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly one concurrent winner, got %d", successes)
	}

	stats, err := service.SessionStatistics(ctx, "final-exam")
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if stats.ParticipantCount != 2 {
		t.Fatalf("expected 2 participants, got %d", stats.ParticipantCount)
	}
	for _, q := range stats.PerQuestion {
		if q.QuestionID == "q1" && q.CorrectCount != 2 {
			t.Fatalf("expected both q1 answers exact, got %d", q.CorrectCount)
		}
	}

	// Cascade: deleting the session removes its submissions.
	if err := service.DeleteSession(ctx, "final-exam"); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if remaining, _ := ledger.ListBySession(ctx, session.ID); len(remaining) != 0 {
		t.Fatalf("expected cascade delete, found %d rows", len(remaining))
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedQuiz(t *testing.T, ctx context.Context, dsn string, quiz domain.QuizDefinition) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	data, err := json.Marshal(quiz)
	if err != nil {
		t.Fatalf("marshal quiz: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO quizzes (id, data) VALUES (? , ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, quiz.ID, string(data)); err != nil {
		t.Fatalf("insert quiz: %v", err)
	}
}

func sampleQuiz() domain.QuizDefinition {
	return domain.QuizDefinition{
		ID:    "quiz-1",
		Title: "Numbers",
		Questions: []domain.Question{
			{
				ID:     "q1",
				Type:   domain.QuestionSingle,
				Prompt: "What is 2 + 2?",
				Options: []domain.Option{
					{ID: "o1", Text: "3", Correct: false},
					{ID: "o2", Text: "4", Correct: true},
					{ID: "o3", Text: "5", Correct: false},
				},
			},
			{
				ID:     "q2",
				Type:   domain.QuestionMultiple,
				Prompt: "Which are prime?",
				Weight: 3,
				Options: []domain.Option{
					{ID: "o1", Text: "2", Correct: true},
					{ID: "o2", Text: "4", Correct: false},
					{ID: "o3", Text: "5", Correct: true},
					{ID: "o4", Text: "7", Correct: true},
				},
			},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
