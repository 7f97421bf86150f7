package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"quiniela-service/internal/app"
	"quiniela-service/internal/domain"
	pgstore "quiniela-service/internal/infra/postgres"
	pgmigrations "quiniela-service/internal/infra/postgres/migrations"
	rediscache "quiniela-service/internal/infra/redis"
)

func TestQuinielaEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisAddr, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	applyMigrations(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	store := pgstore.NewStore(pool)
	redisClient := goredis.NewClient(&goredis.Options{Addr: redisAddr})
	cache := rediscache.NewAnswerCache(redisClient, store, 5*time.Minute)
	hub := app.NewHub(30 * time.Second)
	service := app.NewService(store, cache, domain.DefaultCatalog(), hub)

	events, cancel := hub.Subscribe()
	defer cancel()

	alice, err := service.Register(ctx, "Alice", "1234")
	if err != nil {
		t.Fatalf("register alice: %v", err)
	}
	bob, err := service.Register(ctx, "Bob", "5678")
	if err != nil {
		t.Fatalf("register bob: %v", err)
	}

	// Alice answers everything, Bob stays incomplete.
	answers := make(map[int]string)
	for _, q := range service.Catalog().Questions() {
		answers[q.ID] = q.Options[0]
	}
	if err := service.SubmitPredictions(ctx, alice.ID, answers); err != nil {
		t.Fatalf("submit alice: %v", err)
	}
	if err := service.SubmitPredictions(ctx, bob.ID, map[int]string{1: "Patriots"}); err != nil {
		t.Fatalf("submit bob: %v", err)
	}

	update, err := service.MarkCorrectAnswer(ctx, 14, "Seattle Seahawks")
	if err != nil {
		t.Fatalf("mark winner: %v", err)
	}
	if len(update.Leaderboard) != 1 || update.Leaderboard[0].Nickname != "Alice" {
		t.Fatalf("expected only complete Alice ranked, got %+v", update.Leaderboard)
	}
	if update.Leaderboard[0].Score != 20 {
		t.Fatalf("winner question scores 20, got %d", update.Leaderboard[0].Score)
	}

	select {
	case event := <-events:
		if event.Kind != app.EventLeaderboardUpdate {
			t.Fatalf("expected leaderboard-update, got %s", event.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("no broadcast after mark")
	}

	// Reads go through the redis cache after the mutation invalidated it.
	declared, err := service.CorrectAnswers(ctx)
	if err != nil {
		t.Fatalf("correct answers: %v", err)
	}
	if declared[14].Answer != "Seattle Seahawks" {
		t.Fatalf("unexpected cached answers: %+v", declared)
	}

	// Cascade delete removes Alice's predictions and empties the board.
	if _, err := service.DeleteParticipant(ctx, alice.ID); err != nil {
		t.Fatalf("delete alice: %v", err)
	}
	view, err := service.Leaderboard(ctx)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(view.Leaderboard) != 0 {
		t.Fatalf("expected empty board after delete, got %+v", view.Leaderboard)
	}
}

func applyMigrations(t *testing.T, ctx context.Context, pgURL string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(pgURL)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("init migrator: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiniela", "POSTGRES_PASSWORD": "quinielapass", "POSTGRES_DB": "quinieladb"},
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
	dsn := fmt.Sprintf("postgres://quiniela:quinielapass@%s:%s/quinieladb?sslmode=disable", host, port.Port())
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
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	return fmt.Sprintf("%s:%s", host, port.Port()), func() {
		_ = container.Terminate(ctx)
	}
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker binary not found; skipping integration test")
	}
}
