package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/jutt313/code-xi/internal/agents"
	"github.com/jutt313/code-xi/internal/api"
	"github.com/jutt313/code-xi/internal/config"
	"github.com/jutt313/code-xi/internal/manager"
	"github.com/jutt313/code-xi/internal/memory"
	"github.com/jutt313/code-xi/internal/oracle"
	"github.com/jutt313/code-xi/internal/queue"
	"github.com/jutt313/code-xi/internal/scheduler"
	"github.com/jutt313/code-xi/internal/server"
	"github.com/jutt313/code-xi/internal/store"
	"github.com/jutt313/code-xi/internal/telemetry"
	"github.com/jutt313/code-xi/internal/tools"
	"github.com/jutt313/code-xi/internal/version"

	_ "modernc.org/sqlite"
)

// resultSink forwards worker results to the manager. It exists because the
// pool is constructed before the manager but reports through it.
type resultSink struct {
	m *manager.Manager
}

func (r *resultSink) ProcessTaskResult(ctx context.Context, projectID int64, taskID string, status api.TaskStatus, output string) error {
	return r.m.ProcessTaskResult(ctx, projectID, taskID, status, output)
}

func main() {
	_ = godotenv.Load()

	root, err := os.Getwd()
	if err != nil {
		log.Fatalf("failed to resolve working directory: %v", err)
	}

	res := config.Load(root)
	if res.ParseError != nil {
		log.Fatalf("failed to load config %s: %v", res.Path, res.ParseError)
	}
	cfg := res.Config

	dbPath := filepath.Join(root, filepath.FromSlash(cfg.Server.DBPath))
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		log.Fatalf("failed to prepare db path: %v", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		log.Fatalf("failed to open sqlite db: %v", err)
	}
	defer db.Close()

	st := store.New(db)
	if err := st.Init(); err != nil {
		log.Fatalf("failed to init schema: %v", err)
	}

	ctx := context.Background()
	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "codexid",
		ServiceVersion: version.Version,
	})
	if err != nil {
		log.Printf("tracing disabled: %v", err)
	} else {
		defer func() { _ = shutdownTracing(context.Background()) }()
	}

	runner := &tools.RealCommandRunner{}
	registry := tools.NewRegistry()
	tools.RegisterFoundational(registry, runner, root)
	tools.RegisterSpecialized(registry, runner, root)

	orc := oracle.NewRetrying(
		&oracle.CommandOracle{Runner: runner, Argv: cfg.Oracle.Command, Dir: cfg.Oracle.Workdir},
		cfg.Retry.Attempts,
		time.Duration(cfg.Retry.DelayMS)*time.Millisecond,
	)

	mem := memory.New(st)
	handlers := agents.NewAll(orc, mem, registry)

	sink := &resultSink{}
	pool := queue.New(st, sink, handlers, cfg.RoleConcurrency())
	sched := scheduler.New(st, pool, scheduler.FailurePolicy(cfg.Scheduler.FailurePolicy))
	mgr := manager.New(st, sched, orc, registry)
	sink.m = mgr

	pool.Start(ctx)
	defer pool.Shutdown()

	srv := server.NewServer(mgr, st)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("codexid %s (%s) listening on http://%s", version.Version, version.Commit, addr)
	log.Fatal(http.ListenAndServe(addr, srv.Handler()))
}
