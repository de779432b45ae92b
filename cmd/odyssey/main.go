package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-gl/cmd/odyssey/cli"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/integrity"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/mappings"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/openingbalance"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/posting"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/reports"
	"github.com/odyssey-erp/odyssey-gl/internal/allocation"
	"github.com/odyssey-erp/odyssey-gl/internal/app"
	"github.com/odyssey-erp/odyssey-gl/internal/audit"
	audithttp "github.com/odyssey-erp/odyssey-gl/internal/audit/http"
	"github.com/odyssey-erp/odyssey-gl/internal/observability"
	"github.com/odyssey-erp/odyssey-gl/internal/platform/db"
	"github.com/odyssey-erp/odyssey-gl/jobs"
)

const usage = `usage: odyssey <command> [flags]

commands:
  serve     run the HTTP API (default)
  migrate   apply schema migrations (-down, -steps N)
  post      post one source document (-type invoice -id 42 [-unpost] [-json])
  jobs      trigger integrity|sweep | stats | scheduled
`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	command, args := "serve", os.Args[1:]
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	var code int
	switch command {
	case "serve":
		code = serve(ctx, cfg, logger)
	case "migrate":
		code = runMigrate(ctx, cfg, logger, args)
	case "post":
		code = runPost(ctx, cfg, logger, args)
	case "jobs":
		code = runJobs(ctx, cfg, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprint(os.Stderr, usage)
		code = 2
	}
	stop()
	os.Exit(code)
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) int {
	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		return 1
	}
	defer dbpool.Close()

	if cfg.DBAutoMigrate {
		if err := db.Migrate(dbpool, db.Up, 0, logger); err != nil {
			logger.Error("auto migrate", slog.Any("error", err))
			return 1
		}
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	gl, err := buildLedger(ctx, dbpool, metrics, logger)
	if err != nil {
		logger.Error("build ledger", slog.Any("error", err))
		return 1
	}

	checker := integrity.NewChecker(integrity.NewRepository(dbpool), integrity.NewCache(redisClient, cfg.IntegrityCacheTTL))

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger: logger,
		Config: cfg,
		LedgerHandler: &accounting.Handler{
			Accounts:        accounts.NewHandler(logger, gl.accounts),
			Journals:        journals.NewHandler(logger, gl.journals),
			Posting:         posting.NewHandler(logger, gl.engine),
			OpeningBalances: openingbalance.NewHandler(logger, gl.openingBalances),
			Integrity:       integrity.NewHandler(logger, checker),
			TrialBalance:    reports.NewHandler(logger, reports.NewRepository(dbpool)),
			Mappings:        mappings.NewHandler(logger, mappings.NewRepository(dbpool), gl.registry),
			Audit:           audithttp.NewHandler(logger, audit.NewService(audit.NewRepository(dbpool))),
		},
		AllocationHandler: allocation.NewHandler(logger, gl.allocations),
		JobHandler:        jobs.NewHandler(inspector, logger),
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	code := 0
	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("http server", slog.Any("error", err))
		code = 1
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	return code
}

func runMigrate(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) int {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	down := fs.Bool("down", false, "roll back instead of applying")
	steps := fs.Int("steps", 0, "number of migrations to roll back (0 = all)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		return 1
	}
	defer dbpool.Close()

	dir := db.Up
	if *down {
		dir = db.Down
	}
	if err := db.Migrate(dbpool, dir, *steps, logger); err != nil {
		logger.Error("migrate", slog.Any("error", err))
		return 1
	}
	return 0
}

func runPost(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) int {
	fs := flag.NewFlagSet("post", flag.ContinueOnError)
	var opts cli.PostOptions
	fs.StringVar(&opts.SourceType, "type", "", "source type (invoice, payment_allocation, ap_bill, ap_payment, job_expense, general_expense, payroll_period, opening_balance_batch)")
	fs.Int64Var(&opts.SourceID, "id", 0, "source document id")
	fs.BoolVar(&opts.Unpost, "unpost", false, "remove the live entry instead of posting")
	fs.BoolVar(&opts.JSONOutput, "json", false, "print the result as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		return 1
	}
	defer dbpool.Close()

	gl, err := buildLedger(ctx, dbpool, nil, logger)
	if err != nil {
		logger.Error("build ledger", slog.Any("error", err))
		return 1
	}
	return cli.NewPostCLI(gl.engine).PostCommand(ctx, opts)
}

func runJobs(ctx context.Context, cfg *app.Config, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "jobs: expected trigger, stats or scheduled")
		return 2
	}
	jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "jobs: %v\n", err)
		return 1
	}
	defer jobsCLI.Close()

	switch args[0] {
	case "trigger":
		name := jobs.TaskGLIntegrityCheck
		if len(args) > 1 {
			name = args[1]
		}
		info, err := jobsCLI.Trigger(ctx, name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "jobs trigger: %v\n", err)
			return 1
		}
		fmt.Printf("enqueued %s as %s on %s\n", info.Type, info.ID, info.Queue)
	case "stats":
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "jobs stats: %v\n", err)
			return 1
		}
		fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d archived=%d\n", stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived)
	case "scheduled":
		tasks, err := jobsCLI.ListScheduled(ctx, 20)
		if err != nil {
			fmt.Fprintf(os.Stderr, "jobs scheduled: %v\n", err)
			return 1
		}
		for _, t := range tasks {
			fmt.Printf("%s %s next=%s\n", t.ID, t.Type, t.NextProcessAt.Format(time.RFC3339))
		}
	default:
		fmt.Fprintf(os.Stderr, "jobs: unknown subcommand %s\n", args[0])
		return 2
	}
	return 0
}
