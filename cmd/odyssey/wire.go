package main

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-gl/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/mappings"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/openingbalance"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/periods"
	"github.com/odyssey-erp/odyssey-gl/internal/accounting/posting"
	"github.com/odyssey-erp/odyssey-gl/internal/allocation"
	"github.com/odyssey-erp/odyssey-gl/internal/observability"
	"github.com/odyssey-erp/odyssey-gl/internal/shared"
)

// ledger holds the services shared by the serve and post commands.
type ledger struct {
	registry        *accounts.Registry
	accounts        *accounts.Service
	journals        *journals.Service
	engine          *posting.Engine
	openingBalances *openingbalance.Service
	allocations     *allocation.Service
}

// buildLedger wires the posting stack and loads the chart of accounts.
// A chart missing required roles is logged, not fatal: postings that need
// the missing accounts fail with a configuration error.
func buildLedger(ctx context.Context, pool *pgxpool.Pool, metrics *observability.Metrics, logger *slog.Logger) (*ledger, error) {
	auditLogger := shared.NewAuditLogger(pool)

	accountRepo := accounts.NewRepository(pool)
	registry := accounts.NewRegistry(accountRepo)
	if err := registry.Load(ctx); err != nil {
		return nil, err
	}
	if missing := registry.Missing(); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, role := range missing {
			names[i] = role.String()
		}
		logger.Error("chart of accounts incomplete", slog.Any("missing", names))
	}

	guard := periods.NewGuard(periods.NewRepository(pool))
	journalService := journals.NewService(journals.NewRepository(pool), registry, auditLogger, guard)

	engine := posting.NewEngine(posting.NewRepository(pool), journalService, registry, mappings.NewRepository(pool))
	if metrics != nil {
		engine.WithObserver(metrics)
	}

	allocations := allocation.NewService(allocation.NewRepository(pool), allocation.NewLedgerSync(engine), auditLogger).
		WithIdempotency(shared.NewIdempotencyStore(pool))
	if metrics != nil {
		allocations.WithObserver(metrics)
	}

	return &ledger{
		registry:        registry,
		accounts:        accounts.NewService(accountRepo, registry),
		journals:        journalService,
		engine:          engine,
		openingBalances: openingbalance.NewService(openingbalance.NewRepository(pool), engine, registry, auditLogger),
		allocations:     allocations,
	}, nil
}
