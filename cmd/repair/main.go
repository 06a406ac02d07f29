package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/ledgerline/ledgerline/internal/clock"
	"github.com/ledgerline/ledgerline/internal/config"
	"github.com/ledgerline/ledgerline/internal/domain/document"
	"github.com/ledgerline/ledgerline/internal/logger"
	"github.com/ledgerline/ledgerline/internal/postgres"
	"github.com/ledgerline/ledgerline/internal/repository"
	"github.com/ledgerline/ledgerline/internal/service"
	"github.com/ledgerline/ledgerline/internal/types"
	"go.uber.org/fx"
)

func newServiceParams(
	logger *logger.Logger,
	cfg *config.Configuration,
	db postgres.IClient,
	clk clock.Clock,
	documentRepo document.Repository,
) service.ServiceParams {
	return service.ServiceParams{
		Logger:       logger,
		Config:       cfg,
		DB:           db,
		Clock:        clk,
		DocumentRepo: documentRepo,
	}
}

func main() {
	dryRun := flag.Bool("dry-run", false, "Report duplicate numbers without relocating anything")
	flag.Parse()

	workspaceID := os.Getenv("WORKSPACE_ID")
	if workspaceID == "" {
		log.Fatal("WORKSPACE_ID environment variable is required")
	}

	app := fx.New(
		fx.NopLogger,
		fx.Provide(
			config.NewConfig,
			logger.NewLogger,
			clock.New,
			postgres.NewDB,
			postgres.NewClient,
			repository.NewDocumentRepository,
			newServiceParams,
			service.NewNumberingService,
			service.NewRepairService,
		),
		fx.Invoke(func(svc service.RepairService, logger *logger.Logger) error {
			return runRepair(svc, logger, workspaceID, *dryRun)
		}),
	)
	if err := app.Err(); err != nil {
		log.Fatalf("Repair failed: %v", err)
	}
}

func runRepair(svc service.RepairService, logger *logger.Logger, workspaceID string, dryRun bool) error {
	ctx := types.SetWorkspaceID(context.Background(), workspaceID)
	ctx = types.SetUserID(ctx, types.DefaultUserID)
	ctx = types.SetRequestID(ctx, types.GenerateShortID())

	if dryRun {
		logger.Infow("dry run, no changes will be made", "workspace_id", workspaceID)
	}

	report, err := svc.RepairDuplicateNumbers(ctx, workspaceID, dryRun)
	if err != nil {
		return err
	}

	logger.Infow("repair finished",
		"workspace_id", workspaceID,
		"groups_found", report.GroupsFound,
		"relocated", len(report.Relocated),
		"skipped_final", len(report.SkippedFinal),
		"dry_run", report.DryRun)

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	os.Stdout.Write(out)
	os.Stdout.Write([]byte("\n"))
	return nil
}
