package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/omnicamp/eventcore/config"
	natsinfra "github.com/omnicamp/eventcore/infra/nats"
	"github.com/omnicamp/eventcore/infra/postgres"
	"github.com/omnicamp/eventcore/projection"
	"github.com/omnicamp/eventcore/sample/command"
	domainRepository "github.com/omnicamp/eventcore/sample/domain/repository"
	campaignProjection "github.com/omnicamp/eventcore/sample/query/projection"
	"github.com/omnicamp/eventcore/sample/query/query"
	viewRepository "github.com/omnicamp/eventcore/sample/query/repository"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Create a context that we can cancel on shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// --- Composition root: everything is built once and passed by reference ---

	db, err := postgres.NewDB(ctx, cfg.DatabaseDSN)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("Database connection established")

	eventStore := postgres.NewEventStore(db)
	if err := eventStore.Initialize(ctx); err != nil {
		slog.Error("Failed to initialize event store", "error", err)
		os.Exit(1)
	}
	checkpoints := postgres.NewCheckpointStore(db)
	if err := checkpoints.Initialize(ctx); err != nil {
		slog.Error("Failed to initialize checkpoint store", "error", err)
		os.Exit(1)
	}
	campaignViews := viewRepository.NewCampaignViewRepository(db)
	if err := campaignViews.Initialize(ctx); err != nil {
		slog.Error("Failed to initialize campaign views", "error", err)
		os.Exit(1)
	}

	campaignRepo := domainRepository.NewCampaignRepository(eventStore)

	manager := projection.NewManager(eventStore, checkpoints, db,
		projection.WithPollInterval(cfg.ProjectionPollInterval),
		projection.WithBatchSize(cfg.ProjectionBatchSize),
		projection.WithMaxRetries(cfg.ProjectionMaxRetries),
		projection.WithMaxElapsedTime(cfg.ProjectionMaxElapsedTime),
	)

	if err := manager.Register(campaignProjection.NewCampaignProjection(campaignViews)); err != nil {
		slog.Error("Failed to register campaign projection", "error", err)
		os.Exit(1)
	}

	// The NATS publisher is optional: without a broker the core still works,
	// read models are just not forwarded to the rest of the platform.
	if cfg.NATSURL != "" {
		publisher, err := natsinfra.NewPublisher(cfg.NATSURL, cfg.NATSStream)
		if err != nil {
			slog.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		if err := manager.Register(publisher); err != nil {
			slog.Error("Failed to register event publisher", "error", err)
			os.Exit(1)
		}
		slog.Info("NATS connection established")
	}

	manager.Start(ctx)
	defer manager.Stop()

	// --- Application Handlers ---

	createCampaignHandler := command.NewCreateCampaignHandler(campaignRepo)
	renameCampaignHandler := command.NewRenameCampaignHandler(campaignRepo)
	getCampaignByIDHandler := query.NewGetCampaignByIDHandler(campaignViews)

	// --- Simulate Work (full command/query loop) ---
	go func() {
		campaignID := uuid.New()

		slog.Info("--> 1. Creating campaign...", "campaignID", campaignID)
		createCmd := command.CreateCampaignCommand{
			ID:     campaignID,
			Name:   "Spring",
			Budget: 25000,
		}
		if err := createCampaignHandler.Handle(ctx, createCmd); err != nil {
			slog.Error("Failed to handle CreateCampaignCommand", "error", err)
			return
		}

		slog.Info("... Waiting for the projection to catch up ...")
		time.Sleep(2 * cfg.ProjectionPollInterval)

		slog.Info("--> 2. Renaming campaign...", "campaignID", campaignID)
		renameCmd := command.RenameCampaignCommand{ID: campaignID, Name: "Spring Sale"}
		if err := renameCampaignHandler.Handle(ctx, renameCmd); err != nil {
			slog.Error("Failed to handle RenameCampaignCommand", "error", err)
			return
		}

		time.Sleep(2 * cfg.ProjectionPollInterval)

		slog.Info("--> 3. Querying the read model...", "campaignID", campaignID)
		campaignView, err := getCampaignByIDHandler.Query(ctx, query.GetCampaignByID{ID: campaignID})
		if err != nil {
			slog.Error("Failed to handle GetCampaignByID", "error", err)
			return
		}
		slog.Info("<-- Query handled successfully.",
			"name", campaignView.Name,
			"budget", campaignView.Budget,
			"status", campaignView.Status)
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("Shutdown signal received. Exiting.")
}
