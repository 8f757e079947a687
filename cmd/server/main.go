package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/wellcast/internal/config"
	"github.com/mamadbah2/wellcast/internal/decline"
	"github.com/mamadbah2/wellcast/internal/repository/mongodb"
	"github.com/mamadbah2/wellcast/internal/repository/sheets"
	"github.com/mamadbah2/wellcast/internal/scheduler"
	"github.com/mamadbah2/wellcast/internal/server/handlers"
	"github.com/mamadbah2/wellcast/internal/server/router"
	analysissvc "github.com/mamadbah2/wellcast/internal/service/analysis"
	financialssvc "github.com/mamadbah2/wellcast/internal/service/financials"
	ingestsvc "github.com/mamadbah2/wellcast/internal/service/ingest"
	"github.com/mamadbah2/wellcast/internal/tabular"
	"github.com/mamadbah2/wellcast/pkg/clients/marketdata"
	"github.com/mamadbah2/wellcast/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	sheetsRepo, err := sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
	if err != nil {
		baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
	}
	store := sheets.NewStore(sheetsRepo, cfg.Sheets.Ranges, baseLogger.Named("repo.sheets.store"))

	mongoRepo, err := mongodb.NewMongoDBRepository(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.DBName)
	if err != nil {
		baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
	}
	defer func() {
		if err := mongoRepo.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()

	engine := tabular.NewEngine(baseLogger.Named("engine.tabular"))
	fitter := decline.NewFitter(cfg.Analysis.MaxIterations, baseLogger.Named("engine.decline"))

	analysisSvc := analysissvc.NewService(analysissvc.Repositories{
		Wells:         store,
		Production:    store,
		AllProduction: store,
		Prices:        store,
		ExchangeRates: store,
	}, fitter, engine, baseLogger.Named("svc.analysis"))
	financialsSvc := financialssvc.NewService(store, mongoRepo, engine, baseLogger.Named("svc.financials"))

	marketClient := marketdata.NewClient(cfg.MarketData)
	ingestSvc := ingestsvc.NewService(marketClient, store, baseLogger.Named("svc.ingest"))

	analysisHandler := handlers.NewAnalysisHandler(analysisSvc, cfg.Analysis, baseLogger.Named("handlers.analysis"))
	financialsHandler := handlers.NewFinancialsHandler(financialsSvc, baseLogger.Named("handlers.financials"))
	httpEngine := router.New(analysisHandler, financialsHandler, baseLogger.Named("router"))

	sched, err := scheduler.NewScheduler(cfg.Schedule, ingestSvc, financialsSvc, baseLogger.Named("scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      httpEngine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
