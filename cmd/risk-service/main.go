package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cardia-ai/platform/pkg/common/config"
	"github.com/cardia-ai/platform/pkg/common/database"
	"github.com/cardia-ai/platform/pkg/common/kafka"
	"github.com/cardia-ai/platform/pkg/common/logger"
	"github.com/cardia-ai/platform/pkg/features"
	"github.com/cardia-ai/platform/pkg/risk"
	"github.com/gorilla/mux"
)

func main() {
	logger.Init("risk-service")
	cfg := config.Load()

	stats, err := features.LoadStats(cfg.ReferenceCSVPath, cfg.OutcomeColumn)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load reference dataset")
	}
	logger.Log.WithField("features", len(stats.Schema)).Info("Reference dataset loaded")

	rules, err := features.LoadRules(cfg.MappingRulesPath)
	if err != nil {
		if len(rules.Rules) == 0 {
			logger.Log.WithError(err).Fatal("Failed to load mapping rules")
		}
		logger.Log.WithError(err).Warn("Falling back to default mapping rules")
	}

	classifier, modelSource, err := risk.ResolveClassifier(cfg.ClassifierArtifact, "diabetes", stats)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to resolve classifier")
	}
	logger.Log.WithField("model_source", modelSource).Info("Classifier ready")

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.ClosePostgres()

	repo := risk.NewRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate risk tables")
	}

	producer := kafka.NewProducer(cfg.PredictionsTopic)
	defer producer.Close()

	service := risk.NewService(repo, stats, rules, classifier, modelSource, repo, producer, cfg.DefaultHorizon)
	handler := risk.NewHTTPHandler(service, cfg.MaxRequestBody)

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	consumer := kafka.NewConsumer(cfg.ObservationsTopic, "")
	go func() {
		if err := consumer.Consume(consumerCtx, risk.NewObservationHandler(repo)); err != nil && consumerCtx.Err() == nil {
			logger.Log.WithError(err).Error("Observation consumer stopped")
		}
	}()

	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheck).Methods("GET")
	handler.Register(router)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Risk Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Risk Service...")
	stopConsumer()
	consumer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Risk Service stopped")
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok","service":"risk-service"}`))
}
