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
	"github.com/cardia-ai/platform/pkg/common/logger"
	"github.com/cardia-ai/platform/pkg/forecast"
	"github.com/cardia-ai/platform/pkg/storage"
	"github.com/gorilla/mux"
)

func main() {
	logger.Init("forecast-service")
	cfg := config.Load()

	engine, err := forecast.LoadEngine(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load forecasting engine")
	}
	logger.Log.WithField("model", engine.Name()).Info("Forecasting engine ready")

	redisClient := database.GetRedis()
	defer database.CloseRedis()
	results := storage.NewResultStore(redisClient, cfg.ResultCacheTTL)

	service := forecast.NewService(engine, results, cfg)
	handler := forecast.NewHTTPHandler(service, results, cfg.MaxRequestBody)

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
		}).Info("Forecast Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Forecast Service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Forecast Service stopped")
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok","service":"forecast-service"}`))
}
