package forecast

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cardia-ai/platform/pkg/common/logger"
	"github.com/cardia-ai/platform/pkg/common/models"
	"github.com/cardia-ai/platform/pkg/storage"
	"github.com/gorilla/mux"
)

type HTTPHandler struct {
	service *Service
	results *storage.ResultStore
	maxBody int64
}

func NewHTTPHandler(service *Service, results *storage.ResultStore, maxBody int64) *HTTPHandler {
	return &HTTPHandler{service: service, results: results, maxBody: maxBody}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/predict-heart-rate", h.handlePredict).Methods(http.MethodPost)
	router.HandleFunc("/predict-heart-rate/latest/{patientId}", h.handleLatest).Methods(http.MethodGet)
}

func (h *HTTPHandler) handlePredict(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	var req models.ForecastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Log.WithError(err).Warn("invalid forecast payload")
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.service.Predict(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *HTTPHandler) handleLatest(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["patientId"]

	resp, err := h.results.LatestForecast(r.Context(), patientID)
	if err != nil {
		if errors.Is(err, storage.ErrNoResult) {
			writeError(w, http.StatusNotFound, "no recent forecast for patient")
			return
		}
		logger.Log.WithError(err).Error("failed to read cached forecast")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *HTTPHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case IsValidationError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrEngineUnavailable):
		logger.Log.WithError(err).Error("forecasting engine unavailable")
		writeError(w, http.StatusServiceUnavailable, "forecasting engine unavailable")
	default:
		var nonFinite *NonFiniteForecastError
		if errors.As(err, &nonFinite) {
			logger.Log.WithError(err).Error("all forecast configurations failed")
			writeError(w, http.StatusInternalServerError, "prediction failed: "+nonFinite.LastFailure)
			return
		}
		logger.Log.WithError(err).Error("forecast failed")
		writeError(w, http.StatusInternalServerError, "prediction failed: "+err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
