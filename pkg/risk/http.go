package risk

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cardia-ai/platform/pkg/common/logger"
	"github.com/cardia-ai/platform/pkg/common/models"
	"github.com/cardia-ai/platform/pkg/features"
	"github.com/gorilla/mux"
)

type HTTPHandler struct {
	service *Service
	maxBody int64
}

func NewHTTPHandler(service *Service, maxBody int64) *HTTPHandler {
	return &HTTPHandler{service: service, maxBody: maxBody}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/predict-risk", h.handlePredict).Methods(http.MethodPost)
}

func (h *HTTPHandler) handlePredict(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	var req models.RiskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Log.WithError(err).Warn("invalid risk payload")
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.service.Predict(r.Context(), req)
	if err != nil {
		switch {
		case IsValidationError(err):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrPatientNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case features.IsSchemaError(err):
			logger.Log.WithError(err).Error("reference schema error")
			writeError(w, http.StatusInternalServerError, err.Error())
		default:
			logger.Log.WithError(err).Error("risk prediction failed")
			writeError(w, http.StatusInternalServerError, "prediction failed: "+err.Error())
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
