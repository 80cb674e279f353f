// Package handle serves the fetal-health prediction API.
package handle

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"fetal-health/api/internal/fetal"
	"fetal-health/api/internal/httpserver"
)

// Predictor is the loaded model as seen by the handlers.
type Predictor interface {
	Predict(in fetal.PredictionInput) (fetal.PredictionOutput, error)
	Info() fetal.ModelInfo
}

type Handle struct {
	pred Predictor
	log  *zap.Logger
}

func New(pred Predictor, log *zap.Logger) *Handle {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handle{
		pred: pred,
		log:  log,
	}
}

// errorBody is the shape of every non-2xx response.
type errorBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, errorBody{Detail: detail})
}

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	return false
}

// Routes registers the API on a fresh mux and wraps it with the shared
// middleware.
func (h *Handle) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", h.Root)
	mux.HandleFunc("/predict", h.Predict)
	mux.HandleFunc("/info", h.Info)
	mux.HandleFunc("/healthz", httpserver.Health(nil))
	return withCORS(h.withRecover(h.withLogging(mux)))
}
