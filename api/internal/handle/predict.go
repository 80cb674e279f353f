package handle

import (
	"net/http"

	"go.uber.org/zap"

	"fetal-health/api/internal/fetal"
)

const (
	welcomeMessage = "Welcome to the Fetal Health Prediction API. Visit /info for model details."
	maxBodyBytes   = 1 << 20
)

// Root is the welcome endpoint.
func (h *Handle) Root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeDetail(w, http.StatusNotFound, "Not Found")
		return
	}
	if !allow(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": welcomeMessage})
}

// Predict validates the 19-feature body and returns the labelled class.
// Schema problems are rejected with 422 before the model is touched; any
// model failure becomes a 500 carrying the error text.
func (h *Handle) Predict(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}

	in, err := fetal.DecodeInput(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	out, err := h.pred.Predict(in)
	if err != nil {
		h.log.Error("prediction failed", zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.log.Debug("prediction",
		zap.Int("prediction", out.Prediction),
		zap.String("label", out.PredictionLabel),
		zap.Float64("confidence", out.Confidence))
	writeJSON(w, http.StatusOK, out)
}

// Info reports the model type, feature order and class labels.
func (h *Handle) Info(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, h.pred.Info())
}
