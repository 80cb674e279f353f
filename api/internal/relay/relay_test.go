package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fetal-health/api/internal/fetal"
)

const sampleCSV = "120,0.002,0.0,0.006,0.003,0.0,0.0,73,0.5,43,2.4,64,62,126,2,0,136,641,1"

func TestPredictSendsNamedFields(t *testing.T) {
	var got map[string]float64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(fetal.PredictionOutput{Prediction: 1, PredictionLabel: "Normal", Confidence: 0.9})
	}))
	defer srv.Close()

	in, err := fetal.ParseCSV(sampleCSV)
	require.NoError(t, err)

	out, err := New(srv.URL, 0).Predict(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "Normal", out.PredictionLabel)

	require.Len(t, got, fetal.NumFeatures)
	assert.Equal(t, 120.0, got["baseline_value"])
	assert.Equal(t, 641.0, got["histogram_variance"])
}

func TestPredictNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"boom"}`))
	}))
	defer srv.Close()

	in, _ := fetal.ParseCSV(sampleCSV)
	_, err := New(srv.URL, 0).Predict(context.Background(), in)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Code)
	assert.Equal(t, "API error: 500", err.Error())
}

func TestPredictNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	in, _ := fetal.ParseCSV(sampleCSV)
	_, err := New(url, 0).Predict(context.Background(), in)
	require.Error(t, err)
	var se *StatusError
	assert.NotErrorAs(t, err, &se)
}

func TestFormatResult(t *testing.T) {
	cases := []struct {
		out  fetal.PredictionOutput
		want string
	}{
		{fetal.PredictionOutput{Prediction: 1, PredictionLabel: "Normal", Confidence: 0.98765}, "✅ **Normal**\n🎯 Confianza: 98.8%"},
		{fetal.PredictionOutput{Prediction: 2, PredictionLabel: "Suspect", Confidence: 0.5}, "⚠️ **Suspect**\n🎯 Confianza: 50.0%"},
		{fetal.PredictionOutput{Prediction: 3, PredictionLabel: "Pathological", Confidence: 1}, "🚨 **Pathological**\n🎯 Confianza: 100.0%"},
		{fetal.PredictionOutput{Prediction: 9, PredictionLabel: "Unknown", Confidence: 0.123}, "🤖 **Unknown**\n🎯 Confianza: 12.3%"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatResult(tc.out))
	}
}
