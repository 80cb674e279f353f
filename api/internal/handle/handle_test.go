package handle

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fetal-health/api/internal/fetal"
	"fetal-health/api/internal/model"
)

const sampleCSV = "120,0.002,0.0,0.006,0.003,0.0,0.0,73,0.5,43,2.4,64,62,126,2,0,136,641,1"

type fakePredictor struct {
	out   fetal.PredictionOutput
	err   error
	panic bool
	calls int
}

func (f *fakePredictor) Predict(fetal.PredictionInput) (fetal.PredictionOutput, error) {
	f.calls++
	if f.panic {
		panic("scaler exploded")
	}
	return f.out, f.err
}

func (f *fakePredictor) Info() fetal.ModelInfo {
	return fetal.NewModelInfo("fake", "0")
}

func sampleBody(t *testing.T) string {
	t.Helper()
	in, err := fetal.ParseCSV(sampleCSV)
	require.NoError(t, err)
	b, err := json.Marshal(in)
	require.NoError(t, err)
	return string(b)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func detailOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Detail
}

func TestRoot(t *testing.T) {
	h := New(&fakePredictor{}, nil).Routes()

	rec := do(t, h, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["message"])

	rec = do(t, h, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthz(t *testing.T) {
	rec := do(t, New(&fakePredictor{}, nil).Routes(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestPredictSchemaErrors(t *testing.T) {
	fp := &fakePredictor{}
	h := New(fp, nil).Routes()

	cases := map[string]string{
		"not json":       "{",
		"not an object":  "[1,2,3]",
		"missing fields": `{"baseline_value": 120}`,
		"wrong type":     strings.Replace(sampleBody(t), `"baseline_value":120`, `"baseline_value":"high"`, 1),
		"null field":     strings.Replace(sampleBody(t), `"baseline_value":120`, `"baseline_value":null`, 1),
		"trailing data":  sampleBody(t) + "garbage",
		"second object":  sampleBody(t) + "{}",
		"folded key":     strings.Replace(sampleBody(t), `"baseline_value"`, `"BASELINE_VALUE"`, 1),
		"infinite":       strings.Replace(sampleBody(t), `"baseline_value":120`, `"baseline_value":"inf"`, 1),
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/predict", body)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.NotEmpty(t, detailOf(t, rec))
		})
	}
	assert.Zero(t, fp.calls, "schema errors must not reach the predictor")
}

func TestPredictLaxNumbers(t *testing.T) {
	h := New(loadPredictor(t, "scaler_min_max.json"), nil).Routes()
	want := do(t, h, http.MethodPost, "/predict", sampleBody(t))
	require.Equal(t, http.StatusOK, want.Code)

	cases := map[string]string{
		"numeric string":   strings.Replace(sampleBody(t), `"baseline_value":120`, `"baseline_value":"120"`, 1),
		"padded string":    strings.Replace(sampleBody(t), `"histogram_variance":641`, `"histogram_variance":" 641.0 "`, 1),
		"trailing newline": sampleBody(t) + "\n",
		"unknown key":      strings.Replace(sampleBody(t), "{", `{"patient":"x",`, 1),
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/predict", body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.JSONEq(t, want.Body.String(), rec.Body.String())
		})
	}
}

func TestPredictFoldedKeyIsMissing(t *testing.T) {
	body := strings.Replace(sampleBody(t), `"baseline_value"`, `"Baseline_Value"`, 1)
	rec := do(t, New(&fakePredictor{}, nil).Routes(), http.MethodPost, "/predict", body)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "field required: baseline_value", detailOf(t, rec))
}

func TestPredictMethod(t *testing.T) {
	rec := do(t, New(&fakePredictor{}, nil).Routes(), http.MethodGet, "/predict", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
}

func TestPredictInternalError(t *testing.T) {
	fp := &fakePredictor{err: errors.New("scale features: X has 19 features")}
	rec := do(t, New(fp, nil).Routes(), http.MethodPost, "/predict", sampleBody(t))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "scale features: X has 19 features", detailOf(t, rec))
}

func TestPredictPanicIsCaught(t *testing.T) {
	rec := do(t, New(&fakePredictor{panic: true}, nil).Routes(), http.MethodPost, "/predict", sampleBody(t))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, detailOf(t, rec), "scaler exploded")
}

func loadPredictor(t *testing.T, scaler string) *model.Predictor {
	t.Helper()
	dir := filepath.Join("..", "model", "testdata")
	p, err := model.Load(filepath.Join(dir, scaler), filepath.Join(dir, "model_xgb.json"))
	require.NoError(t, err)
	return p
}

func TestPredictWithArtifacts(t *testing.T) {
	h := New(loadPredictor(t, "scaler_min_max.json"), nil).Routes()

	rec := do(t, h, http.MethodPost, "/predict", sampleBody(t))
	require.Equal(t, http.StatusOK, rec.Code)

	var out fetal.PredictionOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Contains(t, []int{1, 2, 3}, out.Prediction)
	assert.Equal(t, fetal.LabelFor(out.Prediction), out.PredictionLabel)
	assert.GreaterOrEqual(t, out.Confidence, 0.0)
	assert.LessOrEqual(t, out.Confidence, 1.0)

	again := do(t, h, http.MethodPost, "/predict", sampleBody(t))
	assert.Equal(t, rec.Body.String(), again.Body.String())
}

func TestPredictShapeMismatch(t *testing.T) {
	h := New(loadPredictor(t, "scaler_18.json"), nil).Routes()

	rec := do(t, h, http.MethodPost, "/predict", sampleBody(t))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, detailOf(t, rec))
}

func TestInfo(t *testing.T) {
	h := New(loadPredictor(t, "scaler_min_max.json"), nil).Routes()

	rec := do(t, h, http.MethodGet, "/info", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var info struct {
		MLModel       map[string]string `json:"ml_model"`
		Features      []string          `json:"features"`
		TargetClasses map[string]string `json:"target_classes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, model.ModelType, info.MLModel["type"])
	require.Len(t, info.Features, fetal.NumFeatures)
	assert.Equal(t, fetal.FeatureNames, info.Features)
	assert.Equal(t, "Pathological", info.TargetClasses["3"])

	var in fetal.PredictionInput
	require.NoError(t, json.Unmarshal([]byte(sampleBody(t)), &in))
	raw := map[string]float64{}
	require.NoError(t, json.Unmarshal([]byte(sampleBody(t)), &raw))
	vec := in.Vector()
	for i, name := range info.Features {
		assert.Equal(t, raw[name], vec[i], "feature %s", name)
	}
}

func TestCORSHeaders(t *testing.T) {
	h := New(&fakePredictor{}, nil).Routes()
	req := httptest.NewRequest(http.MethodGet, "/info", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
