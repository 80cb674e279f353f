package fetal

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleJSON(t *testing.T) string {
	t.Helper()
	in, err := ParseCSV(sampleCSV)
	require.NoError(t, err)
	b, err := json.Marshal(in)
	require.NoError(t, err)
	return string(b)
}

func TestUnmarshalLaxNumbers(t *testing.T) {
	var in PredictionInput
	body := `{"baseline_value":"120","accelerations":" 2.5e-3 ","fetal_movement":0,"unknown":true}`
	require.NoError(t, json.Unmarshal([]byte(body), &in))

	require.NotNil(t, in.BaselineValue)
	assert.Equal(t, 120.0, *in.BaselineValue)
	assert.Equal(t, 0.0025, *in.Accelerations)
	assert.Equal(t, 0.0, *in.FetalMovement)
	assert.Nil(t, in.HistogramTendency)
}

func TestUnmarshalRejects(t *testing.T) {
	cases := map[string]string{
		"word":      `{"baseline_value":"high"}`,
		"bool":      `{"baseline_value":true}`,
		"object":    `{"baseline_value":{}}`,
		"nan":       `{"baseline_value":"NaN"}`,
		"not a map": `[1,2,3]`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			var in PredictionInput
			assert.Error(t, json.Unmarshal([]byte(body), &in))
		})
	}
}

func TestUnmarshalKeysAreExact(t *testing.T) {
	var in PredictionInput
	require.NoError(t, json.Unmarshal([]byte(`{"BASELINE_VALUE":120,"baseline_value":null}`), &in))
	assert.Nil(t, in.BaselineValue)
}

func TestDecodeInput(t *testing.T) {
	in, err := DecodeInput(strings.NewReader(sampleJSON(t) + "\n"))
	require.NoError(t, err)
	assert.Equal(t, 120.0, *in.BaselineValue)

	_, err = DecodeInput(strings.NewReader(sampleJSON(t) + "garbage"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad json")

	_, err = DecodeInput(strings.NewReader(sampleJSON(t) + `{}`))
	assert.Error(t, err)

	_, err = DecodeInput(strings.NewReader(`{"baseline_value":1}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field required: accelerations")
}
