package fetal

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = "120,0.002,0.0,0.006,0.003,0.0,0.0,73,0.5,43,2.4,64,62,126,2,0,136,641,1"

func TestFieldOrderMatchesFeatureNames(t *testing.T) {
	rt := reflect.TypeOf(PredictionInput{})
	require.Equal(t, NumFeatures, rt.NumField())
	require.Len(t, FeatureNames, NumFeatures)
	for i := 0; i < rt.NumField(); i++ {
		name, _, _ := strings.Cut(rt.Field(i).Tag.Get("json"), ",")
		assert.Equal(t, FeatureNames[i], name, "field %d", i)
	}
}

func TestVectorPreservesOrder(t *testing.T) {
	vals := make([]float64, NumFeatures)
	for i := range vals {
		vals[i] = float64(i) + 0.5
	}
	in, err := FromValues(vals)
	require.NoError(t, err)
	assert.Equal(t, vals, in.Vector())

	parsed := func() PredictionInput {
		in, err := ParseCSV("1,2,3,4,5,6,7,8,9,10,11,12,13,14,15,16,17,18,19")
		require.NoError(t, err)
		return in
	}
	assert.Equal(t, 19.0, parsed().Vector()[18], "callable on a returned value")
}

func TestFromValuesWrongCount(t *testing.T) {
	_, err := FromValues([]float64{1, 2, 3})
	var ce *CountError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 3, ce.Got)
}

func TestValidate(t *testing.T) {
	t.Run("complete input with zeros passes", func(t *testing.T) {
		in, err := FromValues(make([]float64, NumFeatures))
		require.NoError(t, err)
		assert.NoError(t, in.Validate())
	})

	t.Run("missing fields are named", func(t *testing.T) {
		body := `{"baseline_value": 120, "accelerations": 0.0}`
		var in PredictionInput
		require.NoError(t, json.Unmarshal([]byte(body), &in))

		err := in.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "fetal_movement")
		assert.Contains(t, err.Error(), "histogram_tendency")
		assert.NotContains(t, err.Error(), "baseline_value")
		assert.NotContains(t, err.Error(), "accelerations,")
	})

	t.Run("vector of incomplete input carries NaN", func(t *testing.T) {
		var in PredictionInput
		v := in.Vector()
		require.Len(t, v, NumFeatures)
		assert.True(t, math.IsNaN(v[0]))
	})
}

func TestLabelFor(t *testing.T) {
	assert.Equal(t, "Normal", LabelFor(1))
	assert.Equal(t, "Suspect", LabelFor(2))
	assert.Equal(t, "Pathological", LabelFor(3))
	assert.Equal(t, "Unknown", LabelFor(0))
	assert.Equal(t, "Unknown", LabelFor(4))
}

func TestModelInfoJSON(t *testing.T) {
	info := NewModelInfo("XGBoost Classifier", "2.0.3")
	b, err := json.Marshal(info)
	require.NoError(t, err)

	var got struct {
		MLModel       map[string]string `json:"ml_model"`
		Features      []string          `json:"features"`
		TargetClasses map[string]string `json:"target_classes"`
	}
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "XGBoost Classifier", got.MLModel["type"])
	assert.Equal(t, "2.0.3", got.MLModel["version"])
	assert.Equal(t, FeatureNames, got.Features)
	assert.Equal(t, map[string]string{"1": "Normal", "2": "Suspect", "3": "Pathological"}, got.TargetClasses)

	info.Features[0] = "changed"
	assert.Equal(t, "baseline_value", FeatureNames[0])
}

func TestParseCSV(t *testing.T) {
	t.Run("valid sample", func(t *testing.T) {
		in, err := ParseCSV(sampleCSV)
		require.NoError(t, err)
		v := in.Vector()
		assert.Equal(t, 120.0, v[0])
		assert.Equal(t, 641.0, v[17])
		assert.Equal(t, 1.0, v[18])
	})

	t.Run("surrounding whitespace is ignored", func(t *testing.T) {
		_, err := ParseCSV("  " + strings.ReplaceAll(sampleCSV, ",", " , ") + "\n")
		assert.NoError(t, err)
	})

	cases := []struct {
		name  string
		text  string
		count int
	}{
		{"too few", "1,2,3", 3},
		{"too many", sampleCSV + ",5", 20},
		{"empty", "", 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseCSV(tc.text)
			var ce *CountError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tc.count, ce.Got)
		})
	}

	t.Run("non numeric token", func(t *testing.T) {
		_, err := ParseCSV(strings.Replace(sampleCSV, "73", "abc", 1))
		var ne *NumberError
		require.ErrorAs(t, err, &ne)
		assert.Equal(t, "abc", ne.Token)
	})

	t.Run("empty token", func(t *testing.T) {
		_, err := ParseCSV(strings.Replace(sampleCSV, "73", "", 1))
		var ne *NumberError
		assert.True(t, errors.As(err, &ne))
	})

	t.Run("nan is rejected", func(t *testing.T) {
		_, err := ParseCSV(strings.Replace(sampleCSV, "73", "NaN", 1))
		var ne *NumberError
		assert.True(t, errors.As(err, &ne))
	})
}
