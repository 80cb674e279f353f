// Package fetal holds the fetal-health schema shared by the prediction
// service and the chat relay: the 19 cardiotocography features in the order
// the scaler and classifier were fitted on, the class labels, and the
// request/response records.
package fetal

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// NumFeatures is the length of every feature vector.
const NumFeatures = 19

// FeatureNames is the canonical feature order. PredictionInput fields are
// declared in the same order and Vector flattens them positionally.
var FeatureNames = []string{
	"baseline_value", "accelerations", "fetal_movement", "uterine_contractions",
	"light_decelerations", "severe_decelerations", "prolongued_decelerations",
	"abnormal_short_term_variability", "mean_value_of_short_term_variability",
	"percentage_of_time_with_abnormal_long_term_variability", "mean_value_of_long_term_variability",
	"histogram_width", "histogram_min", "histogram_max", "histogram_number_of_peaks",
	"histogram_number_of_zeroes", "histogram_mean", "histogram_variance", "histogram_tendency",
}

// PredictionInput is the body of POST /predict. Fields are pointers so a
// missing field is distinguishable from an explicit zero.
type PredictionInput struct {
	BaselineValue                                   *float64 `json:"baseline_value" validate:"required"`
	Accelerations                                   *float64 `json:"accelerations" validate:"required"`
	FetalMovement                                   *float64 `json:"fetal_movement" validate:"required"`
	UterineContractions                             *float64 `json:"uterine_contractions" validate:"required"`
	LightDecelerations                              *float64 `json:"light_decelerations" validate:"required"`
	SevereDecelerations                             *float64 `json:"severe_decelerations" validate:"required"`
	ProlonguedDecelerations                         *float64 `json:"prolongued_decelerations" validate:"required"`
	AbnormalShortTermVariability                    *float64 `json:"abnormal_short_term_variability" validate:"required"`
	MeanValueOfShortTermVariability                 *float64 `json:"mean_value_of_short_term_variability" validate:"required"`
	PercentageOfTimeWithAbnormalLongTermVariability *float64 `json:"percentage_of_time_with_abnormal_long_term_variability" validate:"required"`
	MeanValueOfLongTermVariability                  *float64 `json:"mean_value_of_long_term_variability" validate:"required"`
	HistogramWidth                                  *float64 `json:"histogram_width" validate:"required"`
	HistogramMin                                    *float64 `json:"histogram_min" validate:"required"`
	HistogramMax                                    *float64 `json:"histogram_max" validate:"required"`
	HistogramNumberOfPeaks                          *float64 `json:"histogram_number_of_peaks" validate:"required"`
	HistogramNumberOfZeroes                         *float64 `json:"histogram_number_of_zeroes" validate:"required"`
	HistogramMean                                   *float64 `json:"histogram_mean" validate:"required"`
	HistogramVariance                               *float64 `json:"histogram_variance" validate:"required"`
	HistogramTendency                               *float64 `json:"histogram_tendency" validate:"required"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			return name
		})
	})
	return validate
}

// Validate reports every missing field by its JSON name.
func (in *PredictionInput) Validate() error {
	err := getValidator().Struct(in)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, fe.Field())
	}
	return fmt.Errorf("field required: %s", strings.Join(missing, ", "))
}

// Vector flattens the input in FeatureNames order. Missing fields become NaN;
// call Validate first.
func (in PredictionInput) Vector() []float64 {
	rv := reflect.ValueOf(in)
	out := make([]float64, rv.NumField())
	for i := range out {
		p := rv.Field(i).Interface().(*float64)
		if p == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *p
	}
	return out
}

// FromValues builds an input from positional values in FeatureNames order.
func FromValues(vals []float64) (PredictionInput, error) {
	var in PredictionInput
	if len(vals) != NumFeatures {
		return in, &CountError{Got: len(vals)}
	}
	rv := reflect.ValueOf(&in).Elem()
	for i, v := range vals {
		rv.Field(i).Set(reflect.ValueOf(&v))
	}
	return in, nil
}

// Class labels keyed by the 1-based class id. The classifier emits 0-based
// indices in the order Normal, Suspect, Pathological.
var Labels = map[int]string{
	1: "Normal",
	2: "Suspect",
	3: "Pathological",
}

// LabelFor returns the label of a 1-based class id, "Unknown" when unmapped.
func LabelFor(id int) string {
	if l, ok := Labels[id]; ok {
		return l
	}
	return "Unknown"
}

type PredictionOutput struct {
	Prediction      int     `json:"prediction"`
	PredictionLabel string  `json:"prediction_label"`
	Confidence      float64 `json:"confidence"`
}

type ModelDescriptor struct {
	Type    string `json:"type"`
	Version string `json:"version"`
}

type ModelInfo struct {
	MLModel       ModelDescriptor `json:"ml_model"`
	Features      []string        `json:"features"`
	TargetClasses map[int]string  `json:"target_classes"`
}

// NewModelInfo builds the static /info record. The slices and maps are
// copies, so callers cannot mutate the package tables through it.
func NewModelInfo(modelType, version string) ModelInfo {
	features := make([]string, len(FeatureNames))
	copy(features, FeatureNames)
	classes := make(map[int]string, len(Labels))
	for k, v := range Labels {
		classes[k] = v
	}
	return ModelInfo{
		MLModel:       ModelDescriptor{Type: modelType, Version: version},
		Features:      features,
		TargetClasses: classes,
	}
}
