// Package model loads the fitted scaler and classifier artifacts and runs
// the fetal-health prediction on them.
package model

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"fetal-health/api/internal/fetal"
)

// ModelType is reported by /info.
const ModelType = "XGBoost Classifier"

// Predictor holds the artifacts loaded at startup. It is read-only after
// construction and safe for concurrent use.
type Predictor struct {
	scaler *Scaler
	clf    *Classifier
	info   fetal.ModelInfo
}

// Load reads both artifacts. Any error here is fatal to the service.
func Load(scalerPath, modelPath string) (*Predictor, error) {
	s, err := LoadScaler(scalerPath)
	if err != nil {
		return nil, err
	}
	c, err := LoadClassifier(modelPath)
	if err != nil {
		return nil, err
	}
	return New(s, c), nil
}

func New(s *Scaler, c *Classifier) *Predictor {
	return &Predictor{
		scaler: s,
		clf:    c,
		info:   fetal.NewModelInfo(ModelType, c.Version()),
	}
}

// Check reports a mismatch between the artifacts and the 19-feature schema:
// feature counts, class count, and the feature order recorded at fit time
// when the artifacts carry one. A mismatched pair still loads; a count
// mismatch makes every prediction fail instead.
func (p *Predictor) Check() error {
	if n := p.scaler.NumFeatures(); n != fetal.NumFeatures {
		return errors.Errorf("scaler expects %d features, schema has %d", n, fetal.NumFeatures)
	}
	if n := p.clf.NumFeatures(); n != fetal.NumFeatures {
		return errors.Errorf("classifier expects %d features, schema has %d", n, fetal.NumFeatures)
	}
	if n := p.clf.NumClass(); n != len(fetal.Labels) {
		return errors.Errorf("classifier has %d classes, %d labels are defined", n, len(fetal.Labels))
	}
	if err := checkOrder("scaler feature_names_in_", p.scaler.FeatureNames()); err != nil {
		return err
	}
	return checkOrder("classifier feature_names", p.clf.FeatureNames())
}

// checkOrder compares names recorded by an artifact with the schema order.
// Artifacts fitted on bare arrays record no names and always pass.
func checkOrder(what string, names []string) error {
	if len(names) == 0 {
		return nil
	}
	for i, name := range names {
		if i >= len(fetal.FeatureNames) || name != fetal.FeatureNames[i] {
			return errors.Errorf("%s: position %d is %q, schema expects %q", what, i, name, featureAt(i))
		}
	}
	return nil
}

func featureAt(i int) string {
	if i < len(fetal.FeatureNames) {
		return fetal.FeatureNames[i]
	}
	return ""
}

// Predict scales the input, classifies it and maps the 0-based class index
// to the 1-based id and its label. Confidence is the top class probability.
func (p *Predictor) Predict(in fetal.PredictionInput) (fetal.PredictionOutput, error) {
	scaled, err := p.scaler.Transform(in.Vector())
	if err != nil {
		return fetal.PredictionOutput{}, errors.Wrap(err, "scale features")
	}
	proba, err := p.clf.PredictProba(scaled)
	if err != nil {
		return fetal.PredictionOutput{}, errors.Wrap(err, "classify")
	}
	idx := floats.MaxIdx(proba)
	id := idx + 1
	return fetal.PredictionOutput{
		Prediction:      id,
		PredictionLabel: fetal.LabelFor(id),
		Confidence:      proba[idx],
	}, nil
}

// Info returns the static model metadata.
func (p *Predictor) Info() fetal.ModelInfo { return p.info }
