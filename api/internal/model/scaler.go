package model

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// scalerFile is the JSON export of a fitted sklearn MinMaxScaler; keys are
// the estimator's attribute names.
type scalerFile struct {
	FeatureRange   [2]float64 `json:"feature_range"`
	Clip           bool       `json:"clip"`
	DataMin        []float64  `json:"data_min_"`
	DataMax        []float64  `json:"data_max_"`
	FeatureNamesIn []string   `json:"feature_names_in_,omitempty"`
	NumFeaturesIn  int        `json:"n_features_in_,omitempty"`
}

// Scaler is a fitted min-max transform: x*scale + min, optionally clipped to
// the feature range.
type Scaler struct {
	scale    []float64
	offset   []float64
	lo, hi   float64
	clip     bool
	features []string
}

// LoadScaler reads a scaler artifact from path.
func LoadScaler(path string) (*Scaler, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read scaler")
	}
	var f scalerFile
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, errors.Wrapf(err, "parse scaler %s", path)
	}
	s, err := NewScaler(f.DataMin, f.DataMax, f.FeatureRange[0], f.FeatureRange[1], f.Clip)
	if err != nil {
		return nil, errors.Wrapf(err, "scaler %s", path)
	}
	if f.NumFeaturesIn != 0 && f.NumFeaturesIn != len(f.DataMin) {
		return nil, errors.Errorf("scaler %s: n_features_in_ %d does not match %d data_min_ values",
			path, f.NumFeaturesIn, len(f.DataMin))
	}
	s.features = f.FeatureNamesIn
	return s, nil
}

// NewScaler derives the transform from the fitted data range the same way
// MinMaxScaler does, including treating constant features as unit range.
func NewScaler(dataMin, dataMax []float64, lo, hi float64, clip bool) (*Scaler, error) {
	if len(dataMin) == 0 || len(dataMin) != len(dataMax) {
		return nil, errors.Errorf("data_min_ has %d values, data_max_ has %d", len(dataMin), len(dataMax))
	}
	if lo == 0 && hi == 0 {
		hi = 1
	}
	if lo >= hi {
		return nil, errors.Errorf("bad feature_range [%g, %g]", lo, hi)
	}

	n := len(dataMin)
	rng := make([]float64, n)
	floats.SubTo(rng, dataMax, dataMin)
	scale := make([]float64, n)
	for i, r := range rng {
		if r < 10*epsilon {
			r = 1
		}
		scale[i] = (hi - lo) / r
	}
	offset := make([]float64, n)
	floats.MulTo(offset, dataMin, scale)
	floats.Scale(-1, offset)
	floats.AddConst(lo, offset)

	return &Scaler{scale: scale, offset: offset, lo: lo, hi: hi, clip: clip}, nil
}

// epsilon is float64 machine epsilon, the threshold MinMaxScaler uses for
// constant features.
const epsilon = 2.220446049250313e-16

// NumFeatures is the vector length the scaler was fitted on.
func (s *Scaler) NumFeatures() int { return len(s.scale) }

// FeatureNames returns the names recorded at fit time, if any.
func (s *Scaler) FeatureNames() []string { return s.features }

// Transform returns a scaled copy of x.
func (s *Scaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.scale) {
		return nil, errors.Errorf("X has %d features, but MinMaxScaler is expecting %d features as input",
			len(x), len(s.scale))
	}
	out := make([]float64, len(x))
	floats.MulTo(out, x, s.scale)
	floats.Add(out, s.offset)
	if s.clip {
		for i, v := range out {
			if v < s.lo {
				out[i] = s.lo
			} else if v > s.hi {
				out[i] = s.hi
			}
		}
	}
	return out, nil
}
