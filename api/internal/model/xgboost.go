package model

import (
	"encoding/json"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// xgbFile is the subset of the XGBoost JSON model format (save_model with a
// .json path) needed to evaluate a gbtree multi-class model.
type xgbFile struct {
	Learner struct {
		FeatureNames    []string `json:"feature_names"`
		GradientBooster struct {
			Name  string `json:"name"`
			Model struct {
				Trees    []xgbTree `json:"trees"`
				TreeInfo []int     `json:"tree_info"`
			} `json:"model"`
		} `json:"gradient_booster"`
		LearnerModelParam struct {
			BaseScore  string `json:"base_score"`
			NumClass   string `json:"num_class"`
			NumFeature string `json:"num_feature"`
		} `json:"learner_model_param"`
		Objective struct {
			Name string `json:"name"`
		} `json:"objective"`
	} `json:"learner"`
	Version []int `json:"version"`
}

type xgbTree struct {
	LeftChildren    []int     `json:"left_children"`
	RightChildren   []int     `json:"right_children"`
	SplitIndices    []int     `json:"split_indices"`
	SplitConditions []float32 `json:"split_conditions"`
	DefaultLeft     flags     `json:"default_left"`
	SplitType       []int     `json:"split_type"`
}

// flags decodes default_left, written as 0/1 integers by current XGBoost and
// as booleans by some older releases.
type flags []bool

func (f *flags) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(flags, len(raw))
	for i, r := range raw {
		switch s := strings.TrimSpace(string(r)); s {
		case "true", "1":
			out[i] = true
		case "false", "0":
		default:
			return errors.Errorf("bad flag %s", s)
		}
	}
	*f = out
	return nil
}

type tree struct {
	left, right []int
	feature     []int
	cond        []float32
	defaultLeft []bool
}

// leaf walks the tree for x. Split test is x < cond, missing values follow
// default_left; leaf values live in cond.
func (t *tree) leaf(x []float32) float32 {
	n := 0
	for t.left[n] != -1 {
		v := x[t.feature[n]]
		switch {
		case isNaN32(v):
			if t.defaultLeft[n] {
				n = t.left[n]
			} else {
				n = t.right[n]
			}
		case v < t.cond[n]:
			n = t.left[n]
		default:
			n = t.right[n]
		}
	}
	return t.cond[n]
}

func isNaN32(v float32) bool { return v != v }

// Classifier evaluates a multi-class gradient-boosted tree ensemble.
type Classifier struct {
	numClass   int
	numFeature int
	version    string
	baseMargin []float64
	trees      []tree
	treeClass  []int
	features   []string
}

// LoadClassifier reads an XGBoost JSON model from path.
func LoadClassifier(path string) (*Classifier, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read model")
	}
	c, err := ParseClassifier(b)
	if err != nil {
		return nil, errors.Wrapf(err, "model %s", path)
	}
	return c, nil
}

// ParseClassifier decodes and validates an XGBoost JSON model.
func ParseClassifier(b []byte) (*Classifier, error) {
	var f xgbFile
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, errors.Wrap(err, "parse xgboost json")
	}
	l := f.Learner

	if name := l.GradientBooster.Name; name != "gbtree" {
		return nil, errors.Errorf("unsupported booster %q", name)
	}
	switch l.Objective.Name {
	case "multi:softprob", "multi:softmax":
	default:
		return nil, errors.Errorf("unsupported objective %q", l.Objective.Name)
	}

	numClass, err := strconv.Atoi(l.LearnerModelParam.NumClass)
	if err != nil || numClass < 2 {
		return nil, errors.Errorf("bad num_class %q", l.LearnerModelParam.NumClass)
	}
	numFeature, err := strconv.Atoi(l.LearnerModelParam.NumFeature)
	if err != nil || numFeature < 1 {
		return nil, errors.Errorf("bad num_feature %q", l.LearnerModelParam.NumFeature)
	}
	base, err := parseBaseScore(l.LearnerModelParam.BaseScore, numClass)
	if err != nil {
		return nil, err
	}

	m := l.GradientBooster.Model
	if len(m.TreeInfo) != len(m.Trees) {
		return nil, errors.Errorf("tree_info has %d entries for %d trees", len(m.TreeInfo), len(m.Trees))
	}
	c := &Classifier{
		numClass:   numClass,
		numFeature: numFeature,
		version:    joinVersion(f.Version),
		baseMargin: base,
		trees:      make([]tree, len(m.Trees)),
		treeClass:  m.TreeInfo,
		features:   l.FeatureNames,
	}
	for i, jt := range m.Trees {
		if cls := m.TreeInfo[i]; cls < 0 || cls >= numClass {
			return nil, errors.Errorf("tree %d: class %d out of range", i, cls)
		}
		t, err := buildTree(jt, numFeature)
		if err != nil {
			return nil, errors.Wrapf(err, "tree %d", i)
		}
		c.trees[i] = t
	}
	return c, nil
}

func buildTree(jt xgbTree, numFeature int) (tree, error) {
	n := len(jt.LeftChildren)
	if n == 0 {
		return tree{}, errors.New("empty tree")
	}
	if len(jt.RightChildren) != n || len(jt.SplitIndices) != n ||
		len(jt.SplitConditions) != n || len(jt.DefaultLeft) != n {
		return tree{}, errors.New("node arrays differ in length")
	}
	for i := 0; i < n; i++ {
		if len(jt.SplitType) == n && jt.SplitType[i] != 0 {
			return tree{}, errors.Errorf("node %d: categorical splits are not supported", i)
		}
		l, r := jt.LeftChildren[i], jt.RightChildren[i]
		if l == -1 {
			continue
		}
		// Children are always allocated after their parent, which also
		// guarantees the walk in leaf terminates.
		if l <= i || l >= n || r <= i || r >= n {
			return tree{}, errors.Errorf("node %d: bad children %d, %d", i, l, r)
		}
		if f := jt.SplitIndices[i]; f < 0 || f >= numFeature {
			return tree{}, errors.Errorf("node %d: split feature %d out of range", i, f)
		}
	}
	return tree{
		left:        jt.LeftChildren,
		right:       jt.RightChildren,
		feature:     jt.SplitIndices,
		cond:        jt.SplitConditions,
		defaultLeft: jt.DefaultLeft,
	}, nil
}

// parseBaseScore accepts the scalar form ("5E-1") and the per-class vector
// form ("[5E-1,5E-1,5E-1]") of base_score.
func parseBaseScore(s string, numClass int) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		s = "0.5"
	}
	parts := strings.Split(strings.Trim(s, "[]"), ",")
	vals := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, errors.Errorf("bad base_score %q", s)
		}
		vals = append(vals, v)
	}
	switch len(vals) {
	case numClass:
		return vals, nil
	case 1:
		out := make([]float64, numClass)
		for i := range out {
			out[i] = vals[0]
		}
		return out, nil
	default:
		return nil, errors.Errorf("base_score has %d values for %d classes", len(vals), numClass)
	}
}

func joinVersion(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

func (c *Classifier) NumClass() int          { return c.numClass }
func (c *Classifier) NumFeatures() int       { return c.numFeature }
func (c *Classifier) Version() string        { return c.version }
func (c *Classifier) FeatureNames() []string { return c.features }

// Margins returns the raw per-class scores for x.
func (c *Classifier) Margins(x []float64) ([]float64, error) {
	if len(x) != c.numFeature {
		return nil, errors.Errorf("feature shape mismatch, expected: %d, got %d", c.numFeature, len(x))
	}
	row := make([]float32, len(x))
	for i, v := range x {
		row[i] = float32(v)
	}
	margins := make([]float64, c.numClass)
	copy(margins, c.baseMargin)
	for i := range c.trees {
		margins[c.treeClass[i]] += float64(c.trees[i].leaf(row))
	}
	return margins, nil
}

// PredictProba returns the softmax class probabilities for x.
func (c *Classifier) PredictProba(x []float64) ([]float64, error) {
	margins, err := c.Margins(x)
	if err != nil {
		return nil, err
	}
	return softmax(margins), nil
}

// Predict returns the 0-based index of the most probable class.
func (c *Classifier) Predict(x []float64) (int, error) {
	margins, err := c.Margins(x)
	if err != nil {
		return 0, err
	}
	return floats.MaxIdx(margins), nil
}

func softmax(m []float64) []float64 {
	out := make([]float64, len(m))
	top := floats.Max(m)
	for i, v := range m {
		out[i] = math.Exp(v - top)
	}
	floats.Scale(1/floats.Sum(out), out)
	return out
}
