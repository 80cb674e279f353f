package fetal

import (
	"encoding/json"
	"io"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// UnmarshalJSON reads an object whose keys must match the field names
// exactly. Values may be JSON numbers or strings holding a number; null
// leaves the field missing. Unknown keys are ignored.
func (in *PredictionInput) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	rv := reflect.ValueOf(in).Elem()
	rt := rv.Type()
	var bad []string
	for i := 0; i < rt.NumField(); i++ {
		name, _, _ := strings.Cut(rt.Field(i).Tag.Get("json"), ",")
		msg, ok := raw[name]
		if !ok {
			continue
		}
		v, err := parseNumber(msg)
		if err != nil {
			bad = append(bad, name)
			continue
		}
		rv.Field(i).Set(reflect.ValueOf(v))
	}
	if len(bad) > 0 {
		return errors.Errorf("input should be a valid number: %s", strings.Join(bad, ", "))
	}
	return nil
}

// parseNumber returns nil for null.
func parseNumber(msg json.RawMessage) (*float64, error) {
	s := strings.TrimSpace(string(msg))
	if s == "null" {
		return nil, nil
	}
	var v float64
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(msg, &str); err != nil {
			return nil, err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
		if err != nil {
			return nil, err
		}
		v = f
	} else if err := json.Unmarshal(msg, &v); err != nil {
		return nil, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, errors.Errorf("non-finite value %s", s)
	}
	return &v, nil
}

// DecodeInput reads exactly one JSON object from r and validates it. Data
// after the object is an error.
func DecodeInput(r io.Reader) (PredictionInput, error) {
	var in PredictionInput
	dec := json.NewDecoder(r)
	if err := dec.Decode(&in); err != nil {
		return in, errors.Wrap(err, "bad json")
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return in, errors.New("bad json: unexpected data after the object")
	}
	return in, in.Validate()
}
