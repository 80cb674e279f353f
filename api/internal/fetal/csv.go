package fetal

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CountError is returned by ParseCSV when the message does not hold exactly
// NumFeatures values.
type CountError struct {
	Got int
}

func (e *CountError) Error() string {
	return fmt.Sprintf("need %d values, got %d", NumFeatures, e.Got)
}

// NumberError is returned by ParseCSV for a token that is not a finite number.
type NumberError struct {
	Token string
}

func (e *NumberError) Error() string {
	return fmt.Sprintf("value %q is not a number", e.Token)
}

// ParseCSV validates a chat message of comma-separated values and builds the
// prediction input from it. The count is checked before any token is parsed.
func ParseCSV(text string) (PredictionInput, error) {
	tokens := strings.Split(strings.TrimSpace(text), ",")
	for i := range tokens {
		tokens[i] = strings.TrimSpace(tokens[i])
	}
	if len(tokens) != NumFeatures {
		return PredictionInput{}, &CountError{Got: len(tokens)}
	}

	vals := make([]float64, len(tokens))
	for i, tok := range tokens {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return PredictionInput{}, &NumberError{Token: tok}
		}
		vals[i] = v
	}
	return FromValues(vals)
}
