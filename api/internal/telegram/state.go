package telegram

import (
	"sync"

	"fetal-health/api/internal/fetal"
)

// lastResult is the latest successful prediction of a chat, kept for
// /explain.
type lastResult struct {
	In  fetal.PredictionInput
	Out fetal.PredictionOutput
}

type lastResults struct {
	m sync.Map // chatID -> lastResult
}

func (l *lastResults) set(chatID int64, in fetal.PredictionInput, out fetal.PredictionOutput) {
	l.m.Store(chatID, lastResult{In: in, Out: out})
}

func (l *lastResults) get(chatID int64) (lastResult, bool) {
	v, ok := l.m.Load(chatID)
	if !ok {
		return lastResult{}, false
	}
	return v.(lastResult), true
}
