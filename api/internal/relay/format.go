package relay

import (
	"fmt"

	"fetal-health/api/internal/fetal"
)

var labelEmoji = map[string]string{
	"Normal":       "✅",
	"Suspect":      "⚠️",
	"Pathological": "🚨",
}

// Emoji returns the marker shown next to a label.
func Emoji(label string) string {
	if e, ok := labelEmoji[label]; ok {
		return e
	}
	return "🤖"
}

// FormatResult renders a prediction as a Markdown chat reply with the
// confidence as a percentage with one decimal.
func FormatResult(out fetal.PredictionOutput) string {
	return fmt.Sprintf("%s **%s**\n🎯 Confianza: %.1f%%",
		Emoji(out.PredictionLabel), out.PredictionLabel, out.Confidence*100)
}
