package telegram

import (
	"fmt"
	"strings"
	"time"

	"fetal-health/api/internal/fetal"
	"fetal-health/api/internal/relay"
	"fetal-health/api/internal/store"
)

const exampleCSV = "120,0.002,0.0,0.006,0.003,0.0,0.0,73,0.5,43,2.4,64,62,126,2,0,136,641,1"

const (
	textProcessing = "🔄 Procesando..."
	textNotNumbers = "❌ Todos los valores deben ser números"
)

func usageText() string {
	return fmt.Sprintf(`🤖 Bot de Predicción de Salud Fetal

Envía %d valores separados por comas:
📝 Ejemplo: %s

Comandos: /history, /explain`, fetal.NumFeatures, exampleCSV)
}

func countText(got int) string {
	return fmt.Sprintf("❌ Necesito %d valores, recibí %d", fetal.NumFeatures, got)
}

func apiErrorText(code int) string {
	return fmt.Sprintf("❌ Error API: %d", code)
}

func errorText(err error) string {
	return "❌ Error: " + err.Error()
}

func historyText(rows []store.PredictionRow) string {
	if len(rows) == 0 {
		return "Todavía no hay predicciones en este chat."
	}
	var b strings.Builder
	b.WriteString("🕑 Últimas predicciones:\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%s %s %s (%.1f%%)\n",
			r.CreatedAt.UTC().Format(time.DateTime), relay.Emoji(r.Label), r.Label, r.Confidence*100)
	}
	return strings.TrimRight(b.String(), "\n")
}
