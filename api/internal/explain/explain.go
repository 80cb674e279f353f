// Package explain asks Gemini for a plain-language reading of a fetal-health
// prediction.
package explain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"fetal-health/api/internal/fetal"
)

const systemPrompt = `Eres un asistente que explica resultados de un modelo de clasificación de salud fetal
basado en cardiotocografía (CTG). Explica en español, en un máximo de 6 frases, qué variables de entrada
suelen asociarse con la clase predicha y cómo interpretar la confianza.
No des diagnósticos ni indicaciones clínicas: recuerda que la decisión corresponde a un profesional de la salud.`

type Engine struct {
	APIKey string
	Model  string
}

func New(apiKey, model string) *Engine {
	return &Engine{
		APIKey: strings.TrimSpace(apiKey),
		Model:  strings.TrimSpace(model),
	}
}

// Explain returns Gemini's explanation of out for the given input.
func (e *Engine) Explain(ctx context.Context, in fetal.PredictionInput, out fetal.PredictionOutput) (string, error) {
	if e.APIKey == "" {
		return "", errors.New("GEMINI_API_KEY is empty")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return "", err
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	if m == nil {
		return "", fmt.Errorf("gemini: model is nil")
	}
	m.GenerationConfig = genai.GenerationConfig{
		Temperature: ptrFloat32(0.2),
	}
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}

	resp, err := m.GenerateContent(ctx, genai.Text(BuildPrompt(in, out)))
	if err != nil {
		return "", fmt.Errorf("gemini explain: %w", err)
	}
	txt := strings.TrimSpace(firstText(resp))
	if txt == "" {
		return "", fmt.Errorf("gemini explain: empty response")
	}
	return txt, nil
}

// BuildPrompt lists every feature with its value followed by the prediction.
func BuildPrompt(in fetal.PredictionInput, out fetal.PredictionOutput) string {
	var b strings.Builder
	b.WriteString("Valores de entrada:\n")
	for i, v := range in.Vector() {
		fmt.Fprintf(&b, "- %s: %g\n", fetal.FeatureNames[i], v)
	}
	fmt.Fprintf(&b, "\nPredicción: %d (%s), confianza %.1f%%.\n",
		out.Prediction, out.PredictionLabel, out.Confidence*100)
	b.WriteString("Explica este resultado.")
	return b.String()
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
