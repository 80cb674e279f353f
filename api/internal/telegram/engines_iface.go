package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"fetal-health/api/internal/fetal"
	"fetal-health/api/internal/store"
)

// Bot is the part of *tgbotapi.BotAPI the router uses.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Predictor calls the prediction service (relay.Client).
type Predictor interface {
	Predict(ctx context.Context, in fetal.PredictionInput) (fetal.PredictionOutput, error)
}

// History persists relayed predictions (store.PredictionRepo).
type History interface {
	Insert(ctx context.Context, chatID int64, in fetal.PredictionInput, out fetal.PredictionOutput) error
	Recent(ctx context.Context, chatID int64, limit int) ([]store.PredictionRow, error)
}

// Explainer turns a prediction into prose (explain.Engine).
type Explainer interface {
	Explain(ctx context.Context, in fetal.PredictionInput, out fetal.PredictionOutput) (string, error)
}
