package telegram

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"fetal-health/api/internal/fetal"
	"fetal-health/api/internal/relay"
)

const historyLimit = 5

// Router relays chat messages to the prediction service. History and
// Explainer are optional.
type Router struct {
	Bot       Bot
	Relay     Predictor
	History   History
	Explainer Explainer
	Log       *zap.Logger

	last lastResults
}

func (r *Router) logger() *zap.Logger {
	if r.Log == nil {
		return zap.NewNop()
	}
	return r.Log
}

// HandleUpdate processes one update to completion, including the outbound
// call to the service.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message == nil {
		return
	}
	if upd.Message.IsCommand() {
		r.HandleCommand(ctx, upd)
		return
	}
	if upd.Message.Text != "" {
		r.relayPrediction(ctx, upd.Message.Chat.ID, upd.Message.Text)
	}
}

func (r *Router) HandleCommand(ctx context.Context, upd tgbotapi.Update) {
	cid := upd.Message.Chat.ID
	switch upd.Message.Command() {
	case "start", "help":
		r.send(cid, usageText())
	case "history":
		r.sendHistory(ctx, cid)
	case "explain":
		r.sendExplanation(ctx, cid)
	default:
		r.send(cid, "Comando desconocido. Usa /help")
	}
}

// relayPrediction validates the message locally and only then calls the
// service. The "processing" message is edited in place with the outcome.
func (r *Router) relayPrediction(ctx context.Context, chatID int64, text string) {
	in, err := fetal.ParseCSV(text)
	if err != nil {
		var ce *fetal.CountError
		if errors.As(err, &ce) {
			r.send(chatID, countText(ce.Got))
		} else {
			r.send(chatID, textNotNumbers)
		}
		return
	}

	progressID := r.send(chatID, textProcessing)

	out, err := r.Relay.Predict(ctx, in)
	if err != nil {
		r.logger().Warn("relay failed", zap.Int64("chat_id", chatID), zap.Error(err))
		var se *relay.StatusError
		if errors.As(err, &se) {
			r.edit(chatID, progressID, apiErrorText(se.Code), "")
		} else {
			r.edit(chatID, progressID, errorText(err), "")
		}
		return
	}

	r.logger().Info("prediction relayed",
		zap.Int64("chat_id", chatID),
		zap.String("label", out.PredictionLabel),
		zap.Float64("confidence", out.Confidence))
	r.edit(chatID, progressID, relay.FormatResult(out), tgbotapi.ModeMarkdown)

	r.last.set(chatID, in, out)
	if r.History != nil {
		if err := r.History.Insert(ctx, chatID, in, out); err != nil {
			r.logger().Error("history insert failed", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}
}

func (r *Router) sendHistory(ctx context.Context, chatID int64) {
	if r.History == nil {
		r.send(chatID, "El historial no está configurado.")
		return
	}
	rows, err := r.History.Recent(ctx, chatID, historyLimit)
	if err != nil {
		r.logger().Error("history read failed", zap.Int64("chat_id", chatID), zap.Error(err))
		r.send(chatID, errorText(err))
		return
	}
	r.send(chatID, historyText(rows))
}

func (r *Router) sendExplanation(ctx context.Context, chatID int64) {
	if r.Explainer == nil {
		r.send(chatID, "Las explicaciones no están configuradas.")
		return
	}
	last, ok := r.last.get(chatID)
	if !ok {
		r.send(chatID, "Primero envía una predicción.")
		return
	}
	txt, err := r.Explainer.Explain(ctx, last.In, last.Out)
	if err != nil {
		r.logger().Warn("explain failed", zap.Int64("chat_id", chatID), zap.Error(err))
		r.send(chatID, errorText(err))
		return
	}
	r.send(chatID, txt)
}

// send returns the id of the sent message, 0 when sending failed.
func (r *Router) send(chatID int64, text string) int {
	m, err := r.Bot.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		r.logger().Warn("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return 0
	}
	return m.MessageID
}

// edit replaces the text of messageID, or sends a new message when there is
// nothing to edit.
func (r *Router) edit(chatID int64, messageID int, text, parseMode string) {
	if messageID == 0 {
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ParseMode = parseMode
		if _, err := r.Bot.Send(msg); err != nil {
			r.logger().Warn("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
		}
		return
	}
	e := tgbotapi.NewEditMessageText(chatID, messageID, text)
	e.ParseMode = parseMode
	if _, err := r.Bot.Send(e); err != nil {
		r.logger().Warn("edit failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
