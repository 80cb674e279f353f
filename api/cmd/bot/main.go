package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"fetal-health/api/internal/config"
	"fetal-health/api/internal/explain"
	"fetal-health/api/internal/httpserver"
	"fetal-health/api/internal/logger"
	"fetal-health/api/internal/relay"
	"fetal-health/api/internal/store"
	"fetal-health/api/internal/telegram"
)

// History older than this is dropped at startup.
const historyRetention = 90 * 24 * time.Hour

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logger.Must(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	if err := cfg.Require("TELEGRAM_BOT_TOKEN", "API_URL"); err != nil {
		log.Fatal("config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Fatal("telegram", zap.Error(err))
	}
	bot.Debug = false
	log.Info("authorized", zap.String("bot", bot.Self.UserName))

	r := &telegram.Router{
		Bot:   bot,
		Relay: relay.New(cfg.APIURL, cfg.RelayTimeout),
		Log:   log,
	}

	// --- optional Postgres history ---
	var db *sql.DB
	if cfg.DatabaseURL != "" {
		db, err = store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal("database", zap.Error(err))
		}
		defer db.Close()
		if err := store.MigrateUp(db); err != nil {
			log.Fatal("migrate", zap.Error(err))
		}
		log.Info("db connected", zap.String("dsn", store.SafeDSNSummary(cfg.DatabaseURL)))

		repo := store.NewPredictionRepo(db)
		if n, err := repo.PurgeOlderThan(ctx, historyRetention); err != nil {
			log.Warn("history purge failed", zap.Error(err))
		} else if n > 0 {
			log.Info("history purged", zap.Int64("rows", n))
		}
		r.History = repo
	}

	// --- optional Gemini explanations ---
	if cfg.GeminiAPIKey != "" {
		r.Explainer = explain.New(cfg.GeminiAPIKey, cfg.GeminiModel)
		log.Info("explanations enabled", zap.String("model", cfg.GeminiModel))
	}

	var ping func(context.Context) error
	if db != nil {
		ping = db.PingContext
	}
	// ListenForWebhook registers on DefaultServeMux, so health lives there too.
	http.HandleFunc("/healthz", httpserver.Health(ping))

	addr := "0.0.0.0:" + cfg.Port
	if webhookURL := strings.TrimSpace(cfg.WebhookURL); webhookURL != "" {
		startWebhookMode(ctx, addr, bot, r, webhookURL, log)
	} else {
		startPollingMode(ctx, addr, bot, r, log)
	}
}

// ---------------- Modes -----------------

func startWebhookMode(ctx context.Context, addr string, bot *tgbotapi.BotAPI, r *telegram.Router, baseURL string, log *zap.Logger) {
	path := "/webhook/" + shortHash(bot.Token)
	public := strings.TrimRight(baseURL, "/") + path

	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		log.Fatal("webhook", zap.Error(err))
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		log.Fatal("set webhook", zap.Error(err))
	}

	updates := bot.ListenForWebhook(path)
	go func() {
		for upd := range updates {
			r.HandleUpdate(ctx, upd)
		}
		log.Info("webhook updates channel closed")
	}()

	log.Info("webhook mode", zap.String("path", path))
	if err := httpserver.Run(ctx, addr, http.DefaultServeMux, log); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("serve", zap.Error(err))
	}
}

func startPollingMode(ctx context.Context, addr string, bot *tgbotapi.BotAPI, r *telegram.Router, log *zap.Logger) {
	// healthz only; polling does not need an inbound port
	go func() {
		if err := httpserver.Run(ctx, addr, http.DefaultServeMux, log); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("health server", zap.Error(err))
		}
	}()

	// remove a stale webhook, otherwise getUpdates is rejected
	if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		log.Warn("delete webhook", zap.Error(err))
	}

	log.Info("polling mode")
	runPolling(ctx, bot, log, func(upd tgbotapi.Update) {
		r.HandleUpdate(ctx, upd)
	})
}

// ---------------- Polling loop -----------------

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") { // HTTP 429
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return 2 * time.Second
	}
	return 1 * time.Second
}

// runPolling long-polls getUpdates and hands updates over one at a time.
// Transport failures back off and retry; it returns when ctx is done.
func runPolling(ctx context.Context, bot *tgbotapi.BotAPI, log *zap.Logger, handle func(tgbotapi.Update)) {
	offset := 0
	baseDelay := 1 * time.Second
	maxDelay := 15 * time.Second

	for {
		select {
		case <-ctx.Done():
			log.Info("polling: context cancelled")
			return
		default:
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30

		updates, err := bot.GetUpdates(u)
		if err != nil {
			d := min(max(retryDelayFromError(err), baseDelay), maxDelay)
			log.Warn("polling error", zap.Error(err), zap.Duration("retry_in", d))
			sleep(ctx, d)
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(upd)
		}

		if len(updates) == 0 {
			sleep(ctx, 200*time.Millisecond)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// ---------------- Helpers -----------------

// shortHash is FNV-1a of the token, used as the secret webhook path.
func shortHash(s string) string {
	h := uint64(1469598103934665603)
	const prime = 1099511628211
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime
	}
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		out[i] = hexdigits[h&0xF]
		h >>= 4
	}
	return string(out)
}
