package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the settings of all three programs. Each program checks the
// keys it needs with Require.
type Config struct {
	Port     string
	LogLevel string

	// prediction service
	ScalerPath string
	ModelPath  string

	// chat relay
	TelegramBotToken string
	APIURL           string
	WebhookURL       string
	RelayTimeout     time.Duration
	DatabaseURL      string
	GeminiAPIKey     string
	GeminiModel      string
}

// envKeys maps each setting to the environment names it is read from, in
// priority order.
var envKeys = map[string][]string{
	"port":               {"PORT"},
	"log_level":          {"LOG_LEVEL"},
	"scaler_path":        {"SCALER_PATH"},
	"model_path":         {"MODEL_PATH"},
	"telegram_bot_token": {"TELEGRAM_BOT_TOKEN", "BOT_TOKEN"},
	"api_url":            {"API_URL"},
	"webhook_url":        {"WEBHOOK_URL"},
	"relay_timeout":      {"RELAY_TIMEOUT"},
	"database_url":       {"DATABASE_URL"},
	"gemini_api_key":     {"GEMINI_API_KEY"},
	"gemini_model":       {"GEMINI_MODEL"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8000")
	v.SetDefault("log_level", "info")
	v.SetDefault("scaler_path", "scaler_min_max.json")
	v.SetDefault("model_path", "model_xgb.json")
	v.SetDefault("api_url", "http://localhost:8000/predict")
	v.SetDefault("relay_timeout", "0s")
	v.SetDefault("gemini_model", "gemini-2.5-flash")
}

// Load reads settings from the environment, falling back to envFile (a
// dotenv file, ".env" when empty) and then to defaults. A missing envFile is
// not an error.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	v := viper.New()
	setDefaults(v)

	if _, err := os.Stat(envFile); err == nil {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s failed: %w", envFile, err)
		}
	}
	for key, names := range envKeys {
		args := append([]string{key}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	timeout, err := time.ParseDuration(lookup(v, "relay_timeout"))
	if err != nil {
		return nil, fmt.Errorf("bad RELAY_TIMEOUT: %w", err)
	}

	return &Config{
		Port:     lookup(v, "port"),
		LogLevel: lookup(v, "log_level"),

		ScalerPath: lookup(v, "scaler_path"),
		ModelPath:  lookup(v, "model_path"),

		TelegramBotToken: lookup(v, "telegram_bot_token"),
		APIURL:           lookup(v, "api_url"),
		WebhookURL:       lookup(v, "webhook_url"),
		RelayTimeout:     timeout,
		DatabaseURL:      lookup(v, "database_url"),
		GeminiAPIKey:     lookup(v, "gemini_api_key"),
		GeminiModel:      lookup(v, "gemini_model"),
	}, nil
}

// lookup returns the bound value of key, or the value of one of its alias
// names when it only appears in the dotenv file (viper stores file keys
// lowercased under their own name).
func lookup(v *viper.Viper, key string) string {
	if s := strings.TrimSpace(v.GetString(key)); s != "" {
		return s
	}
	for _, name := range envKeys[key] {
		if s := strings.TrimSpace(v.GetString(strings.ToLower(name))); s != "" {
			return s
		}
	}
	return ""
}

func (c *Config) values() map[string]string {
	return map[string]string{
		"PORT":               c.Port,
		"SCALER_PATH":        c.ScalerPath,
		"MODEL_PATH":         c.ModelPath,
		"TELEGRAM_BOT_TOKEN": c.TelegramBotToken,
		"API_URL":            c.APIURL,
		"WEBHOOK_URL":        c.WebhookURL,
		"DATABASE_URL":       c.DatabaseURL,
		"GEMINI_API_KEY":     c.GeminiAPIKey,
		"GEMINI_MODEL":       c.GeminiModel,
	}
}

// Require returns an error naming every listed setting that is empty.
func (c *Config) Require(keys ...string) error {
	vals := c.values()
	var missing []string
	for _, k := range keys {
		if strings.TrimSpace(vals[k]) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env %s", strings.Join(missing, ", "))
	}
	return nil
}
