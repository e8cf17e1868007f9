package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	BotToken           string
	OwnerChatID        int64
	LogLevel           string
	PollTimeoutSeconds int
	DatabaseURL        string
	RedisAddr          string

	ModelAPIURL    string
	ModelSecret    string
	ModelFieldName string

	ModelThreshold   float64
	SkinThreshold    float64
	UseSkinHeuristic bool
	SkinCheckCrops   int
	SkinMinAreaPx    int
	FusionMode       string
	SkinWeight       float64

	SourceTimeoutSeconds   int
	DownloadTimeoutSeconds int
	MuteAfterOffenses      int64

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3UseSSL    bool
	S3Bucket    string

	MetricsAddr string
}

func Load() (Config, error) {
	ownerChatID, err := getInt64([]string{"OWNER_CHAT_ID", "owner_chat_id"}, 0)
	if err != nil {
		return Config{}, err
	}

	pollTimeout, err := getInt([]string{"POLL_TIMEOUT_SECONDS"}, 30)
	if err != nil {
		return Config{}, err
	}

	modelThreshold, err := getFloat([]string{"MODEL_THRESHOLD", "NSFW_THRESHOLD"}, 0.65)
	if err != nil {
		return Config{}, err
	}

	skinThreshold, err := getFloat([]string{"SKIN_THRESHOLD"}, 0.28)
	if err != nil {
		return Config{}, err
	}

	useSkinHeuristic, err := getBool([]string{"USE_SKIN_HEURISTIC"}, true)
	if err != nil {
		return Config{}, err
	}

	skinCheckCrops, err := getInt([]string{"SKIN_CHECK_CROPS"}, 3)
	if err != nil {
		return Config{}, err
	}

	skinMinAreaPx, err := getInt([]string{"SKIN_MIN_AREA_PX"}, 4096)
	if err != nil {
		return Config{}, err
	}

	skinWeight, err := getFloat([]string{"SKIN_WEIGHT"}, 0.6)
	if err != nil {
		return Config{}, err
	}

	sourceTimeout, err := getInt([]string{"SOURCE_TIMEOUT_SECONDS"}, 30)
	if err != nil {
		return Config{}, err
	}

	downloadTimeout, err := getInt([]string{"DOWNLOAD_TIMEOUT_SECONDS"}, 30)
	if err != nil {
		return Config{}, err
	}

	muteAfterOffenses, err := getInt64([]string{"MUTE_AFTER_OFFENSES"}, 1)
	if err != nil {
		return Config{}, err
	}

	s3UseSSL, err := getBool([]string{"S3_USE_SSL"}, false)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		BotToken:           strings.TrimSpace(os.Getenv("BOT_TOKEN")),
		OwnerChatID:        ownerChatID,
		LogLevel:           getString("LOG_LEVEL", "info"),
		PollTimeoutSeconds: pollTimeout,
		DatabaseURL:        strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RedisAddr:          getString("REDIS_ADDR", ""),

		ModelAPIURL:    strings.TrimSpace(os.Getenv("MODEL_API_URL")),
		ModelSecret:    strings.TrimSpace(os.Getenv("MODEL_SECRET")),
		ModelFieldName: getString("MODEL_FIELD_NAME", "image"),

		ModelThreshold:   modelThreshold,
		SkinThreshold:    skinThreshold,
		UseSkinHeuristic: useSkinHeuristic,
		SkinCheckCrops:   skinCheckCrops,
		SkinMinAreaPx:    skinMinAreaPx,
		FusionMode:       normalizeFusionMode(getString("FUSION_MODE", "or")),
		SkinWeight:       clamp01(skinWeight),

		SourceTimeoutSeconds:   sourceTimeout,
		DownloadTimeoutSeconds: downloadTimeout,
		MuteAfterOffenses:      muteAfterOffenses,

		S3Endpoint:  getString("S3_ENDPOINT", ""),
		S3AccessKey: getString("S3_ACCESS_KEY", ""),
		S3SecretKey: getString("S3_SECRET_KEY", ""),
		S3UseSSL:    s3UseSSL,
		S3Bucket:    getString("S3_BUCKET", ""),

		MetricsAddr: getString("METRICS_ADDR", ""),
	}

	if cfg.PollTimeoutSeconds <= 0 {
		cfg.PollTimeoutSeconds = 30
	}
	if cfg.SourceTimeoutSeconds <= 0 {
		cfg.SourceTimeoutSeconds = 30
	}
	if cfg.DownloadTimeoutSeconds <= 0 {
		cfg.DownloadTimeoutSeconds = 30
	}
	if cfg.SkinCheckCrops < 1 {
		cfg.SkinCheckCrops = 1
	}
	if cfg.MuteAfterOffenses < 1 {
		cfg.MuteAfterOffenses = 1
	}

	return cfg, nil
}

func (c Config) IsWeightedFusion() bool {
	return c.FusionMode == "weighted"
}

func normalizeFusionMode(raw string) string {
	mode := strings.ToLower(strings.TrimSpace(raw))
	switch mode {
	case "or", "weighted":
		return mode
	default:
		return "or"
	}
}

func clamp01(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}

func getString(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getInt64(keys []string, fallback int64) (int64, error) {
	raw, key := getFirstDefined(keys)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return value, nil
}

func getInt(keys []string, fallback int) (int, error) {
	raw, key := getFirstDefined(keys)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return value, nil
}

func getFloat(keys []string, fallback float64) (float64, error) {
	raw, key := getFirstDefined(keys)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return value, nil
}

func getBool(keys []string, fallback bool) (bool, error) {
	raw, key := getFirstDefined(keys)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return value, nil
}

func getFirstDefined(keys []string) (string, string) {
	for _, key := range keys {
		value := strings.TrimSpace(os.Getenv(key))
		if value != "" {
			return value, key
		}
	}
	if len(keys) == 0 {
		return "", ""
	}
	return "", keys[0]
}
