package config

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shouni/go-utils/envutil"

	kitcfg "github.com/shouni/go-conti-kit/pkg/config"
	"github.com/shouni/go-conti-kit/pkg/domain"
)

// デフォルト値の定義
const (
	DefaultFormFile       = "form.yaml"
	DefaultStoryboardFile = "output/storyboards.json"
	DefaultHTTPTimeout    = 60 * time.Second
)

// Config はアプリケーション全体の環境設定（API キーやストレージ設定）を保持する構造体です。
type Config struct {
	Kit     kitcfg.Config
	Options GenerateOptions
}

// LoadConfig は環境変数から設定を読み込み、構造体を返します。
func LoadConfig() *Config {
	kit := kitcfg.DefaultConfig()

	kit.Provider = envutil.GetEnv("CONTI_PROVIDER", kit.Provider)
	kit.GeminiAPIKey = envutil.GetEnv("GEMINI_API_KEY", "")
	kit.OpenAIAPIKey = envutil.GetEnv("OPENAI_API_KEY", "")

	defaultText, defaultImage := kitcfg.DefaultGeminiModel, kitcfg.DefaultGeminiImageModel
	if kit.Provider == kitcfg.ProviderOpenAI {
		defaultText, defaultImage = kitcfg.DefaultOpenAIModel, kitcfg.DefaultOpenAIImageModel
	}
	kit.TextModel = envutil.GetEnv("CONTI_TEXT_MODEL", defaultText)
	kit.ImageModel = envutil.GetEnv("CONTI_IMAGE_MODEL", defaultImage)

	kit.MaxAttempts = getInt("CONTI_MAX_ATTEMPTS", kit.MaxAttempts)
	kit.InitialDelay = getDuration("CONTI_INITIAL_DELAY", kit.InitialDelay)
	kit.RateInterval = getDuration("CONTI_RATE_INTERVAL", kit.RateInterval)
	kit.RequestTimeout = getDuration("CONTI_REQUEST_TIMEOUT", kit.RequestTimeout)
	kit.SceneCount = getInt("CONTI_SCENE_COUNT", kit.SceneCount)
	kit.ValidationMode = domain.ValidationMode(envutil.GetEnv("CONTI_VALIDATION_MODE", string(kit.ValidationMode)))
	kit.ValidationConcurrency = getInt("CONTI_VALIDATION_CONCURRENCY", kit.ValidationConcurrency)
	kit.RegenThreshold = getFloat("CONTI_REGEN_THRESHOLD", kit.RegenThreshold)
	kit.StopGrace = getDuration("CONTI_STOP_GRACE", kit.StopGrace)

	kit.Storage = envutil.GetEnv("CONTI_STORAGE", kit.Storage)
	kit.TempDir = envutil.GetEnv("CONTI_TEMP_DIR", kit.TempDir)
	kit.OutputDir = envutil.GetEnv("CONTI_OUTPUT_DIR", kit.OutputDir)
	kit.Minio = kitcfg.MinioConfig{
		Endpoint:  envutil.GetEnv("MINIO_ENDPOINT", ""),
		AccessKey: envutil.GetEnv("MINIO_ACCESS_KEY", ""),
		SecretKey: envutil.GetEnv("MINIO_SECRET_KEY", ""),
		Bucket:    envutil.GetEnv("MINIO_BUCKET", kit.Minio.Bucket),
		UseSSL:    getBool("MINIO_USE_SSL", false),
	}

	return &Config{Kit: kit}
}

// GenerateOptions は CLI フラグから渡される実行時のパラメータです。
type GenerateOptions struct {
	// 入力関連
	FormFile       string // --form
	StoryboardFile string // --storyboard-file: 下書き結果の保存先 / 画像工程の入力
	Select         string // --select: 採用するストーリーボード案のキー

	// 出力関連
	ProjectName string // --project-name

	// AI 挙動設定
	Provider       string
	AIModel        string
	ImageModel     string
	SceneCount     int
	ValidationMode string
	Threshold      float64

	// 実行制御
	SkipValidation bool
	AutoRegenerate bool
	HTTPTimeout    time.Duration // --http-timeout: 生成画像の取得などの Web リクエスト
}

// Apply は CLI フラグで明示された値を設定に反映します。
func (c *Config) Apply(opts GenerateOptions) {
	c.Options = opts
	if opts.Provider != "" && opts.Provider != c.Kit.Provider {
		c.Kit.Provider = opts.Provider
		if opts.Provider == kitcfg.ProviderOpenAI {
			c.Kit.TextModel, c.Kit.ImageModel = kitcfg.DefaultOpenAIModel, kitcfg.DefaultOpenAIImageModel
		} else {
			c.Kit.TextModel, c.Kit.ImageModel = kitcfg.DefaultGeminiModel, kitcfg.DefaultGeminiImageModel
		}
	}
	if opts.AIModel != "" {
		c.Kit.TextModel = opts.AIModel
	}
	if opts.ImageModel != "" {
		c.Kit.ImageModel = opts.ImageModel
	}
	if opts.SceneCount > 0 {
		c.Kit.SceneCount = opts.SceneCount
	}
	if opts.ValidationMode != "" {
		c.Kit.ValidationMode = domain.ValidationMode(opts.ValidationMode)
	}
	if opts.Threshold > 0 {
		c.Kit.RegenThreshold = opts.Threshold
	}
}

func getInt(key string, def int) int {
	raw := strings.TrimSpace(envutil.GetEnv(key, ""))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("環境変数の値が整数ではないため既定値を使用します", "key", key, "value", raw)
		return def
	}
	return v
}

func getFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(envutil.GetEnv(key, ""))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		slog.Warn("環境変数の値が数値ではないため既定値を使用します", "key", key, "value", raw)
		return def
	}
	return v
}

func getDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(envutil.GetEnv(key, ""))
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("環境変数の値が期間として解釈できないため既定値を使用します", "key", key, "value", raw)
		return def
	}
	return v
}

func getBool(key string, def bool) bool {
	raw := strings.TrimSpace(envutil.GetEnv(key, ""))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}
