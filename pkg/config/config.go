package config

import (
	"fmt"
	"time"

	"github.com/shouni/go-conti-kit/pkg/domain"
)

// デフォルト値の定義
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	StorageLocal = "local"
	StorageMinio = "minio"

	DefaultProvider           = ProviderGemini
	DefaultGeminiModel        = "gemini-2.0-flash"
	DefaultGeminiImageModel   = "imagen-4.0-generate-preview-06-06"
	DefaultOpenAIModel        = "gpt-4o-mini"
	DefaultOpenAIImageModel   = "gpt-image-1"
	DefaultTemperature        = float32(0.7)
	DefaultMaxAttempts        = 10
	DefaultInitialDelay       = time.Second
	DefaultRateInterval       = 0
	DefaultRequestTimeout     = 3 * time.Minute
	DefaultSceneCount         = 8
	MinSceneCount             = 1
	MaxSceneCount             = 16
	DefaultRegenThreshold     = 3.0
	DefaultReviewThreshold    = 4.0
	DefaultValidationMode     = domain.ValidationModeCompare
	DefaultValidationWorkers  = 1
	DefaultVisionMaxSize      = 1024
	DefaultStopGrace          = 5 * time.Second
	DefaultTempDir            = "temp"
	DefaultOutputDir          = "output"
	DefaultProjectFileName    = "final_storyboard.json"
	DefaultArtifactCacheTTL   = 10 * time.Minute
	DefaultMinioBucket        = "conti-artifacts"
	DefaultStoryboardFileName = "storyboards.json"
)

// Config は go-conti-kit の各 Runner を動作させるための基本設定です。
type Config struct {
	// --- AI Provider Settings ---
	Provider     string
	GeminiAPIKey string
	OpenAIAPIKey string
	TextModel    string
	ImageModel   string
	Temperature  float32

	// --- Retry & Rate Limit ---
	MaxAttempts  int
	InitialDelay time.Duration // バックオフの初回待機時間。以降は試行ごとに 2 倍
	RateInterval time.Duration // 0 の場合はレート制限なし

	// RequestTimeout は 1 回の API リクエストの上限時間です。0 の場合は SDK の既定値に従います。
	RequestTimeout time.Duration

	// --- Storyboard Settings ---
	SceneCount int

	// --- Validation & Regeneration ---
	ValidationMode        domain.ValidationMode
	ValidationConcurrency int
	VisionMaxSize         int
	RegenThreshold        float64

	// --- Batch Control ---
	StopGrace time.Duration

	// --- Artifact Storage ---
	Storage          string
	TempDir          string
	OutputDir        string
	ProjectFileName  string
	ArtifactCacheTTL time.Duration
	Minio            MinioConfig
}

// MinioConfig は成果物を MinIO (S3 互換) に保存する場合の接続設定です。
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// DefaultConfig は推奨されるデフォルト設定を返すヘルパー関数です。
func DefaultConfig() Config {
	return Config{
		Provider:              DefaultProvider,
		TextModel:             DefaultGeminiModel,
		ImageModel:            DefaultGeminiImageModel,
		Temperature:           DefaultTemperature,
		MaxAttempts:           DefaultMaxAttempts,
		InitialDelay:          DefaultInitialDelay,
		RateInterval:          DefaultRateInterval,
		RequestTimeout:        DefaultRequestTimeout,
		SceneCount:            DefaultSceneCount,
		ValidationMode:        DefaultValidationMode,
		ValidationConcurrency: DefaultValidationWorkers,
		VisionMaxSize:         DefaultVisionMaxSize,
		RegenThreshold:        DefaultRegenThreshold,
		StopGrace:             DefaultStopGrace,
		Storage:               StorageLocal,
		TempDir:               DefaultTempDir,
		OutputDir:             DefaultOutputDir,
		ProjectFileName:       DefaultProjectFileName,
		ArtifactCacheTTL:      DefaultArtifactCacheTTL,
		Minio:                 MinioConfig{Bucket: DefaultMinioBucket},
	}
}

// Validate は設定値の範囲を検証します。
func (c Config) Validate() error {
	if c.SceneCount < MinSceneCount || c.SceneCount > MaxSceneCount {
		return fmt.Errorf("シーン数は %d〜%d の範囲で指定してください: %d", MinSceneCount, MaxSceneCount, c.SceneCount)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("最大試行回数は 1 以上である必要があります: %d", c.MaxAttempts)
	}
	if !c.ValidationMode.Valid() {
		return fmt.Errorf("不明な検証方式です: %q", c.ValidationMode)
	}
	if c.ValidationConcurrency < 1 {
		return fmt.Errorf("検証の並列数は 1 以上である必要があります: %d", c.ValidationConcurrency)
	}
	if c.RegenThreshold < domain.MinScore || c.RegenThreshold > domain.MaxScore {
		return fmt.Errorf("再生成の閾値は 0〜5 の範囲で指定してください: %v", c.RegenThreshold)
	}
	switch c.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("不明なプロバイダです: %q", c.Provider)
	}
	switch c.Storage {
	case StorageLocal, StorageMinio:
	default:
		return fmt.Errorf("不明なストレージ種別です: %q", c.Storage)
	}
	return nil
}
