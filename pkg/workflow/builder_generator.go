package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shouni/go-conti-kit/pkg/asset"
	"github.com/shouni/go-conti-kit/pkg/config"
	"github.com/shouni/go-conti-kit/pkg/provider"
)

// initializeClient はプロバイダのクライアントを生成し、リトライとレート制限を適用します。
func initializeClient(ctx context.Context, cfg config.Config, args ManagerArgs) (provider.GenerativeClient, error) {
	base := args.Client
	if base == nil {
		temperature := cfg.Temperature
		var err error
		switch cfg.Provider {
		case config.ProviderOpenAI:
			base, err = provider.NewOpenAIClient(provider.OpenAIConfig{
				APIKey:         cfg.OpenAIAPIKey,
				TextModel:      cfg.TextModel,
				ImageModel:     cfg.ImageModel,
				Temperature:    &temperature,
				RequestTimeout: cfg.RequestTimeout,
				Fetcher:        args.HTTPClient,
			})
		default:
			base, err = provider.NewGeminiClient(ctx, provider.GeminiConfig{
				APIKey:      cfg.GeminiAPIKey,
				TextModel:   cfg.TextModel,
				ImageModel:  cfg.ImageModel,
				Temperature: &temperature,
				HTTPClient:  args.HTTPClient,
				Reader:      args.Reader,
			})
		}
		if err != nil {
			return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
		}
		slog.Info("AIクライアントを初期化しました",
			"provider", cfg.Provider,
			"text_model", cfg.TextModel,
			"image_model", cfg.ImageModel,
		)
	}

	policy := provider.RetryPolicy{
		MaxAttempts:  cfg.MaxAttempts,
		InitialDelay: cfg.InitialDelay,
		Multiplier:   provider.DefaultMultiplier,
	}
	return provider.NewRetryClient(base, policy, provider.NewLimiter(cfg.RateInterval)), nil
}

// initializeStore は成果物ストアを生成し、読み込みキャッシュで包みます。
func initializeStore(ctx context.Context, cfg config.Config, store asset.Store) (asset.Store, error) {
	if store != nil {
		return store, nil
	}

	var inner asset.Store
	switch cfg.Storage {
	case config.StorageMinio:
		s, err := asset.NewMinioStore(ctx, asset.MinioOptions{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			Bucket:    cfg.Minio.Bucket,
			UseSSL:    cfg.Minio.UseSSL,
			Prefix:    "batch-" + uuid.NewString(),
		})
		if err != nil {
			return nil, fmt.Errorf("MinIO ストアの初期化に失敗しました: %w", err)
		}
		inner = s
	default:
		s, err := asset.NewLocalStore(cfg.TempDir)
		if err != nil {
			return nil, fmt.Errorf("ローカルストアの初期化に失敗しました: %w", err)
		}
		inner = s
	}

	if cfg.ArtifactCacheTTL <= 0 {
		return inner, nil
	}
	return asset.NewCachedStore(inner, cfg.ArtifactCacheTTL), nil
}
