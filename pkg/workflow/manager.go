package workflow

import (
	"context"
	"fmt"

	"github.com/shouni/go-conti-kit/pkg/asset"
	"github.com/shouni/go-conti-kit/pkg/config"
	"github.com/shouni/go-conti-kit/pkg/generator"
	"github.com/shouni/go-conti-kit/pkg/prompts"
	"github.com/shouni/go-conti-kit/pkg/provider"
	"github.com/shouni/go-conti-kit/pkg/publisher"
	"github.com/shouni/go-conti-kit/pkg/session"
)

// Manager は、ワークフローの各工程を担う Runner 群を構築・管理します。
// 全 Runner は同じクライアント・成果物ストア・シーン生成器を共有します。
type Manager struct {
	cfg           config.Config
	client        provider.GenerativeClient
	store         asset.Store
	promptBuilder prompts.Builder
	writer        publisher.OutputWriter
	sceneGen      *generator.SceneGenerator
}

var _ Workflow = (*Manager)(nil)

// New は、設定を基に新しい Manager を初期化します。
func New(ctx context.Context, args ManagerArgs) (*Manager, error) {
	if args.Writer == nil {
		return nil, fmt.Errorf("OutputWriter は必須です")
	}
	if args.Client == nil && args.HTTPClient == nil {
		return nil, fmt.Errorf("httpClient は必須です")
	}
	if args.Client == nil && args.Reader == nil {
		return nil, fmt.Errorf("InputReader は必須です")
	}

	cfg := resolveModels(args.Config)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定が不正です: %w", err)
	}

	client, err := initializeClient(ctx, cfg, args)
	if err != nil {
		return nil, err
	}

	store, err := initializeStore(ctx, cfg, args.Store)
	if err != nil {
		return nil, err
	}

	pb, err := initializePromptBuilder(args.PromptBuilder)
	if err != nil {
		return nil, err
	}

	sceneGen, err := generator.NewSceneGenerator(client, pb, store)
	if err != nil {
		return nil, fmt.Errorf("シーン生成器の初期化に失敗しました: %w", err)
	}

	return &Manager{
		cfg:           cfg,
		client:        client,
		store:         store,
		promptBuilder: pb,
		writer:        args.Writer,
		sceneGen:      sceneGen,
	}, nil
}

// Config は解決済みの設定を返します。
func (m *Manager) Config() config.Config {
	return m.cfg
}

// Store は Runner が共有する成果物ストアを返します。
func (m *Manager) Store() asset.Store {
	return m.store
}

// NewSession は空のセッションを生成します。
func (m *Manager) NewSession() *session.Session {
	return session.New()
}

// Cleanup は成果物ストアに残った一時ファイルを破棄します。
func (m *Manager) Cleanup(ctx context.Context) error {
	return m.store.ClearBatch(ctx)
}

// initializePromptBuilder はプロンプトビルダーを初期化します。
// 引数として既存のビルダーが渡された場合はそれを返し、nil の場合は新規作成します。
func initializePromptBuilder(pb prompts.Builder) (prompts.Builder, error) {
	if pb != nil {
		return pb, nil
	}
	builder, err := prompts.NewTextPromptBuilder()
	if err != nil {
		return nil, fmt.Errorf("TextPromptBuilder の新規作成に失敗しました: %w", err)
	}
	return builder, nil
}

// resolveModels はプロバイダに合わないモデル既定値をプロバイダ側の既定値に置き換えます。
func resolveModels(cfg config.Config) config.Config {
	if cfg.Provider != config.ProviderOpenAI {
		return cfg
	}
	if cfg.TextModel == "" || cfg.TextModel == config.DefaultGeminiModel {
		cfg.TextModel = config.DefaultOpenAIModel
	}
	if cfg.ImageModel == "" || cfg.ImageModel == config.DefaultGeminiImageModel {
		cfg.ImageModel = config.DefaultOpenAIImageModel
	}
	return cfg
}
