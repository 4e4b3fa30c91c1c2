package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/go-conti-kit/pkg/asset"
	"github.com/shouni/go-conti-kit/pkg/domain"
	"github.com/shouni/go-conti-kit/pkg/prompts"
	"github.com/shouni/go-conti-kit/pkg/provider"
)

// SceneGenerator は 1 シーン分の画像を生成し、成果物ストアへ保存します。
// 一括生成・再生成・手動アップロードのすべてがこの経路を通ります。
type SceneGenerator struct {
	client  provider.GenerativeClient
	builder prompts.Builder
	store   asset.Store
	now     func() time.Time
}

var _ SceneImageGenerator = (*SceneGenerator)(nil)

// NewSceneGenerator は SceneGenerator の新しいインスタンスを初期化します。
func NewSceneGenerator(client provider.GenerativeClient, builder prompts.Builder, store asset.Store) (*SceneGenerator, error) {
	if client == nil {
		return nil, errors.New("GenerativeClient は必須です")
	}
	if builder == nil {
		return nil, errors.New("prompts.Builder は必須です")
	}
	if store == nil {
		return nil, errors.New("asset.Store は必須です")
	}
	return &SceneGenerator{client: client, builder: builder, store: store, now: time.Now}, nil
}

// BuildPrompt はリクエストから画像生成プロンプトを組み立てます。
// Prompt が指定されていればそのまま使います。
func (g *SceneGenerator) BuildPrompt(req Request) (string, error) {
	if req.Prompt != "" {
		return req.Prompt, nil
	}
	kind := prompts.KindSceneImage
	if req.Regenerate {
		kind = prompts.KindRegenImage
	}
	parts := prompts.SceneParts(req.Plot, req.Scene)
	if len(parts) == 0 {
		return "", fmt.Errorf("シーン %d にプロンプトの材料となる項目がありません", req.Scene.SceneNumber)
	}
	return g.builder.Build(kind, prompts.TemplateData{Scene: req.Scene, Parts: parts})
}

// Generate はシーン画像を生成して保存します。
// 生成または保存に失敗した場合は Failed 状態の画像とエラーを返します。
func (g *SceneGenerator) Generate(ctx context.Context, req Request) (domain.GeneratedImage, error) {
	n := req.Scene.SceneNumber
	logger := slog.With("scene_number", n, "regenerate", req.Regenerate)

	prompt, err := g.BuildPrompt(req)
	if err != nil {
		return g.failed(n, "", err), fmt.Errorf("シーン %d のプロンプト作成に失敗しました: %w", n, err)
	}

	logger.InfoContext(ctx, "Starting scene image generation")
	startTime := time.Now()

	img, err := g.client.GenerateImage(ctx, prompt)
	if err != nil {
		return g.failed(n, prompt, err), fmt.Errorf("シーン %d の画像生成に失敗しました: %w", n, err)
	}

	saved, err := g.Save(ctx, n, img.Data, img.MimeType, prompt)
	if err != nil {
		return saved, err
	}

	logger.InfoContext(ctx, "Scene image generation completed",
		"ref", saved.Ref,
		"duration", time.Since(startTime).Round(time.Millisecond),
	)
	return saved, nil
}

// Save は画像データを PNG に正規化して scene_<N>.png として保存します。
func (g *SceneGenerator) Save(ctx context.Context, sceneNumber int, data []byte, mimeType, prompt string) (domain.GeneratedImage, error) {
	pngData, err := asset.EnsurePNG(data, mimeType)
	if err != nil {
		return g.failed(sceneNumber, prompt, err), fmt.Errorf("シーン %d の画像変換に失敗しました: %w", sceneNumber, err)
	}
	ref, err := g.store.Write(ctx, sceneNumber, pngData)
	if err != nil {
		return g.failed(sceneNumber, prompt, err), err
	}
	return domain.GeneratedImage{
		SceneNumber: sceneNumber,
		Ref:         ref,
		Status:      domain.ImageStatusSuccess,
		Prompt:      prompt,
		CreatedAt:   g.now(),
	}, nil
}

func (g *SceneGenerator) failed(sceneNumber int, prompt string, err error) domain.GeneratedImage {
	return domain.GeneratedImage{
		SceneNumber: sceneNumber,
		Status:      domain.ImageStatusFailed,
		Reason:      err.Error(),
		Prompt:      prompt,
		CreatedAt:   g.now(),
	}
}
