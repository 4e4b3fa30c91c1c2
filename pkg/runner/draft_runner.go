package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shouni/go-conti-kit/pkg/config"
	"github.com/shouni/go-conti-kit/pkg/domain"
	"github.com/shouni/go-conti-kit/pkg/parser"
	"github.com/shouni/go-conti-kit/pkg/prompts"
	"github.com/shouni/go-conti-kit/pkg/provider"
)

// DefaultVariants は 1 回の下書きで要求するストーリーボード案の数です。
const DefaultVariants = 3

// DraftRunner はフォーム入力からプロットとストーリーボード案を下書きします。
type DraftRunner struct {
	cfg           config.Config
	client        provider.GenerativeClient
	promptBuilder prompts.Builder
	variants      int
}

// NewDraftRunner は依存関係を注入して初期化します。
func NewDraftRunner(cfg config.Config, client provider.GenerativeClient, pb prompts.Builder) *DraftRunner {
	return &DraftRunner{
		cfg:           cfg,
		client:        client,
		promptBuilder: pb,
		variants:      DefaultVariants,
	}
}

// DraftPlot は 2〜3 行の広告プロットを生成します。
func (r *DraftRunner) DraftPlot(ctx context.Context, form domain.FormData) (string, error) {
	if err := form.Validate(); err != nil {
		return "", err
	}

	prompt, err := r.promptBuilder.Build(prompts.KindPlot, prompts.TemplateData{Form: form})
	if err != nil {
		return "", fmt.Errorf("プロットのプロンプト生成に失敗しました: %w", err)
	}

	slog.InfoContext(ctx, "DraftRunner: プロットを生成しています", "product", form.ProductName)
	text, err := r.client.GenerateText(ctx, prompt)
	if err != nil {
		return "", &domain.DraftError{Stage: "plot", Err: err}
	}
	plot := strings.TrimSpace(text)
	if plot == "" {
		return "", &domain.DraftError{Stage: "plot", Err: errors.New("プロットが空です")}
	}
	return plot, nil
}

// DraftStoryboard はプロットとフォーム入力から複数のストーリーボード案を生成します。
// 応答を解析できなかった場合もエラーにはせず、Status と元の応答を持つ DraftResult を返します。
func (r *DraftRunner) DraftStoryboard(ctx context.Context, form domain.FormData, plot string) (*parser.DraftResult, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}

	prompt, err := r.promptBuilder.Build(prompts.KindStoryboard, prompts.TemplateData{
		Form:       form,
		Plot:       plot,
		SceneCount: r.cfg.SceneCount,
		Variants:   r.variants,
		Schema:     prompts.StoryboardSchema(),
	})
	if err != nil {
		return nil, fmt.Errorf("ストーリーボードのプロンプト生成に失敗しました: %w", err)
	}

	slog.InfoContext(ctx, "DraftRunner: ストーリーボード案を生成しています",
		"scene_count", r.cfg.SceneCount,
		"variants", r.variants,
	)
	raw, err := r.client.GenerateText(ctx, prompt)
	if err != nil {
		return nil, &domain.DraftError{Stage: "storyboard", Err: err}
	}

	res := parser.ParseDraft(raw, r.cfg.SceneCount)
	if !res.OK() {
		slog.WarnContext(ctx, "ストーリーボード案を解析できませんでした。元の応答を保持します",
			"status", res.Status.String(),
			"error", res.Err,
		)
	}
	return res, nil
}

// Draft はプロットとストーリーボード案を続けて生成します。
func (r *DraftRunner) Draft(ctx context.Context, form domain.FormData) (string, *parser.DraftResult, error) {
	plot, err := r.DraftPlot(ctx, form)
	if err != nil {
		return "", nil, err
	}
	res, err := r.DraftStoryboard(ctx, form, plot)
	if err != nil {
		return plot, nil, err
	}
	return plot, res, nil
}
