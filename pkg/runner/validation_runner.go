package runner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shouni/go-conti-kit/pkg/asset"
	"github.com/shouni/go-conti-kit/pkg/config"
	"github.com/shouni/go-conti-kit/pkg/domain"
	"github.com/shouni/go-conti-kit/pkg/parser"
	"github.com/shouni/go-conti-kit/pkg/prompts"
	"github.com/shouni/go-conti-kit/pkg/provider"
	"github.com/shouni/go-conti-kit/pkg/session"
)

// ValidationRunner は生成画像をシーンの説明と照らし合わせて採点します。
type ValidationRunner struct {
	cfg           config.Config
	client        provider.GenerativeClient
	promptBuilder prompts.Builder
	store         asset.Store
}

// NewValidationRunner は依存関係を注入して初期化します。
func NewValidationRunner(cfg config.Config, client provider.GenerativeClient, pb prompts.Builder, store asset.Store) *ValidationRunner {
	return &ValidationRunner{
		cfg:           cfg,
		client:        client,
		promptBuilder: pb,
		store:         store,
	}
}

// ValidateAll は渡されたシーンをすべて検証し、シーン番号順のレポートを返します。
// 正常な画像を持たないシーンが含まれる場合は、処理を始める前に ValidationPreconditionError を返します。
// 1 シーンの失敗は全項目 0 点の結果として記録し、処理全体は中断しません。
func (r *ValidationRunner) ValidateAll(ctx context.Context, sess *session.Session, scenes []domain.Scene) (domain.Report, error) {
	images := make([]domain.GeneratedImage, len(scenes))
	var missing []int
	for i, sc := range scenes {
		img, ok := sess.Image(sc.SceneNumber)
		if !ok || !img.OK() {
			missing = append(missing, sc.SceneNumber)
			continue
		}
		images[i] = img
	}
	if len(missing) > 0 {
		return domain.Report{}, &domain.ValidationPreconditionError{SceneNumbers: missing}
	}

	mode := r.mode()
	slog.InfoContext(ctx, "ValidationRunner: 画像検証を開始します",
		"count", len(scenes),
		"mode", mode,
		"concurrency", r.cfg.ValidationConcurrency,
	)

	plot := sess.Plot()
	results := make([]domain.ValidationResult, len(scenes))
	var eg errgroup.Group
	eg.SetLimit(max(r.cfg.ValidationConcurrency, 1))
	for i := range scenes {
		eg.Go(func() error {
			res := r.validateScene(ctx, mode, plot, scenes[i], images[i])
			results[i] = res
			r.record(sess, images[i], res)
			return nil
		})
	}
	_ = eg.Wait()
	if err := ctx.Err(); err != nil {
		return domain.Report{}, fmt.Errorf("画像検証が中断されました: %w", err)
	}

	report := domain.NewReport(results)
	slog.InfoContext(ctx, "ValidationRunner: 画像検証が完了しました",
		"average", report.Average,
		"excellent", report.Excellent,
		"good", report.Good,
		"poor", report.Poor,
	)
	return report, nil
}

// record は検証した画像がまだ現在の画像である場合にのみ結果を保存します。
func (r *ValidationRunner) record(sess *session.Session, validated domain.GeneratedImage, res domain.ValidationResult) {
	current, ok := sess.Image(validated.SceneNumber)
	if !ok || current.Ref != validated.Ref || !current.CreatedAt.Equal(validated.CreatedAt) {
		return
	}
	sess.SetValidation(res)
	if !res.Failed() {
		sess.SetState(res.SceneNumber, domain.SceneStateValidated)
	}
}

func (r *ValidationRunner) mode() domain.ValidationMode {
	if r.cfg.ValidationMode.Valid() {
		return r.cfg.ValidationMode
	}
	return domain.ValidationModeCompare
}

func (r *ValidationRunner) validateScene(ctx context.Context, mode domain.ValidationMode, plot string, scene domain.Scene, img domain.GeneratedImage) domain.ValidationResult {
	n := scene.SceneNumber
	criteria := mode.Criteria()
	logger := slog.With("scene_number", n, "mode", mode)
	startTime := time.Now()

	data, err := r.store.Read(ctx, img.Ref)
	if err != nil {
		logger.WarnContext(ctx, "検証用の画像を読み込めませんでした", "error", err)
		return domain.FailedValidation(n, criteria, err)
	}
	data = asset.FitForVision(data, r.cfg.VisionMaxSize)

	var res domain.ValidationResult
	if mode == domain.ValidationModeDirect {
		res, err = r.scoreDirect(ctx, plot, scene, data, criteria)
	} else {
		res, err = r.scoreCompare(ctx, plot, scene, data, criteria)
	}
	if err != nil {
		logger.WarnContext(ctx, "シーンの検証に失敗しました", "error", err)
		return domain.FailedValidation(n, criteria, err)
	}

	logger.InfoContext(ctx, "シーンの検証が完了しました",
		"total_score", res.TotalScore,
		"duration", time.Since(startTime).Round(time.Millisecond),
	)
	return res
}

// scoreCompare は画像から説明文を推定し、元の説明文と比較して採点します。
func (r *ValidationRunner) scoreCompare(ctx context.Context, plot string, scene domain.Scene, data []byte, criteria []string) (domain.ValidationResult, error) {
	extractPrompt, err := r.promptBuilder.Build(prompts.KindDescriptionExtract, prompts.TemplateData{Scene: scene})
	if err != nil {
		return domain.ValidationResult{}, fmt.Errorf("説明文推定のプロンプト生成に失敗しました: %w", err)
	}
	rawDesc, err := r.client.GenerateMultimodalText(ctx, []provider.Part{
		provider.ImagePart(data, "image/png"),
		provider.TextPart(extractPrompt),
	})
	if err != nil {
		return domain.ValidationResult{}, fmt.Errorf("画像の説明文推定に失敗しました: %w", err)
	}
	predicted := parser.ParseDescription(rawDesc)
	original := originalDescription(scene)

	scorePrompt, err := r.promptBuilder.Build(prompts.KindScoreCompare, prompts.TemplateData{
		Scene:     scene,
		Original:  original,
		Predicted: predicted,
		Criteria:  criteria,
	})
	if err != nil {
		return domain.ValidationResult{}, fmt.Errorf("採点のプロンプト生成に失敗しました: %w", err)
	}
	rawScore, err := r.client.GenerateText(ctx, scorePrompt)
	if err != nil {
		return domain.ValidationResult{}, fmt.Errorf("説明文の比較採点に失敗しました: %w", err)
	}

	res := r.buildResult(scene.SceneNumber, rawScore, criteria)
	res.PredictedDescription = predicted
	if res.RegenerationPrompt == "" {
		feedback, err := r.promptBuilder.Build(prompts.KindFeedback, prompts.TemplateData{
			Original:     original,
			Predicted:    predicted,
			Improvements: prompts.ImprovementNotes(criteria, res.Improvements),
			Parts:        prompts.SceneParts(plot, scene),
		})
		if err != nil {
			return domain.ValidationResult{}, fmt.Errorf("再生成プロンプトの作成に失敗しました: %w", err)
		}
		res.RegenerationPrompt = feedback
	}
	return res, nil
}

// scoreDirect は画像とシーン情報を 1 回のマルチモーダル呼び出しで採点します。
func (r *ValidationRunner) scoreDirect(ctx context.Context, plot string, scene domain.Scene, data []byte, criteria []string) (domain.ValidationResult, error) {
	prompt, err := r.promptBuilder.Build(prompts.KindDirectScore, prompts.TemplateData{Scene: scene, Criteria: criteria})
	if err != nil {
		return domain.ValidationResult{}, fmt.Errorf("採点のプロンプト生成に失敗しました: %w", err)
	}
	raw, err := r.client.GenerateMultimodalText(ctx, []provider.Part{
		provider.ImagePart(data, "image/png"),
		provider.TextPart(prompt),
	})
	if err != nil {
		return domain.ValidationResult{}, fmt.Errorf("画像の採点に失敗しました: %w", err)
	}

	res := r.buildResult(scene.SceneNumber, raw, criteria)
	if res.RegenerationPrompt == "" {
		parts := prompts.SceneParts(plot, scene)
		if notes := prompts.ImprovementNotes(criteria, res.Improvements); notes != "" {
			parts = append(parts, "개선할 점: "+notes)
		} else if res.ImprovementText != "" {
			parts = append(parts, "개선할 점: "+res.ImprovementText)
		}
		regen, err := r.promptBuilder.Build(prompts.KindRegenImage, prompts.TemplateData{Scene: scene, Parts: parts})
		if err != nil {
			return domain.ValidationResult{}, fmt.Errorf("再生成プロンプトの作成に失敗しました: %w", err)
		}
		res.RegenerationPrompt = regen
	}
	return res, nil
}

// buildResult は採点応答を解析します。解析できない場合は行単位の走査で点数を拾い、その旨を改善内容に残します。
func (r *ValidationRunner) buildResult(sceneNumber int, raw string, criteria []string) domain.ValidationResult {
	sheet, err := parser.ParseScores(raw, criteria)
	if err != nil {
		slog.Warn("採点応答を解析できなかったため行単位で点数を抽出します", "scene_number", sceneNumber, "error", err)
		sheet = parser.FallbackScores(raw, criteria)
		sheet.ImprovementText = fmt.Sprintf("응답 파싱 중 오류 발생: %v", err)
	}

	res := domain.ValidationResult{
		SceneNumber:        sceneNumber,
		Scores:             sheet.Scores,
		Reasons:            sheet.Reasons,
		Improvements:       sheet.Improvements,
		ImprovementText:    sheet.ImprovementText,
		RegenerationPrompt: sheet.RegenerationPrompt,
	}
	for _, c := range criteria {
		res.Scores[c] = domain.ClampScore(res.Scores[c])
	}
	res.TotalScore = domain.TotalScore(res.Scores, criteria)
	if res.ImprovementText == "" {
		res.ImprovementText = prompts.ImprovementNotes(criteria, res.Improvements)
	}
	return res
}

// originalDescription は比較の基準となるシーンの説明文を返します。説明が空の場合は視覚描写で代用します。
func originalDescription(scene domain.Scene) string {
	if d := strings.TrimSpace(scene.Description.String()); d != "" {
		return d
	}
	return strings.TrimSpace(scene.Visual.String())
}
