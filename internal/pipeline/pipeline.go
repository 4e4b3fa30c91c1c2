package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-conti-kit/internal/builder"
	"github.com/shouni/go-conti-kit/internal/config"
	kitcfg "github.com/shouni/go-conti-kit/pkg/config"
	"github.com/shouni/go-conti-kit/pkg/domain"
	"github.com/shouni/go-conti-kit/pkg/parser"
	"github.com/shouni/go-conti-kit/pkg/publisher"
	"github.com/shouni/go-conti-kit/pkg/runner"
	"github.com/shouni/go-conti-kit/pkg/session"
)

// Execute は、フォームからの下書き (Phase 1) と、画像生成・検証・保存 (Phase 2 & 3) を通しで実行します。
func Execute(ctx context.Context, cfg *config.Config) error {
	appCtx, err := builder.BuildAppContext(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup(appCtx)

	draft, err := runDraftStep(ctx, appCtx)
	if err != nil {
		return err
	}
	sb, err := draft.Select(appCtx.Options.Select)
	if err != nil {
		return fmt.Errorf("ストーリーボード案の選択に失敗しました: %w", err)
	}

	if _, err := RunImagePhase(ctx, appCtx, sb); err != nil {
		return err
	}
	slog.Info("すべての工程が完了しました")
	return nil
}

// ExecuteDraftOnly は、フォームからプロットとストーリーボード案を下書きし、JSON ファイルに保存します。
func ExecuteDraftOnly(ctx context.Context, cfg *config.Config) error {
	appCtx, err := builder.BuildAppContext(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup(appCtx)

	draft, err := runDraftStep(ctx, appCtx)
	if err != nil {
		return err
	}
	slog.Info("下書きが完了しました", "storyboards", draft.Keys(), "path", appCtx.Options.StoryboardFile)
	return nil
}

// ExecuteImageOnly は、保存済みのストーリーボード案を読み込み、画像生成から保存までを実行します。
func ExecuteImageOnly(ctx context.Context, cfg *config.Config) error {
	appCtx, err := builder.BuildAppContext(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup(appCtx)

	draft, err := appCtx.Parser.ParseFromPath(ctx, appCtx.Options.StoryboardFile)
	if err != nil {
		return err
	}
	sb, err := draft.Select(appCtx.Options.Select)
	if err != nil {
		return fmt.Errorf("ストーリーボード案の選択に失敗しました: %w", err)
	}

	if _, err := RunImagePhase(ctx, appCtx, sb); err != nil {
		return err
	}
	slog.Info("画像生成と保存が完了しました")
	return nil
}

// runDraftStep はフォームを読み込んで下書きを生成し、結果を保存します。
func runDraftStep(ctx context.Context, appCtx *builder.AppContext) (*parser.DraftResult, error) {
	form, err := LoadForm(ctx, appCtx.Reader, appCtx.Options.FormFile)
	if err != nil {
		return nil, err
	}

	slog.Info("Phase 1: プロットとストーリーボード案の下書きを開始します", "product", form.ProductName)
	draftRunner, err := appCtx.Workflow.BuildDraftRunner()
	if err != nil {
		return nil, fmt.Errorf("DraftRunnerの構築に失敗しました: %w", err)
	}
	plot, draft, err := draftRunner.Draft(ctx, form)
	if err != nil {
		return nil, err
	}
	slog.Debug("プロットを生成しました", "plot", plot)

	if err := saveDraft(ctx, appCtx.Writer, appCtx.Options.StoryboardFile, draft); err != nil {
		return nil, err
	}
	if !draft.OK() {
		return nil, fmt.Errorf("ストーリーボード案を解析できませんでした (status=%s): 応答は %s に保存されています", draft.Status, appCtx.Options.StoryboardFile)
	}
	return draft, nil
}

// RunImagePhase は、選択されたストーリーボードについて画像生成・検証・任意の再生成・保存を順に実行します。
func RunImagePhase(ctx context.Context, appCtx *builder.AppContext, sb domain.Storyboard) (publisher.PublishResult, error) {
	sess := appCtx.Workflow.NewSession()
	if err := sess.LoadStoryboard(sb); err != nil {
		return publisher.PublishResult{}, fmt.Errorf("ストーリーボードの読み込みに失敗しました: %w", err)
	}

	if err := runImageStep(ctx, appCtx, sess); err != nil {
		return publisher.PublishResult{}, err
	}

	if !appCtx.Options.SkipValidation {
		if err := runValidationStep(ctx, appCtx, sess); err != nil {
			return publisher.PublishResult{}, err
		}
	}

	return runPublishStep(ctx, appCtx, sess)
}

// runImageStep は全シーンの画像を生成します。ctx がキャンセルされた場合は猶予期間付きで停止します。
func runImageStep(ctx context.Context, appCtx *builder.AppContext, sess *session.Session) error {
	slog.Info("Phase 2: 画像生成を開始します", "scenes", len(sess.SceneNumbers()))
	imageRunner, err := appCtx.Workflow.BuildImageRunner()
	if err != nil {
		return fmt.Errorf("ImageRunnerの構築に失敗しました: %w", err)
	}

	// 停止は StopWithGrace 経由で伝えるため、バッチ自体には ctx のキャンセルを伝播させない
	batch := imageRunner.GenerateAll(context.WithoutCancel(ctx), sess)
	grace := appCtx.Workflow.Config().StopGrace
	stopWatch := context.AfterFunc(ctx, func() {
		slog.Warn("停止要求を受け付けました。実行中のシーンの完了を待ちます", "grace", grace)
		batch.StopWithGrace(grace)
	})
	defer stopWatch()

	for ev := range batch.Events() {
		switch ev.Kind {
		case runner.EventScene:
			if ev.Err != nil {
				slog.Warn("シーン画像の生成に失敗しました", "scene_number", ev.SceneNumber, "error", ev.Err)
				continue
			}
			slog.Info("シーン画像を生成しました", "scene_number", ev.SceneNumber, "ref", ev.Image.Ref)
		case runner.EventCancelled:
			slog.Warn("画像生成を中断しました。生成済みの画像は破棄されました")
		}
	}
	if _, err := batch.Wait(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("画像生成に失敗しました: %w", err)
	}
	return nil
}

// runValidationStep は生成済み画像を検証し、必要に応じて再生成と再検証を行います。
func runValidationStep(ctx context.Context, appCtx *builder.AppContext, sess *session.Session) error {
	scenes := sess.SuccessfulScenes()
	if len(scenes) == 0 {
		slog.Warn("正常に生成された画像がないため検証をスキップします")
		return nil
	}

	slog.Info("Phase 3: 画像検証を開始します", "scenes", len(scenes), "mode", appCtx.Workflow.Config().ValidationMode)
	validator, err := appCtx.Workflow.BuildValidationRunner()
	if err != nil {
		return fmt.Errorf("ValidationRunnerの構築に失敗しました: %w", err)
	}
	report, err := validator.ValidateAll(ctx, sess, scenes)
	if err != nil {
		return fmt.Errorf("画像検証に失敗しました: %w", err)
	}
	logReport(report)

	regen, err := appCtx.Workflow.BuildRegenerationRunner()
	if err != nil {
		return fmt.Errorf("RegenerationRunnerの構築に失敗しました: %w", err)
	}
	if review := regen.Candidates(report, kitcfg.DefaultReviewThreshold); len(review) > 0 {
		slog.Info("確認を推奨するシーンがあります", "scenes", review, "threshold", kitcfg.DefaultReviewThreshold)
	}
	if !appCtx.Options.AutoRegenerate {
		return nil
	}

	candidates := regen.Candidates(report, appCtx.Options.Threshold)
	if len(candidates) == 0 {
		return nil
	}
	slog.Info("評価の低いシーンを再生成します", "scenes", candidates)
	images, err := regen.RegenerateCandidates(ctx, sess, report, appCtx.Options.Threshold)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("再生成を中断しました: %w", err)
		}
		slog.Warn("一部のシーンの再生成に失敗しました", "error", err)
	}

	var rescenes []domain.Scene
	for _, img := range images {
		scene, err := sess.Scene(img.SceneNumber)
		if err != nil {
			return err
		}
		rescenes = append(rescenes, scene)
	}
	if len(rescenes) == 0 {
		return nil
	}
	rereport, err := validator.ValidateAll(ctx, sess, rescenes)
	if err != nil {
		return fmt.Errorf("再生成画像の検証に失敗しました: %w", err)
	}
	logReport(rereport)
	return nil
}

// runPublishStep は PublishRunner を使って最終成果物を保存します。
func runPublishStep(ctx context.Context, appCtx *builder.AppContext, sess *session.Session) (publisher.PublishResult, error) {
	slog.Info("Phase 4: プロジェクトの保存を開始します")
	publishRunner, err := appCtx.Workflow.BuildPublishRunner()
	if err != nil {
		return publisher.PublishResult{}, fmt.Errorf("PublishRunnerの構築に失敗しました: %w", err)
	}
	res, err := publishRunner.Run(ctx, sess, appCtx.Options.ProjectName)
	if err != nil {
		return publisher.PublishResult{}, fmt.Errorf("プロジェクトの保存に失敗しました: %w", err)
	}
	slog.Info("プロジェクトを保存しました",
		"project", res.ProjectPath,
		"markdown", res.MarkdownPath,
		"images", len(res.ImagePaths),
	)
	return res, nil
}

func logReport(report domain.Report) {
	for _, res := range report.Results {
		attrs := []any{"scene_number", res.SceneNumber, "score", res.TotalScore, "grade", res.Grade()}
		if res.Failed() {
			attrs = append(attrs, "error", res.Error)
		} else if c, reason := res.MainIssue(); c != "" {
			attrs = append(attrs, "main_issue", c, "reason", reason)
		}
		slog.Info("検証結果", attrs...)
	}
	slog.Info("検証サマリー",
		"average", report.Average,
		"excellent", report.Excellent,
		"good", report.Good,
		"poor", report.Poor,
		"failed", report.Failed,
	)
}

func cleanup(appCtx *builder.AppContext) {
	if err := appCtx.Workflow.Cleanup(context.Background()); err != nil {
		slog.Warn("一時ファイルの削除に失敗しました", "error", err)
	}
}
