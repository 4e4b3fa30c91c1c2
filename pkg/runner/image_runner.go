package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shouni/go-conti-kit/pkg/asset"
	"github.com/shouni/go-conti-kit/pkg/domain"
	"github.com/shouni/go-conti-kit/pkg/generator"
	"github.com/shouni/go-conti-kit/pkg/session"
)

// EventKind は一括画像生成のイベント種別です。
type EventKind string

const (
	// EventScene は 1 シーン分の生成が終わったことを示します。成否は Image.Status で判別します。
	EventScene EventKind = "scene"
	// EventComplete は全シーンの生成を試行し終えたことを示します。
	EventComplete EventKind = "complete"
	// EventCancelled は停止要求により一括処理が中断され、成果物が破棄されたことを示します。
	EventCancelled EventKind = "cancelled"
)

// SceneEvent は一括画像生成の進捗イベントです。
type SceneEvent struct {
	Kind        EventKind
	SceneNumber int
	Image       domain.GeneratedImage
	Err         error
}

// ImageRunner はセッション内の全シーンの画像を番号順に 1 件ずつ生成します。
type ImageRunner struct {
	generator generator.SceneImageGenerator
	store     asset.Store
}

// NewImageRunner は依存関係を注入して初期化します。
func NewImageRunner(gen generator.SceneImageGenerator, store asset.Store) *ImageRunner {
	return &ImageRunner{generator: gen, store: store}
}

// GenerateAll は一括画像生成を開始し、進捗を受け取るための Batch を返します。
// 1 シーンの失敗では中断せず次のシーンへ進みます。停止要求を受けた場合は、
// このバッチで書き込んだ全成果物を破棄して ErrBatchCancelled で終了します。
func (r *ImageRunner) GenerateAll(ctx context.Context, sess *session.Session) *Batch[SceneEvent] {
	nums := sess.SceneNumbers()
	return startBatch(ctx, len(nums)+1, func(ctx context.Context, b *Batch[SceneEvent]) error {
		logger := slog.With("batch_id", b.ID, "session_id", sess.ID)
		logger.InfoContext(ctx, "一括画像生成を開始します", "count", len(nums))

		plot := sess.Plot()
		succeeded := 0
		for _, n := range nums {
			if b.stopRequested() || ctx.Err() != nil {
				return r.abort(ctx, b, sess, nums, logger)
			}

			img, err := r.generateScene(ctx, sess, plot, n)
			if err != nil && ctx.Err() != nil {
				return r.abort(ctx, b, sess, nums, logger)
			}
			if err != nil {
				logger.WarnContext(ctx, "シーン画像の生成に失敗しました。次のシーンへ進みます", "scene_number", n, "error", err)
			} else {
				succeeded++
			}
			b.emit(SceneEvent{Kind: EventScene, SceneNumber: n, Image: img, Err: err})
		}

		logger.InfoContext(ctx, "一括画像生成が完了しました", "succeeded", succeeded, "total", len(nums))
		b.emit(SceneEvent{Kind: EventComplete})
		return nil
	})
}

func (r *ImageRunner) generateScene(ctx context.Context, sess *session.Session, plot string, n int) (domain.GeneratedImage, error) {
	scene, err := sess.Scene(n)
	if err != nil {
		return domain.GeneratedImage{}, err
	}
	unlock, err := sess.LockScene(ctx, n)
	if err != nil {
		return domain.GeneratedImage{}, err
	}
	defer unlock()

	if old, ok := sess.Image(n); ok && old.Ref != "" {
		if err := r.store.Delete(ctx, old.Ref); err != nil {
			return domain.GeneratedImage{}, &domain.ArtifactError{Op: "delete", SceneNumber: n, Ref: old.Ref, Err: err}
		}
	}

	sess.SetState(n, domain.SceneStateGenerating)
	img, genErr := r.generator.Generate(ctx, generator.Request{Plot: plot, Scene: scene})
	if genErr != nil && ctx.Err() != nil {
		sess.SetState(n, domain.SceneStatePending)
		return img, genErr
	}

	sess.SetImage(img)
	sess.InvalidateValidation(n)
	if genErr != nil {
		sess.SetState(n, domain.SceneStateFailed)
	} else {
		sess.SetState(n, domain.SceneStateGenerated)
	}
	return img, genErr
}

// abort はバッチの成果物とセッション上の画像状態をすべて破棄します。
func (r *ImageRunner) abort(ctx context.Context, b *Batch[SceneEvent], sess *session.Session, nums []int, logger *slog.Logger) error {
	cleanupCtx := context.WithoutCancel(ctx)
	logger.WarnContext(cleanupCtx, "停止要求を受けたため、一括画像生成を中断して成果物を破棄します")

	sess.ResetScenes(nums)
	err := domain.ErrBatchCancelled
	if clearErr := r.store.ClearBatch(cleanupCtx); clearErr != nil {
		err = errors.Join(err, clearErr)
	}
	b.emit(SceneEvent{Kind: EventCancelled, Err: err})
	return err
}

// Upload はユーザーが用意した画像でシーンの画像を置き換えます。
// PNG / JPEG 以外の画像、上限サイズを超える画像、デコードできない画像は
// セッションを変更せずに *domain.ArtifactError で拒否します。
func (r *ImageRunner) Upload(ctx context.Context, sess *session.Session, sceneNumber int, data []byte, mimeType string) (domain.GeneratedImage, error) {
	if _, err := sess.Scene(sceneNumber); err != nil {
		return domain.GeneratedImage{}, err
	}
	if err := asset.CheckUpload(data, mimeType); err != nil {
		return domain.GeneratedImage{}, &domain.ArtifactError{Op: "upload", SceneNumber: sceneNumber, Err: err}
	}
	unlock, err := sess.LockScene(ctx, sceneNumber)
	if err != nil {
		return domain.GeneratedImage{}, err
	}
	defer unlock()

	if old, ok := sess.Image(sceneNumber); ok && old.Ref != "" {
		if err := r.store.Delete(ctx, old.Ref); err != nil {
			return domain.GeneratedImage{}, fmt.Errorf("既存画像の削除に失敗しました: %w", err)
		}
	}

	img, err := r.generator.Save(ctx, sceneNumber, data, mimeType, "")
	sess.SetImage(img)
	sess.InvalidateValidation(sceneNumber)
	if err != nil {
		sess.SetState(sceneNumber, domain.SceneStateFailed)
		return img, err
	}
	sess.SetState(sceneNumber, domain.SceneStateGenerated)
	slog.InfoContext(ctx, "シーン画像をアップロードしました", "scene_number", sceneNumber, "ref", img.Ref)
	return img, nil
}
