package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/shouni/go-conti-kit/pkg/asset"
	"github.com/shouni/go-conti-kit/pkg/config"
	"github.com/shouni/go-conti-kit/pkg/domain"
	"github.com/shouni/go-conti-kit/pkg/generator"
	"github.com/shouni/go-conti-kit/pkg/session"
)

// RegenerateRequest は 1 シーンの再生成要求です。
type RegenerateRequest struct {
	SceneNumber int
	// ImprovedPrompt が空でない場合、そのまま画像生成プロンプトとして使います。
	ImprovedPrompt string
	// ImprovedDescription が空でない場合、シーンの説明を書き換えてから再生成用テンプレートで生成します。
	ImprovedDescription string
}

type inflightRegen struct {
	token  uint64
	cancel context.CancelCauseFunc
}

// RegenerationRunner は呼び出し側の要求に応じてシーン画像を作り直します。
// 同じシーンへの新しい要求は、実行中の古い要求を ErrSuperseded で置き換えます。
type RegenerationRunner struct {
	cfg       config.Config
	generator generator.SceneImageGenerator
	store     asset.Store

	mu       sync.Mutex
	seq      uint64
	inflight map[int]inflightRegen
}

// NewRegenerationRunner は依存関係を注入して初期化します。
func NewRegenerationRunner(cfg config.Config, gen generator.SceneImageGenerator, store asset.Store) *RegenerationRunner {
	return &RegenerationRunner{
		cfg:       cfg,
		generator: gen,
		store:     store,
		inflight:  make(map[int]inflightRegen),
	}
}

// Candidates は総合点が threshold 未満のシーン番号を返します。threshold が 0 以下の場合は設定値を使います。
func (r *RegenerationRunner) Candidates(report domain.Report, threshold float64) []int {
	if threshold <= 0 {
		threshold = r.cfg.RegenThreshold
	}
	var nums []int
	for _, res := range report.Results {
		if res.TotalScore < threshold {
			nums = append(nums, res.SceneNumber)
		}
	}
	return nums
}

// Regenerate は既存の画像を削除してからシーン画像を生成し直し、セッションの画像を置き換えます。
func (r *RegenerationRunner) Regenerate(ctx context.Context, sess *session.Session, req RegenerateRequest) (domain.GeneratedImage, error) {
	n := req.SceneNumber
	if _, err := sess.Scene(n); err != nil {
		return domain.GeneratedImage{}, err
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	token := r.register(n, cancel)
	defer r.unregister(n, token)

	unlock, err := sess.LockScene(ctx, n)
	if err != nil {
		return domain.GeneratedImage{}, cancelCause(ctx, err)
	}
	defer unlock()

	scene, err := sess.Scene(n)
	if err != nil {
		return domain.GeneratedImage{}, err
	}
	if d := strings.TrimSpace(req.ImprovedDescription); d != "" {
		scene.Description = domain.FlexString(d)
		if err := sess.UpdateScene(scene); err != nil {
			return domain.GeneratedImage{}, err
		}
	}

	logger := slog.With("scene_number", n, "session_id", sess.ID)
	logger.InfoContext(ctx, "シーン画像を再生成します", "custom_prompt", req.ImprovedPrompt != "")

	sess.SetState(n, domain.SceneStateRegenerating)
	if old, ok := sess.Image(n); ok {
		if old.Ref != "" {
			if err := r.store.Delete(context.WithoutCancel(ctx), old.Ref); err != nil {
				sess.SetState(n, domain.SceneStateFailed)
				return domain.GeneratedImage{}, fmt.Errorf("既存画像の削除に失敗しました: %w", err)
			}
		}
		sess.RemoveImage(n)
	}
	sess.InvalidateValidation(n)

	img, err := r.generator.Generate(ctx, generator.Request{
		Plot:       sess.Plot(),
		Scene:      scene,
		Prompt:     req.ImprovedPrompt,
		Regenerate: true,
	})
	if err != nil && ctx.Err() != nil {
		sess.SetState(n, domain.SceneStatePending)
		return domain.GeneratedImage{}, cancelCause(ctx, err)
	}

	sess.SetImage(img)
	if err != nil {
		sess.SetState(n, domain.SceneStateFailed)
		return img, err
	}
	sess.SetState(n, domain.SceneStateRegenerated)
	logger.InfoContext(ctx, "シーン画像を再生成しました", "ref", img.Ref)
	return img, nil
}

// RegenerateCandidates は閾値未満のシーンを、検証結果の再生成プロンプトを使って順に再生成します。
// 1 シーンの失敗では中断せず、失敗はまとめて返します。
func (r *RegenerationRunner) RegenerateCandidates(ctx context.Context, sess *session.Session, report domain.Report, threshold float64) ([]domain.GeneratedImage, error) {
	var (
		images []domain.GeneratedImage
		errs   []error
	)
	for _, n := range r.Candidates(report, threshold) {
		if err := ctx.Err(); err != nil {
			return images, err
		}
		req := RegenerateRequest{SceneNumber: n}
		if res, ok := report.Result(n); ok && !res.Failed() {
			req.ImprovedPrompt = res.RegenerationPrompt
		}
		img, err := r.Regenerate(ctx, sess, req)
		if err != nil {
			errs = append(errs, fmt.Errorf("シーン %d の再生成に失敗しました: %w", n, err))
			continue
		}
		images = append(images, img)
	}
	return images, errors.Join(errs...)
}

// register は新しい要求を登録し、同じシーンで実行中の要求を置き換えます。
func (r *RegenerationRunner) register(n int, cancel context.CancelCauseFunc) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.inflight[n]; ok {
		prev.cancel(domain.ErrSuperseded)
	}
	r.seq++
	r.inflight[n] = inflightRegen{token: r.seq, cancel: cancel}
	return r.seq
}

func (r *RegenerationRunner) unregister(n int, token uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.inflight[n]; ok && cur.token == token {
		delete(r.inflight, n)
	}
}

// cancelCause は置き換えによる中断であれば ErrSuperseded を含むエラーにします。
func cancelCause(ctx context.Context, err error) error {
	if cause := context.Cause(ctx); errors.Is(cause, domain.ErrSuperseded) {
		return fmt.Errorf("%w: %w", domain.ErrSuperseded, err)
	}
	return err
}
