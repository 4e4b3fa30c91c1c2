package runner

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shouni/go-conti-kit/pkg/domain"
)

// Batch は実行中の一括処理へのハンドルです。
// イベントは Events() から順に受け取れます。受け取らなくても処理は止まりません。
type Batch[T any] struct {
	ID string

	events chan T
	done   chan struct{}

	stop     chan struct{}
	stopOnce sync.Once
	cancel   context.CancelCauseFunc

	mu      sync.Mutex
	emitted []T
	err     error
}

// startBatch は run を別ゴルーチンで開始します。capacity はイベントの最大件数です。
func startBatch[T any](ctx context.Context, capacity int, run func(ctx context.Context, b *Batch[T]) error) *Batch[T] {
	runCtx, cancel := context.WithCancelCause(ctx)
	b := &Batch[T]{
		ID:     uuid.NewString(),
		events: make(chan T, capacity),
		done:   make(chan struct{}),
		stop:   make(chan struct{}),
		cancel: cancel,
	}

	go func() {
		err := run(runCtx, b)
		b.mu.Lock()
		b.err = err
		b.mu.Unlock()
		cancel(nil)
		close(b.events)
		close(b.done)
	}()
	return b
}

// emit はイベントを記録して配信します。
func (b *Batch[T]) emit(ev T) {
	b.mu.Lock()
	b.emitted = append(b.emitted, ev)
	b.mu.Unlock()
	select {
	case b.events <- ev:
	default:
		// 容量は開始時に確保済みのため通常は到達しない
	}
}

// stopRequested は停止要求済みかを返します。
func (b *Batch[T]) stopRequested() bool {
	select {
	case <-b.stop:
		return true
	default:
		return false
	}
}

// Events はイベントを受け取るチャネルを返します。処理の終了時に閉じられます。
func (b *Batch[T]) Events() <-chan T {
	return b.events
}

// Done は処理の終了時に閉じられるチャネルを返します。
func (b *Batch[T]) Done() <-chan struct{} {
	return b.done
}

// Stop は協調的な停止を要求します。実行中の 1 件は完了まで待ち、次の件の開始前に停止します。
func (b *Batch[T]) Stop() {
	b.stopOnce.Do(func() { close(b.stop) })
}

// StopWithGrace は停止を要求し、grace 経過後も終了していなければ実行中の呼び出しをキャンセルします。
func (b *Batch[T]) StopWithGrace(grace time.Duration) {
	b.Stop()
	if grace <= 0 {
		b.cancel(domain.ErrBatchCancelled)
		return
	}
	go func() {
		timer := time.NewTimer(grace)
		defer timer.Stop()
		select {
		case <-timer.C:
			b.cancel(domain.ErrBatchCancelled)
		case <-b.done:
		}
	}()
}

// Wait は処理の終了を待ち、配信済みの全イベントと処理結果のエラーを返します。
func (b *Batch[T]) Wait(ctx context.Context) ([]T, error) {
	select {
	case <-b.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]T(nil), b.emitted...), b.err
}
