package provider

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/shouni/go-conti-kit/pkg/domain"
)

const (
	DefaultMaxAttempts  = 10
	DefaultInitialDelay = time.Second
	DefaultMultiplier   = 2.0
)

// RetryPolicy は指数バックオフによるリトライ方針です。ジッターは付与しません。
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
}

// DefaultRetryPolicy は最大 10 回、初回 1 秒、試行ごとに 2 倍の方針を返します。
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  DefaultMaxAttempts,
		InitialDelay: DefaultInitialDelay,
		Multiplier:   DefaultMultiplier,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = DefaultInitialDelay
	}
	if p.Multiplier < 1 {
		p.Multiplier = DefaultMultiplier
	}
	return p
}

// RetryClient は GenerativeClient の全呼び出しに共通のリトライとレート制限を適用します。
// リトライ上限に達した場合は最後のエラーを *domain.ProviderError で包んで返します。
type RetryClient struct {
	client  GenerativeClient
	policy  RetryPolicy
	limiter *rate.Limiter
}

// NewRetryClient は RetryClient を初期化します。limiter が nil の場合はレート制限を行いません。
func NewRetryClient(client GenerativeClient, policy RetryPolicy, limiter *rate.Limiter) *RetryClient {
	return &RetryClient{
		client:  client,
		policy:  policy.normalized(),
		limiter: limiter,
	}
}

// NewLimiter は呼び出し間隔から rate.Limiter を生成します。interval が 0 以下の場合は nil を返します。
func NewLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(interval), 2)
}

// GenerateText implements GenerativeClient.
func (c *RetryClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	return retryDo(ctx, c, "generate_text", func(ctx context.Context) (string, error) {
		return c.client.GenerateText(ctx, prompt)
	})
}

// GenerateMultimodalText implements GenerativeClient.
func (c *RetryClient) GenerateMultimodalText(ctx context.Context, parts []Part) (string, error) {
	return retryDo(ctx, c, "generate_multimodal_text", func(ctx context.Context) (string, error) {
		return c.client.GenerateMultimodalText(ctx, parts)
	})
}

// GenerateImage implements GenerativeClient.
func (c *RetryClient) GenerateImage(ctx context.Context, prompt string) (Image, error) {
	return retryDo(ctx, c, "generate_image", func(ctx context.Context) (Image, error) {
		return c.client.GenerateImage(ctx, prompt)
	})
}

func (c *RetryClient) newBackOff(ctx context.Context) backoff.BackOffContext {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.policy.InitialDelay
	eb.Multiplier = c.policy.Multiplier
	eb.RandomizationFactor = 0
	eb.MaxInterval = time.Duration(math.MaxInt64)
	eb.MaxElapsedTime = 0
	eb.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(c.policy.MaxAttempts-1)), ctx)
}

func retryDo[T any](ctx context.Context, c *RetryClient, op string, fn func(context.Context) (T, error)) (T, error) {
	var (
		result   T
		attempts int
	)
	operation := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}
		attempts++
		v, err := fn(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		result = v
		return nil
	}
	notify := func(err error, next time.Duration) {
		slog.WarnContext(ctx, "プロバイダ呼び出しに失敗したため再試行します",
			"op", op,
			"attempt", attempts,
			"max_attempts", c.policy.MaxAttempts,
			"next_delay", next,
			"error", err)
	}

	if err := backoff.RetryNotify(operation, c.newBackOff(ctx), notify); err != nil {
		var zero T
		return zero, &domain.ProviderError{Op: op, Attempts: attempts, Err: err}
	}
	return result, nil
}
