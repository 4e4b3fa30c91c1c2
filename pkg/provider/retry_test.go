package provider_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shouni/go-conti-kit/pkg/domain"
	"github.com/shouni/go-conti-kit/pkg/provider"
	"github.com/shouni/go-conti-kit/pkg/provider/providertest"
)

func fastPolicy(maxAttempts int) provider.RetryPolicy {
	return provider.RetryPolicy{MaxAttempts: maxAttempts, InitialDelay: time.Millisecond, Multiplier: 2}
}

func TestRetryClient_SucceedsAfterFailures(t *testing.T) {
	for _, k := range []int{0, 1, 3} {
		calls := 0
		stub := &providertest.Stub{
			TextFunc: func(ctx context.Context, prompt string) (string, error) {
				calls++
				if calls <= k {
					return "", errors.New("temporary failure")
				}
				return "ok", nil
			},
		}
		rc := provider.NewRetryClient(stub, fastPolicy(10), nil)

		got, err := rc.GenerateText(context.Background(), "prompt")
		if err != nil {
			t.Fatalf("k=%d: 予期しないエラーです: %v", k, err)
		}
		if got != "ok" {
			t.Errorf("k=%d: got %q", k, got)
		}
		if calls != k+1 {
			t.Errorf("k=%d: 呼び出し回数 = %d, want %d", k, calls, k+1)
		}
	}
}

func TestRetryClient_ExhaustsAttempts(t *testing.T) {
	lastErr := errors.New("always failing")
	calls := 0
	stub := &providertest.Stub{
		ImageFunc: func(ctx context.Context, prompt string) (provider.Image, error) {
			calls++
			return provider.Image{}, lastErr
		},
	}
	rc := provider.NewRetryClient(stub, fastPolicy(provider.DefaultMaxAttempts), nil)

	_, err := rc.GenerateImage(context.Background(), "prompt")
	if calls != provider.DefaultMaxAttempts {
		t.Fatalf("呼び出し回数 = %d, want %d", calls, provider.DefaultMaxAttempts)
	}

	var perr *domain.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("ProviderError が返されませんでした: %v", err)
	}
	if perr.Attempts != provider.DefaultMaxAttempts || perr.Op != "generate_image" {
		t.Errorf("ProviderError の内容が不正です: %+v", perr)
	}
	if !errors.Is(err, lastErr) {
		t.Errorf("最後のエラーが保持されていません: %v", err)
	}
}

func TestRetryClient_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	stub := &providertest.Stub{
		TextFunc: func(ctx context.Context, prompt string) (string, error) {
			calls++
			cancel()
			return "", errors.New("failure")
		},
	}
	rc := provider.NewRetryClient(stub, provider.RetryPolicy{MaxAttempts: 10, InitialDelay: time.Hour, Multiplier: 2}, nil)

	done := make(chan error, 1)
	go func() {
		_, err := rc.GenerateText(ctx, "prompt")
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("context.Canceled が返されませんでした: %v", err)
		}
		if calls != 1 {
			t.Errorf("呼び出し回数 = %d, want 1", calls)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("キャンセル後もバックオフ待機が続いています")
	}
}

func TestPart_DataURL(t *testing.T) {
	p := provider.ImagePart([]byte{0x89, 0x50}, "")
	if !p.IsBinary() || p.MimeType != "image/png" {
		t.Fatalf("ImagePart の内容が不正です: %+v", p)
	}
	if got := p.DataURL(); got != "data:image/png;base64,iVA=" {
		t.Errorf("DataURL = %q", got)
	}
}
