package builder

import (
	"context"
	"fmt"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/gcsfactory"

	"github.com/shouni/go-conti-kit/internal/config"
	"github.com/shouni/go-conti-kit/pkg/workflow"
)

// BuildAppContext は、提供された設定を使用して入出力先とワークフローマネージャーを初期化し、AppContext を返します。
// 入出力はローカルパスと gs:// の両方を扱えます。
func BuildAppContext(ctx context.Context, cfg *config.Config) (*AppContext, error) {
	timeout := cfg.Options.HTTPTimeout
	if timeout <= 0 {
		timeout = config.DefaultHTTPTimeout
	}
	httpClient := httpkit.New(timeout)

	gcsFactory, err := gcsfactory.NewGCSClientFactory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client factory: %w", err)
	}
	reader, err := gcsFactory.NewInputReader()
	if err != nil {
		return nil, err
	}
	writer, err := gcsFactory.NewOutputWriter()
	if err != nil {
		return nil, err
	}

	mgr, err := workflow.New(ctx, workflow.ManagerArgs{
		Config:     cfg.Kit,
		HTTPClient: httpClient,
		Reader:     reader,
		Writer:     writer,
	})
	if err != nil {
		return nil, fmt.Errorf("ワークフローの初期化に失敗しました: %w", err)
	}

	appCtx := NewAppContext(cfg, mgr, reader, writer)
	return &appCtx, nil
}
