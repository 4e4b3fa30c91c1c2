package workflow

import (
	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/remoteio"

	"github.com/shouni/go-conti-kit/pkg/asset"
	"github.com/shouni/go-conti-kit/pkg/config"
	"github.com/shouni/go-conti-kit/pkg/prompts"
	"github.com/shouni/go-conti-kit/pkg/provider"
	"github.com/shouni/go-conti-kit/pkg/publisher"
)

// ManagerArgs は Manager の初期化に必要な設定と差し替え可能な依存関係です。
// Writer は必須です。Store と PromptBuilder が nil の場合は Config に従って既定の実装を生成します。
type ManagerArgs struct {
	Config config.Config

	// Client が nil の場合は Config.Provider に応じたクライアントを生成します。
	// いずれの場合も RetryClient で包まれます。
	Client        provider.GenerativeClient
	Store         asset.Store
	PromptBuilder prompts.Builder
	Writer        publisher.OutputWriter

	// HTTPClient と Reader は Client が nil の場合に必須で、生成画像や参照画像の取得に使います。
	HTTPClient httpkit.ClientInterface
	Reader     remoteio.InputReader
}
