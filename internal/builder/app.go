package builder

import (
	"github.com/shouni/go-conti-kit/internal/config"
	"github.com/shouni/go-conti-kit/pkg/parser"
	"github.com/shouni/go-conti-kit/pkg/publisher"
	"github.com/shouni/go-conti-kit/pkg/workflow"
)

// AppContext は、アプリケーション実行に必要な共通コンテキストを保持します。
// これを各工程に渡すことで、依存関係の注入を簡素化します。
type AppContext struct {
	Config   *config.Config         // Configは、環境変数から読み込まれたグローバルな設定です（APIキー、ストレージ設定など）。
	Options  config.GenerateOptions // Optionsは、コマンドラインから渡された実行時の設定です（入力ファイル、閾値など）。
	Reader   parser.InputReader     // Readerは、フォームやストーリーボード案の読み込みに使用する入力元です。
	Writer   publisher.OutputWriter // Writerは、下書きやプロジェクトを保存するための出力先です。
	Workflow *workflow.Manager      // Workflowは、各工程の Runner を構築するマネージャーです。
	Parser   parser.Parser          // Parserは、保存済みのストーリーボード案を読み込みます。
}

// NewAppContext は AppContext の新しいインスタンスを生成します。
func NewAppContext(
	cfg *config.Config,
	mgr *workflow.Manager,
	reader parser.InputReader,
	writer publisher.OutputWriter,
) AppContext {
	return AppContext{
		Config:   cfg,
		Options:  cfg.Options,
		Reader:   reader,
		Writer:   writer,
		Workflow: mgr,
		Parser:   parser.NewStoryboardFileParser(reader, mgr.Config().SceneCount),
	}
}
