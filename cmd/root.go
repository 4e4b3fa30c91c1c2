package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	clibase "github.com/shouni/go-cli-base"
	"github.com/spf13/cobra"

	"github.com/shouni/go-conti-kit/internal/config"
)

// opts は全サブコマンドで共有する実行時パラメータです。
var opts config.GenerateOptions

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義します。
func addAppFlags(rootCmd *cobra.Command) {
	// --- 入出力 ---
	rootCmd.PersistentFlags().StringVarP(&opts.StoryboardFile, "storyboard-file", "s", config.DefaultStoryboardFile, "ストーリーボード案の JSON ファイル（ローカル or gs://...）です。")
	rootCmd.PersistentFlags().StringVarP(&opts.ProjectName, "project-name", "n", "", "保存するプロジェクトのフォルダ名です。未指定の場合は日時から生成します。")

	// --- AIモデル・挙動設定 ---
	rootCmd.PersistentFlags().StringVar(&opts.Provider, "provider", "", "使用する AI プロバイダ (gemini / openai) です。")
	rootCmd.PersistentFlags().StringVar(&opts.AIModel, "model", "", "使用するテキストモデル名です。")
	rootCmd.PersistentFlags().StringVar(&opts.ImageModel, "image-model", "", "使用する画像生成モデル名です。")
	rootCmd.PersistentFlags().IntVar(&opts.SceneCount, "scenes", 0, "ストーリーボードのシーン数です (1〜16)。")
	rootCmd.PersistentFlags().DurationVar(&opts.HTTPTimeout, "http-timeout", config.DefaultHTTPTimeout, "Webリクエストのタイムアウトです。")
}

// addImageFlags は画像工程を含むコマンドで共通のフラグを定義します。
func addImageFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&opts.Select, "select", "", "採用するストーリーボード案のキーです (例: storyboard2)。未指定の場合は最初の案です。")
	cmd.Flags().StringVar(&opts.ValidationMode, "validation-mode", "", "画像検証の方式 (compare / direct) です。")
	cmd.Flags().Float64Var(&opts.Threshold, "threshold", 0, "自動再生成の対象とする総合点の閾値です。")
	cmd.Flags().BoolVar(&opts.SkipValidation, "skip-validation", false, "画像検証を行わずに保存します。")
	cmd.Flags().BoolVar(&opts.AutoRegenerate, "auto-regenerate", false, "閾値未満のシーンを自動で再生成します。")
}

// preRunAppE は、コマンド実行前に .env を読み込みます。
func preRunAppE(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil {
		slog.Debug(".env ファイルが見つからないため環境変数のみを使用します")
	}
	return nil
}

// loadConfig は環境変数から設定を読み込み、フラグの値を反映します。
func loadConfig() *config.Config {
	cfg := config.LoadConfig()
	cfg.Apply(opts)
	return cfg
}

// commandContext は Ctrl-C または SIGTERM でキャンセルされるコンテキストを返します。
// 実行中の工程はこのキャンセルを受けて猶予付きで停止します。
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

// Execute は、アプリケーションのメインエントリポイントです。
// main.go から呼び出され、cobra のコマンドライン解析を開始します。
func Execute() {
	clibase.Execute(
		"conti",
		addAppFlags,
		preRunAppE,
		draftCmd,
		imageCmd,
		generateCmd,
	)
}
