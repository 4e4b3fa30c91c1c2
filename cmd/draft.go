package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shouni/go-conti-kit/internal/config"
	"github.com/shouni/go-conti-kit/internal/pipeline"
)

// draftCmd は、フォームからプロットとストーリーボード案を下書きして JSON に保存します。
var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "フォームからストーリーボード案を下書きします。",
	Long: `製品情報のフォーム (YAML) を読み込み、広告プロットと複数のストーリーボード案を生成します。
結果は --storyboard-file に保存され、image コマンドの入力として使えます。`,
	RunE: draftCommand,
}

func init() {
	draftCmd.Flags().StringVarP(&opts.FormFile, "form", "f", config.DefaultFormFile, "製品情報のフォームファイル (YAML) です。")
}

func draftCommand(cmd *cobra.Command, args []string) error {
	ctx, stop := commandContext(cmd)
	defer stop()
	cfg := loadConfig()

	slog.Info("下書きを開始します",
		"provider", cfg.Kit.Provider,
		"text_model", cfg.Kit.TextModel,
		"form", opts.FormFile,
		"output", opts.StoryboardFile)

	return pipeline.ExecuteDraftOnly(ctx, cfg)
}
