package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shouni/go-conti-kit/internal/config"
	"github.com/shouni/go-conti-kit/internal/pipeline"
)

// generateCmd は、下書きから保存までの全工程を通しで実行します。
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "フォームから画像付きのストーリーボードを一括で作成します。",
	Long: `フォームを読み込んでプロットとストーリーボード案を下書きし、選択した案のシーン画像を
生成・検証してプロジェクトとして保存します。`,
	RunE: generateCommand,
}

func init() {
	generateCmd.Flags().StringVarP(&opts.FormFile, "form", "f", config.DefaultFormFile, "製品情報のフォームファイル (YAML) です。")
	addImageFlags(generateCmd)
}

func generateCommand(cmd *cobra.Command, args []string) error {
	ctx, stop := commandContext(cmd)
	defer stop()
	cfg := loadConfig()

	slog.Info("ストーリーボード生成パイプラインを起動します",
		"provider", cfg.Kit.Provider,
		"text_model", cfg.Kit.TextModel,
		"image_model", cfg.Kit.ImageModel,
		"scenes", cfg.Kit.SceneCount)

	if err := pipeline.Execute(ctx, cfg); err != nil {
		return fmt.Errorf("パイプライン実行中にエラーが発生しました: %w", err)
	}
	return nil
}
