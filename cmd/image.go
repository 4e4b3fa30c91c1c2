package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shouni/go-conti-kit/internal/pipeline"
)

// imageCmd は、保存済みのストーリーボード案から画像生成・検証・保存を行います。
// 下書きをスキップするため、案を手で修正してから画像だけ作り直したい場合に使います。
var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "ストーリーボード案の JSON から画像を生成して保存します。",
	Long: `--storyboard-file のストーリーボード案を読み込み、シーン画像の生成、検証、
任意の自動再生成を行ってからプロジェクトとして保存します。`,
	RunE: imageCommand,
}

func init() {
	addImageFlags(imageCmd)
}

func imageCommand(cmd *cobra.Command, args []string) error {
	ctx, stop := commandContext(cmd)
	defer stop()
	cfg := loadConfig()

	slog.Info("画像生成モードを起動します",
		"input_json", opts.StoryboardFile,
		"select", opts.Select,
		"image_model", cfg.Kit.ImageModel)

	return pipeline.ExecuteImageOnly(ctx, cfg)
}
