package generator

import (
	"context"

	"github.com/shouni/go-conti-kit/pkg/domain"
)

// SceneImageGenerator は 1 シーン分の画像生成と保存を行うインターフェースを定義します。
type SceneImageGenerator interface {
	Generate(ctx context.Context, req Request) (domain.GeneratedImage, error)
	Save(ctx context.Context, sceneNumber int, data []byte, mimeType, prompt string) (domain.GeneratedImage, error)
}
