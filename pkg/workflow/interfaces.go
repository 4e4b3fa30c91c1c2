package workflow

import (
	"context"

	"github.com/shouni/go-conti-kit/pkg/domain"
	"github.com/shouni/go-conti-kit/pkg/parser"
	"github.com/shouni/go-conti-kit/pkg/publisher"
	"github.com/shouni/go-conti-kit/pkg/runner"
	"github.com/shouni/go-conti-kit/pkg/session"
)

// Workflow は、ストーリーボード作成の各工程を担当する Runner を構築するためのインターフェースを定義します。
type Workflow interface {
	BuildDraftRunner() (DraftRunner, error)
	BuildImageRunner() (ImageRunner, error)
	BuildValidationRunner() (ValidationRunner, error)
	BuildRegenerationRunner() (RegenerationRunner, error)
	BuildPublishRunner() (PublishRunner, error)
}

// DraftRunner は、フォーム入力からプロットとストーリーボード案を下書きする責務を持ちます。
type DraftRunner interface {
	DraftPlot(ctx context.Context, form domain.FormData) (string, error)
	DraftStoryboard(ctx context.Context, form domain.FormData, plot string) (*parser.DraftResult, error)
	Draft(ctx context.Context, form domain.FormData) (string, *parser.DraftResult, error)
}

// ImageRunner は、全シーンの画像を一括生成する責務を持ちます。
type ImageRunner interface {
	GenerateAll(ctx context.Context, sess *session.Session) *runner.Batch[runner.SceneEvent]
	Upload(ctx context.Context, sess *session.Session, sceneNumber int, data []byte, mimeType string) (domain.GeneratedImage, error)
}

// ValidationRunner は、生成画像をシーンの説明と照らし合わせて採点する責務を持ちます。
type ValidationRunner interface {
	ValidateAll(ctx context.Context, sess *session.Session, scenes []domain.Scene) (domain.Report, error)
}

// RegenerationRunner は、評価の低いシーンを改善したプロンプトで再生成する責務を持ちます。
type RegenerationRunner interface {
	Candidates(report domain.Report, threshold float64) []int
	Regenerate(ctx context.Context, sess *session.Session, req runner.RegenerateRequest) (domain.GeneratedImage, error)
	RegenerateCandidates(ctx context.Context, sess *session.Session, report domain.Report, threshold float64) ([]domain.GeneratedImage, error)
}

// PublishRunner は、セッションの成果物をプロジェクトとして保存する責務を持ちます。
type PublishRunner interface {
	Run(ctx context.Context, sess *session.Session, projectName string) (publisher.PublishResult, error)
}
