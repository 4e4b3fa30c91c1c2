package runner

import (
	"context"

	"github.com/shouni/go-conti-kit/pkg/config"
	"github.com/shouni/go-conti-kit/pkg/publisher"
	"github.com/shouni/go-conti-kit/pkg/session"
)

// PublishRunner は pkg/publisher を利用してセッションの成果物を保存します。
type PublishRunner struct {
	cfg       config.Config
	publisher *publisher.StoryboardPublisher
}

func NewPublishRunner(cfg config.Config, pub *publisher.StoryboardPublisher) *PublishRunner {
	return &PublishRunner{
		cfg:       cfg,
		publisher: pub,
	}
}

// Run はプロジェクト名のフォルダへ保存します。projectName が空の場合は日時からフォルダ名を生成します。
func (pr *PublishRunner) Run(ctx context.Context, sess *session.Session, projectName string) (publisher.PublishResult, error) {
	opts := publisher.Options{
		OutputDir:  pr.cfg.OutputDir,
		FolderName: projectName,
		FileName:   pr.cfg.ProjectFileName,
	}
	return pr.publisher.Publish(ctx, sess, opts)
}
