package workflow

import (
	"github.com/shouni/go-conti-kit/pkg/publisher"
	"github.com/shouni/go-conti-kit/pkg/runner"
)

// BuildDraftRunner は、プロットとストーリーボード案の下書きを担当する Runner を作成します。
func (m *Manager) BuildDraftRunner() (DraftRunner, error) {
	return runner.NewDraftRunner(m.cfg, m.client, m.promptBuilder), nil
}

// BuildImageRunner は、シーン画像の一括生成を担当する Runner を作成します。
func (m *Manager) BuildImageRunner() (ImageRunner, error) {
	return runner.NewImageRunner(m.sceneGen, m.store), nil
}

// BuildValidationRunner は、画像検証を担当する Runner を作成します。
func (m *Manager) BuildValidationRunner() (ValidationRunner, error) {
	return runner.NewValidationRunner(m.cfg, m.client, m.promptBuilder, m.store), nil
}

// BuildRegenerationRunner は、シーン画像の再生成を担当する Runner を作成します。
func (m *Manager) BuildRegenerationRunner() (RegenerationRunner, error) {
	return runner.NewRegenerationRunner(m.cfg, m.sceneGen, m.store), nil
}

// BuildPublishRunner は、成果物のパブリッシュを担当する Runner を作成します。
func (m *Manager) BuildPublishRunner() (PublishRunner, error) {
	pub := publisher.NewStoryboardPublisher(m.writer, m.store)
	return runner.NewPublishRunner(m.cfg, pub), nil
}
