package workflow

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/shouni/go-conti-kit/internal/remotetest"
	"github.com/shouni/go-conti-kit/pkg/config"
	"github.com/shouni/go-conti-kit/pkg/domain"
	"github.com/shouni/go-conti-kit/pkg/provider/providertest"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.TempDir = filepath.Join(t.TempDir(), "temp")
	cfg.OutputDir = filepath.Join(t.TempDir(), "output")
	cfg.ArtifactCacheTTL = time.Minute
	return cfg
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("不正な設定はエラー", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.SceneCount = 0
		if _, err := New(ctx, ManagerArgs{Config: cfg, Client: &providertest.Stub{}, Writer: remotetest.New()}); err == nil {
			t.Fatal("エラーが返されるべきです")
		}
	})

	t.Run("OutputWriter 未指定はエラー", func(t *testing.T) {
		if _, err := New(ctx, ManagerArgs{Config: testConfig(t), Client: &providertest.Stub{}}); err == nil {
			t.Fatal("エラーが返されるべきです")
		}
	})

	t.Run("Client 未指定で httpClient もなければエラー", func(t *testing.T) {
		if _, err := New(ctx, ManagerArgs{Config: testConfig(t), Writer: remotetest.New()}); err == nil {
			t.Fatal("エラーが返されるべきです")
		}
	})

	t.Run("OpenAI ではモデル既定値を置き換える", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Provider = config.ProviderOpenAI
		m, err := New(ctx, ManagerArgs{Config: cfg, Client: &providertest.Stub{}, Writer: remotetest.New()})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		got := []string{m.Config().TextModel, m.Config().ImageModel}
		want := []string{config.DefaultOpenAIModel, config.DefaultOpenAIImageModel}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("モデル (-want +got):\n%s", diff)
		}
	})

	t.Run("明示的なモデル指定は維持する", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Provider = config.ProviderOpenAI
		cfg.TextModel = "gpt-4.1"
		m, err := New(ctx, ManagerArgs{Config: cfg, Client: &providertest.Stub{}, Writer: remotetest.New()})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if m.Config().TextModel != "gpt-4.1" {
			t.Errorf("TextModel = %q", m.Config().TextModel)
		}
	})
}

func TestManager_GenerateAndPublish(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	files := remotetest.New()
	m, err := New(ctx, ManagerArgs{Config: cfg, Client: &providertest.Stub{}, Writer: files})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = m.Cleanup(context.Background()) })

	sess := m.NewSession()
	sb := domain.Storyboard{Title: "물 광고", Plot: "깨끗한 물"}
	for i := 1; i <= 3; i++ {
		sb.Scenes = append(sb.Scenes, domain.Scene{SceneNumber: i, Visual: "주방", Description: "물을 따른다"})
	}
	if err := sess.LoadStoryboard(sb); err != nil {
		t.Fatalf("LoadStoryboard: %v", err)
	}

	images, err := m.BuildImageRunner()
	if err != nil {
		t.Fatalf("BuildImageRunner: %v", err)
	}
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := images.GenerateAll(ctx, sess).Wait(waitCtx); err != nil {
		t.Fatalf("GenerateAll: %v", err)
	}
	for _, n := range sess.SceneNumbers() {
		if got := sess.State(n); got != domain.SceneStateGenerated {
			t.Errorf("scene %d state = %v", n, got)
		}
	}

	pub, err := m.BuildPublishRunner()
	if err != nil {
		t.Fatalf("BuildPublishRunner: %v", err)
	}
	res, err := pub.Run(ctx, sess, "물 광고")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(res.ImagePaths) != 3 {
		t.Errorf("ImagePaths = %d, want 3", len(res.ImagePaths))
	}
	if _, ok := files.File(res.ProjectPath); !ok {
		t.Errorf("プロジェクトファイルがありません: %s", res.ProjectPath)
	}
}

func TestManager_BuildRunners(t *testing.T) {
	m, err := New(context.Background(), ManagerArgs{Config: testConfig(t), Client: &providertest.Stub{}, Writer: remotetest.New()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := m.BuildDraftRunner(); err != nil {
		t.Errorf("BuildDraftRunner: %v", err)
	}
	if _, err := m.BuildValidationRunner(); err != nil {
		t.Errorf("BuildValidationRunner: %v", err)
	}
	r, err := m.BuildRegenerationRunner()
	if err != nil {
		t.Fatalf("BuildRegenerationRunner: %v", err)
	}
	report := domain.NewReport([]domain.ValidationResult{
		{SceneNumber: 1, TotalScore: 4.3},
		{SceneNumber: 2, TotalScore: 2.7},
	})
	if diff := cmp.Diff([]int{2}, r.Candidates(report, 0)); diff != "" {
		t.Errorf("Candidates (-want +got):\n%s", diff)
	}
}
