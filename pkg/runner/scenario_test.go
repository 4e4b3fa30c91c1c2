package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/shouni/go-conti-kit/internal/remotetest"
	"github.com/shouni/go-conti-kit/pkg/domain"
	"github.com/shouni/go-conti-kit/pkg/provider"
	"github.com/shouni/go-conti-kit/pkg/provider/providertest"
	"github.com/shouni/go-conti-kit/pkg/publisher"
	"github.com/shouni/go-conti-kit/pkg/session"
)

func waterPurifierDraft(n int) string {
	var scenes []string
	for i := 1; i <= n; i++ {
		scenes = append(scenes, fmt.Sprintf(
			`{"scene_number": %d, "duration": "1초", "visual": "씬%d 주방 정수기", "audio": "물소리", "text": "", "description": "씬%d 물을 따르는 가족"}`,
			i, i, i))
	}
	return "```json\n{\"storyboard1\": {\"title\": \"깨끗한 하루\", \"total duration\": \"8초\", \"plot\": \"정수기와 함께하는 아침\"," +
		" \"mood\": \"따뜻한\", \"scenes\": [" + strings.Join(scenes, ",") + "]," +
		" \"key_messages\": [\"깨끗한 물\"], \"call_to_action\": \"지금 상담하세요\"}," +
		" \"storyboard2\": {\"title\": \"B안\", \"scenes\": [{\"scene_number\": 1, \"visual\": \"x\"}]}}\n```"
}

func TestScenario_WaterPurifier(t *testing.T) {
	ctx := context.Background()
	form := domain.FormData{
		ProductName:        "정수기",
		ProductDescription: "필터 3단계로 깨끗한 물을 제공하는 가정용 정수기",
		ToneManner:         "따뜻하고 감성적인",
	}

	var regenerated bool
	stub := &providertest.Stub{}
	stub.TextFunc = func(_ context.Context, prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "storyboard1"):
			return waterPurifierDraft(8), nil
		case strings.Contains(prompt, "평가 기준"):
			if strings.Contains(prompt, "씬3 물을") && !regenerated {
				return scoreJSON(2, 2, 3), nil
			}
			return scoreJSON(4, 4, 5), nil
		default:
			return "정수기와 함께하는 가족의 따뜻한 아침.", nil
		}
	}
	stub.MultimodalFunc = func(context.Context, []provider.Part) (string, error) {
		return `{"description": "주방에서 물을 따르는 가족"}`, nil
	}
	f := newFixture(t, stub)

	plot, drafts, err := f.draft.Draft(ctx, form)
	if err != nil {
		t.Fatalf("Draft: %v", err)
	}
	if diff := cmp.Diff([]string{"storyboard1", "storyboard2"}, drafts.Keys()); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
	sb, err := drafts.Select("storyboard1")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if plot == "" || sb.Title != "깨끗한 하루" {
		t.Fatalf("下書きが取得できていません: plot=%q title=%q", plot, sb.Title)
	}

	sess := loadedStoryboard(t, sb)
	if len(sess.Scenes()) != 8 {
		t.Fatalf("シーン数 = %d", len(sess.Scenes()))
	}

	generateAll(t, f, sess)
	if got := len(sess.SuccessfulScenes()); got != 8 {
		t.Fatalf("成功したシーン数 = %d", got)
	}
	if !strings.HasPrefix(stub.ImagePrompts[0], "아래의 정보를 참고 하여 스토리보드 스케치 이미지를 만들어줘. 전체 줄거리: 정수기와 함께하는 아침 | 시각적 묘사: 씬1 주방 정수기") {
		t.Errorf("画像プロンプト = %s", stub.ImagePrompts[0])
	}

	report, err := f.validate.ValidateAll(ctx, sess, sess.SuccessfulScenes())
	if err != nil {
		t.Fatalf("ValidateAll: %v", err)
	}
	if len(report.Results) != 8 || report.Poor != 1 || report.Excellent != 7 {
		t.Fatalf("report = %+v", report)
	}
	candidates := f.regen.Candidates(report, 0)
	if diff := cmp.Diff([]int{3}, candidates); diff != "" {
		t.Fatalf("candidates mismatch (-want +got):\n%s", diff)
	}

	regenerated = true
	imgs, err := f.regen.RegenerateCandidates(ctx, sess, report, 0)
	if err != nil || len(imgs) != 1 {
		t.Fatalf("RegenerateCandidates: %v (%d)", err, len(imgs))
	}
	res3, _ := report.Result(3)
	if got := stub.ImagePrompts[len(stub.ImagePrompts)-1]; got != res3.RegenerationPrompt {
		t.Errorf("検証結果の再生成プロンプトが使われていません: %s", got)
	}

	scene3, _ := sess.Scene(3)
	again, err := f.validate.ValidateAll(ctx, sess, []domain.Scene{scene3})
	if err != nil {
		t.Fatalf("ValidateAll: %v", err)
	}
	if again.Results[0].TotalScore < 4.0 {
		t.Errorf("再検証の総合点 = %v", again.Results[0].TotalScore)
	}

	files := remotetest.New()
	pub := NewPublishRunner(f.cfg, publisher.NewStoryboardPublisher(files, f.store))
	pub.cfg.OutputDir = "gs://conti-output/projects"
	result, err := pub.Run(ctx, sess, "정수기 광고")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	raw, ok := files.File(result.ProjectPath)
	if !ok {
		t.Fatalf("%s が保存されていません", result.ProjectPath)
	}
	var project domain.Project
	if err := json.Unmarshal(raw, &project); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if project.Title != "깨끗한 하루" || len(project.Scenes) != 8 || len(project.GeneratedImages) != 8 {
		t.Errorf("project = %s / %d scenes / %d images", project.Title, len(project.Scenes), len(project.GeneratedImages))
	}
	if project.Scenes[0].Mood != "따뜻한" {
		t.Errorf("シーンの雰囲気が引き継がれていません: %q", project.Scenes[0].Mood)
	}
	if _, err := time.Parse(domain.CreationDateLayout, project.CreationDate); err != nil {
		t.Errorf("creation_date = %q", project.CreationDate)
	}
}

func loadedStoryboard(t *testing.T, sb domain.Storyboard) *session.Session {
	t.Helper()
	sess := session.New()
	if err := sess.LoadStoryboard(sb); err != nil {
		t.Fatalf("LoadStoryboard: %v", err)
	}
	return sess
}
