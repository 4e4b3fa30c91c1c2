package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/shouni/go-conti-kit/internal/remotetest"
	"github.com/shouni/go-conti-kit/pkg/asset"
	"github.com/shouni/go-conti-kit/pkg/domain"
	"github.com/shouni/go-conti-kit/pkg/session"
)

func TestSanitizeFolderName(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 8, 7, 0, time.UTC)
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"そのまま使える名前", "spring_ad-01", "spring_ad-01"},
		{"記号を除去する", "my/ad:*?<v2>", "myadv2"},
		{"ハングルは残す", "정수기 광고", "정수기 광고"},
		{"空なら日時から生成", "  ", "storyboard_20240501_090807"},
		{"記号のみなら日時から生成", "../..", "storyboard_20240501_090807"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFolderName(tt.in, now); got != tt.want {
				t.Errorf("SanitizeFolderName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestStoryboardPublisher_Publish(t *testing.T) {
	ctx := context.Background()
	store, err := asset.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	sess := session.New()
	sb := domain.Storyboard{
		Title: "맑은 물 <한 잔>",
		Plot:  "바쁜 아침, 정수기 한 잔으로 시작하는 하루",
		Scenes: []domain.Scene{
			{SceneNumber: 1, Visual: "주방", Description: "물을 따른다"},
			{SceneNumber: 2, Visual: "거실", Description: "물을 마신다"},
		},
	}
	if err := sess.LoadStoryboard(sb); err != nil {
		t.Fatalf("LoadStoryboard: %v", err)
	}
	ref, err := store.Write(ctx, 1, []byte("png-1"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	sess.SetImage(domain.GeneratedImage{SceneNumber: 1, Ref: ref, Status: domain.ImageStatusSuccess})
	sess.SetImage(domain.GeneratedImage{SceneNumber: 2, Status: domain.ImageStatusFailed, Reason: "quota"})
	sess.SetValidation(domain.ValidationResult{
		SceneNumber: 1,
		TotalScore:  2.7,
		Scores:      map[string]int{"메시지 전달력": 2, "창의성": 3, "브랜드 적합성": 3},
		Reasons:     map[string]string{"메시지 전달력": "제품이 잘 보이지 않음"},
	})

	files := remotetest.New()
	now := time.Date(2024, 5, 1, 9, 8, 7, 0, time.UTC)
	pub := NewStoryboardPublisher(files, store)
	res, err := pub.Publish(ctx, sess, Options{OutputDir: "gs://conti-output/projects", Now: now})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	wantDir := "gs://conti-output/projects/storyboard_20240501_090807"
	if res.ProjectDir != wantDir {
		t.Errorf("ProjectDir = %s, want %s", res.ProjectDir, wantDir)
	}
	wantImage := wantDir + "/images/scene_1.png"
	if diff := cmp.Diff(map[int]string{1: wantImage}, res.ImagePaths); diff != "" {
		t.Errorf("ImagePaths mismatch (-want +got):\n%s", diff)
	}
	if data, ok := files.File(wantImage); !ok || string(data) != "png-1" {
		t.Errorf("画像がコピーされていません: %q", data)
	}
	if ct := files.ContentType(wantImage); ct != "image/png" {
		t.Errorf("画像のコンテンツタイプ = %q", ct)
	}
	if _, err := os.Stat(ref); err != nil {
		t.Errorf("成果物ストアの画像が残っていません: %v", err)
	}

	t.Run("プロジェクト JSON のフィールド名と書式", func(t *testing.T) {
		raw, ok := files.File(res.ProjectPath)
		if !ok {
			t.Fatalf("プロジェクト JSON がありません: %v", files.Paths())
		}
		text := string(raw)
		if !strings.Contains(text, "\n  \"title\": \"맑은 물 <한 잔>\"") {
			t.Errorf("2 スペースのインデントまたは非エスケープになっていません:\n%s", text)
		}

		var got map[string]json.RawMessage
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		for _, key := range []string{"title", "scenes", "generated_images", "creation_date", "project_folder"} {
			if _, ok := got[key]; !ok {
				t.Errorf("フィールド %q がありません", key)
			}
		}
		var date string
		_ = json.Unmarshal(got["creation_date"], &date)
		if date != "2024-05-01 09:08:07" {
			t.Errorf("creation_date = %q", date)
		}
		var images map[string]string
		_ = json.Unmarshal(got["generated_images"], &images)
		if images["1"] != wantImage || len(images) != 1 {
			t.Errorf("generated_images = %v", images)
		}
	})

	t.Run("Markdown シート", func(t *testing.T) {
		raw, ok := files.File(res.MarkdownPath)
		if !ok {
			t.Fatalf("Markdown がありません: %v", files.Paths())
		}
		md := string(raw)
		for _, want := range []string{
			"# 맑은 물 <한 잔>",
			"## Scene 1: images/scene_1.png",
			"## Scene 2: placeholder.png",
			"- score: 2.7 (개선필요)",
			"- main issue: 메시지 전달력: 제품이 잘 보이지 않음",
		} {
			if !strings.Contains(md, want) {
				t.Errorf("Markdown に %q が含まれていません:\n%s", want, md)
			}
		}
	})
}

func TestStoryboardPublisher_WriteError(t *testing.T) {
	ctx := context.Background()
	store, err := asset.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	sess := session.New()
	if err := sess.LoadStoryboard(domain.Storyboard{Title: "t", Scenes: []domain.Scene{{SceneNumber: 1, Visual: "v"}}}); err != nil {
		t.Fatalf("LoadStoryboard: %v", err)
	}

	files := remotetest.New()
	files.WriteErr = errors.New("permission denied")
	if _, err := NewStoryboardPublisher(files, store).Publish(ctx, sess, Options{OutputDir: t.TempDir()}); !errors.Is(err, files.WriteErr) {
		t.Errorf("書き込みエラーが返されませんでした: %v", err)
	}
}

func TestResolveOutputPath(t *testing.T) {
	tests := []struct {
		base  string
		elems []string
		want  string
	}{
		{"gs://bucket/out", []string{"정수기 광고", "images", "scene_1.png"}, "gs://bucket/out/정수기 광고/images/scene_1.png"},
		{"GS://bucket/", []string{"a.json"}, "gs://bucket/a.json"},
		{"output", []string{"p", "storyboard.md"}, filepath.Join("output", "p", "storyboard.md")},
	}
	for _, tt := range tests {
		if got := ResolveOutputPath(tt.base, tt.elems...); got != tt.want {
			t.Errorf("ResolveOutputPath(%q, %v) = %q, want %q", tt.base, tt.elems, got, tt.want)
		}
	}
}
