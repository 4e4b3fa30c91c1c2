package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/shouni/go-conti-kit/pkg/asset"
	"github.com/shouni/go-conti-kit/pkg/domain"
	"github.com/shouni/go-conti-kit/pkg/session"
)

// Options はパブリッシュ動作を制御する設定項目です。
type Options struct {
	OutputDir string
	// FolderName が空の場合は storyboard_YYYYMMDD_HHMMSS を使います。
	FolderName string
	FileName   string
	Now        time.Time
}

// PublishResult はパブリッシュ処理の結果として生成されたファイルの情報を保持します。
type PublishResult struct {
	ProjectDir   string         // 作成されたプロジェクトフォルダ
	ProjectPath  string         // 生成されたプロジェクト JSON のパス
	MarkdownPath string         // 生成された storyboard.md のパス
	ImagePaths   map[int]string // シーン番号ごとの保存済み画像パス
}

// StoryboardPublisher はセッションの成果物をプロジェクトフォルダへ保存します。
type StoryboardPublisher struct {
	writer OutputWriter
	store  asset.Store
}

// NewStoryboardPublisher は成果物ストアから画像を読み出し、writer へ書き出すパブリッシャーを生成します。
func NewStoryboardPublisher(writer OutputWriter, store asset.Store) *StoryboardPublisher {
	return &StoryboardPublisher{writer: writer, store: store}
}

// Publish は画像のコピー、プロジェクト JSON と Markdown の書き出しを一括して実行します。
// 成果物ストア上の画像は削除せずに残します。
func (p *StoryboardPublisher) Publish(ctx context.Context, sess *session.Session, opts Options) (PublishResult, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	folder := SanitizeFolderName(opts.FolderName, now)
	fileName := opts.FileName
	if fileName == "" {
		fileName = "final_storyboard.json"
	}

	projectDir := ResolveOutputPath(opts.OutputDir, folder)
	result := PublishResult{
		ProjectDir:   projectDir,
		ProjectPath:  ResolveOutputPath(projectDir, fileName),
		MarkdownPath: ResolveOutputPath(projectDir, asset.DefaultStoryboardMarkdown),
	}

	savedPaths, relPaths, err := p.saveImages(ctx, sess.Images(), projectDir)
	if err != nil {
		return result, fmt.Errorf("画像の書き込みに失敗しました: %w", err)
	}
	result.ImagePaths = savedPaths

	sb := sess.Storyboard()
	project := domain.NewProject(sb.Title, sb.Scenes, savedPaths, projectDir, now)
	data, err := encodeProject(project)
	if err != nil {
		return result, err
	}
	if err := p.writer.Write(ctx, result.ProjectPath, bytes.NewReader(data), "application/json; charset=utf-8"); err != nil {
		return result, fmt.Errorf("プロジェクトファイルの書き込みに失敗しました: %w", err)
	}

	validations := make(map[int]domain.ValidationResult)
	for _, v := range sess.Validations() {
		validations[v.SceneNumber] = v
	}
	content := BuildMarkdown(sb, relPaths, validations)
	if err := p.writer.Write(ctx, result.MarkdownPath, strings.NewReader(content), "text/markdown; charset=utf-8"); err != nil {
		return result, fmt.Errorf("markdownファイルの書き込みに失敗しました: %w", err)
	}

	slog.InfoContext(ctx, "プロジェクトを保存しました",
		"project_dir", projectDir,
		"images", len(savedPaths),
		"scenes", len(sb.Scenes),
	)
	return result, nil
}

// saveImages は正常な画像を images/scene_<N>.png としてコピーし、絶対パスと相対パスの対応を返します。
func (p *StoryboardPublisher) saveImages(ctx context.Context, images []domain.GeneratedImage, projectDir string) (map[int]string, map[int]string, error) {
	saved := make(map[int]string, len(images))
	rel := make(map[int]string, len(images))
	for _, img := range images {
		if !img.OK() {
			continue
		}
		data, err := p.store.Read(ctx, img.Ref)
		if err != nil {
			return nil, nil, err
		}
		name := asset.SceneFileName(img.SceneNumber)
		fullPath := ResolveOutputPath(projectDir, asset.DefaultImageDir, name)
		if err := p.writer.Write(ctx, fullPath, bytes.NewReader(data), "image/png"); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", fullPath, err)
		}
		saved[img.SceneNumber] = fullPath
		rel[img.SceneNumber] = path.Join(asset.DefaultImageDir, name)
	}
	return saved, rel, nil
}

// encodeProject は 2 スペースのインデントで、非 ASCII 文字をエスケープせずに JSON を生成します。
func encodeProject(project domain.Project) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(project); err != nil {
		return nil, fmt.Errorf("プロジェクトファイルのエンコードに失敗しました: %w", err)
	}
	return buf.Bytes(), nil
}
