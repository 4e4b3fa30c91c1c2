package parser

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// InputReader はローカルパスや gs:// のファイルを開く読み込み元です。
// remoteio.InputReader がこのインターフェースを満たします。
type InputReader interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// Parser は保存済みのストーリーボード案を読み込むためのインターフェースを定義します。
type Parser interface {
	ParseFromPath(ctx context.Context, fullPath string) (*DraftResult, error)
}

// StoryboardFileParser は下書き工程で保存した JSON ファイル、
// または単一のストーリーボード JSON を解析します。
type StoryboardFileParser struct {
	reader     InputReader
	sceneCount int
}

var _ Parser = (*StoryboardFileParser)(nil)

// NewStoryboardFileParser は新しい StoryboardFileParser インスタンスを生成します。
func NewStoryboardFileParser(r InputReader, sceneCount int) *StoryboardFileParser {
	return &StoryboardFileParser{reader: r, sceneCount: sceneCount}
}

// ParseFromPath は指定された GCS URI やローカルファイルパスからコンテンツを読み込み、
// ストーリーボード案として解析します。
// ファイル内容が案として解釈できない場合もエラーにはせず、DraftResult の状態で返します。
func (p *StoryboardFileParser) ParseFromPath(ctx context.Context, path string) (*DraftResult, error) {
	slog.InfoContext(ctx, "ストーリーボードファイルを読み込んでいます", "path", path)
	rc, err := p.reader.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("ストーリーボードファイルのオープンに失敗しました (%s): %w", path, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("ストーリーボードファイルの読み込みに失敗しました (%s): %w", path, err)
	}
	return ParseDraft(string(data), p.sceneCount), nil
}
