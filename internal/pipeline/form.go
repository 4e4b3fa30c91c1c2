package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v2"

	"github.com/shouni/go-conti-kit/pkg/domain"
	"github.com/shouni/go-conti-kit/pkg/parser"
	"github.com/shouni/go-conti-kit/pkg/publisher"
)

// LoadForm は YAML 形式のフォームファイルを読み込み、入力内容を検証します。
// path にはローカルパスのほか gs:// の URI も指定できます。
func LoadForm(ctx context.Context, r parser.InputReader, path string) (domain.FormData, error) {
	rc, err := r.Open(ctx, path)
	if err != nil {
		return domain.FormData{}, fmt.Errorf("フォームファイル '%s' の読み込みに失敗しました: %w", path, err)
	}
	defer rc.Close()

	var form domain.FormData
	if err := yaml.NewDecoder(rc).Decode(&form); err != nil {
		return domain.FormData{}, fmt.Errorf("フォームファイル '%s' のデコードに失敗しました: %w", path, err)
	}
	if err := form.Validate(); err != nil {
		return domain.FormData{}, err
	}
	return form, nil
}

// saveDraft は下書き結果を JSON で保存します。解析できなかった応答も raw_response として残します。
func saveDraft(ctx context.Context, w publisher.OutputWriter, path string, result *parser.DraftResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("下書き結果のエンコードに失敗しました: %w", err)
	}
	if err := w.Write(ctx, path, bytes.NewReader(data), "application/json; charset=utf-8"); err != nil {
		return fmt.Errorf("下書き結果 '%s' の保存に失敗しました: %w", path, err)
	}
	return nil
}
