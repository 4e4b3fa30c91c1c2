package asset

import "context"

// Store はシーン画像の一時保存先（成果物ストア）との契約です。
// 参照文字列 (ref) の形式は実装ごとに異なり、呼び出し側は不透明な値として扱います。
type Store interface {
	// Write はシーン番号に対応する画像を書き込み、参照を返します。同じシーンへの書き込みは上書きです。
	Write(ctx context.Context, sceneNumber int, data []byte) (string, error)
	// Read は参照が指す画像データを読み込みます。
	Read(ctx context.Context, ref string) ([]byte, error)
	// Delete は参照が指す画像を削除します。存在しない場合もエラーにはしません。
	Delete(ctx context.Context, ref string) error
	// ClearBatch は現在のバッチで書き込まれた全ての成果物を破棄します。
	ClearBatch(ctx context.Context) error
	// List は現在保持している成果物の参照を返します。
	List(ctx context.Context) ([]string, error)
}
