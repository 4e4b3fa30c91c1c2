package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidForm はフォームの必須項目が欠けていることを示します。
	ErrInvalidForm = errors.New("フォームの入力が不正です")
	// ErrSceneNotFound は指定番号のシーンが存在しないことを示します。
	ErrSceneNotFound = errors.New("シーンが見つかりません")
	// ErrSceneBusy は画像の書き込み中でシーンを編集できないことを示します。
	ErrSceneBusy = errors.New("シーンは処理中です")
	// ErrBatchCancelled は一括処理が中断され、成果物が破棄されたことを示します。
	ErrBatchCancelled = errors.New("一括処理が中断されました")
	// ErrSuperseded は同じシーンへの新しい再生成要求によって処理が置き換えられたことを示します。
	ErrSuperseded = errors.New("新しい再生成要求に置き換えられました")
)

// ProviderError は AI プロバイダ呼び出しがリトライ上限まで失敗したことを示します。
type ProviderError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("プロバイダ呼び出し %s が %d 回の試行後に失敗しました: %v", e.Op, e.Attempts, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ParseError はモデル応答の解析に失敗したことを示します。Raw には元の応答を保持します。
type ParseError struct {
	Kind string
	Raw  string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s の応答解析に失敗しました: %v", e.Kind, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ArtifactError は成果物ストアの読み書きに失敗したことを示します。
type ArtifactError struct {
	Op          string
	SceneNumber int
	Ref         string
	Err         error
}

func (e *ArtifactError) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("成果物の %s に失敗しました (scene=%d, ref=%s): %v", e.Op, e.SceneNumber, e.Ref, e.Err)
	}
	return fmt.Sprintf("成果物の %s に失敗しました (scene=%d): %v", e.Op, e.SceneNumber, e.Err)
}

func (e *ArtifactError) Unwrap() error { return e.Err }

// ValidationPreconditionError は正常な画像を持たないシーンを検証しようとしたことを示します。
type ValidationPreconditionError struct {
	SceneNumbers []int
}

func (e *ValidationPreconditionError) Error() string {
	nums := make([]string, 0, len(e.SceneNumbers))
	for _, n := range e.SceneNumbers {
		nums = append(nums, fmt.Sprint(n))
	}
	return fmt.Sprintf("検証対象のシーンに正常な画像がありません: [%s]", strings.Join(nums, ", "))
}

// DraftError はプロットまたはストーリーボードの下書き生成に失敗したことを示します。
type DraftError struct {
	Stage string
	Err   error
}

func (e *DraftError) Error() string {
	return fmt.Sprintf("%s の下書き生成に失敗しました: %v", e.Stage, e.Err)
}

func (e *DraftError) Unwrap() error { return e.Err }
