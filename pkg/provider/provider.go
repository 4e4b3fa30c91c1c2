// Package provider は AI プロバイダ（テキスト・マルチモーダル・画像生成）への呼び出しを抽象化します。
package provider

import (
	"context"
	"encoding/base64"
	"fmt"
)

// GenerativeClient は生成 AI プロバイダとの契約です。
// 実装は失敗をエラーとして返し、リトライはラッパー（RetryClient）が一元的に担います。
type GenerativeClient interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	GenerateMultimodalText(ctx context.Context, parts []Part) (string, error)
	GenerateImage(ctx context.Context, prompt string) (Image, error)
}

// Part はマルチモーダル入力の 1 要素（テキストまたはバイナリ）です。
type Part struct {
	Text     string
	Data     []byte
	MimeType string
}

// TextPart はテキストの Part を生成します。
func TextPart(text string) Part {
	return Part{Text: text}
}

// ImagePart は画像データの Part を生成します。
func ImagePart(data []byte, mimeType string) Part {
	if mimeType == "" {
		mimeType = "image/png"
	}
	return Part{Data: data, MimeType: mimeType}
}

// IsBinary はバイナリの Part であるかを返します。
func (p Part) IsBinary() bool {
	return len(p.Data) > 0
}

// DataURL はバイナリの Part を data URL 形式に変換します。
func (p Part) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", p.MimeType, base64.StdEncoding.EncodeToString(p.Data))
}

// Image は画像生成 API の結果です。
type Image struct {
	Data     []byte
	MimeType string
}
