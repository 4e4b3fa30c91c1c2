// Package providertest はテスト用の GenerativeClient スタブを提供します。
package providertest

import (
	"bytes"
	"context"
	"image/color"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/shouni/go-conti-kit/pkg/provider"
)

// Stub は関数フィールドで応答を差し替えられる GenerativeClient です。
// 関数が nil の場合は固定の応答を返します。全メソッドは並行呼び出しに対して安全です。
type Stub struct {
	TextFunc       func(ctx context.Context, prompt string) (string, error)
	MultimodalFunc func(ctx context.Context, parts []provider.Part) (string, error)
	ImageFunc      func(ctx context.Context, prompt string) (provider.Image, error)

	mu           sync.Mutex
	TextPrompts  []string
	ImagePrompts []string
	Multimodal   [][]provider.Part
}

var _ provider.GenerativeClient = (*Stub)(nil)

// GenerateText implements provider.GenerativeClient.
func (s *Stub) GenerateText(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.TextPrompts = append(s.TextPrompts, prompt)
	s.mu.Unlock()
	if s.TextFunc != nil {
		return s.TextFunc(ctx, prompt)
	}
	return "stub text", nil
}

// GenerateMultimodalText implements provider.GenerativeClient.
func (s *Stub) GenerateMultimodalText(ctx context.Context, parts []provider.Part) (string, error) {
	s.mu.Lock()
	s.Multimodal = append(s.Multimodal, parts)
	s.mu.Unlock()
	if s.MultimodalFunc != nil {
		return s.MultimodalFunc(ctx, parts)
	}
	return "stub description", nil
}

// GenerateImage implements provider.GenerativeClient.
func (s *Stub) GenerateImage(ctx context.Context, prompt string) (provider.Image, error) {
	s.mu.Lock()
	s.ImagePrompts = append(s.ImagePrompts, prompt)
	s.mu.Unlock()
	if s.ImageFunc != nil {
		return s.ImageFunc(ctx, prompt)
	}
	return provider.Image{Data: PNG(8, 8), MimeType: "image/png"}, nil
}

// ImageCalls は GenerateImage が呼ばれた回数を返します。
func (s *Stub) ImageCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ImagePrompts)
}

// TextCalls は GenerateText が呼ばれた回数を返します。
func (s *Stub) TextCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.TextPrompts)
}

// PNG は指定サイズの単色 PNG 画像を生成します。
func PNG(width, height int) []byte {
	img := imaging.New(width, height, color.NRGBA{R: 200, G: 220, B: 255, A: 255})
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
