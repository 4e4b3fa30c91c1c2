package asset

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
)

// MaxUploadSize は手動アップロードで受け付ける画像の上限サイズです。
const MaxUploadSize = 10 << 20

var (
	// ErrUnsupportedImage は PNG / JPEG 以外の画像が渡されたことを示します。
	ErrUnsupportedImage = errors.New("対応していない画像形式です (png, jpg, jpeg のみ)")
	// ErrImageTooLarge は画像が MaxUploadSize を超えていることを示します。
	ErrImageTooLarge = errors.New("画像サイズが上限を超えています")
)

var uploadMimeTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/jpg":  true,
}

// CheckUpload はアップロードされた画像のサイズと形式を確認し、実際にデコードできるかを検証します。
// MIME タイプが空の場合は中身から判定した形式だけで判断します。
func CheckUpload(data []byte, mimeType string) error {
	if len(data) > MaxUploadSize {
		return fmt.Errorf("%w (%d bytes > %d bytes)", ErrImageTooLarge, len(data), MaxUploadSize)
	}
	if mt := normalizeMime(mimeType); mt != "" && !uploadMimeTypes[mt] {
		return fmt.Errorf("%w: %s", ErrUnsupportedImage, mimeType)
	}
	format, err := verifyImage(data)
	if err != nil {
		return err
	}
	if format != "png" && format != "jpeg" {
		return fmt.Errorf("%w: %s", ErrUnsupportedImage, format)
	}
	return nil
}

// EnsurePNG は画像データを検証したうえで PNG 形式に揃えます。
// 中身が PNG の場合はデコードの検証だけを行い、元のデータをそのまま返します。
func EnsurePNG(data []byte, mimeType string) ([]byte, error) {
	format, err := verifyImage(data)
	if err != nil {
		return nil, fmt.Errorf("%w (mime=%s)", err, mimeType)
	}
	if format == "png" {
		return data, nil
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("画像のデコードに失敗しました (mime=%s): %w", mimeType, err)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("PNG へのエンコードに失敗しました: %w", err)
	}
	return buf.Bytes(), nil
}

// verifyImage は画像全体をデコードできることを確認し、判定した形式名を返します。
func verifyImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("画像データが空です")
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("画像形式を判別できません: %w", err)
	}
	if _, err := imaging.Decode(bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("画像データが壊れています (format=%s): %w", format, err)
	}
	return format, nil
}

func normalizeMime(mimeType string) string {
	mt, _, _ := strings.Cut(mimeType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

// FitForVision は長辺が maxSize を超える画像を縮小した PNG を返します。
// デコードできない場合や縮小が不要な場合は元のデータをそのまま返します。
func FitForVision(data []byte, maxSize int) []byte {
	if maxSize <= 0 {
		return data
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return data
	}
	b := img.Bounds()
	if b.Dx() <= maxSize && b.Dy() <= maxSize {
		return data
	}
	resized := imaging.Fit(img, maxSize, maxSize, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.PNG); err != nil {
		return data
	}
	return buf.Bytes()
}
