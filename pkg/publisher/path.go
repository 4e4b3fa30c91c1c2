package publisher

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const defaultFolderPrefix = "storyboard_"

var unsafeFolderChars = regexp.MustCompile(`[^\p{L}\p{N} _-]+`)

// DefaultFolderName は保存時刻からプロジェクトフォルダ名を生成します。
func DefaultFolderName(now time.Time) string {
	return defaultFolderPrefix + now.Format("20060102_150405")
}

// SanitizeFolderName はフォルダ名から英数字・空白・ハイフン・アンダースコア以外の文字を取り除きます。
// 結果が空になる場合は保存時刻から生成した名前を返します。
func SanitizeFolderName(name string, now time.Time) string {
	cleaned := strings.TrimSpace(unsafeFolderChars.ReplaceAllString(name, ""))
	if cleaned == "" {
		return DefaultFolderName(now)
	}
	return cleaned
}

const gcsScheme = "gs://"

// ResolveOutputPath は、ベースとなるディレクトリパスとファイル名から、
// GCS/ローカルを考慮した最終的な出力パスを生成します。
func ResolveOutputPath(baseDir string, elems ...string) string {
	if len(baseDir) >= len(gcsScheme) && strings.EqualFold(baseDir[:len(gcsScheme)], gcsScheme) {
		// GCS のオブジェクト名は常に "/" 区切りで、非 ASCII 文字もエスケープしません。
		return gcsScheme + path.Join(append([]string{baseDir[len(gcsScheme):]}, elems...)...)
	}
	return filepath.Join(append([]string{baseDir}, elems...)...)
}
