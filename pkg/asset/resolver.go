package asset

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

const (
	// DefaultImageDir はプロジェクトフォルダ内で画像を格納するディレクトリ名です。
	DefaultImageDir = "images"
	// DefaultSceneFileName はシーン画像の共通のベースファイル名です。
	DefaultSceneFileName = "scene.png"
	// DefaultStoryboardMarkdown はプロジェクトに保存する Markdown のファイル名です。
	DefaultStoryboardMarkdown = "storyboard.md"
)

// SceneFileRegex はシーン画像 (scene_1.png 等) に一致します。
var SceneFileRegex = createIndexedRegex(DefaultSceneFileName)

// SceneFileName はシーン番号に対応する画像ファイル名を返します。
// 例: 3 -> "scene_3.png"
func SceneFileName(sceneNumber int) string {
	ext := filepath.Ext(DefaultSceneFileName)
	base := strings.TrimSuffix(DefaultSceneFileName, ext)
	return fmt.Sprintf("%s_%d%s", base, sceneNumber, ext)
}

// ParseSceneNumber はシーン画像のパスまたはファイル名からシーン番号を取り出します。
func ParseSceneNumber(ref string) (int, bool) {
	name := filepath.Base(ref)
	if !SceneFileRegex.MatchString(name) {
		return 0, false
	}
	ext := filepath.Ext(name)
	idx := strings.LastIndex(name, "_")
	n, err := strconv.Atoi(strings.TrimSuffix(name[idx+1:], ext))
	if err != nil {
		return 0, false
	}
	return n, true
}

// createIndexedRegex は、ファイル名に基づきインデックス付きファイル用の正規表現を生成します。
// 例: "scene.png" -> ^scene_\d+\.png$
func createIndexedRegex(fileName string) *regexp.Regexp {
	ext := filepath.Ext(fileName)
	baseName := strings.TrimSuffix(fileName, ext)
	pattern := fmt.Sprintf(`^%s_\d+%s$`, regexp.QuoteMeta(baseName), regexp.QuoteMeta(ext))
	return regexp.MustCompile(pattern)
}
