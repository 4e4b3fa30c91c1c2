package publisher

import (
	"fmt"
	"strings"

	"github.com/shouni/go-conti-kit/pkg/domain"
)

const placeholder = "placeholder.png"

// BuildMarkdown はストーリーボードをシーンごとの Markdown シートに変換します。
// imagePaths はシーン番号からプロジェクトフォルダ相対の画像パスへの対応です。
// validations が nil でない場合、検証済みのシーンには点数を併記します。
func BuildMarkdown(sb domain.Storyboard, imagePaths map[int]string, validations map[int]domain.ValidationResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", sb.Title)

	writeField(&b, "plot", sb.Plot.String())
	writeField(&b, "mood", sb.Mood.String())
	writeField(&b, "total duration", sb.TotalDuration.String())
	if len(sb.KeyMessages) > 0 {
		writeField(&b, "key messages", strings.Join(sb.KeyMessages, " / "))
	}
	writeField(&b, "call to action", sb.CallToAction.String())
	b.WriteString("\n")

	for _, sc := range sb.Scenes {
		img, ok := imagePaths[sc.SceneNumber]
		if !ok {
			img = placeholder
		}
		fmt.Fprintf(&b, "## Scene %d: %s\n", sc.SceneNumber, img)
		fmt.Fprintf(&b, "![scene %d](%s)\n\n", sc.SceneNumber, img)

		writeField(&b, "duration", sc.Duration.String())
		writeField(&b, "visual", sc.Visual.String())
		writeField(&b, "audio", sc.Audio.String())
		writeField(&b, "text", sc.Text.String())
		writeField(&b, "description", sc.Description.String())
		writeField(&b, "mood", sc.Mood.String())

		if res, ok := validations[sc.SceneNumber]; ok {
			fmt.Fprintf(&b, "- score: %.1f (%s)\n", res.TotalScore, res.Grade())
			if c, reason := res.MainIssue(); c != "" && res.TotalScore < domain.ExcellentThreshold {
				writeField(&b, "main issue", fmt.Sprintf("%s: %s", c, reason))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func writeField(b *strings.Builder, label, value string) {
	value = strings.TrimSpace(strings.ReplaceAll(value, "\n", " "))
	if value == "" {
		return
	}
	fmt.Fprintf(b, "- %s: %s\n", label, value)
}
