package prompts

import (
	"fmt"
	"strings"

	"github.com/shouni/go-conti-kit/pkg/domain"
)

// SceneParts はシーン画像プロンプト用に、空でない項目を
// 全体のプロット、視覚描写、場面描写、雰囲気、音響、字幕の順で並べて返します。
func SceneParts(plot string, scene domain.Scene) []string {
	fields := []struct {
		label string
		value string
	}{
		{"전체 줄거리", plot},
		{"시각적 묘사", scene.Visual.String()},
		{"장면 묘사", scene.Description.String()},
		{"분위기", scene.Mood.String()},
		{"음향 효과", scene.Audio.String()},
		{"자막/나레이션", scene.Text.String()},
	}

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		v := strings.TrimSpace(f.value)
		if v == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", f.label, v))
	}
	return parts
}

// ImprovementNotes は評価基準ごとの改善点を基準の順に連結します。
func ImprovementNotes(criteria []string, improvements map[string]string) string {
	notes := make([]string, 0, len(criteria))
	for _, c := range criteria {
		if v := strings.TrimSpace(improvements[c]); v != "" {
			notes = append(notes, fmt.Sprintf("%s: %s", c, v))
		}
	}
	return strings.Join(notes, " / ")
}
