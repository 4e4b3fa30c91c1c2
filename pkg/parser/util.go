package parser

import (
	"math"
	"strconv"
	"strings"
)

// extractJSON はモデル応答から JSON オブジェクト部分を取り出します。
// コードブロック、最も外側の波括弧の順に探し、見つからない場合は false を返します。
func extractJSON(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)

	if matches := jsonBlockRegex.FindStringSubmatch(raw); len(matches) > 1 {
		inner := strings.TrimSpace(matches[1])
		if strings.HasPrefix(inner, "{") {
			return inner, true
		}
	}

	first := strings.Index(raw, "{")
	last := strings.LastIndex(raw, "}")
	if first != -1 && last > first {
		return raw[first : last+1], true
	}
	return "", false
}

// stripCodeFence はコードブロックの囲みを取り除いたテキストを返します。
func stripCodeFence(raw string) string {
	raw = strings.TrimSpace(raw)
	if matches := jsonBlockRegex.FindStringSubmatch(raw); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}
	return raw
}

// parseScore は "4", "4.5", "4점" のような表記から 0..5 の整数点を取り出します。
func parseScore(s string) (int, bool) {
	m := numberRegex.FindString(s)
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	v := int(math.Round(f))
	if v < 0 {
		v = 0
	}
	if v > 5 {
		v = 5
	}
	return v, true
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
