package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shouni/go-conti-kit/pkg/domain"
)

// ParseFailureReason は応答を解析できず行単位の走査で採点した場合の理由文です。
const ParseFailureReason = "응답 파싱 실패"

// ScoreSheet は採点応答から取り出した評価内容です。
type ScoreSheet struct {
	Scores             map[string]int
	Reasons            map[string]string
	Improvements       map[string]string
	ImprovementText    string
	RegenerationPrompt string
	// ProvidedTotal はモデルが返した総合点です。総合点は常に各項目の平均から算出し、この値は参考情報として扱います。
	ProvidedTotal *float64
}

func newScoreSheet(criteria []string) ScoreSheet {
	return ScoreSheet{
		Scores:       make(map[string]int, len(criteria)),
		Reasons:      make(map[string]string, len(criteria)),
		Improvements: make(map[string]string, len(criteria)),
	}
}

var (
	scoreKeys   = []string{"점수", "score"}
	reasonKeys  = []string{"평가 이유", "이유", "reason"}
	improveKeys = []string{"개선점", "개선 방안", "improvement"}
	totalKeys   = []string{"총점", "total_score", "total"}
)

// ParseScores は採点応答を厳密に解析します。次の 2 形式を受け付けます。
//
//	{"<基準>": {"점수": 4, "평가 이유": "...", "개선점": "..."}, ..., "총점": 3.7}
//	{"scores": {"<基準>": 4}, "reasons": {"<基準>": "..."}, "improvements": "...", "regeneration_prompt": "..."}
//
// いずれかの評価基準が欠けている場合は *domain.ParseError を返します。
func ParseScores(raw string, criteria []string) (ScoreSheet, error) {
	fail := func(err error) (ScoreSheet, error) {
		return ScoreSheet{}, &domain.ParseError{Kind: "score", Raw: raw, Err: err}
	}

	jsonText, found := extractJSON(raw)
	if !found {
		return fail(errors.New("JSON 形式を見つけられません"))
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(jsonText), &top); err != nil {
		return fail(err)
	}

	sheet := newScoreSheet(criteria)
	if rawScores, ok := top["scores"]; ok {
		if err := sheet.fillGrouped(top, rawScores, criteria); err != nil {
			return fail(err)
		}
	} else {
		if err := sheet.fillPerCriterion(top, criteria); err != nil {
			return fail(err)
		}
	}

	for _, k := range totalKeys {
		if v, ok := lookup(top, k); ok {
			if f, ok := rawNumber(v); ok {
				sheet.ProvidedTotal = &f
			}
			break
		}
	}
	return sheet, nil
}

func (s *ScoreSheet) fillPerCriterion(top map[string]json.RawMessage, criteria []string) error {
	for _, c := range criteria {
		v, ok := lookupCriterion(top, c)
		if !ok {
			return fmt.Errorf("評価基準 %q が応答に含まれていません", c)
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(v, &obj); err != nil {
			// 点数だけが直接書かれている形式
			score, ok := rawScore(v)
			if !ok {
				return fmt.Errorf("評価基準 %q の形式が不正です: %w", c, err)
			}
			s.Scores[c] = score
			continue
		}
		score, found := 0, false
		for _, k := range scoreKeys {
			if sv, ok := lookup(obj, k); ok {
				score, found = rawScore(sv)
				break
			}
		}
		if !found {
			return fmt.Errorf("評価基準 %q に点数がありません", c)
		}
		s.Scores[c] = score
		s.Reasons[c] = firstString(obj, reasonKeys)
		s.Improvements[c] = firstString(obj, improveKeys)
	}
	return nil
}

func (s *ScoreSheet) fillGrouped(top map[string]json.RawMessage, rawScores json.RawMessage, criteria []string) error {
	var scores map[string]json.RawMessage
	if err := json.Unmarshal(rawScores, &scores); err != nil {
		return fmt.Errorf("scores の形式が不正です: %w", err)
	}
	var reasons map[string]json.RawMessage
	if v, ok := top["reasons"]; ok {
		_ = json.Unmarshal(v, &reasons)
	}

	for _, c := range criteria {
		v, ok := lookupCriterion(scores, c)
		if !ok {
			return fmt.Errorf("評価基準 %q が scores に含まれていません", c)
		}
		score, ok := rawScore(v)
		if !ok {
			return fmt.Errorf("評価基準 %q の点数が不正です", c)
		}
		s.Scores[c] = score
		if rv, ok := lookupCriterion(reasons, c); ok {
			s.Reasons[c] = rawString(rv)
		}
	}

	if v, ok := top["improvements"]; ok {
		var perCriterion map[string]json.RawMessage
		if err := json.Unmarshal(v, &perCriterion); err == nil {
			for _, c := range criteria {
				if iv, ok := lookupCriterion(perCriterion, c); ok {
					s.Improvements[c] = rawString(iv)
				}
			}
		} else {
			s.ImprovementText = rawString(v)
		}
	}
	if v, ok := top["regeneration_prompt"]; ok {
		s.RegenerationPrompt = rawString(v)
	}
	return nil
}

// FallbackScores は JSON として解析できない応答を行単位で走査し、
// 評価基準名を含む行で点数を探します。基準名の後に ':' または '：' があればその後ろの最初の数値を、
// なければ基準名の後に現れる最初の数値を採用します。見つからない基準は 0 点です。
func FallbackScores(raw string, criteria []string) ScoreSheet {
	sheet := newScoreSheet(criteria)
	for _, c := range criteria {
		sheet.Scores[c] = 0
		sheet.Reasons[c] = ParseFailureReason
	}

	found := make(map[string]bool, len(criteria))
	for _, line := range strings.Split(raw, "\n") {
		for _, c := range criteria {
			if found[c] {
				continue
			}
			idx := strings.Index(line, c)
			if idx < 0 {
				continue
			}
			if score, ok := parseScore(afterSeparator(line[idx+len(c):])); ok {
				sheet.Scores[c] = score
				found[c] = true
			}
		}
	}
	return sheet
}

// afterSeparator は最初の ':' または '：' より後ろを返します。区切りがなければ s をそのまま返します。
// "메시지 전달력 (0-5점): 4" のように基準名と点数の間に範囲表記がある行に対応します。
func afterSeparator(s string) string {
	cut := -1
	width := 0
	for _, sep := range []string{":", "："} {
		if i := strings.Index(s, sep); i >= 0 && (cut < 0 || i < cut) {
			cut, width = i, len(sep)
		}
	}
	if cut < 0 {
		return s
	}
	return s[cut+width:]
}

// ParseDescription は画像説明の応答から説明文を取り出します。
// JSON として解釈できない場合は前後の空白を除いた応答全体を説明文とします。
func ParseDescription(raw string) string {
	if jsonText, ok := extractJSON(raw); ok {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal([]byte(jsonText), &obj); err == nil {
			if d := strings.TrimSpace(firstString(obj, []string{"description", "설명", "predicted_description"})); d != "" {
				return d
			}
		}
	}
	return stripCodeFence(raw)
}

func lookup(m map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(strings.TrimSpace(k), key) {
			return v, true
		}
	}
	return nil, false
}

// lookupCriterion は基準名に完全一致するキー、なければ基準名を含むキー（例: "창의성/독창성"）を探します。
func lookupCriterion(m map[string]json.RawMessage, criterion string) (json.RawMessage, bool) {
	if m == nil {
		return nil, false
	}
	if v, ok := lookup(m, criterion); ok {
		return v, true
	}
	for k, v := range m {
		if strings.Contains(k, criterion) {
			return v, true
		}
	}
	return nil, false
}

func firstString(m map[string]json.RawMessage, keys []string) string {
	for _, k := range keys {
		if v, ok := lookup(m, k); ok {
			return rawString(v)
		}
	}
	return ""
}

func rawString(v json.RawMessage) string {
	var s domain.FlexString
	if err := json.Unmarshal(v, &s); err != nil {
		return strings.TrimSpace(string(v))
	}
	return strings.TrimSpace(s.String())
}

func rawNumber(v json.RawMessage) (float64, bool) {
	var f float64
	if err := json.Unmarshal(bytes.TrimSpace(v), &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		if m := numberRegex.FindString(s); m != "" {
			var out float64
			if _, err := fmt.Sscan(m, &out); err == nil {
				return out, true
			}
		}
	}
	return 0, false
}

func rawScore(v json.RawMessage) (int, bool) {
	f, ok := rawNumber(v)
	if !ok {
		return 0, false
	}
	return domain.ClampScore(int(math.Round(f))), true
}
