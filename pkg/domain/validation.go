package domain

import (
	"fmt"
	"math"
	"sort"
)

// ValidationMode は画像検証の方式です。
type ValidationMode string

const (
	// ValidationModeCompare は画像から説明文を推定し、元の説明文と比較して採点します。
	ValidationModeCompare ValidationMode = "compare"
	// ValidationModeDirect は画像とシーン情報を 1 回のマルチモーダル呼び出しで採点します。
	ValidationModeDirect ValidationMode = "direct"
)

const (
	MaxScore = 5
	MinScore = 0

	ExcellentThreshold = 4.0
	GoodThreshold      = 3.0
)

// 評価基準名。モデルへのプロンプトと応答のキーを兼ねます。
const (
	CriterionMessageClarity = "메시지 전달력"
	CriterionCreativity     = "창의성"
	CriterionBrandFit       = "브랜드 적합성"
	CriterionVisualMatch    = "시각적 일치도"
	CriterionAdFitness      = "광고 적합성"
)

// Criteria は検証方式ごとの評価基準を返します。
func (m ValidationMode) Criteria() []string {
	if m == ValidationModeDirect {
		return []string{CriterionVisualMatch, CriterionAdFitness, CriterionMessageClarity}
	}
	return []string{CriterionMessageClarity, CriterionCreativity, CriterionBrandFit}
}

// Valid は既知の検証方式かを返します。
func (m ValidationMode) Valid() bool {
	return m == ValidationModeCompare || m == ValidationModeDirect
}

// ValidationResult はシーン 1 件分の検証結果です。検証のたびに丸ごと作り直されます。
type ValidationResult struct {
	SceneNumber          int               `json:"scene_number"`
	TotalScore           float64           `json:"total_score"`
	Scores               map[string]int    `json:"scores"`
	Reasons              map[string]string `json:"reasons"`
	Improvements         map[string]string `json:"improvements,omitempty"`
	PredictedDescription string            `json:"predicted_description,omitempty"`
	ImprovementText      string            `json:"improvement_text,omitempty"`
	RegenerationPrompt   string            `json:"regeneration_prompt,omitempty"`
	Error                string            `json:"error,omitempty"`
}

// Failed は検証処理自体が失敗した結果かを返します。
func (r ValidationResult) Failed() bool {
	return r.Error != ""
}

// Grade は総合点を 우수 / 양호 / 개선필요 に分類します。
func (r ValidationResult) Grade() string {
	switch {
	case r.TotalScore >= ExcellentThreshold:
		return "우수"
	case r.TotalScore >= GoodThreshold:
		return "양호"
	default:
		return "개선필요"
	}
}

// MainIssue は最も点数の低い評価基準とその理由を返します。
func (r ValidationResult) MainIssue() (criterion string, reason string) {
	keys := make([]string, 0, len(r.Scores))
	for k := range r.Scores {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lowest := math.MaxInt
	for _, k := range keys {
		if r.Scores[k] < lowest {
			lowest = r.Scores[k]
			criterion = k
		}
	}
	return criterion, r.Reasons[criterion]
}

// ClampScore は点数を 0..5 に収めます。
func ClampScore(v int) int {
	if v < MinScore {
		return MinScore
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}

// TotalScore は評価基準の点数の平均を小数第 1 位に丸めて返します。
func TotalScore(scores map[string]int, criteria []string) float64 {
	if len(criteria) == 0 {
		return 0
	}
	sum := 0
	for _, c := range criteria {
		sum += ClampScore(scores[c])
	}
	mean := float64(sum) / float64(len(criteria))
	return math.Round(mean*10) / 10
}

// FailedValidation は検証中のエラーを表す、全項目 0 点の結果を生成します。
func FailedValidation(sceneNumber int, criteria []string, err error) ValidationResult {
	msg := err.Error()
	res := ValidationResult{
		SceneNumber:     sceneNumber,
		Scores:          make(map[string]int, len(criteria)),
		Reasons:         make(map[string]string, len(criteria)),
		Improvements:    make(map[string]string, len(criteria)),
		ImprovementText: fmt.Sprintf("검증 중 오류가 발생했습니다: %s", msg),
		Error:           msg,
	}
	for _, c := range criteria {
		res.Scores[c] = 0
		res.Reasons[c] = fmt.Sprintf("오류: %s", msg)
	}
	return res
}

// Report は一括検証の集計結果です。Results は常にシーン番号順です。
type Report struct {
	Results   []ValidationResult `json:"results"`
	Average   float64            `json:"average"`
	Excellent int                `json:"excellent"`
	Good      int                `json:"good"`
	Poor      int                `json:"poor"`
	Failed    int                `json:"failed"`
}

// NewReport は検証結果を番号順に並べ替えて集計します。
func NewReport(results []ValidationResult) Report {
	sorted := append([]ValidationResult(nil), results...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].SceneNumber < sorted[j].SceneNumber })

	rep := Report{Results: sorted}
	if len(sorted) == 0 {
		return rep
	}
	sum := 0.0
	for _, r := range sorted {
		sum += r.TotalScore
		if r.Failed() {
			rep.Failed++
		}
		switch r.Grade() {
		case "우수":
			rep.Excellent++
		case "양호":
			rep.Good++
		default:
			rep.Poor++
		}
	}
	rep.Average = math.Round(sum/float64(len(sorted))*10) / 10
	return rep
}

// Result はシーン番号に対応する検証結果を返します。
func (r Report) Result(sceneNumber int) (ValidationResult, bool) {
	for _, res := range r.Results {
		if res.SceneNumber == sceneNumber {
			return res, true
		}
	}
	return ValidationResult{}, false
}
