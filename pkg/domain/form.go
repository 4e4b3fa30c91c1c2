package domain

import (
	"fmt"
	"strings"
)

// ToneUnselected はフォームでトーンが未選択であることを示すプレースホルダーです。
const ToneUnselected = "선택하세요"

// ToneOptions は広告のトーン＆マナーとして選択可能な値の一覧です。
// 一覧にない値は自由記述として扱います。
var ToneOptions = []string{
	"친근하고 캐주얼한",
	"전문적이고 신뢰감 있는",
	"젊고 트렌디한",
	"고급스럽고 세련된",
	"따뜻하고 감성적인",
	"유머러스하고 재미있는",
}

// MoodOptions はシーンの雰囲気として選択可能な値の一覧です。
var MoodOptions = []string{"밝은", "어두운", "신비로운", "활기찬", "차분한", "극적인", "로맨틱한"}

// FormData は広告ストーリーボードを作成するための製品・ブランド情報です。
// 下書き工程には値渡しされるため、渡した後に呼び出し側で変更しても影響しません。
type FormData struct {
	ProductName        string          `json:"product_name" yaml:"product_name"`
	ProductDescription string          `json:"product_description" yaml:"product_description"`
	ToneManner         string          `json:"tone_manner" yaml:"tone_manner"`
	ReferenceFiles     []ReferenceFile `json:"reference_files,omitempty" yaml:"reference_files"`
}

// ReferenceFile はユーザーが添付した参考資料の情報です。
type ReferenceFile struct {
	Name        string `json:"name" yaml:"name"`
	Path        string `json:"path" yaml:"path"`
	Size        string `json:"size" yaml:"size"`
	Description string `json:"description" yaml:"description"`
}

// Validate は必須項目が入力されているか検証します。
func (f FormData) Validate() error {
	var missing []string
	if strings.TrimSpace(f.ProductName) == "" {
		missing = append(missing, "product_name")
	}
	if strings.TrimSpace(f.ProductDescription) == "" {
		missing = append(missing, "product_description")
	}
	tone := strings.TrimSpace(f.ToneManner)
	if tone == "" || tone == ToneUnselected {
		missing = append(missing, "tone_manner")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: 未入力の項目があります: %s", ErrInvalidForm, strings.Join(missing, ", "))
	}
	return nil
}

// IsPresetTone はトーンが定義済みの選択肢のいずれかであるかを返します。
func (f FormData) IsPresetTone() bool {
	for _, t := range ToneOptions {
		if t == f.ToneManner {
			return true
		}
	}
	return false
}

// Clone は参考資料スライスを含めたディープコピーを返します。
func (f FormData) Clone() FormData {
	c := f
	if f.ReferenceFiles != nil {
		c.ReferenceFiles = append([]ReferenceFile(nil), f.ReferenceFiles...)
	}
	return c
}
