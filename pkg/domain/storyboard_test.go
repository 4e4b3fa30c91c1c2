package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStoryboard_FlexibleFields(t *testing.T) {
	t.Run("plotが配列、durationが数値でも文字列として受け取れる", func(t *testing.T) {
		input := `{
			"title": "맑은 물 한 잔",
			"total duration": 8,
			"plot": ["도입", "전개"],
			"mood": "밝은",
			"scenes": [{"scene_number": 1, "duration": 1, "visual": "주방", "audio": "물소리", "text": "", "description": "정수기 클로즈업"}],
			"key_messages": "깨끗한 물",
			"call_to_action": "지금 상담하세요"
		}`

		var sb Storyboard
		if err := json.Unmarshal([]byte(input), &sb); err != nil {
			t.Fatalf("パースに失敗しました: %v", err)
		}
		if sb.TotalDuration != "8" {
			t.Errorf("total duration = %q, want %q", sb.TotalDuration, "8")
		}
		if sb.Plot != "도입\n전개" {
			t.Errorf("plot = %q", sb.Plot)
		}
		if diff := cmp.Diff([]string{"깨끗한 물"}, []string(sb.KeyMessages)); diff != "" {
			t.Errorf("key_messages mismatch (-want +got):\n%s", diff)
		}
		if sb.Scenes[0].Duration != "1" {
			t.Errorf("scene duration = %q", sb.Scenes[0].Duration)
		}
	})
}

func TestScene_JSONFieldNames(t *testing.T) {
	data, err := json.Marshal(Scene{SceneNumber: 3, Duration: "1초", Mood: "밝은"})
	if err != nil {
		t.Fatalf("Marshal に失敗しました: %v", err)
	}
	got := string(data)
	for _, key := range []string{`"scene_number":3`, `"duration":"1초"`, `"visual"`, `"audio"`, `"text"`, `"description"`, `"mood":"밝은"`} {
		if !strings.Contains(got, key) {
			t.Errorf("%s が含まれていません: %s", key, got)
		}
	}
}

func TestFormData_Validate(t *testing.T) {
	valid := FormData{ProductName: "퓨어워터 정수기", ProductDescription: "3단계 필터", ToneManner: ToneOptions[1]}
	if err := valid.Validate(); err != nil {
		t.Fatalf("有効なフォームでエラーになりました: %v", err)
	}

	tests := []struct {
		name string
		form FormData
	}{
		{"製品名なし", FormData{ProductDescription: "x", ToneManner: "y"}},
		{"説明なし", FormData{ProductName: "x", ToneManner: "y"}},
		{"トーン未選択", FormData{ProductName: "x", ProductDescription: "y", ToneManner: ToneUnselected}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.form.Validate(); !errors.Is(err, ErrInvalidForm) {
				t.Errorf("ErrInvalidForm が返されませんでした: %v", err)
			}
		})
	}

	free := FormData{ProductName: "x", ProductDescription: "y", ToneManner: "자유 기술"}
	if err := free.Validate(); err != nil || free.IsPresetTone() {
		t.Errorf("自由記述のトーンが受け付けられませんでした: %v", err)
	}
}

func TestTotalScore(t *testing.T) {
	criteria := ValidationModeCompare.Criteria()
	tests := []struct {
		scores map[string]int
		want   float64
	}{
		{map[string]int{criteria[0]: 4, criteria[1]: 3, criteria[2]: 4}, 3.7},
		{map[string]int{criteria[0]: 5, criteria[1]: 5, criteria[2]: 5}, 5.0},
		{map[string]int{criteria[0]: 9, criteria[1]: -2}, 1.7},
		{map[string]int{}, 0},
	}
	for _, tt := range tests {
		got := TotalScore(tt.scores, criteria)
		if got != tt.want {
			t.Errorf("TotalScore(%v) = %v, want %v", tt.scores, got, tt.want)
		}
		if got < 0 || got > 5 {
			t.Errorf("範囲外の総合点です: %v", got)
		}
	}
}

func TestFailedValidation(t *testing.T) {
	criteria := ValidationModeDirect.Criteria()
	res := FailedValidation(2, criteria, errors.New("timeout"))
	if !res.Failed() || res.TotalScore != 0 {
		t.Fatalf("失敗結果になっていません: %+v", res)
	}
	for _, c := range criteria {
		if res.Scores[c] != 0 || !strings.Contains(res.Reasons[c], "timeout") {
			t.Errorf("%s: score=%d reason=%q", c, res.Scores[c], res.Reasons[c])
		}
	}
}

func TestNewReport(t *testing.T) {
	rep := NewReport([]ValidationResult{
		{SceneNumber: 3, TotalScore: 2.0},
		{SceneNumber: 1, TotalScore: 4.3},
		{SceneNumber: 2, TotalScore: 3.0, Error: "x"},
	})
	if rep.Results[0].SceneNumber != 1 || rep.Results[2].SceneNumber != 3 {
		t.Fatalf("シーン番号順に並んでいません: %+v", rep.Results)
	}
	if rep.Excellent != 1 || rep.Good != 1 || rep.Poor != 1 || rep.Failed != 1 {
		t.Errorf("集計が不正です: %+v", rep)
	}
	if rep.Average != 3.1 {
		t.Errorf("Average = %v, want 3.1", rep.Average)
	}
}
