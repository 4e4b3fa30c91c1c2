package parser

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/shouni/go-conti-kit/internal/remotetest"
	"github.com/shouni/go-conti-kit/pkg/domain"
)

func scenesOf(n int) []domain.Scene {
	out := make([]domain.Scene, n)
	for i := range out {
		out[i] = domain.Scene{SceneNumber: i + 1, Visual: domain.FlexString(strings.Repeat("v", i+1)), Description: "d"}
	}
	return out
}

func TestNormalizeScenes(t *testing.T) {
	t.Run("不足分は空のシーンで補う", func(t *testing.T) {
		got := NormalizeScenes(scenesOf(5), 8)
		if len(got) != 8 {
			t.Fatalf("len = %d, want 8", len(got))
		}
		for i, s := range got {
			if s.SceneNumber != i+1 {
				t.Errorf("scene[%d].SceneNumber = %d", i, s.SceneNumber)
			}
			if i >= 5 && !s.IsPlaceholder() {
				t.Errorf("scene[%d] が空のシーンではありません: %+v", i, s)
			}
		}
		if got[4].Visual != "vvvvv" {
			t.Errorf("既存シーンの内容が失われました: %+v", got[4])
		}
	})

	t.Run("超過分は先頭から N 件に切り詰める", func(t *testing.T) {
		in := scenesOf(10)
		got := NormalizeScenes(in, 8)
		if diff := cmp.Diff(in[:8], got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("ちょうど N 件なら変更しない", func(t *testing.T) {
		in := scenesOf(8)
		if diff := cmp.Diff(in, NormalizeScenes(in, 8)); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("番号は連番に振り直す", func(t *testing.T) {
		in := []domain.Scene{{SceneNumber: 4}, {SceneNumber: 9}}
		got := NormalizeScenes(in, 2)
		if got[0].SceneNumber != 1 || got[1].SceneNumber != 2 {
			t.Errorf("番号が振り直されていません: %+v", got)
		}
	})
}

func TestParseDraft(t *testing.T) {
	t.Run("コードブロック内の複数案を番号順に取り出す", func(t *testing.T) {
		raw := "다음과 같습니다.\n```json\n" + `{
			"storyboard2": {"title": "B", "scenes": [{"scene_number": 1, "visual": "b"}]},
			"storyboard1": {"title": "A", "plot": ["p1", "p2"], "scenes": [{"scene_number": 2, "visual": "a2"}, {"scene_number": 1, "visual": "a1"}]},
			"note": "ignored"
		}` + "\n```"
		res := ParseDraft(raw, 3)
		if !res.OK() {
			t.Fatalf("解析に失敗しました: %v", res.Err)
		}
		if diff := cmp.Diff([]string{"storyboard1", "storyboard2"}, res.Keys()); diff != "" {
			t.Errorf("keys mismatch (-want +got):\n%s", diff)
		}
		sb, err := res.Select("storyboard1")
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		if len(sb.Scenes) != 3 || sb.Scenes[0].Visual != "a1" || !sb.Scenes[2].IsPlaceholder() {
			t.Errorf("シーンが正規化されていません: %+v", sb.Scenes)
		}
		if sb.Plot != "p1\np2" {
			t.Errorf("plot = %q", sb.Plot)
		}
		if res.Raw != raw {
			t.Error("元の応答が保持されていません")
		}
	})

	t.Run("ラップされていない単一のストーリーボード", func(t *testing.T) {
		res := ParseDraft(`{"title": "solo", "scenes": [{"scene_number": 1}]}`, 8)
		if !res.OK() || res.Storyboards[0].Key != "storyboard1" {
			t.Fatalf("単一案として解釈されませんでした: %+v", res)
		}
	})

	t.Run("JSON を含まない応答は RawText", func(t *testing.T) {
		res := ParseDraft("죄송합니다. 다시 시도해주세요.", 8)
		if res.Status != DraftRawText || res.OK() {
			t.Errorf("status = %s", res.Status)
		}
		data, err := json.Marshal(res)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !strings.Contains(string(data), `"raw_response"`) {
			t.Errorf("raw_response として保存されていません: %s", data)
		}
	})

	t.Run("壊れた JSON は ParseFailure", func(t *testing.T) {
		res := ParseDraft(`{"storyboard1": {"title": "x", "scenes": [}`, 8)
		if res.Status != DraftParseFailure {
			t.Fatalf("status = %s", res.Status)
		}
		var perr *domain.ParseError
		if !errors.As(res.Err, &perr) || perr.Raw == "" {
			t.Errorf("ParseError に元の応答が含まれていません: %v", res.Err)
		}
	})

	t.Run("シーンのない案は ParseFailure", func(t *testing.T) {
		res := ParseDraft(`{"storyboard1": {"title": "x", "scenes": []}}`, 8)
		if res.Status != DraftParseFailure {
			t.Errorf("status = %s", res.Status)
		}
	})
}

func TestDraftResult_MarshalJSON_Order(t *testing.T) {
	res := ParseDraft(`{"storyboard10": {"title": "J", "scenes": [{}]}, "storyboard2": {"title": "B", "scenes": [{}]}}`, 1)
	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	s := string(data)
	if strings.Index(s, "storyboard2") > strings.Index(s, "storyboard10") {
		t.Errorf("番号順に並んでいません: %s", s)
	}

	again := ParseDraft(s, 1)
	if diff := cmp.Diff(res.Keys(), again.Keys()); diff != "" {
		t.Errorf("再解析でキーが変わりました (-want +got):\n%s", diff)
	}
}

func TestParseScores(t *testing.T) {
	criteria := domain.ValidationModeCompare.Criteria()

	t.Run("基準ごとのオブジェクト形式", func(t *testing.T) {
		raw := "```json\n" + `{
			"메시지 전달력": {"점수": 4, "평가 이유": "명확함", "개선점": "로고 강조"},
			"창의성/독창성": {"점수": "3점", "평가 이유": "평범함", "개선점": "앵글 변화"},
			"브랜드 적합성": {"점수": 4.6, "평가 이유": "톤 일치", "개선점": ""},
			"총점": 3.9
		}` + "\n```"
		sheet, err := ParseScores(raw, criteria)
		if err != nil {
			t.Fatalf("ParseScores: %v", err)
		}
		want := map[string]int{"메시지 전달력": 4, "창의성": 3, "브랜드 적합성": 5}
		if diff := cmp.Diff(want, sheet.Scores); diff != "" {
			t.Errorf("scores mismatch (-want +got):\n%s", diff)
		}
		if sheet.Reasons["창의성"] != "평범함" || sheet.Improvements["메시지 전달력"] != "로고 강조" {
			t.Errorf("理由・改善点が取り出されていません: %+v", sheet)
		}
		if sheet.ProvidedTotal == nil || *sheet.ProvidedTotal != 3.9 {
			t.Errorf("総合点が保持されていません: %v", sheet.ProvidedTotal)
		}
	})

	t.Run("scores/reasons のグループ形式", func(t *testing.T) {
		direct := domain.ValidationModeDirect.Criteria()
		raw := `{"scores": {"시각적 일치도": 2, "광고 적합성": 3, "메시지 전달력": 9},
			"reasons": {"시각적 일치도": "배경 누락"},
			"improvements": "배경을 주방으로",
			"regeneration_prompt": "주방 배경의 정수기"}`
		sheet, err := ParseScores(raw, direct)
		if err != nil {
			t.Fatalf("ParseScores: %v", err)
		}
		if sheet.Scores["메시지 전달력"] != 5 {
			t.Errorf("範囲外の点数が丸められていません: %d", sheet.Scores["메시지 전달력"])
		}
		if sheet.ImprovementText != "배경을 주방으로" || sheet.RegenerationPrompt != "주방 배경의 정수기" {
			t.Errorf("改善内容が取り出されていません: %+v", sheet)
		}
	})

	t.Run("基準が欠けている場合は ParseError", func(t *testing.T) {
		_, err := ParseScores(`{"메시지 전달력": {"점수": 4}}`, criteria)
		var perr *domain.ParseError
		if !errors.As(err, &perr) {
			t.Errorf("ParseError が返されませんでした: %v", err)
		}
	})
}

func TestFallbackScores(t *testing.T) {
	criteria := domain.ValidationModeCompare.Criteria()
	raw := "평가 결과입니다\n메시지 전달력: 4점 (명확)\n창의성 - 점수 2\n총평: 괜찮음"
	sheet := FallbackScores(raw, criteria)

	want := map[string]int{"메시지 전달력": 4, "창의성": 2, "브랜드 적합성": 0}
	if diff := cmp.Diff(want, sheet.Scores); diff != "" {
		t.Errorf("scores mismatch (-want +got):\n%s", diff)
	}
	for _, c := range criteria {
		if sheet.Reasons[c] != ParseFailureReason {
			t.Errorf("%s の理由 = %q", c, sheet.Reasons[c])
		}
	}

	t.Run("範囲表記より区切り後の数値を優先", func(t *testing.T) {
		raw := "메시지 전달력 (0-5점): 4\n창의성 (0~5)：3점\n브랜드 적합성 5점 만점에 2"
		sheet := FallbackScores(raw, criteria)
		want := map[string]int{"메시지 전달력": 4, "창의성": 3, "브랜드 적합성": 5}
		if diff := cmp.Diff(want, sheet.Scores); diff != "" {
			t.Errorf("scores mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestParseDescription(t *testing.T) {
	tests := map[string]string{
		`{"description": "주방에서 물을 따르는 여성"}`:    "주방에서 물을 따르는 여성",
		"```json\n{\"설명\": \"정수기 클로즈업\"}\n```": "정수기 클로즈업",
		"  그냥 텍스트 설명  ":                        "그냥 텍스트 설명",
	}
	for raw, want := range tests {
		if got := ParseDescription(raw); got != want {
			t.Errorf("ParseDescription(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestStoryboardFileParser(t *testing.T) {
	files := remotetest.New()
	files.Put("gs://conti/storyboards.json", []byte(`{"storyboard1": {"title": "A", "scenes": [{"scene_number": 1}]}}`))
	p := NewStoryboardFileParser(files, 8)

	res, err := p.ParseFromPath(context.Background(), "gs://conti/storyboards.json")
	if err != nil {
		t.Fatalf("ParseFromPath: %v", err)
	}
	if !res.OK() || len(res.Storyboards[0].Storyboard.Scenes) != 8 {
		t.Errorf("ファイルから正しく解析されませんでした: %+v", res)
	}

	if _, err := p.ParseFromPath(context.Background(), "missing.json"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("存在しないファイルでエラーになりませんでした: %v", err)
	}
}
