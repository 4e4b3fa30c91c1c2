package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shouni/go-conti-kit/pkg/domain"
)

// DraftStatus はストーリーボード下書き応答の解析結果の種類です。
type DraftStatus int

const (
	// DraftOK は 1 件以上のストーリーボード案を取り出せたことを示します。
	DraftOK DraftStatus = iota
	// DraftRawText は応答に JSON が含まれず、テキストとしてのみ扱えることを示します。
	DraftRawText
	// DraftParseFailure は JSON らしき部分はあるが期待する構造として解釈できなかったことを示します。
	DraftParseFailure
)

func (s DraftStatus) String() string {
	switch s {
	case DraftOK:
		return "ok"
	case DraftRawText:
		return "raw_text"
	default:
		return "parse_failure"
	}
}

// KeyedStoryboard は "storyboard<N>" キー付きのストーリーボード案です。
type KeyedStoryboard struct {
	Key        string
	Storyboard domain.Storyboard
}

// DraftResult はストーリーボード下書き応答の解析結果です。
// どの状態でも元の応答テキストを Raw に保持し、呼び出し側で復旧できるようにします。
type DraftResult struct {
	Status      DraftStatus
	Storyboards []KeyedStoryboard
	Raw         string
	Err         error
}

// OK はストーリーボード案を取り出せたかを返します。
func (r *DraftResult) OK() bool {
	return r != nil && r.Status == DraftOK && len(r.Storyboards) > 0
}

// Keys は案キーを番号順に返します。
func (r *DraftResult) Keys() []string {
	keys := make([]string, 0, len(r.Storyboards))
	for _, sb := range r.Storyboards {
		keys = append(keys, sb.Key)
	}
	return keys
}

// Select は指定キーのストーリーボード案を返します。key が空の場合は最初の案を返します。
func (r *DraftResult) Select(key string) (domain.Storyboard, error) {
	if !r.OK() {
		return domain.Storyboard{}, fmt.Errorf("選択可能なストーリーボード案がありません (status=%s)", r.Status)
	}
	if key == "" {
		return r.Storyboards[0].Storyboard, nil
	}
	for _, sb := range r.Storyboards {
		if sb.Key == key {
			return sb.Storyboard, nil
		}
	}
	return domain.Storyboard{}, fmt.Errorf("ストーリーボード案 %q が見つかりません (候補: %s)", key, strings.Join(r.Keys(), ", "))
}

// MarshalJSON は案キーを番号順に並べた JSON を出力します。
// 解析できなかった場合は {"raw_response": ...} として元の応答を保存します。
func (r *DraftResult) MarshalJSON() ([]byte, error) {
	if !r.OK() {
		return json.Marshal(map[string]string{"raw_response": r.Raw})
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, sb := range r.Storyboards {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(sb.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(sb.Storyboard)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ParseDraft はモデルの応答をストーリーボード案に変換し、各案のシーン数を sceneCount に揃えます。
func ParseDraft(raw string, sceneCount int) *DraftResult {
	res := &DraftResult{Raw: raw}

	jsonText, found := extractJSON(raw)
	if !found {
		res.Status = DraftRawText
		return res
	}

	fail := func(err error) *DraftResult {
		res.Status = DraftParseFailure
		res.Err = &domain.ParseError{Kind: "storyboard", Raw: raw, Err: err}
		return res
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(jsonText), &top); err != nil {
		return fail(fmt.Errorf("JSON の解析に失敗しました (応答抜粋: %q): %w", truncateString(raw, 200), err))
	}

	type entry struct {
		key string
		num int
		raw json.RawMessage
	}
	var entries []entry
	for k, v := range top {
		m := StoryboardKeyRegex.FindStringSubmatch(k)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		entries = append(entries, entry{key: k, num: n, raw: v})
	}
	if len(entries) == 0 {
		if _, ok := top["scenes"]; !ok {
			return fail(errors.New("storyboard<N> 形式のキーも scenes も見つかりません"))
		}
		entries = append(entries, entry{key: "storyboard1", num: 1, raw: json.RawMessage(jsonText)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].num < entries[j].num })

	for _, e := range entries {
		var sb domain.Storyboard
		if err := json.Unmarshal(e.raw, &sb); err != nil {
			return fail(fmt.Errorf("%s の解析に失敗しました: %w", e.key, err))
		}
		if len(sb.Scenes) == 0 {
			return fail(fmt.Errorf("%s にシーンがありません", e.key))
		}
		sort.SliceStable(sb.Scenes, func(i, j int) bool { return sb.Scenes[i].SceneNumber < sb.Scenes[j].SceneNumber })
		sb.Scenes = NormalizeScenes(sb.Scenes, sceneCount)
		res.Storyboards = append(res.Storyboards, KeyedStoryboard{Key: e.key, Storyboard: sb})
	}

	res.Status = DraftOK
	return res
}

// NormalizeScenes はシーン数を n に揃えます。不足分は空のシーンで補い、超過分は切り捨て、
// scene_number を 1..n の連番に振り直します。
func NormalizeScenes(scenes []domain.Scene, n int) []domain.Scene {
	if n < 0 {
		n = 0
	}
	out := make([]domain.Scene, n)
	for i := 0; i < n; i++ {
		if i < len(scenes) {
			out[i] = scenes[i]
		}
		out[i].SceneNumber = i + 1
	}
	return out
}
