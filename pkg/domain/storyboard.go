package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Storyboard は AI モデルが提案するストーリーボード案 1 件分の構造です。
type Storyboard struct {
	Title         string     `json:"title"`
	TotalDuration FlexString `json:"total duration"`
	Plot          FlexString `json:"plot"`
	Mood          FlexString `json:"mood"`
	Scenes        []Scene    `json:"scenes"`
	KeyMessages   FlexList   `json:"key_messages"`
	CallToAction  FlexString `json:"call_to_action"`
}

// Scene はストーリーボードの 1 シーンです。
// SceneNumber はストア内で 1..N の連番になるよう正規化されます。
type Scene struct {
	SceneNumber int        `json:"scene_number"`
	Duration    FlexString `json:"duration"`
	Visual      FlexString `json:"visual"`
	Audio       FlexString `json:"audio"`
	Text        FlexString `json:"text"`
	Description FlexString `json:"description"`
	Mood        FlexString `json:"mood"`
}

// IsPlaceholder は内容が空の補完用シーンであるかを返します。
func (s Scene) IsPlaceholder() bool {
	return s.Duration == "" && s.Visual == "" && s.Audio == "" &&
		s.Text == "" && s.Description == "" && s.Mood == ""
}

// PlaceholderScene は件数を揃えるための空のシーンを返します。
func PlaceholderScene(number int) Scene {
	return Scene{SceneNumber: number}
}

// FlexString は文字列・数値・文字列配列のいずれで返されても文字列として受け取ります。
// モデルは "plot" を配列で、"duration" を数値で返すことがあるためです。
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
	case '[':
		var items []FlexString
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		parts := make([]string, 0, len(items))
		for _, it := range items {
			if it != "" {
				parts = append(parts, string(it))
			}
		}
		*f = FlexString(strings.Join(parts, "\n"))
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err == nil {
			*f = FlexString(n.String())
			return nil
		}
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*f = FlexString(strconv.FormatBool(b))
	}
	return nil
}

// String returns the plain string value.
func (f FlexString) String() string { return string(f) }

// FlexList は文字列配列、または単一の文字列を配列として受け取ります。
type FlexList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *FlexList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if data[0] == '[' {
		var items []FlexString
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		out := make([]string, 0, len(items))
		for _, it := range items {
			out = append(out, string(it))
		}
		*l = out
		return nil
	}
	var s FlexString
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*l = nil
		return nil
	}
	*l = FlexList{string(s)}
	return nil
}
