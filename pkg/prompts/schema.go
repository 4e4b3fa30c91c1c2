package prompts

import (
	"encoding/json"

	"github.com/invopop/jsonschema"

	"github.com/shouni/go-conti-kit/pkg/domain"
)

// GenerateSchema は T の JSON スキーマを生成します。
func GenerateSchema[T any]() *jsonschema.Schema {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// storyboardSchema はストーリーボード 1 案分のスキーマを整形済み JSON として保持します。
var storyboardSchema = mustIndent(GenerateSchema[domain.Storyboard]())

// StoryboardSchema はストーリーボード案の JSON スキーマ文字列を返します。
func StoryboardSchema() string {
	return storyboardSchema
}

func mustIndent(schema *jsonschema.Schema) string {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		panic(err)
	}
	return string(data)
}
