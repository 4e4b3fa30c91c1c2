package prompts

import (
	"fmt"
	"strings"
	"text/template"
)

// Builder は、AI プロンプトを構築する契約です。
type Builder interface {
	Build(kind Kind, data TemplateData) (string, error)
}

// TextPromptBuilder は埋め込みテンプレートからプロンプトを構築します。
type TextPromptBuilder struct {
	templates map[Kind]*template.Template
}

var _ Builder = (*TextPromptBuilder)(nil)

var funcMap = template.FuncMap{
	"join": strings.Join,
	"inc":  func(i int) int { return i + 1 },
}

// NewTextPromptBuilder は TextPromptBuilder を初期化します。
func NewTextPromptBuilder() (*TextPromptBuilder, error) {
	parsedTemplates := make(map[Kind]*template.Template, len(allTemplates))
	for kind, content := range allTemplates {
		if strings.TrimSpace(content) == "" {
			return nil, fmt.Errorf("プロンプトテンプレート '%s' (go:embed) の読み込みに失敗しました: 内容が空です", kind)
		}

		tmpl, err := template.New(string(kind)).Funcs(funcMap).Option("missingkey=error").Parse(content)
		if err != nil {
			return nil, fmt.Errorf("プロンプト '%s' の解析に失敗: %w", kind, err)
		}
		parsedTemplates[kind] = tmpl
	}

	return &TextPromptBuilder{
		templates: parsedTemplates,
	}, nil
}

// Build は、要求された種類に応じて適切なテンプレートを実行します。
func (b *TextPromptBuilder) Build(kind Kind, data TemplateData) (string, error) {
	tmpl, ok := b.templates[kind]
	if !ok {
		return "", fmt.Errorf("不明なプロンプト種別です: '%s'", kind)
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("プロンプトテンプレートの実行に失敗しました: %w", err)
	}

	return strings.TrimSpace(sb.String()), nil
}
