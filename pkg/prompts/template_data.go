package prompts

import (
	_ "embed"

	"github.com/shouni/go-conti-kit/pkg/domain"
)

// Kind はプロンプトの種類です。
type Kind string

const (
	KindPlot               Kind = "plot"
	KindStoryboard         Kind = "storyboard"
	KindSceneImage         Kind = "scene_image"
	KindRegenImage         Kind = "regen_image"
	KindDescriptionExtract Kind = "description_extract"
	KindScoreCompare       Kind = "score_compare"
	KindDirectScore        Kind = "direct_score"
	KindFeedback           Kind = "feedback"
)

// TemplateData はプロンプトテンプレートに渡すデータ構造です。種類ごとに使うフィールドだけを埋めます。
type TemplateData struct {
	Form       domain.FormData
	Plot       string
	SceneCount int
	Variants   int
	Schema     string

	Scene domain.Scene
	Parts []string

	Original     string
	Predicted    string
	Criteria     []string
	Improvements string
}

var (
	//go:embed templates/plot.md
	PlotPrompt string
	//go:embed templates/storyboard.md
	StoryboardPrompt string
	//go:embed templates/scene_image.md
	SceneImagePrompt string
	//go:embed templates/regen_image.md
	RegenImagePrompt string
	//go:embed templates/description_extract.md
	DescriptionExtractPrompt string
	//go:embed templates/score_compare.md
	ScoreComparePrompt string
	//go:embed templates/direct_score.md
	DirectScorePrompt string
	//go:embed templates/feedback.md
	FeedbackPrompt string
)

// allTemplates はプロンプトの種類とテンプレート文字列を紐づけるマップです。
var allTemplates = map[Kind]string{
	KindPlot:               PlotPrompt,
	KindStoryboard:         StoryboardPrompt,
	KindSceneImage:         SceneImagePrompt,
	KindRegenImage:         RegenImagePrompt,
	KindDescriptionExtract: DescriptionExtractPrompt,
	KindScoreCompare:       ScoreComparePrompt,
	KindDirectScore:        DirectScorePrompt,
	KindFeedback:           FeedbackPrompt,
}
