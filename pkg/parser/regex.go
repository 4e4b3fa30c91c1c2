package parser

import "regexp"

var (
	// jsonBlockRegex は ```json ... ``` 形式のコードブロックの中身をキャプチャします。
	jsonBlockRegex = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?\\S)\\s*```")

	// StoryboardKeyRegex は "storyboard1" 形式の案キーに一致し、番号をキャプチャします。
	StoryboardKeyRegex = regexp.MustCompile(`^storyboard(\d+)$`)

	// numberRegex は整数または小数をキャプチャします。
	numberRegex = regexp.MustCompile(`\d+(?:\.\d+)?`)
)
