package generator

import "github.com/shouni/go-conti-kit/pkg/domain"

// Request は 1 シーン分の画像生成リクエストです。
type Request struct {
	// Plot はストーリーボード全体のプロットです。プロンプトの先頭に含まれます。
	Plot  string
	Scene domain.Scene
	// Prompt が空でない場合、テンプレートを使わずにそのまま画像生成へ渡します。
	Prompt string
	// Regenerate は再生成用のテンプレートを使うかどうかを指定します。
	Regenerate bool
}
