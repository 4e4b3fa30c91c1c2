package publisher

import (
	"context"
	"io"
)

// OutputWriter はデータをローカルパスまたは gs:// の保存先に書き出すためのインターフェースです。
// remoteio.OutputWriter がこのインターフェースを満たします。
type OutputWriter interface {
	Write(ctx context.Context, path string, r io.Reader, contentType string) error
}
