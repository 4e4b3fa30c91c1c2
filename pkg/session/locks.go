package session

import (
	"context"
	"sync"
)

// sceneLocks はシーン単位の書き込みロックです。ゼロ値で使用できます。
type sceneLocks struct {
	mu    sync.Mutex
	chans map[int]chan struct{}
}

func (l *sceneLocks) get(n int) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.chans == nil {
		l.chans = make(map[int]chan struct{})
	}
	ch, ok := l.chans[n]
	if !ok {
		ch = make(chan struct{}, 1)
		l.chans[n] = ch
	}
	return ch
}

// LockScene はシーン n の書き込みロックを取得し、解放関数を返します。
// 1 シーンへの画像の書き込み（生成・再生成・アップロード）は常に 1 件ずつ行われます。
// ctx が終了した場合は取得を諦めてエラーを返します。
func (s *Session) LockScene(ctx context.Context, n int) (func(), error) {
	ch := s.locks.get(n)
	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-ch }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
