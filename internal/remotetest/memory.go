// Package remotetest はテスト用のメモリ上の入出力先を提供します。
// remoteio の InputReader / OutputWriter と同じ Open / Write を持ちます。
package remotetest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"sync"
)

// MemoryIO はパスをキーにデータを保持する入出力先です。並行呼び出しに対して安全です。
type MemoryIO struct {
	mu           sync.Mutex
	files        map[string][]byte
	contentTypes map[string]string

	// WriteErr が設定されている場合、Write は常にこのエラーを返します。
	WriteErr error
}

// New は空の MemoryIO を返します。
func New() *MemoryIO {
	return &MemoryIO{
		files:        make(map[string][]byte),
		contentTypes: make(map[string]string),
	}
}

// Put はテストの入力データを配置します。
func (m *MemoryIO) Put(path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = append([]byte(nil), data...)
}

// Open は path のデータを読み出します。存在しない場合は fs.ErrNotExist を返します。
func (m *MemoryIO) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, fs.ErrNotExist)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Write は r の内容を path に保存します。
func (m *MemoryIO) Write(ctx context.Context, path string, r io.Reader, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.WriteErr != nil {
		return m.WriteErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = data
	m.contentTypes[path] = contentType
	return nil
}

// File は保存済みのデータを返します。
func (m *MemoryIO) File(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[path]
	return data, ok
}

// ContentType は Write 時に指定されたコンテンツタイプを返します。
func (m *MemoryIO) ContentType(path string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.contentTypes[path]
}

// Paths は保存済みのパスを昇順で返します。
func (m *MemoryIO) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	paths := make([]string, 0, len(m.files))
	for p := range m.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
