package asset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/shouni/go-conti-kit/pkg/domain"
)

// LocalStore はローカルの一時ディレクトリに scene_N.png として画像を保存する Store です。
type LocalStore struct {
	dir string
	mu  sync.Mutex
}

var _ Store = (*LocalStore)(nil)

// NewLocalStore は一時ディレクトリを作成して LocalStore を初期化します。
func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		return nil, errors.New("一時ディレクトリの指定は必須です")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("一時ディレクトリの作成に失敗しました: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// Dir は一時ディレクトリのパスを返します。
func (s *LocalStore) Dir() string {
	return s.dir
}

// Write は一時ファイルに書き込んでからリネームすることで、読み手に書きかけのファイルを見せません。
func (s *LocalStore) Write(ctx context.Context, sceneNumber int, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &domain.ArtifactError{Op: "write", SceneNumber: sceneNumber, Err: err}
	}
	path := filepath.Join(s.dir, SceneFileName(sceneNumber))

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, ".scene-*.tmp")
	if err != nil {
		return "", &domain.ArtifactError{Op: "write", SceneNumber: sceneNumber, Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", &domain.ArtifactError{Op: "write", SceneNumber: sceneNumber, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", &domain.ArtifactError{Op: "write", SceneNumber: sceneNumber, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", &domain.ArtifactError{Op: "write", SceneNumber: sceneNumber, Ref: path, Err: err}
	}
	return path, nil
}

// Read implements Store.
func (s *LocalStore) Read(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(ref)
	if err != nil {
		n, _ := ParseSceneNumber(ref)
		return nil, &domain.ArtifactError{Op: "read", SceneNumber: n, Ref: ref, Err: err}
	}
	return data, nil
}

// Delete implements Store.
func (s *LocalStore) Delete(ctx context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(ref); err != nil && !errors.Is(err, fs.ErrNotExist) {
		n, _ := ParseSceneNumber(ref)
		return &domain.ArtifactError{Op: "delete", SceneNumber: n, Ref: ref, Err: err}
	}
	return nil
}

// ClearBatch は一時ディレクトリ内のシーン画像と書きかけの一時ファイルを全て削除します。
func (s *LocalStore) ClearBatch(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return &domain.ArtifactError{Op: "clear", Err: err}
	}
	var errs []error
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !SceneFileRegex.MatchString(name) && filepath.Ext(name) != ".tmp" {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	slog.DebugContext(ctx, "一時ディレクトリを掃除しました", "dir", s.dir, "removed", removed)
	if len(errs) > 0 {
		return &domain.ArtifactError{Op: "clear", Err: errors.Join(errs...)}
	}
	return nil
}

// List implements Store.
func (s *LocalStore) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &domain.ArtifactError{Op: "list", Err: err}
	}
	var refs []string
	for _, e := range entries {
		if !e.IsDir() && SceneFileRegex.MatchString(e.Name()) {
			refs = append(refs, filepath.Join(s.dir, e.Name()))
		}
	}
	sort.Strings(refs)
	return refs, nil
}
