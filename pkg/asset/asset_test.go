package asset

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/go-cmp/cmp"

	"github.com/shouni/go-conti-kit/pkg/domain"
)

func encode(t *testing.T, w, h int, format imaging.Format) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.New(w, h, color.NRGBA{R: 10, G: 20, B: 30, A: 255}), format); err != nil {
		t.Fatalf("テスト画像の生成に失敗しました: %v", err)
	}
	return buf.Bytes()
}

func TestSceneFileName(t *testing.T) {
	if got := SceneFileName(3); got != "scene_3.png" {
		t.Errorf("SceneFileName(3) = %q", got)
	}
	n, ok := ParseSceneNumber(filepath.Join("temp", "scene_12.png"))
	if !ok || n != 12 {
		t.Errorf("ParseSceneNumber = %d, %v", n, ok)
	}
	if _, ok := ParseSceneNumber("panel_1.png"); ok {
		t.Error("シーン画像以外のファイル名に一致しました")
	}
}

func TestLocalStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	ref1, err := store.Write(ctx, 1, []byte("one"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if filepath.Base(ref1) != "scene_1.png" {
		t.Errorf("参照が scene_1.png ではありません: %s", ref1)
	}
	if _, err := store.Write(ctx, 2, []byte("two")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := store.Read(ctx, ref1)
	if err != nil || string(got) != "one" {
		t.Fatalf("Read = %q, %v", got, err)
	}

	if _, err := store.Write(ctx, 1, []byte("uno")); err != nil {
		t.Fatalf("上書きに失敗しました: %v", err)
	}
	got, _ = store.Read(ctx, ref1)
	if string(got) != "uno" {
		t.Errorf("上書き後の内容 = %q", got)
	}

	if err := store.Delete(ctx, ref1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(ctx, ref1); err != nil {
		t.Errorf("存在しない参照の削除がエラーになりました: %v", err)
	}
	_, err = store.Read(ctx, ref1)
	var aerr *domain.ArtifactError
	if !errors.As(err, &aerr) || aerr.SceneNumber != 1 {
		t.Errorf("ArtifactError が返されませんでした: %v", err)
	}

	if err := store.ClearBatch(ctx); err != nil {
		t.Fatalf("ClearBatch: %v", err)
	}
	refs, err := store.List(ctx)
	if err != nil || len(refs) != 0 {
		t.Errorf("ClearBatch 後に成果物が残っています: %v, %v", refs, err)
	}
}

type countingStore struct {
	Store
	reads int
}

func (c *countingStore) Read(ctx context.Context, ref string) ([]byte, error) {
	c.reads++
	return c.Store.Read(ctx, ref)
}

func TestCachedStore(t *testing.T) {
	ctx := context.Background()
	local, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	inner := &countingStore{Store: local}
	store := NewCachedStore(inner, time.Minute)

	ref, err := inner.Write(ctx, 4, []byte("raw"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	for i := 0; i < 3; i++ {
		if got, err := store.Read(ctx, ref); err != nil || string(got) != "raw" {
			t.Fatalf("Read = %q, %v", got, err)
		}
	}
	if inner.reads != 1 {
		t.Errorf("内部ストアの読み込み回数 = %d, want 1", inner.reads)
	}

	if _, err := store.Write(ctx, 4, []byte("new")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got, _ := store.Read(ctx, ref); string(got) != "new" {
		t.Errorf("書き込み後に古いキャッシュが返されました: %q", got)
	}

	if err := store.Delete(ctx, ref); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Read(ctx, ref); err == nil {
		t.Error("削除後の読み込みが成功しました")
	}
}

// gatedStore は最初の Read で内部ストアから読み込んだ後、release が閉じられるまで戻りません。
type gatedStore struct {
	Store
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) Read(ctx context.Context, ref string) ([]byte, error) {
	data, err := g.Store.Read(ctx, ref)
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	return data, err
}

func TestCachedStore_ReadDoesNotCacheStaleData(t *testing.T) {
	ctx := context.Background()
	local, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	inner := &gatedStore{Store: local, entered: make(chan struct{}), release: make(chan struct{})}
	store := NewCachedStore(inner, time.Minute)

	ref, err := local.Write(ctx, 2, []byte("old"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	done := make(chan []byte, 1)
	go func() {
		data, _ := store.Read(ctx, ref)
		done <- data
	}()
	<-inner.entered

	// 読み込み中に再生成と同じ順序で削除と書き込みを行います。
	if err := store.Delete(ctx, ref); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Write(ctx, 2, []byte("new")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	close(inner.release)
	if got := <-done; string(got) != "old" {
		t.Errorf("先行した読み込みの結果 = %q", got)
	}

	got, err := store.Read(ctx, ref)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "new" {
		t.Errorf("古い画像がキャッシュされました: %q", got)
	}
}

func TestEnsurePNG(t *testing.T) {
	jpeg := encode(t, 4, 4, imaging.JPEG)
	got, err := EnsurePNG(jpeg, "image/jpeg")
	if err != nil {
		t.Fatalf("EnsurePNG: %v", err)
	}
	if !bytes.HasPrefix(got, []byte("\x89PNG\r\n\x1a\n")) {
		t.Error("PNG に変換されていません")
	}

	png := encode(t, 4, 4, imaging.PNG)
	same, err := EnsurePNG(png, "")
	if err != nil {
		t.Fatalf("EnsurePNG: %v", err)
	}
	if diff := cmp.Diff(png, same); diff != "" {
		t.Errorf("PNG が変更されました (-want +got):\n%s", diff)
	}

	if _, err := EnsurePNG(nil, "image/png"); err == nil {
		t.Error("空データでエラーになりませんでした")
	}
	if _, err := EnsurePNG([]byte("garbage"), "image/png"); err == nil {
		t.Error("MIME が PNG なだけの壊れたデータが通りました")
	}
	if _, err := EnsurePNG(png[:len(png)/2], "image/png"); err == nil {
		t.Error("途中で切れた PNG が通りました")
	}
}

func TestCheckUpload(t *testing.T) {
	png := encode(t, 4, 4, imaging.PNG)
	jpeg := encode(t, 4, 4, imaging.JPEG)
	gif := encode(t, 4, 4, imaging.GIF)

	tests := []struct {
		name     string
		data     []byte
		mimeType string
		wantErr  error
	}{
		{name: "PNG", data: png, mimeType: "image/png"},
		{name: "JPEG", data: jpeg, mimeType: "image/jpeg"},
		{name: "jpg の MIME", data: jpeg, mimeType: "image/jpg"},
		{name: "MIME なし", data: png},
		{name: "GIF の MIME", data: gif, mimeType: "image/gif", wantErr: ErrUnsupportedImage},
		{name: "中身が GIF", data: gif, mimeType: "image/png", wantErr: ErrUnsupportedImage},
		{name: "上限超過", data: make([]byte, MaxUploadSize+1), mimeType: "image/png", wantErr: ErrImageTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckUpload(tt.data, tt.mimeType)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("CheckUpload: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if err := CheckUpload([]byte("garbage"), "image/png"); err == nil {
		t.Error("壊れたデータが通りました")
	}
}

func TestFitForVision(t *testing.T) {
	large := encode(t, 300, 150, imaging.PNG)
	out := FitForVision(large, 100)
	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("縮小結果のデコードに失敗しました: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 100 || b.Dy() != 50 {
		t.Errorf("縮小後のサイズ = %dx%d, want 100x50", b.Dx(), b.Dy())
	}

	small := encode(t, 10, 10, imaging.PNG)
	if diff := cmp.Diff(small, FitForVision(small, 100)); diff != "" {
		t.Error("縮小不要な画像が変更されました")
	}
}
