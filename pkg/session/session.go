// Package session は 1 件のストーリーボード編集作業の状態（シーン・画像・検証結果）を保持します。
package session

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/shouni/go-conti-kit/pkg/domain"
)

// Session は選択されたストーリーボードのシーン群と、シーンごとの現在の画像・検証結果・状態を保持します。
// グローバルな状態を持たず、呼び出し側が明示的に各 Runner へ渡します。全メソッドは並行呼び出しに対して安全です。
type Session struct {
	ID string

	mu          sync.RWMutex
	storyboard  domain.Storyboard
	scenes      []domain.Scene
	images      map[int]domain.GeneratedImage
	validations map[int]domain.ValidationResult
	states      map[int]domain.SceneState

	locks sceneLocks
}

// New は空のセッションを生成します。
func New() *Session {
	return &Session{
		ID:          uuid.NewString(),
		images:      make(map[int]domain.GeneratedImage),
		validations: make(map[int]domain.ValidationResult),
		states:      make(map[int]domain.SceneState),
	}
}

// LoadStoryboard は選択されたストーリーボードを読み込み、既存の画像・検証結果を破棄します。
// シーンは 1..N の連番である必要があります。雰囲気が空のシーンはストーリーボード全体の雰囲気を引き継ぎます。
func (s *Session) LoadStoryboard(sb domain.Storyboard) error {
	if err := checkDense(sb.Scenes); err != nil {
		return err
	}
	scenes := append([]domain.Scene(nil), sb.Scenes...)
	for i := range scenes {
		if scenes[i].Mood == "" && !scenes[i].IsPlaceholder() {
			scenes[i].Mood = sb.Mood
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sb.Scenes = nil
	s.storyboard = sb
	s.scenes = scenes
	s.images = make(map[int]domain.GeneratedImage)
	s.validations = make(map[int]domain.ValidationResult)
	s.states = make(map[int]domain.SceneState, len(scenes))
	for _, sc := range scenes {
		s.states[sc.SceneNumber] = domain.SceneStatePending
	}
	return nil
}

func checkDense(scenes []domain.Scene) error {
	for i, sc := range scenes {
		if sc.SceneNumber != i+1 {
			return fmt.Errorf("シーン番号は 1 からの連番である必要があります: index=%d scene_number=%d", i, sc.SceneNumber)
		}
	}
	return nil
}

// Title はストーリーボードのタイトルを返します。
func (s *Session) Title() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.storyboard.Title
}

// Plot はストーリーボード全体のプロットを返します。
func (s *Session) Plot() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.storyboard.Plot.String()
}

// Storyboard は現在のシーンを含むストーリーボードのコピーを返します。
func (s *Session) Storyboard() domain.Storyboard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sb := s.storyboard
	sb.Scenes = append([]domain.Scene(nil), s.scenes...)
	return sb
}

// Scenes はシーン番号順のシーンのコピーを返します。
func (s *Session) Scenes() []domain.Scene {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Scene(nil), s.scenes...)
}

// SceneNumbers は全シーン番号を昇順で返します。
func (s *Session) SceneNumbers() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	nums := make([]int, 0, len(s.scenes))
	for _, sc := range s.scenes {
		nums = append(nums, sc.SceneNumber)
	}
	return nums
}

// Scene は指定番号のシーンを返します。
func (s *Session) Scene(n int) (domain.Scene, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n < 1 || n > len(s.scenes) {
		return domain.Scene{}, fmt.Errorf("%w: scene_number=%d", domain.ErrSceneNotFound, n)
	}
	return s.scenes[n-1], nil
}

// UpdateScene はシーンの内容を書き換えます。画像の生成中・再生成中のシーンは編集できません。
func (s *Session) UpdateScene(scene domain.Scene) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := scene.SceneNumber
	if n < 1 || n > len(s.scenes) {
		return fmt.Errorf("%w: scene_number=%d", domain.ErrSceneNotFound, n)
	}
	if s.states[n].Busy() {
		return fmt.Errorf("%w: scene_number=%d state=%s", domain.ErrSceneBusy, n, s.states[n])
	}
	s.scenes[n-1] = scene
	return nil
}

// SetImage はシーンの現在の画像を置き換えます。
func (s *Session) SetImage(img domain.GeneratedImage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images[img.SceneNumber] = img
}

// Image はシーンの現在の画像を返します。
func (s *Session) Image(n int) (domain.GeneratedImage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	img, ok := s.images[n]
	return img, ok
}

// RemoveImage はシーンの画像を記録から取り除きます。
func (s *Session) RemoveImage(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.images, n)
}

// Images はシーン番号順の画像一覧を返します。
func (s *Session) Images() []domain.GeneratedImage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.GeneratedImage, 0, len(s.images))
	for _, img := range s.images {
		out = append(out, img)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SceneNumber < out[j].SceneNumber })
	return out
}

// SuccessfulScenes は正常な画像を持つシーンを番号順に返します。
func (s *Session) SuccessfulScenes() []domain.Scene {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Scene
	for _, sc := range s.scenes {
		if img, ok := s.images[sc.SceneNumber]; ok && img.OK() {
			out = append(out, sc)
		}
	}
	return out
}

// ResetScenes は指定シーンの画像と検証結果を破棄し、状態を Pending に戻します。
func (s *Session) ResetScenes(nums []int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range nums {
		delete(s.images, n)
		delete(s.validations, n)
		if _, ok := s.states[n]; ok {
			s.states[n] = domain.SceneStatePending
		}
	}
}

// SetValidation はシーンの検証結果を置き換えます。
func (s *Session) SetValidation(res domain.ValidationResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validations[res.SceneNumber] = res
}

// Validation はシーンの現在の検証結果を返します。
func (s *Session) Validation(n int) (domain.ValidationResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.validations[n]
	return res, ok
}

// InvalidateValidation は画像が差し替えられたシーンの古い検証結果を破棄します。
func (s *Session) InvalidateValidation(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.validations, n)
}

// Validations はシーン番号順の検証結果を返します。
func (s *Session) Validations() []domain.ValidationResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ValidationResult, 0, len(s.validations))
	for _, v := range s.validations {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SceneNumber < out[j].SceneNumber })
	return out
}

// State はシーンの処理状態を返します。
func (s *Session) State(n int) domain.SceneState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states[n]
}

// SetState はシーンの処理状態を更新します。
func (s *Session) SetState(n int, st domain.SceneState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[n] = st
}
