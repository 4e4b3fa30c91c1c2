package domain

import "time"

// ImageStatus は生成画像の状態です。
type ImageStatus string

const (
	ImageStatusPending ImageStatus = "pending"
	ImageStatusSuccess ImageStatus = "success"
	ImageStatusFailed  ImageStatus = "failed"
)

// SceneState はシーン単位の処理状態です。
type SceneState string

const (
	SceneStatePending      SceneState = "pending"
	SceneStateGenerating   SceneState = "generating"
	SceneStateGenerated    SceneState = "generated"
	SceneStateFailed       SceneState = "failed"
	SceneStateValidated    SceneState = "validated"
	SceneStateRegenerating SceneState = "regenerating"
	SceneStateRegenerated  SceneState = "regenerated"
)

// Busy は画像の書き込み中でシーンの編集ができない状態かを返します。
func (s SceneState) Busy() bool {
	return s == SceneStateGenerating || s == SceneStateRegenerating
}

// GeneratedImage はシーンごとの現在の画像です。1 シーンにつき常に最大 1 件です。
type GeneratedImage struct {
	SceneNumber int         `json:"scene_number"`
	Ref         string      `json:"ref,omitempty"`
	Status      ImageStatus `json:"status"`
	Reason      string      `json:"reason,omitempty"`
	Prompt      string      `json:"prompt,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// OK は画像が正常に生成・保存済みであるかを返します。
func (g GeneratedImage) OK() bool {
	return g.Status == ImageStatusSuccess && g.Ref != ""
}
