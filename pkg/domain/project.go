package domain

import "time"

// CreationDateLayout はプロジェクトファイルの creation_date の書式です。
const CreationDateLayout = "2006-01-02 15:04:05"

// Project は保存されるプロジェクトファイルの内容です。
// フィールド名は既存のプロジェクトファイルと互換性を保つ必要があります。
type Project struct {
	Title           string         `json:"title"`
	Scenes          []Scene        `json:"scenes"`
	GeneratedImages map[int]string `json:"generated_images"`
	CreationDate    string         `json:"creation_date"`
	ProjectFolder   string         `json:"project_folder"`
}

// NewProject はプロジェクトファイルの内容を生成します。
func NewProject(title string, scenes []Scene, images map[int]string, folder string, now time.Time) Project {
	if images == nil {
		images = map[int]string{}
	}
	if scenes == nil {
		scenes = []Scene{}
	}
	return Project{
		Title:           title,
		Scenes:          scenes,
		GeneratedImages: images,
		CreationDate:    now.Format(CreationDateLayout),
		ProjectFolder:   folder,
	}
}
