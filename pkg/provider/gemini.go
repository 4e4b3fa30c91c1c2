package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shouni/go-gemini-client/pkg/gemini"
	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/remoteio"
	"google.golang.org/genai"

	imagedom "github.com/shouni/gemini-image-kit/pkg/domain"
	imagekit "github.com/shouni/gemini-image-kit/pkg/generator"
)

const (
	// DefaultAspectRatio はシーン画像の縦横比です。
	DefaultAspectRatio = "1:1"

	imageCacheExpiration = 5 * time.Minute
	imageCacheCleanup    = 15 * time.Minute
	imageCacheTTL        = 5 * time.Minute
)

// GeminiConfig は Gemini API クライアントの設定です。
type GeminiConfig struct {
	APIKey      string
	TextModel   string
	ImageModel  string
	Temperature *float32
	AspectRatio string

	// HTTPClient と Reader は画像生成エンジン (gemini-image-kit) の参照画像取得に使います。
	HTTPClient httpkit.ClientInterface
	Reader     remoteio.InputReader
}

// sceneImageGenerator は gemini-image-kit の ImageGenerator のうち、シーン画像の生成に使う部分です。
type sceneImageGenerator interface {
	GenerateMangaPanel(ctx context.Context, req imagedom.ImageGenerationRequest) (*imagedom.ImageResponse, error)
}

// GeminiClient は google.golang.org/genai を用いた GenerativeClient の実装です。
// Imagen 以外の画像モデルは gemini-image-kit の画像生成エンジンを通して呼び出します。
type GeminiClient struct {
	client *genai.Client
	images sceneImageGenerator
	cfg    GeminiConfig
}

// NewGeminiClient は Gemini API クライアントを初期化します。
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("Gemini API キーは必須です")
	}
	if cfg.TextModel == "" || cfg.ImageModel == "" {
		return nil, errors.New("テキストモデルと画像モデルの指定は必須です")
	}
	if cfg.AspectRatio == "" {
		cfg.AspectRatio = DefaultAspectRatio
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("Gemini クライアントの初期化に失敗しました: %w", err)
	}

	g := &GeminiClient{client: client, cfg: cfg}
	if !isImagenModel(cfg.ImageModel) {
		images, err := initializeImageGenerator(ctx, cfg)
		if err != nil {
			return nil, err
		}
		g.images = images
	}
	return g, nil
}

// initializeImageGenerator は go-gemini-client のクライアントを共有する画像生成エンジンを初期化します。
func initializeImageGenerator(ctx context.Context, cfg GeminiConfig) (imagekit.ImageGenerator, error) {
	if cfg.HTTPClient == nil {
		return nil, errors.New("画像生成エンジンには httpClient が必須です")
	}
	if cfg.Reader == nil {
		return nil, errors.New("画像生成エンジンには InputReader が必須です")
	}
	aiClient, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:      cfg.APIKey,
		Temperature: cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
	}

	imgCache := cache.New(imageCacheExpiration, imageCacheCleanup)
	core, err := imagekit.NewGeminiImageCore(
		aiClient,
		cfg.Reader,
		cfg.HTTPClient,
		imgCache,
		imageCacheTTL,
	)
	if err != nil {
		return nil, fmt.Errorf("GeminiImageCore の初期化に失敗しました: %w", err)
	}

	imgGen, err := imagekit.NewGeminiGenerator(cfg.ImageModel, core)
	if err != nil {
		return nil, fmt.Errorf("ImageGenerator の初期化に失敗しました: %w", err)
	}
	return imgGen, nil
}

// GenerateText implements GenerativeClient.
func (g *GeminiClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.TextModel, genai.Text(prompt), g.contentConfig())
	if err != nil {
		return "", fmt.Errorf("Gemini テキスト生成に失敗しました: %w", err)
	}
	return textOf(resp)
}

// GenerateMultimodalText implements GenerativeClient.
func (g *GeminiClient) GenerateMultimodalText(ctx context.Context, parts []Part) (string, error) {
	gparts := make([]*genai.Part, 0, len(parts))
	for _, p := range parts {
		if p.IsBinary() {
			gparts = append(gparts, genai.NewPartFromBytes(p.Data, p.MimeType))
			continue
		}
		gparts = append(gparts, genai.NewPartFromText(p.Text))
	}
	contents := []*genai.Content{genai.NewContentFromParts(gparts, genai.RoleUser)}

	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.TextModel, contents, g.contentConfig())
	if err != nil {
		return "", fmt.Errorf("Gemini マルチモーダル生成に失敗しました: %w", err)
	}
	return textOf(resp)
}

// GenerateImage implements GenerativeClient.
// Imagen 系モデルは GenerateImages を、それ以外は gemini-image-kit の画像生成エンジンを使用します。
func (g *GeminiClient) GenerateImage(ctx context.Context, prompt string) (Image, error) {
	if g.images == nil {
		return g.generateWithImagen(ctx, prompt)
	}
	resp, err := g.images.GenerateMangaPanel(ctx, imagedom.ImageGenerationRequest{
		Prompt:      prompt,
		AspectRatio: g.cfg.AspectRatio,
	})
	if err != nil {
		return Image{}, fmt.Errorf("Gemini 画像生成に失敗しました: %w", err)
	}
	if resp == nil || len(resp.Data) == 0 {
		return Image{}, errors.New("Gemini の応答に画像データがありません")
	}
	return Image{Data: resp.Data, MimeType: mimeOr(resp.MimeType)}, nil
}

func (g *GeminiClient) generateWithImagen(ctx context.Context, prompt string) (Image, error) {
	resp, err := g.client.Models.GenerateImages(ctx, g.cfg.ImageModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    g.cfg.AspectRatio,
	})
	if err != nil {
		return Image{}, fmt.Errorf("Imagen 画像生成に失敗しました: %w", err)
	}
	if resp == nil || len(resp.GeneratedImages) == 0 {
		return Image{}, errors.New("Imagen の応答に画像が含まれていません")
	}
	gi := resp.GeneratedImages[0]
	if gi.Image == nil || len(gi.Image.ImageBytes) == 0 {
		if gi.RAIFilteredReason != "" {
			return Image{}, fmt.Errorf("画像が安全フィルタによりブロックされました: %s", gi.RAIFilteredReason)
		}
		return Image{}, errors.New("Imagen の応答に画像データがありません")
	}
	return Image{Data: gi.Image.ImageBytes, MimeType: mimeOr(gi.Image.MIMEType)}, nil
}

func isImagenModel(model string) bool {
	return strings.HasPrefix(model, "imagen")
}

func (g *GeminiClient) contentConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{Temperature: g.cfg.Temperature}
}

func textOf(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", errors.New("Gemini の応答が空です")
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("Gemini の応答にテキストが含まれていません")
	}
	return text, nil
}

func mimeOr(mime string) string {
	if mime == "" {
		return "image/png"
	}
	return mime
}
