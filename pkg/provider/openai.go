package provider

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// ImageFetcher は URL で返された生成画像の中身を取得します。
// httpkit.ClientInterface がこのインターフェースを満たします。
type ImageFetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// OpenAIConfig は OpenAI API クライアントの設定です。
type OpenAIConfig struct {
	APIKey         string
	TextModel      string
	ImageModel     string
	Temperature    *float32
	RequestTimeout time.Duration
	// BaseURL は互換 API やプロキシを使う場合に指定します。
	BaseURL string
	// Fetcher は画像が URL で返された場合の取得に使います。
	Fetcher ImageFetcher
}

// OpenAIClient は openai-go を用いた GenerativeClient の実装です。
type OpenAIClient struct {
	client  openai.Client
	cfg     OpenAIConfig
	fetcher ImageFetcher
}

// NewOpenAIClient は OpenAI API クライアントを初期化します。
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OpenAI API キーは必須です")
	}
	if cfg.TextModel == "" || cfg.ImageModel == "" {
		return nil, errors.New("テキストモデルと画像モデルの指定は必須です")
	}
	if cfg.Fetcher == nil {
		return nil, errors.New("画像取得用の httpClient は必須です")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.RequestTimeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.RequestTimeout))
	}
	return &OpenAIClient{client: openai.NewClient(opts...), cfg: cfg, fetcher: cfg.Fetcher}, nil
}

// GenerateText implements GenerativeClient.
func (o *OpenAIClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	return o.complete(ctx, openai.UserMessage(prompt))
}

// GenerateMultimodalText implements GenerativeClient.
func (o *OpenAIClient) GenerateMultimodalText(ctx context.Context, parts []Part) (string, error) {
	content := make([]openai.ChatCompletionContentPartUnionParam, 0, len(parts))
	for _, p := range parts {
		if p.IsBinary() {
			content = append(content, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: p.DataURL(),
			}))
			continue
		}
		content = append(content, openai.TextContentPart(p.Text))
	}
	return o.complete(ctx, openai.UserMessage(content))
}

func (o *OpenAIClient) complete(ctx context.Context, msg openai.ChatCompletionMessageParamUnion) (string, error) {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{msg},
		Model:    openai.ChatModel(o.cfg.TextModel),
	}
	if o.cfg.Temperature != nil {
		params.Temperature = openai.Float(float64(*o.cfg.Temperature))
	}

	completion, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("OpenAI テキスト生成に失敗しました: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("OpenAI の応答に選択肢が含まれていません")
	}
	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("OpenAI の応答が空です (finish_reason: %s)", completion.Choices[0].FinishReason)
	}
	return text, nil
}

// GenerateImage implements GenerativeClient.
func (o *OpenAIClient) GenerateImage(ctx context.Context, prompt string) (Image, error) {
	params := openai.ImageGenerateParams{
		Prompt: prompt,
		Model:  openai.ImageModel(o.cfg.ImageModel),
		N:      openai.Int(1),
	}
	if strings.HasPrefix(o.cfg.ImageModel, "dall-e") {
		params.ResponseFormat = openai.ImageGenerateParamsResponseFormatB64JSON
	}

	resp, err := o.client.Images.Generate(ctx, params)
	if err != nil {
		return Image{}, fmt.Errorf("OpenAI 画像生成に失敗しました: %w", err)
	}
	if resp == nil || len(resp.Data) == 0 {
		return Image{}, errors.New("OpenAI の応答に画像が含まれていません")
	}

	img := resp.Data[0]
	if img.B64JSON != "" {
		data, err := base64.StdEncoding.DecodeString(img.B64JSON)
		if err != nil {
			return Image{}, fmt.Errorf("画像データのデコードに失敗しました: %w", err)
		}
		return Image{Data: data, MimeType: "image/png"}, nil
	}
	if img.URL != "" {
		data, err := o.fetcher.FetchBytes(ctx, img.URL)
		if err != nil {
			return Image{}, fmt.Errorf("生成画像の取得に失敗しました: %w", err)
		}
		if len(data) == 0 {
			return Image{}, errors.New("取得した生成画像が空です")
		}
		return Image{Data: data, MimeType: mimeOr("")}, nil
	}
	return Image{}, errors.New("OpenAI の応答に画像データがありません")
}
