package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mydayiart/dayart/config"
)

// ImageGenerator produces a single image for a text prompt and returns the URL
// where the provider hosts the result.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

var (
	generationClient = &http.Client{Timeout: 60 * time.Second}
	downloadClient   = &http.Client{Timeout: 30 * time.Second}
)

// OpenAIImageClient calls the OpenAI Images API.
type OpenAIImageClient struct {
	httpClient *http.Client
}

// NewOpenAIImageClient creates a client using the shared bounded-timeout HTTP client.
func NewOpenAIImageClient() *OpenAIImageClient {
	return &OpenAIImageClient{httpClient: generationClient}
}

type imageRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size"`
	ResponseFormat string `json:"response_format"`
}

type imageResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// GenerateImage requests exactly one square image by URL for the given prompt.
func (c *OpenAIImageClient) GenerateImage(ctx context.Context, prompt string) (string, error) {
	cfg := config.Get()
	if cfg.OpenAIAPIKey == "" {
		return "", fmt.Errorf("openai api key not configured")
	}

	payload, err := json.Marshal(imageRequest{
		Model:          cfg.OpenAIModel,
		Prompt:         prompt,
		N:              1,
		Size:           cfg.OpenAIImageSize,
		ResponseFormat: "url",
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.OpenAIBaseURL+"/images/generations", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.OpenAIAPIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out imageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode image response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if out.Error != nil {
			return "", fmt.Errorf("image generation failed: %s", out.Error.Message)
		}
		return "", fmt.Errorf("image generation failed: status %d", resp.StatusCode)
	}
	if len(out.Data) == 0 || out.Data[0].URL == "" {
		return "", fmt.Errorf("image generation returned no data")
	}
	return out.Data[0].URL, nil
}

// DownloadImage fetches the generated image bytes from the provider URL.
func DownloadImage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := downloadClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image download failed: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
