// Package storage provides evidence screenshot uploaders. The primary
// implementation targets the Uploadcare direct upload API; captured frames
// go out as JPEG and come back as permanent CDN URLs.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultUploadTimeout = 15 * time.Second
	cdnBase              = "https://ucarecdn.com"
)

// UploadcareClient uploads screenshots to Uploadcare's direct upload
// endpoint. Implements proctor.Uploader.
type UploadcareClient struct {
	endpoint  string
	publicKey string
	client    *http.Client
	log       zerolog.Logger
}

// NewUploadcareClient creates a client against the given upload endpoint,
// normally "https://upload.uploadcare.com".
func NewUploadcareClient(endpoint, publicKey string, log zerolog.Logger) *UploadcareClient {
	return &UploadcareClient{
		endpoint:  endpoint,
		publicKey: publicKey,
		client:    &http.Client{Timeout: defaultUploadTimeout},
		log:       log.With().Str("component", "uploadcare_client").Logger(),
	}
}

type uploadcareResponse struct {
	File string `json:"file"`
}

// Upload sends one JPEG screenshot and returns its CDN URL.
func (c *UploadcareClient) Upload(ctx context.Context, jpeg []byte) (string, error) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	if err := mw.WriteField("UPLOADCARE_PUB_KEY", c.publicKey); err != nil {
		return "", fmt.Errorf("write field: %w", err)
	}
	if err := mw.WriteField("UPLOADCARE_STORE", "1"); err != nil {
		return "", fmt.Errorf("write field: %w", err)
	}

	fw, err := mw.CreateFormFile("file", "evidence.jpg")
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := fw.Write(jpeg); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/base/", body)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("upload: unexpected status %d: %s", resp.StatusCode, raw)
	}

	var parsed uploadcareResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if parsed.File == "" {
		return "", fmt.Errorf("upload: empty file id in response")
	}

	return fmt.Sprintf("%s/%s/", cdnBase, parsed.File), nil
}
