// Package transcribe provides the Whisper transcription client used as the
// front half of voice conversion: incoming audio is transcribed to text, and
// the text is re-synthesized with the target voice.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/voice-orchestrator/internal/core"
)

// API constants.
const (
	defaultBaseURL     = "https://api.openai.com"
	transcriptionsPath = "/v1/audio/transcriptions"
	whisperModel       = "whisper-1"
)

// Form field names.
const (
	formFieldFile  = "file"
	formFieldModel = "model"
)

// WhisperClient transcribes audio through the OpenAI Whisper API.
type WhisperClient struct {
	httpClient *http.Client
	baseURL    string
	log        *logger.Logger
}

// NewWhisperClient creates a Whisper transcription client. An empty baseURL
// selects the production endpoint.
func NewWhisperClient(baseURL string, timeout time.Duration, log *logger.Logger) *WhisperClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &WhisperClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		log:        log,
	}
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads the audio sample and returns its transcription. The
// secret authenticates against the transcription provider; failures are
// classified into the shared taxonomy.
func (c *WhisperClient) Transcribe(ctx context.Context, secret string, audio []byte) (string, error) {
	var buf bytes.Buffer

	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile(formFieldFile, "audio.wav")
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}

	_, err = part.Write(audio)
	if err != nil {
		return "", fmt.Errorf("failed to write audio data: %w", err)
	}

	err = writer.WriteField(formFieldModel, whisperModel)
	if err != nil {
		return "", fmt.Errorf("failed to write model field: %w", err)
	}

	closeErr := writer.Close()
	if closeErr != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", closeErr)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+transcriptionsPath, &buf,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create transcription request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+secret)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request failed (%v): %w",
			err, core.ErrProviderUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", c.classifyError(resp)
	}

	var transcription transcriptionResponse

	err = json.NewDecoder(resp.Body).Decode(&transcription)
	if err != nil {
		return "", fmt.Errorf("failed to decode transcription response: %w", err)
	}

	return transcription.Text, nil
}

func (c *WhisperClient) classifyError(resp *http.Response) error {
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if readErr == nil && len(body) > 0 {
		c.log.Warn("transcription error response (HTTP %d): %s", resp.StatusCode, string(body))
	}

	var kind error

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		kind = core.ErrInvalidCredential
	case resp.StatusCode == http.StatusPaymentRequired || resp.StatusCode == http.StatusTooManyRequests:
		kind = core.ErrQuotaExceeded
	case resp.StatusCode >= http.StatusInternalServerError:
		kind = core.ErrProviderUnavailable
	default:
		kind = core.ErrBadRequest
	}

	return fmt.Errorf("transcription service returned HTTP %d: %w", resp.StatusCode, kind)
}
