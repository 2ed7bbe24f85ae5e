package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/voice-orchestrator/internal/core"
)

// ElevenLabs API paths.
const (
	elevenLabsDefaultBaseURL = "https://api.elevenlabs.io"
	elevenLabsVoicesPath     = "/v1/voices"
	elevenLabsSynthesisPath  = "/v1/text-to-speech/"
	elevenLabsClonePath      = "/v1/voices/add"
	elevenLabsKeyHeader      = "xi-api-key"
	elevenLabsModelID        = "eleven_multilingual_v2"
)

// ElevenLabs implements core.Adapter against the ElevenLabs API.
// Supported synthesis parameters: speed, stability, clarity. Emotion and
// pitch are dropped.
type ElevenLabs struct {
	httpClient *http.Client
	baseURL    string
	log        *logger.Logger
}

// NewElevenLabs creates the ElevenLabs adapter. An empty baseURL selects the
// production endpoint; tests point it at a local server.
func NewElevenLabs(baseURL string, timeout time.Duration, log *logger.Logger) *ElevenLabs {
	if baseURL == "" {
		baseURL = elevenLabsDefaultBaseURL
	}

	return &ElevenLabs{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		log:        log,
	}
}

// Name returns the provider identifier.
func (e *ElevenLabs) Name() string { return NameElevenLabs }

// SupportsCloning reports that ElevenLabs offers instant voice cloning.
func (e *ElevenLabs) SupportsCloning() bool { return true }

type elevenLabsVoice struct {
	VoiceID string `json:"voice_id"`
	Name    string `json:"name"`
}

type elevenLabsVoicesResponse struct {
	Voices []elevenLabsVoice `json:"voices"`
}

// Validate lists the account's voices; a rejected key reports Valid=false
// without error.
func (e *ElevenLabs) Validate(ctx context.Context, secret string) (core.ValidationResult, error) {
	var result core.ValidationResult

	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, e.baseURL+elevenLabsVoicesPath, http.NoBody,
	)
	if err != nil {
		return result, fmt.Errorf("failed to create validation request: %w", err)
	}

	req.Header.Set(elevenLabsKeyHeader, secret)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return result, classifyTransportError(NameElevenLabs, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return result, nil
	}

	if resp.StatusCode != http.StatusOK {
		return result, drainError(e.log, NameElevenLabs, resp)
	}

	var voicesResp elevenLabsVoicesResponse

	err = json.NewDecoder(resp.Body).Decode(&voicesResp)
	if err != nil {
		return result, fmt.Errorf("failed to decode voices response: %w", err)
	}

	result.Valid = true
	for _, voice := range voicesResp.Voices {
		result.Voices = append(result.Voices, core.VoiceSummary{
			ID:   voice.VoiceID,
			Name: voice.Name,
		})
	}

	return result, nil
}

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Speed           float64 `json:"speed,omitempty"`
}

type elevenLabsSynthesisRequest struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id"`
	VoiceSettings elevenLabsVoiceSettings `json:"voice_settings"`
}

// Synthesize converts text to audio with the given ElevenLabs voice.
func (e *ElevenLabs) Synthesize(
	ctx context.Context,
	secret string,
	nativeVoiceID string,
	text string,
	params core.SynthesisParams,
) ([]byte, error) {
	payload := elevenLabsSynthesisRequest{
		Text:    text,
		ModelID: elevenLabsModelID,
		VoiceSettings: elevenLabsVoiceSettings{
			Stability:       params.Stability,
			SimilarityBoost: params.Clarity,
			Speed:           params.Speed,
		},
	}

	requestBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal synthesis request: %w", err)
	}

	url := e.baseURL + elevenLabsSynthesisPath + nativeVoiceID

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesis request: %w", err)
	}

	req.Header.Set(elevenLabsKeyHeader, secret)
	req.Header.Set(headerContentType, contentTypeJSON)
	req.Header.Set(headerAccept, "audio/mpeg")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(NameElevenLabs, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, drainError(e.log, NameElevenLabs, resp)
	}

	return readAudioBody(NameElevenLabs, resp)
}

type elevenLabsCloneResponse struct {
	VoiceID string `json:"voice_id"`
}

// Clone uploads a sample and returns the new ElevenLabs voice id.
func (e *ElevenLabs) Clone(ctx context.Context, secret, name string, sample []byte) (string, error) {
	var buf bytes.Buffer

	writer := multipart.NewWriter(&buf)

	err := writer.WriteField("name", name)
	if err != nil {
		return "", fmt.Errorf("failed to write name field: %w", err)
	}

	part, err := writer.CreateFormFile("files", "sample.wav")
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}

	_, err = part.Write(sample)
	if err != nil {
		return "", fmt.Errorf("failed to write sample data: %w", err)
	}

	closeErr := writer.Close()
	if closeErr != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", closeErr)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, e.baseURL+elevenLabsClonePath, &buf,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create clone request: %w", err)
	}

	req.Header.Set(elevenLabsKeyHeader, secret)
	req.Header.Set(headerContentType, writer.FormDataContentType())

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", classifyTransportError(NameElevenLabs, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", drainError(e.log, NameElevenLabs, resp)
	}

	var cloneResp elevenLabsCloneResponse

	err = json.NewDecoder(resp.Body).Decode(&cloneResp)
	if err != nil {
		return "", fmt.Errorf("failed to decode clone response: %w", err)
	}

	return cloneResp.VoiceID, nil
}
