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

// Fish Audio API paths.
const (
	fishAudioDefaultBaseURL = "https://api.fish.audio"
	fishAudioModelsPath     = "/model"
	fishAudioSynthesisPath  = "/v1/tts"
)

// FishAudio implements core.Adapter against the Fish Audio API.
// Supported synthesis parameters: speed (via prosody). Stability, clarity,
// emotion, and pitch are dropped.
type FishAudio struct {
	httpClient *http.Client
	baseURL    string
	log        *logger.Logger
}

// NewFishAudio creates the Fish Audio adapter. An empty baseURL selects the
// production endpoint.
func NewFishAudio(baseURL string, timeout time.Duration, log *logger.Logger) *FishAudio {
	if baseURL == "" {
		baseURL = fishAudioDefaultBaseURL
	}

	return &FishAudio{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		log:        log,
	}
}

// Name returns the provider identifier.
func (f *FishAudio) Name() string { return NameFishAudio }

// SupportsCloning reports that Fish Audio creates voice models from samples.
func (f *FishAudio) SupportsCloning() bool { return true }

type fishAudioModel struct {
	ID    string `json:"_id"`
	Title string `json:"title"`
}

type fishAudioModelsResponse struct {
	Items []fishAudioModel `json:"items"`
}

// Validate lists the account's own voice models; a rejected key reports
// Valid=false without error.
func (f *FishAudio) Validate(ctx context.Context, secret string) (core.ValidationResult, error) {
	var result core.ValidationResult

	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, f.baseURL+fishAudioModelsPath+"?self=true", http.NoBody,
	)
	if err != nil {
		return result, fmt.Errorf("failed to create validation request: %w", err)
	}

	req.Header.Set(headerAuthorization, bearerPrefix+secret)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return result, classifyTransportError(NameFishAudio, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return result, nil
	}

	if resp.StatusCode != http.StatusOK {
		return result, drainError(f.log, NameFishAudio, resp)
	}

	var modelsResp fishAudioModelsResponse

	err = json.NewDecoder(resp.Body).Decode(&modelsResp)
	if err != nil {
		return result, fmt.Errorf("failed to decode models response: %w", err)
	}

	result.Valid = true
	for _, model := range modelsResp.Items {
		result.Voices = append(result.Voices, core.VoiceSummary{
			ID:   model.ID,
			Name: model.Title,
		})
	}

	return result, nil
}

type fishAudioProsody struct {
	Speed float64 `json:"speed,omitempty"`
}

type fishAudioSynthesisRequest struct {
	Text        string           `json:"text"`
	ReferenceID string           `json:"reference_id"`
	Prosody     fishAudioProsody `json:"prosody"`
}

// Synthesize converts text to audio with the given Fish Audio voice model.
func (f *FishAudio) Synthesize(
	ctx context.Context,
	secret string,
	nativeVoiceID string,
	text string,
	params core.SynthesisParams,
) ([]byte, error) {
	payload := fishAudioSynthesisRequest{
		Text:        text,
		ReferenceID: nativeVoiceID,
		Prosody:     fishAudioProsody{Speed: params.Speed},
	}

	requestBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal synthesis request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, f.baseURL+fishAudioSynthesisPath, bytes.NewReader(requestBody),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesis request: %w", err)
	}

	req.Header.Set(headerAuthorization, bearerPrefix+secret)
	req.Header.Set(headerContentType, contentTypeJSON)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(NameFishAudio, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, drainError(f.log, NameFishAudio, resp)
	}

	return readAudioBody(NameFishAudio, resp)
}

type fishAudioCloneResponse struct {
	ID string `json:"_id"`
}

// Clone uploads a sample as a new private voice model and returns its id.
func (f *FishAudio) Clone(ctx context.Context, secret, name string, sample []byte) (string, error) {
	var buf bytes.Buffer

	writer := multipart.NewWriter(&buf)

	err := writer.WriteField("title", name)
	if err != nil {
		return "", fmt.Errorf("failed to write title field: %w", err)
	}

	err = writer.WriteField("visibility", "private")
	if err != nil {
		return "", fmt.Errorf("failed to write visibility field: %w", err)
	}

	part, err := writer.CreateFormFile("voices", "sample.wav")
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
		ctx, http.MethodPost, f.baseURL+fishAudioModelsPath, &buf,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create clone request: %w", err)
	}

	req.Header.Set(headerAuthorization, bearerPrefix+secret)
	req.Header.Set(headerContentType, writer.FormDataContentType())

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", classifyTransportError(NameFishAudio, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", drainError(f.log, NameFishAudio, resp)
	}

	var cloneResp fishAudioCloneResponse

	err = json.NewDecoder(resp.Body).Decode(&cloneResp)
	if err != nil {
		return "", fmt.Errorf("failed to decode clone response: %w", err)
	}

	return cloneResp.ID, nil
}
