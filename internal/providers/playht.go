package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/voice-orchestrator/internal/core"
)

// Play.ht API paths. The API authenticates with a user id alongside the key,
// so the stored secret is "userID:apiKey".
const (
	playHTDefaultBaseURL  = "https://api.play.ht"
	playHTClonedPath      = "/api/v2/cloned-voices"
	playHTInstantClone    = "/api/v2/cloned-voices/instant"
	playHTSynthesisPath   = "/api/v2/tts/stream"
	playHTUserHeader      = "X-User-Id"
	playHTVoiceEngine     = "PlayHT2.0"
	playHTSecretSeparator = ":"
	playHTSecretParts     = 2
)

// PlayHT implements core.Adapter against the Play.ht API.
// Supported synthesis parameters: speed, emotion. Stability, clarity, and
// pitch are dropped.
type PlayHT struct {
	httpClient *http.Client
	baseURL    string
	log        *logger.Logger
}

// NewPlayHT creates the Play.ht adapter. An empty baseURL selects the
// production endpoint.
func NewPlayHT(baseURL string, timeout time.Duration, log *logger.Logger) *PlayHT {
	if baseURL == "" {
		baseURL = playHTDefaultBaseURL
	}

	return &PlayHT{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		log:        log,
	}
}

// Name returns the provider identifier.
func (p *PlayHT) Name() string { return NamePlayHT }

// SupportsCloning reports that Play.ht offers instant voice cloning.
func (p *PlayHT) SupportsCloning() bool { return true }

// splitSecret separates the stored "userID:apiKey" secret. A secret without
// the separator is a caller error surfaced as an invalid credential.
func splitSecret(secret string) (string, string, error) {
	parts := strings.SplitN(secret, playHTSecretSeparator, playHTSecretParts)
	if len(parts) != playHTSecretParts || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("playht secret must be 'userID:apiKey': %w",
			core.ErrInvalidCredential)
	}

	return parts[0], parts[1], nil
}

func (p *PlayHT) setAuthHeaders(req *http.Request, userID, apiKey string) {
	req.Header.Set(headerAuthorization, apiKey)
	req.Header.Set(playHTUserHeader, userID)
}

type playHTClonedVoice struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Validate lists the account's cloned voices; a rejected key reports
// Valid=false without error.
func (p *PlayHT) Validate(ctx context.Context, secret string) (core.ValidationResult, error) {
	var result core.ValidationResult

	userID, apiKey, err := splitSecret(secret)
	if err != nil {
		return result, nil
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, p.baseURL+playHTClonedPath, http.NoBody,
	)
	if err != nil {
		return result, fmt.Errorf("failed to create validation request: %w", err)
	}

	p.setAuthHeaders(req, userID, apiKey)
	req.Header.Set(headerAccept, contentTypeJSON)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return result, classifyTransportError(NamePlayHT, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return result, nil
	}

	if resp.StatusCode != http.StatusOK {
		return result, drainError(p.log, NamePlayHT, resp)
	}

	var voices []playHTClonedVoice

	err = json.NewDecoder(resp.Body).Decode(&voices)
	if err != nil {
		return result, fmt.Errorf("failed to decode cloned voices response: %w", err)
	}

	result.Valid = true
	for _, voice := range voices {
		result.Voices = append(result.Voices, core.VoiceSummary{
			ID:   voice.ID,
			Name: voice.Name,
		})
	}

	return result, nil
}

type playHTSynthesisRequest struct {
	Text        string  `json:"text"`
	Voice       string  `json:"voice"`
	VoiceEngine string  `json:"voice_engine"`
	Speed       float64 `json:"speed,omitempty"`
	Emotion     string  `json:"emotion,omitempty"`
}

// Synthesize converts text to audio with the given Play.ht voice.
func (p *PlayHT) Synthesize(
	ctx context.Context,
	secret string,
	nativeVoiceID string,
	text string,
	params core.SynthesisParams,
) ([]byte, error) {
	userID, apiKey, err := splitSecret(secret)
	if err != nil {
		return nil, err
	}

	payload := playHTSynthesisRequest{
		Text:        text,
		Voice:       nativeVoiceID,
		VoiceEngine: playHTVoiceEngine,
		Speed:       params.Speed,
		Emotion:     params.Emotion,
	}

	requestBody, marshalErr := json.Marshal(payload)
	if marshalErr != nil {
		return nil, fmt.Errorf("failed to marshal synthesis request: %w", marshalErr)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, p.baseURL+playHTSynthesisPath, bytes.NewReader(requestBody),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesis request: %w", err)
	}

	p.setAuthHeaders(req, userID, apiKey)
	req.Header.Set(headerContentType, contentTypeJSON)
	req.Header.Set(headerAccept, "audio/mpeg")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(NamePlayHT, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, drainError(p.log, NamePlayHT, resp)
	}

	return readAudioBody(NamePlayHT, resp)
}

type playHTCloneResponse struct {
	ID string `json:"id"`
}

// Clone uploads a sample to the instant cloning endpoint and returns the new
// voice id.
func (p *PlayHT) Clone(ctx context.Context, secret, name string, sample []byte) (string, error) {
	userID, apiKey, err := splitSecret(secret)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer

	writer := multipart.NewWriter(&buf)

	fieldErr := writer.WriteField("voice_name", name)
	if fieldErr != nil {
		return "", fmt.Errorf("failed to write voice name field: %w", fieldErr)
	}

	part, err := writer.CreateFormFile("sample_file", "sample.wav")
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
		ctx, http.MethodPost, p.baseURL+playHTInstantClone, &buf,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create clone request: %w", err)
	}

	p.setAuthHeaders(req, userID, apiKey)
	req.Header.Set(headerContentType, writer.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", classifyTransportError(NamePlayHT, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", drainError(p.log, NamePlayHT, resp)
	}

	var cloneResp playHTCloneResponse

	err = json.NewDecoder(resp.Body).Decode(&cloneResp)
	if err != nil {
		return "", fmt.Errorf("failed to decode clone response: %w", err)
	}

	return cloneResp.ID, nil
}
