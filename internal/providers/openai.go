package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/voice-orchestrator/internal/core"
)

// OpenAI API paths.
const (
	openAIDefaultBaseURL = "https://api.openai.com"
	openAIModelsPath     = "/v1/models"
	openAISpeechPath     = "/v1/audio/speech"
	openAISpeechModel    = "tts-1"
)

// openAIVoices is the fixed voice set of the speech endpoint; the API has no
// voice listing, so validation reports this set.
var openAIVoices = []core.VoiceSummary{
	{ID: "alloy", Name: "Alloy"},
	{ID: "echo", Name: "Echo"},
	{ID: "nova", Name: "Nova"},
	{ID: "onyx", Name: "Onyx"},
	{ID: "shimmer", Name: "Shimmer"},
}

// OpenAI implements core.Adapter against the OpenAI speech API.
// Supported synthesis parameters: speed. Stability, clarity, emotion, and
// pitch are dropped. Voice cloning is not offered.
type OpenAI struct {
	httpClient *http.Client
	baseURL    string
	log        *logger.Logger
}

// NewOpenAI creates the OpenAI adapter. An empty baseURL selects the
// production endpoint.
func NewOpenAI(baseURL string, timeout time.Duration, log *logger.Logger) *OpenAI {
	if baseURL == "" {
		baseURL = openAIDefaultBaseURL
	}

	return &OpenAI{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		log:        log,
	}
}

// Name returns the provider identifier.
func (o *OpenAI) Name() string { return NameOpenAI }

// SupportsCloning reports that OpenAI has no cloning endpoint.
func (o *OpenAI) SupportsCloning() bool { return false }

// Validate checks the key against the models endpoint. The speech voice set
// is fixed, so a valid key always reports the same voices.
func (o *OpenAI) Validate(ctx context.Context, secret string) (core.ValidationResult, error) {
	var result core.ValidationResult

	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, o.baseURL+openAIModelsPath, http.NoBody,
	)
	if err != nil {
		return result, fmt.Errorf("failed to create validation request: %w", err)
	}

	req.Header.Set(headerAuthorization, bearerPrefix+secret)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return result, classifyTransportError(NameOpenAI, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return result, nil
	}

	if resp.StatusCode != http.StatusOK {
		return result, drainError(o.log, NameOpenAI, resp)
	}

	result.Valid = true
	result.Voices = append(result.Voices, openAIVoices...)

	return result, nil
}

type openAISpeechRequest struct {
	Model string  `json:"model"`
	Input string  `json:"input"`
	Voice string  `json:"voice"`
	Speed float64 `json:"speed,omitempty"`
}

// Synthesize converts text to audio with one of the fixed OpenAI voices.
func (o *OpenAI) Synthesize(
	ctx context.Context,
	secret string,
	nativeVoiceID string,
	text string,
	params core.SynthesisParams,
) ([]byte, error) {
	payload := openAISpeechRequest{
		Model: openAISpeechModel,
		Input: text,
		Voice: nativeVoiceID,
		Speed: params.Speed,
	}

	requestBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal speech request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, o.baseURL+openAISpeechPath, bytes.NewReader(requestBody),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech request: %w", err)
	}

	req.Header.Set(headerAuthorization, bearerPrefix+secret)
	req.Header.Set(headerContentType, contentTypeJSON)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(NameOpenAI, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, drainError(o.log, NameOpenAI, resp)
	}

	return readAudioBody(NameOpenAI, resp)
}

// Clone is not supported by OpenAI.
func (o *OpenAI) Clone(_ context.Context, _, _ string, _ []byte) (string, error) {
	return "", fmt.Errorf("%s does not offer voice cloning: %w",
		NameOpenAI, core.ErrUnsupportedOperation)
}
