package dispatch

import (
	"context"
	"fmt"

	"github.com/book-expert/voice-orchestrator/internal/core"
	"github.com/book-expert/voice-orchestrator/internal/providers"
	"github.com/book-expert/voice-orchestrator/internal/voices"
)

// ConvertRequest is one audio-to-audio conversion request.
type ConvertRequest struct {
	OwnerID            string
	Audio              []byte
	TargetVoiceRef     voices.Reference
	ProviderPreference string
	Params             core.SynthesisParams
}

// ConvertResult carries the re-synthesized audio reference and the
// transcription it was produced from.
type ConvertResult struct {
	AudioRef      string
	ProviderUsed  string
	Transcription string
	RecordID      string
}

// Convert performs voice conversion as transcribe-then-synthesize: the
// incoming audio is transcribed, and the transcription is dispatched as a
// synthesis request for the target voice.
func (d *Dispatcher) Convert(ctx context.Context, req ConvertRequest) (ConvertResult, error) {
	var result ConvertResult

	if len(req.Audio) == 0 {
		return result, fmt.Errorf("audio sample cannot be empty: %w", core.ErrBadRequest)
	}

	if !voices.IsAudioSample(req.Audio) {
		return result, fmt.Errorf("sample is not a recognized audio format: %w", core.ErrBadRequest)
	}

	secret, err := d.transcriptionSecret(req.OwnerID)
	if err != nil {
		return result, err
	}

	transcription, err := d.transcriber.Transcribe(ctx, secret, req.Audio)
	if err != nil {
		return result, fmt.Errorf("failed to transcribe source audio: %w", err)
	}

	generated, err := d.Generate(ctx, Request{
		OwnerID:            req.OwnerID,
		Text:               transcription,
		VoiceRef:           req.TargetVoiceRef,
		ProviderPreference: req.ProviderPreference,
		Params:             req.Params,
	})
	if err != nil {
		return result, err
	}

	result.AudioRef = generated.AudioRef
	result.ProviderUsed = generated.ProviderUsed
	result.Transcription = transcription
	result.RecordID = generated.RecordID

	return result, nil
}

// transcriptionSecret selects the credential for the transcription service:
// the owner's stored OpenAI credential when present, else the deployment's
// shared key when the shared provider is OpenAI.
func (d *Dispatcher) transcriptionSecret(ownerID string) (string, error) {
	cred, err := d.store.GetCredential(ownerID, providers.NameOpenAI)
	if err == nil && cred.IsActive && cred.IsValid {
		return cred.Secret, nil
	}

	if d.opts.SharedProvider == providers.NameOpenAI && d.opts.SharedSecret != "" {
		return d.opts.SharedSecret, nil
	}

	return "", fmt.Errorf("voice conversion requires an openai credential for transcription: %w",
		core.ErrCredentialNotFound)
}
