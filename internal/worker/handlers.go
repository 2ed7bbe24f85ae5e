package worker

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/book-expert/voice-orchestrator/internal/core"
	"github.com/book-expert/voice-orchestrator/internal/dispatch"
	"github.com/book-expert/voice-orchestrator/internal/store"
	"github.com/book-expert/voice-orchestrator/internal/voices"
)

// synthesizeRequest is the payload for the synthesize operation.
type synthesizeRequest struct {
	OwnerID            string               `json:"owner_id"`
	Text               string               `json:"text"`
	Voice              string               `json:"voice"`
	ProviderPreference string               `json:"provider_preference,omitempty"`
	Params             core.SynthesisParams `json:"params"`
}

type synthesizeReply struct {
	AudioRef     string `json:"audio_ref"`
	ProviderUsed string `json:"provider_used"`
	Characters   int    `json:"characters"`
	RecordID     string `json:"record_id"`
}

func (w *NatsWorker) handleSynthesize(ctx context.Context, msg *nats.Msg) {
	request, err := parseRequest[synthesizeRequest](msg)
	if err != nil {
		w.respondError(msg, err)

		return
	}

	result, err := w.dispatcher.Generate(ctx, dispatch.Request{
		OwnerID:            request.OwnerID,
		Text:               request.Text,
		VoiceRef:           voices.ParseReference(request.Voice),
		ProviderPreference: request.ProviderPreference,
		Params:             request.Params,
	})
	if err != nil {
		w.respondError(msg, err)

		return
	}

	w.respond(msg, synthesizeReply{
		AudioRef:     result.AudioRef,
		ProviderUsed: result.ProviderUsed,
		Characters:   result.Characters,
		RecordID:     result.RecordID,
	})
}

// convertRequest is the payload for the convert operation. Audio travels
// base64-encoded as a JSON byte slice.
type convertRequest struct {
	OwnerID            string               `json:"owner_id"`
	Audio              []byte               `json:"audio"`
	TargetVoice        string               `json:"target_voice"`
	ProviderPreference string               `json:"provider_preference,omitempty"`
	Params             core.SynthesisParams `json:"params"`
}

type convertReply struct {
	AudioRef      string `json:"audio_ref"`
	ProviderUsed  string `json:"provider_used"`
	Transcription string `json:"transcription"`
	RecordID      string `json:"record_id"`
}

func (w *NatsWorker) handleConvert(ctx context.Context, msg *nats.Msg) {
	request, err := parseRequest[convertRequest](msg)
	if err != nil {
		w.respondError(msg, err)

		return
	}

	result, err := w.dispatcher.Convert(ctx, dispatch.ConvertRequest{
		OwnerID:            request.OwnerID,
		Audio:              request.Audio,
		TargetVoiceRef:     voices.ParseReference(request.TargetVoice),
		ProviderPreference: request.ProviderPreference,
		Params:             request.Params,
	})
	if err != nil {
		w.respondError(msg, err)

		return
	}

	w.respond(msg, convertReply{
		AudioRef:      result.AudioRef,
		ProviderUsed:  result.ProviderUsed,
		Transcription: result.Transcription,
		RecordID:      result.RecordID,
	})
}

// cloneStartRequest is the payload for the clone.start operation.
type cloneStartRequest struct {
	OwnerID            string `json:"owner_id"`
	Name               string `json:"name"`
	Description        string `json:"description,omitempty"`
	ProviderPreference string `json:"provider_preference,omitempty"`
	Sample             []byte `json:"sample"`
}

type cloneReply struct {
	CloneID       string `json:"clone_id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	Status        string `json:"status"`
	FailureReason string `json:"failure_reason,omitempty"`
	VoiceRef      string `json:"voice_ref"`
}

func cloneReplyFrom(clone *store.VoiceClone) cloneReply {
	return cloneReply{
		CloneID:       clone.ID,
		Name:          clone.Name,
		Description:   clone.Description,
		Status:        clone.Status,
		FailureReason: clone.FailureReason,
		VoiceRef:      voices.ClonePrefix + clone.ID,
	}
}

func (w *NatsWorker) handleCloneStart(ctx context.Context, msg *nats.Msg) {
	request, err := parseRequest[cloneStartRequest](msg)
	if err != nil {
		w.respondError(msg, err)

		return
	}

	clone, err := w.clones.StartClone(
		ctx,
		request.OwnerID,
		request.Name,
		request.Description,
		request.ProviderPreference,
		request.Sample,
	)
	if err != nil {
		w.respondError(msg, err)

		return
	}

	w.respond(msg, cloneReplyFrom(clone))
}

type cloneGetRequest struct {
	OwnerID string `json:"owner_id"`
	CloneID string `json:"clone_id"`
}

func (w *NatsWorker) handleCloneGet(msg *nats.Msg) {
	request, err := parseRequest[cloneGetRequest](msg)
	if err != nil {
		w.respondError(msg, err)

		return
	}

	clone, err := w.clones.GetClone(request.OwnerID, request.CloneID)
	if err != nil {
		w.respondError(msg, err)

		return
	}

	w.respond(msg, cloneReplyFrom(clone))
}

type ownerRequest struct {
	OwnerID string `json:"owner_id"`
}

func (w *NatsWorker) handleCloneList(msg *nats.Msg) {
	request, err := parseRequest[ownerRequest](msg)
	if err != nil {
		w.respondError(msg, err)

		return
	}

	clones, err := w.clones.ListClones(request.OwnerID)
	if err != nil {
		w.respondError(msg, err)

		return
	}

	replies := make([]cloneReply, 0, len(clones))
	for i := range clones {
		replies = append(replies, cloneReplyFrom(&clones[i]))
	}

	w.respond(msg, replies)
}

// credentialRequest addresses one owner/provider credential pair. Secret is
// set only on save.
type credentialRequest struct {
	OwnerID  string `json:"owner_id"`
	Provider string `json:"provider"`
	Secret   string `json:"secret,omitempty"`
}

type credentialReply struct {
	Provider  string `json:"provider"`
	IsValid   bool   `json:"is_valid"`
	IsActive  bool   `json:"is_active"`
	UpdatedAt string `json:"updated_at"`
}

func (w *NatsWorker) handleCredentialsSave(msg *nats.Msg) {
	request, err := parseRequest[credentialRequest](msg)
	if err != nil {
		w.respondError(msg, err)

		return
	}

	cred, err := w.credentials.Upsert(request.OwnerID, request.Provider, request.Secret)
	if err != nil {
		w.respondError(msg, err)

		return
	}

	w.respond(msg, credentialReplyFrom(cred))
}

func (w *NatsWorker) handleCredentialsGet(msg *nats.Msg) {
	request, err := parseRequest[credentialRequest](msg)
	if err != nil {
		w.respondError(msg, err)

		return
	}

	cred, err := w.credentials.Get(request.OwnerID, request.Provider)
	if err != nil {
		w.respondError(msg, err)

		return
	}

	w.respond(msg, credentialReplyFrom(cred))
}

func credentialReplyFrom(cred *store.Credential) credentialReply {
	return credentialReply{
		Provider:  cred.Provider,
		IsValid:   cred.IsValid,
		IsActive:  cred.IsActive,
		UpdatedAt: cred.UpdatedAt.Format(time.RFC3339),
	}
}

func (w *NatsWorker) handleCredentialsList(msg *nats.Msg) {
	request, err := parseRequest[ownerRequest](msg)
	if err != nil {
		w.respondError(msg, err)

		return
	}

	masked, err := w.credentials.List(request.OwnerID)
	if err != nil {
		w.respondError(msg, err)

		return
	}

	w.respond(msg, masked)
}

func (w *NatsWorker) handleCredentialsDelete(msg *nats.Msg) {
	request, err := parseRequest[credentialRequest](msg)
	if err != nil {
		w.respondError(msg, err)

		return
	}

	err = w.credentials.Delete(request.OwnerID, request.Provider)
	if err != nil {
		w.respondError(msg, err)

		return
	}

	w.respond(msg, map[string]bool{"deleted": true})
}

type verifyReply struct {
	Valid  bool                `json:"valid"`
	Voices []core.VoiceSummary `json:"voices,omitempty"`
}

func (w *NatsWorker) handleCredentialsVerify(ctx context.Context, msg *nats.Msg) {
	request, err := parseRequest[credentialRequest](msg)
	if err != nil {
		w.respondError(msg, err)

		return
	}

	result, err := w.credentials.Verify(ctx, request.OwnerID, request.Provider)
	if err != nil {
		w.respondError(msg, err)

		return
	}

	w.respond(msg, verifyReply{Valid: result.Valid, Voices: result.Voices})
}

type historyListRequest struct {
	OwnerID string `json:"owner_id"`
	Limit   int    `json:"limit,omitempty"`
}

type historyEntry struct {
	RecordID     string `json:"record_id"`
	TextInput    string `json:"text_input"`
	ProviderUsed string `json:"provider_used"`
	VoiceRef     string `json:"voice_ref"`
	AudioRef     string `json:"audio_ref"`
	Characters   int    `json:"characters"`
	CreatedAt    string `json:"created_at"`
}

func (w *NatsWorker) handleHistoryList(msg *nats.Msg) {
	request, err := parseRequest[historyListRequest](msg)
	if err != nil {
		w.respondError(msg, err)

		return
	}

	records, err := w.history.History(request.OwnerID, request.Limit)
	if err != nil {
		w.respondError(msg, err)

		return
	}

	entries := make([]historyEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, historyEntry{
			RecordID:     record.ID,
			TextInput:    record.TextInput,
			ProviderUsed: record.ProviderUsed,
			VoiceRef:     record.VoiceRef,
			AudioRef:     record.AudioRef,
			Characters:   record.CharactersCount,
			CreatedAt:    record.CreatedAt.Format(time.RFC3339),
		})
	}

	w.respond(msg, entries)
}

type historyDeleteRequest struct {
	OwnerID  string `json:"owner_id"`
	RecordID string `json:"record_id"`
}

func (w *NatsWorker) handleHistoryDelete(ctx context.Context, msg *nats.Msg) {
	request, err := parseRequest[historyDeleteRequest](msg)
	if err != nil {
		w.respondError(msg, err)

		return
	}

	err = w.history.DeleteHistory(ctx, request.OwnerID, request.RecordID)
	if err != nil {
		w.respondError(msg, err)

		return
	}

	w.respond(msg, map[string]bool{"deleted": true})
}
