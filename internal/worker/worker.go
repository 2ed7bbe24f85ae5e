// Package worker provides the NATS request-reply ingress of the voice
// orchestrator. Every operation is served synchronously within the handling
// of its message; there is no job queue.
//
// The owner id on each request is set by the session gateway publishing the
// message; this service treats it as an already-authenticated principal.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/voice-orchestrator/internal/core"
	"github.com/book-expert/voice-orchestrator/internal/credentials"
	"github.com/book-expert/voice-orchestrator/internal/dispatch"
	"github.com/book-expert/voice-orchestrator/internal/store"
	"github.com/book-expert/voice-orchestrator/internal/voices"
)

// Cloning and conversion both make one slow provider round trip.
const handleMessageTimeout = 120 * time.Second

// Operation suffixes under the configured subject prefix.
const (
	opSynthesize        = "synthesize"
	opConvert           = "convert"
	opCloneStart        = "clone.start"
	opCloneGet          = "clone.get"
	opCloneList         = "clone.list"
	opCredentialsSave   = "credentials.save"
	opCredentialsGet    = "credentials.get"
	opCredentialsList   = "credentials.list"
	opCredentialsDelete = "credentials.delete"
	opCredentialsVerify = "credentials.verify"
	opHistoryList       = "history.list"
	opHistoryDelete     = "history.delete"
)

// NatsWorker listens for orchestrator requests on a NATS subject tree and
// serves them.
type NatsWorker struct {
	natsConnection *nats.Conn
	subjectPrefix  string
	dispatcher     *dispatch.Dispatcher
	credentials    *credentials.Service
	clones         *voices.CloneWorkflow
	history        HistoryService
	log            *logger.Logger
}

// HistoryService is the slice of the ledger the ingress needs.
type HistoryService interface {
	History(ownerID string, limit int) ([]store.GenerationRecord, error)
	DeleteHistory(ctx context.Context, ownerID, recordID string) error
}

// NewNatsWorker creates a new instance of the ingress worker.
func NewNatsWorker(
	natsConnection *nats.Conn,
	subjectPrefix string,
	dispatcher *dispatch.Dispatcher,
	creds *credentials.Service,
	clones *voices.CloneWorkflow,
	history HistoryService,
	log *logger.Logger,
) (*NatsWorker, error) {
	return &NatsWorker{
		natsConnection: natsConnection,
		subjectPrefix:  subjectPrefix,
		dispatcher:     dispatcher,
		credentials:    creds,
		clones:         clones,
		history:        history,
		log:            log,
	}, nil
}

// Run starts the worker and begins listening for messages.
func (w *NatsWorker) Run(ctx context.Context) error {
	subject := w.subjectPrefix + ".>"

	sub, err := w.natsConnection.Subscribe(subject, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", subject, err)
	}

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), handleMessageTimeout)
	defer cancel()

	operation := strings.TrimPrefix(msg.Subject, w.subjectPrefix+".")

	switch operation {
	case opSynthesize:
		w.handleSynthesize(ctx, msg)
	case opConvert:
		w.handleConvert(ctx, msg)
	case opCloneStart:
		w.handleCloneStart(ctx, msg)
	case opCloneGet:
		w.handleCloneGet(msg)
	case opCloneList:
		w.handleCloneList(msg)
	case opCredentialsSave:
		w.handleCredentialsSave(msg)
	case opCredentialsGet:
		w.handleCredentialsGet(msg)
	case opCredentialsList:
		w.handleCredentialsList(msg)
	case opCredentialsDelete:
		w.handleCredentialsDelete(msg)
	case opCredentialsVerify:
		w.handleCredentialsVerify(ctx, msg)
	case opHistoryList:
		w.handleHistoryList(msg)
	case opHistoryDelete:
		w.handleHistoryDelete(ctx, msg)
	default:
		w.respondError(msg, fmt.Errorf("unknown operation '%s': %w", operation, core.ErrBadRequest))
	}
}

// reply is the envelope every response uses. Status carries the
// HTTP-equivalent code for the gateway to relay.
type reply struct {
	Status int             `json:"status"`
	Error  string          `json:"error,omitempty"`
	Kind   string          `json:"kind,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

func (w *NatsWorker) respond(msg *nats.Msg, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		w.log.Error("Failed to marshal reply payload: %v", err)

		return
	}

	envelope, err := json.Marshal(reply{
		Status: http.StatusOK,
		Error:  "",
		Kind:   "",
		Data:   data,
	})
	if err != nil {
		w.log.Error("Failed to marshal reply envelope: %v", err)

		return
	}

	respondErr := msg.Respond(envelope)
	if respondErr != nil {
		w.log.Error("Failed to publish reply: %v", respondErr)
	}
}

func (w *NatsWorker) respondError(msg *nats.Msg, cause error) {
	status := core.StatusFor(cause)
	if errors.Is(cause, store.ErrRecordNotFound) {
		status = http.StatusNotFound
	}

	envelope, err := json.Marshal(reply{
		Status: status,
		Error:  cause.Error(),
		Kind:   core.KindFor(cause),
		Data:   nil,
	})
	if err != nil {
		w.log.Error("Failed to marshal error reply: %v", err)

		return
	}

	respondErr := msg.Respond(envelope)
	if respondErr != nil {
		w.log.Error("Failed to publish error reply: %v", respondErr)
	}
}

func parseRequest[T any](msg *nats.Msg) (T, error) {
	var request T

	err := json.Unmarshal(msg.Data, &request)
	if err != nil {
		return request, fmt.Errorf("failed to unmarshal request: %v: %w", err, core.ErrBadRequest)
	}

	return request, nil
}
