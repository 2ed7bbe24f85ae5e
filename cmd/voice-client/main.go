// main package for the voice-client command line tool. It speaks the
// orchestrator's NATS request-reply protocol and fetches generated audio from
// the shared object store.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/book-expert/voice-orchestrator/internal/core"
	"github.com/book-expert/voice-orchestrator/internal/objectstore"
)

// Flag descriptions.
const (
	flagOwnerDesc    = "Owner id the request is made for"
	flagTextDesc     = "Text to synthesize"
	flagVoiceDesc    = "Voice id (catalog id or clone_<id>)"
	flagProviderDesc = "Provider preference (auto or a provider name)"
	flagOutDesc      = "Output file path for the generated audio"
	flagHistoryDesc  = "List generation history and exit"
	flagNATSDesc     = "NATS server URL"
	flagPrefixDesc   = "Request subject prefix"
	flagBucketDesc   = "Audio object store bucket"
)

// Flag names.
const (
	flagOwner    = "owner"
	flagText     = "text"
	flagVoice    = "voice"
	flagProvider = "provider"
	flagOut      = "out"
	flagHistory  = "history"
	flagNATS     = "nats"
	flagPrefix   = "prefix"
	flagBucket   = "bucket"
)

// Defaults.
const (
	defaultProvider   = "auto"
	defaultOutputFile = "output.mp3"
	defaultNATSURL    = nats.DefaultURL
	defaultPrefix     = "voice"
	defaultBucket     = "VOICE_AUDIO"
	requestTimeout    = 150 * time.Second
)

var errRequestRejected = errors.New("request rejected")

// appFlags holds the parsed command-line flag values.
type appFlags struct {
	owner    string
	text     string
	voice    string
	provider string
	out      string
	history  bool
	natsURL  string
	prefix   string
	bucket   string
}

func main() {
	err := run()
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	flags := parseFlags()

	if flags.owner == "" {
		flag.Usage()

		return errors.New("--owner must be provided")
	}

	natsConnection, err := nats.Connect(flags.natsURL)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", flags.natsURL, err)
	}
	defer natsConnection.Close()

	if flags.history {
		return listHistory(natsConnection, flags)
	}

	if flags.text == "" || flags.voice == "" {
		flag.Usage()

		return errors.New("--text and --voice must be provided")
	}

	return synthesize(natsConnection, flags)
}

// parseFlags defines and parses command-line flags, returning them in a struct.
func parseFlags() appFlags {
	var flags appFlags
	flag.StringVar(&flags.owner, flagOwner, "", flagOwnerDesc)
	flag.StringVar(&flags.text, flagText, "", flagTextDesc)
	flag.StringVar(&flags.voice, flagVoice, "", flagVoiceDesc)
	flag.StringVar(&flags.provider, flagProvider, defaultProvider, flagProviderDesc)
	flag.StringVar(&flags.out, flagOut, defaultOutputFile, flagOutDesc)
	flag.BoolVar(&flags.history, flagHistory, false, flagHistoryDesc)
	flag.StringVar(&flags.natsURL, flagNATS, defaultNATSURL, flagNATSDesc)
	flag.StringVar(&flags.prefix, flagPrefix, defaultPrefix, flagPrefixDesc)
	flag.StringVar(&flags.bucket, flagBucket, defaultBucket, flagBucketDesc)
	flag.Parse()

	return flags
}

// reply mirrors the orchestrator's response envelope.
type reply struct {
	Status int             `json:"status"`
	Error  string          `json:"error,omitempty"`
	Kind   string          `json:"kind,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// request publishes one request-reply exchange and unmarshals the data
// payload into out.
func request(natsConnection *nats.Conn, subject string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	msg, err := natsConnection.Request(subject, body, requestTimeout)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", subject, err)
	}

	var envelope reply

	err = json.Unmarshal(msg.Data, &envelope)
	if err != nil {
		return fmt.Errorf("failed to unmarshal reply: %w", err)
	}

	if envelope.Status != http.StatusOK {
		return fmt.Errorf("%w: status %d, kind %s: %s",
			errRequestRejected, envelope.Status, envelope.Kind, envelope.Error)
	}

	if out != nil {
		err = json.Unmarshal(envelope.Data, out)
		if err != nil {
			return fmt.Errorf("failed to unmarshal reply data: %w", err)
		}
	}

	return nil
}

type synthesizeReply struct {
	AudioRef     string `json:"audio_ref"`
	ProviderUsed string `json:"provider_used"`
	Characters   int    `json:"characters"`
	RecordID     string `json:"record_id"`
}

func synthesize(natsConnection *nats.Conn, flags appFlags) error {
	payload := map[string]any{
		"owner_id":            flags.owner,
		"text":                flags.text,
		"voice":               flags.voice,
		"provider_preference": flags.provider,
		"params":              core.SynthesisParams{Speed: 1.0, Stability: 0.5, Clarity: 0.75, Emotion: "", Pitch: 0},
	}

	var result synthesizeReply

	err := request(natsConnection, flags.prefix+".synthesize", payload, &result)
	if err != nil {
		return err
	}

	audio, err := downloadAudio(natsConnection, flags.bucket, result.AudioRef)
	if err != nil {
		return err
	}

	err = os.WriteFile(flags.out, audio, 0o600)
	if err != nil {
		return fmt.Errorf("failed to write audio to %s: %w", flags.out, err)
	}

	fmt.Printf("Generated %d characters via %s: %s\n", result.Characters, result.ProviderUsed, flags.out)

	return nil
}

func downloadAudio(natsConnection *nats.Conn, bucket, audioRef string) ([]byte, error) {
	jetstreamContext, err := natsConnection.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	audioStore, err := objectstore.New(jetstreamContext, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to bind to audio bucket: %w", err)
	}

	audio, err := audioStore.Download(context.Background(), audioRef)
	if err != nil {
		return nil, fmt.Errorf("failed to download audio '%s': %w", audioRef, err)
	}

	return audio, nil
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

func listHistory(natsConnection *nats.Conn, flags appFlags) error {
	payload := map[string]any{"owner_id": flags.owner}

	var entries []historyEntry

	err := request(natsConnection, flags.prefix+".history.list", payload, &entries)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		fmt.Printf("%s  %s  %s  %d chars  %q\n",
			entry.CreatedAt, entry.ProviderUsed, entry.VoiceRef, entry.Characters, entry.TextInput)
	}

	return nil
}
