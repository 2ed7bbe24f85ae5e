// Package catalog holds the static voice catalog: the deterministic mapping
// from a provider-native voice id to the provider that owns it. The catalog
// is pure configuration data; lookups never perform I/O.
package catalog

// Entry describes one catalog voice.
type Entry struct {
	NativeID string
	Provider string
	Name     string
}

// entries is keyed by native voice id. Ids are unique across providers; each
// provider uses its own id scheme.
var entries = map[string]Entry{
	// ElevenLabs stock voices.
	"21m00Tcm4TlvDq8ikWAM": {NativeID: "21m00Tcm4TlvDq8ikWAM", Provider: "elevenlabs", Name: "Rachel"},
	"29vD33N1CtxCmqQRPOHJ": {NativeID: "29vD33N1CtxCmqQRPOHJ", Provider: "elevenlabs", Name: "Drew"},
	"EXAVITQu4vr4xnSDxMaL": {NativeID: "EXAVITQu4vr4xnSDxMaL", Provider: "elevenlabs", Name: "Bella"},
	"pNInz6obpgDQGcFmaJgB": {NativeID: "pNInz6obpgDQGcFmaJgB", Provider: "elevenlabs", Name: "Adam"},

	// OpenAI speech voices.
	"alloy":   {NativeID: "alloy", Provider: "openai", Name: "Alloy"},
	"echo":    {NativeID: "echo", Provider: "openai", Name: "Echo"},
	"nova":    {NativeID: "nova", Provider: "openai", Name: "Nova"},
	"onyx":    {NativeID: "onyx", Provider: "openai", Name: "Onyx"},
	"shimmer": {NativeID: "shimmer", Provider: "openai", Name: "Shimmer"},

	// Play.ht voices.
	"larry": {NativeID: "larry", Provider: "playht", Name: "Larry"},
	"susan": {NativeID: "susan", Provider: "playht", Name: "Susan"},

	// Fish Audio reference models.
	"b545c585f631496c914815291da4e893": {NativeID: "b545c585f631496c914815291da4e893", Provider: "fishaudio", Name: "Aria"},
	"e58b0d7efca34eb38d5c4985e378abcb": {NativeID: "e58b0d7efca34eb38d5c4985e378abcb", Provider: "fishaudio", Name: "Kai"},
}

// Lookup returns the catalog entry for nativeID.
func Lookup(nativeID string) (Entry, bool) {
	entry, ok := entries[nativeID]

	return entry, ok
}

// List returns every catalog entry. Order is unspecified.
func List() []Entry {
	all := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		all = append(all, entry)
	}

	return all
}
