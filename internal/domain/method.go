package domain

import "strings"

// Method identifies the strategy used to turn text into a vector. A partition
// is searchable only with vectors produced by the method it was built with.
type Method string

const (
	// MethodNeural is the local ONNX sentence encoder.
	MethodNeural Method = "neural"
	// MethodRemote is the OpenAI-compatible embedding API.
	MethodRemote Method = "remote_api"
	// MethodLexical is the deterministic token-hash fallback.
	MethodLexical Method = "lexical"
	// MethodAuto requests the provider cascade instead of a fixed backend.
	MethodAuto Method = "auto"
)

// methodAliases maps labels found in persisted partition metadata onto the
// three recognized methods. Spelling variants, vendor names and model names
// all collapse many-to-one; ingestion tools have written every one of these
// at some point.
var methodAliases = map[string]Method{
	"neural":                   MethodNeural,
	"neural_encoder":           MethodNeural,
	"sentence_transformer":     MethodNeural,
	"sentence-transformers":    MethodNeural,
	"sbert":                    MethodNeural,
	"huggingface":              MethodNeural,
	"hf":                       MethodNeural,
	"minilm":                   MethodNeural,
	"all-minilm-l6-v2":         MethodNeural,
	"onnx":                     MethodNeural,
	"local":                    MethodNeural,
	"remote_api":               MethodRemote,
	"remote":                   MethodRemote,
	"api":                      MethodRemote,
	"openai":                   MethodRemote,
	"text-embedding-ada-002":   MethodRemote,
	"text-embedding-3-small":   MethodRemote,
	"text-embedding-3-large":   MethodRemote,
	"nebius":                   MethodRemote,
	"lexical":                  MethodLexical,
	"lexical_fallback":         MethodLexical,
	"hash":                     MethodLexical,
	"hashing":                  MethodLexical,
	"token_hash":               MethodLexical,
	"tfidf":                    MethodLexical,
	"bow":                      MethodLexical,
	"keyword":                  MethodLexical,
}

// CanonicalMethod resolves a persisted embedding-method label to one of the
// recognized methods. Unrecognized labels default to the neural encoder;
// ok reports whether the label was actually recognized so the caller can
// warn and self-heal the stored value.
func CanonicalMethod(label string) (Method, bool) {
	key := strings.ToLower(strings.TrimSpace(label))
	if m, ok := methodAliases[key]; ok {
		return m, true
	}
	return MethodNeural, false
}

// Valid reports whether m is one of the three concrete methods.
func (m Method) Valid() bool {
	switch m {
	case MethodNeural, MethodRemote, MethodLexical:
		return true
	}
	return false
}

func (m Method) String() string { return string(m) }
