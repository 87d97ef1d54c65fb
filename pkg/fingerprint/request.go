package fingerprint

import (
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
)

// separator joins the canonical fields before digesting.
const separator = "|"

// Part is one piece of content inside a conversation turn. Exactly one of
// the variants should be populated:
//
//   - Text: plain text content
//   - MIMEType + Data: inline binary content (images, audio, PDFs)
//   - FileURI: a reference to previously uploaded content
//
// Binary content contributes its digest to the fingerprint, not its raw
// bytes, so large payloads stay cheap to key.
type Part struct {
	// Text is plain text content.
	Text string

	// MIMEType is the media type of inline binary content.
	MIMEType string

	// Data is inline binary content.
	Data []byte

	// FileURI references previously uploaded content.
	FileURI string
}

// Turn is a single conversation turn: who spoke and what they said.
type Turn struct {
	// Role is the speaker role (e.g. "user", "model").
	Role string

	// Parts is the ordered content of the turn.
	Parts []Part
}

// GenerationParams carries the sampling parameters that change a model's
// output. Fields are pointers so an unset parameter is distinguishable from
// an explicit zero — "temperature 0" and "no temperature" must not collide
// in the cache.
type GenerationParams struct {
	Temperature *float64

	MaxTokens *int

	TopP *float64

	TopK *int
}

// Request describes the semantic content of one generative-AI call for the
// purpose of cache keying. Two requests with equal descriptions produce the
// same key; changing any field produces a different key.
type Request struct {
	// Model is the target model identifier.
	Model string

	// System is the system-instruction text, if any.
	System string

	// Turns is the ordered conversation history being sent.
	Turns []Turn

	// Params are the generation parameters for the call.
	Params GenerationParams

	// Tools lists the enabled tool names. Treated as a set: order does not
	// affect the fingerprint.
	Tools []string
}

// CacheKey canonicalizes the request and returns its digest as a lowercase
// hex string. The canonical form tags every field and joins them with a
// separator, so structurally different requests cannot normalize to the
// same byte sequence by accident.
func (r Request) CacheKey() string {
	fields := make([]string, 0, 6+len(r.Turns))

	fields = append(fields, "model="+r.Model)
	fields = append(fields, "sys="+HexSum([]byte(r.System)))

	for _, turn := range r.Turns {
		fields = append(fields, turn.canonical())
	}

	fields = append(fields,
		"temp="+formatFloat(r.Params.Temperature),
		"maxtok="+formatInt(r.Params.MaxTokens),
		"topp="+formatFloat(r.Params.TopP),
		"topk="+formatInt(r.Params.TopK),
		"tools="+canonicalTools(r.Tools),
	)

	return HexSum([]byte(strings.Join(fields, separator)))
}

// canonical renders one turn as "turn=<role>:<part>;<part>;...". Each part
// variant carries a distinct tag so a text part can never collide with a
// file reference holding the same string.
func (t Turn) canonical() string {
	var b strings.Builder
	b.WriteString("turn=")
	b.WriteString(t.Role)

	for _, p := range t.Parts {
		b.WriteByte(':')
		switch {
		case p.FileURI != "":
			b.WriteString("file;")
			b.WriteString(p.FileURI)
		case p.MIMEType != "" || len(p.Data) > 0:
			b.WriteString("blob;")
			b.WriteString(p.MIMEType)
			b.WriteByte(';')
			sum := Sum256(p.Data)
			b.WriteString(hex.EncodeToString(sum[:]))
		default:
			b.WriteString("text;")
			b.WriteString(HexSum([]byte(p.Text)))
		}
	}

	return b.String()
}

// canonicalTools sorts a copy of the tool names and joins them, so callers
// enabling the same tools in a different order share cache entries.
func canonicalTools(tools []string) string {
	if len(tools) == 0 {
		return "-"
	}
	sorted := make([]string, len(tools))
	copy(sorted, tools)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

// formatFloat renders an optional float; nil becomes "-" so unset never
// collides with zero.
func formatFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

// formatInt renders an optional int; nil becomes "-".
func formatInt(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}
