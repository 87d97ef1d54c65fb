package logging

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"arclight-ai/ballast/pkg/fingerprint"
)

// Redactor scrubs credential material from log records. It knows the
// configured raw keys and replaces any exact occurrence with the key's
// sha256 short id; pattern rules additionally catch common API-key shapes
// that were never configured, and sensitive-looking attribute names have
// their values masked.
type Redactor struct {
	// replacements maps configured raw keys to their masked form, longest
	// key first so overlapping credentials replace correctly.
	replacements []keyReplacement
	patterns     map[string]*redactPattern
}

type keyReplacement struct {
	raw    string
	masked string
}

// redactPattern contains a compiled regex and replacement string.
type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Built-in pattern names.
const (
	PatternAPIKey      = "api_key"
	PatternGoogleKey   = "google_api_key"
	PatternBearerToken = "bearer_token"
	PatternPassword    = "password"
)

// NewRedactor creates a Redactor seeded with the given raw credentials.
// Keys may be empty; the built-in patterns still apply.
func NewRedactor(keys ...string) *Redactor {
	r := &Redactor{
		patterns: make(map[string]*redactPattern),
	}
	r.addDefaultPatterns()

	for _, key := range keys {
		if key == "" {
			continue
		}
		r.replacements = append(r.replacements, keyReplacement{
			raw:    key,
			masked: RedactKey(key),
		})
	}
	sort.Slice(r.replacements, func(i, j int) bool {
		return len(r.replacements[i].raw) > len(r.replacements[j].raw)
	})

	return r
}

// addDefaultPatterns adds built-in credential redaction patterns.
func (r *Redactor) addDefaultPatterns() {
	patterns := map[string]struct {
		regex       string
		replacement string
	}{
		// Provider API keys with the common sk- prefix.
		PatternAPIKey: {
			regex:       `sk-[a-zA-Z0-9_-]{8,}`,
			replacement: "sk-***",
		},

		// Google-style API keys.
		PatternGoogleKey: {
			regex:       `AIza[0-9A-Za-z_\-]{35}`,
			replacement: "AIza***",
		},

		// Bearer tokens in echoed headers.
		PatternBearerToken: {
			regex:       `Bearer\s+[a-zA-Z0-9\-._~+/]+=*`,
			replacement: "Bearer ***",
		},

		// Inline password/secret assignments.
		PatternPassword: {
			regex:       `(password|passwd|pwd|secret|token)[:=]\s*[^\s]+`,
			replacement: "$1: ***",
		},
	}

	for name, p := range patterns {
		r.patterns[name] = &redactPattern{
			name:        name,
			regex:       regexp.MustCompile(p.regex),
			replacement: p.replacement,
		}
	}
}

// RedactString redacts credential material from a string value. Configured
// keys are replaced before the pattern pass so a known key always comes out
// as its short id rather than a generic marker.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}

	for _, rep := range r.replacements {
		value = strings.ReplaceAll(value, rep.raw, rep.masked)
	}
	for _, pattern := range r.patterns {
		value = pattern.regex.ReplaceAllString(value, pattern.replacement)
	}

	return value
}

// Wrap returns a logger whose records pass through this redactor before
// reaching the underlying handler.
func (r *Redactor) Wrap(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return slog.New(r.handler(logger.Handler()))
}

func (r *Redactor) handler(inner slog.Handler) slog.Handler {
	return &redactingHandler{inner: inner, redactor: r}
}

// isSensitiveKey checks if an attribute name indicates credential data.
// key_id and its relatives stay untouched: they carry already-redacted ids.
func (r *Redactor) isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)

	sensitiveKeys := []string{
		"password", "passwd", "pwd",
		"secret", "token", "api_key", "apikey",
		"auth", "authorization",
		"credential", "private_key", "privatekey",
	}

	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}

	return false
}

// maskValue masks the value of a sensitive attribute. A value that is
// exactly a configured key keeps its identifiable short id; anything else
// keeps a four-character hint.
func (r *Redactor) maskValue(v slog.Value) string {
	s := v.String()
	if s == "" {
		return ""
	}
	for _, rep := range r.replacements {
		if s == rep.raw {
			return rep.masked
		}
	}
	if len(s) <= 4 {
		return "***"
	}
	return s[:4] + "***"
}

// redactAttr rewrites a single attribute, recursing into groups.
func (r *Redactor) redactAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	switch {
	case a.Value.Kind() == slog.KindGroup:
		members := a.Value.Group()
		redacted := make([]slog.Attr, len(members))
		for i, m := range members {
			redacted[i] = r.redactAttr(m)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(redacted...)}

	case r.isSensitiveKey(a.Key):
		return slog.Attr{Key: a.Key, Value: slog.StringValue(r.maskValue(a.Value))}

	case a.Value.Kind() == slog.KindString:
		return slog.Attr{Key: a.Key, Value: slog.StringValue(r.RedactString(a.Value.String()))}

	case a.Value.Kind() == slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			return slog.Attr{Key: a.Key, Value: slog.StringValue(r.RedactString(err.Error()))}
		}
	}

	return a
}

// RedactKey returns the loggable form of a raw credential: its sha256 short
// id, prefixed so readers know what they are looking at.
func RedactKey(key string) string {
	return "sha256:" + fingerprint.ShortID(key)
}

// redactingHandler is a slog.Handler middleware that applies a Redactor to
// every record, including attributes attached via With.
type redactingHandler struct {
	inner    slog.Handler
	redactor *Redactor
}

func (h *redactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *redactingHandler) Handle(ctx context.Context, rec slog.Record) error {
	out := slog.NewRecord(rec.Time, rec.Level, h.redactor.RedactString(rec.Message), rec.PC)
	rec.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redactor.redactAttr(a))
		return true
	})
	return h.inner.Handle(ctx, out)
}

func (h *redactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redactor.redactAttr(a)
	}
	return &redactingHandler{inner: h.inner.WithAttrs(redacted), redactor: h.redactor}
}

func (h *redactingHandler) WithGroup(name string) slog.Handler {
	return &redactingHandler{inner: h.inner.WithGroup(name), redactor: h.redactor}
}
