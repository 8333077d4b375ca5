package logger

import (
	"io"
	"regexp"
)

const redacted = "[REDACTED]"

// rule replaces matches of re with repl; repl may reference capture groups
type rule struct {
	re   *regexp.Regexp
	repl string
}

// Redactor redacts credentials from log output
type Redactor struct {
	patterns []rule
}

// NewRedactor creates a new redactor with default patterns.
// Keyed patterns keep the key and its quoting so JSON lines stay parseable.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []rule{
			// Bearer tokens in Authorization headers
			{regexp.MustCompile(`Bearer\s+[a-zA-Z0-9._~+/=-]+`), redacted},

			// JWTs
			{regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]*`), redacted},

			// APHELION_TOKEN=... in env dumps
			{regexp.MustCompile(`(APHELION_[A-Z_]*TOKEN=)[^\s"\\]+`), "${1}" + redacted},

			// API keys
			{regexp.MustCompile(`sk-[a-zA-Z0-9_-]{20,}`), redacted},

			// token: / "token": values in config and JSON, escaped quotes included
			{regexp.MustCompile(`(token\\?"?\s*[:=]\s*\\?"?)[a-zA-Z0-9._-]{20,}`), "${1}" + redacted},

			// Passwords and generic secrets
			{regexp.MustCompile(`(password\\?"?\s*[:=]\s*\\?"?)[^\s"\\]+`), "${1}" + redacted},
			{regexp.MustCompile(`(secret\\?"?\s*[:=]\s*\\?"?)[^\s"\\]+`), "${1}" + redacted},
		},
	}
}

// AddPattern adds a custom redaction pattern; the whole match is replaced
func (r *Redactor) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	r.patterns = append(r.patterns, rule{re: re, repl: redacted})
	return nil
}

// Redact redacts sensitive information from a string
func (r *Redactor) Redact(s string) string {
	result := s
	for _, p := range r.patterns {
		result = p.re.ReplaceAllString(result, p.repl)
	}
	return result
}

// Wrap wraps an io.Writer to redact sensitive information
func (r *Redactor) Wrap(w io.Writer) io.Writer {
	return &redactingWriter{
		writer:   w,
		redactor: r,
	}
}

// redactingWriter is an io.Writer that redacts sensitive information
type redactingWriter struct {
	writer   io.Writer
	redactor *Redactor
}

// Write reports len(p) on success so callers such as io.MultiWriter don't see a short write
func (w *redactingWriter) Write(p []byte) (int, error) {
	out := w.redactor.Redact(string(p))
	if _, err := w.writer.Write([]byte(out)); err != nil {
		return 0, err
	}
	return len(p), nil
}
