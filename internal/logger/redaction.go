package logger

import (
	"io"
	"regexp"
	"strings"
)

// Mask replaces every secret found in a log line
const Mask = "[REDACTED]"

// sensitiveFields are JSON keys whose values are masked whatever they hold
var sensitiveFields = []string{"api_key", "apikey", "authorization", "password", "secret", "token"}

type rule struct {
	re          *regexp.Regexp
	replacement string
}

// Redactor masks credentials in log output. Known secrets, such as the
// configured API key, are matched literally; everything else by pattern.
type Redactor struct {
	rules    []rule
	secrets  []string
	replacer *strings.Replacer
}

// NewRedactor creates a redactor for provider keys, bearer tokens and
// sensitive JSON fields, plus the given literal secrets
func NewRedactor(secrets ...string) *Redactor {
	r := &Redactor{
		rules: []rule{
			{re: regexp.MustCompile(`sk-(?:ant-)?[A-Za-z0-9_-]{20,}`), replacement: Mask},
			{re: regexp.MustCompile(`Bearer\s+[A-Za-z0-9._~+/-]+=*`), replacement: Mask},
			{
				re:          regexp.MustCompile(`("(?i:` + strings.Join(sensitiveFields, "|") + `)"\s*:\s*)"[^"]*"`),
				replacement: `${1}"` + Mask + `"`,
			},
		},
	}
	r.AddSecrets(secrets...)
	return r
}

// AddPattern masks every match of pattern
func (r *Redactor) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	r.rules = append(r.rules, rule{re: re, replacement: Mask})
	return nil
}

// AddSecrets masks exact values. Values shorter than four bytes are ignored
// since they would mask ordinary words.
func (r *Redactor) AddSecrets(values ...string) {
	for _, v := range values {
		if len(v) >= 4 {
			r.secrets = append(r.secrets, v)
		}
	}
	if len(r.secrets) == 0 {
		return
	}

	pairs := make([]string, 0, 2*len(r.secrets))
	for _, s := range r.secrets {
		pairs = append(pairs, s, Mask)
	}
	r.replacer = strings.NewReplacer(pairs...)
}

// Redact returns s with every secret masked
func (r *Redactor) Redact(s string) string {
	if r.replacer != nil {
		s = r.replacer.Replace(s)
	}
	for _, rl := range r.rules {
		s = rl.re.ReplaceAllString(s, rl.replacement)
	}
	return s
}

// Wrap returns a writer that redacts every write before passing it on
func (r *Redactor) Wrap(w io.Writer) io.Writer {
	return &redactingWriter{next: w, redactor: r}
}

type redactingWriter struct {
	next     io.Writer
	redactor *Redactor
}

// Write reports len(p) on success since callers account for the original bytes
func (w *redactingWriter) Write(p []byte) (int, error) {
	if _, err := io.WriteString(w.next, w.redactor.Redact(string(p))); err != nil {
		return 0, err
	}
	return len(p), nil
}
