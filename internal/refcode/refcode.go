// Package refcode extracts reference codes and version tokens from document
// text and filenames using a configurable pattern library. A client
// reference is a client token, a 4-character epoch token, and a free-form
// code appearing contiguously; a prefix reference is a literal prefix
// followed by digits. Extracted codes are canonicalized so they can serve
// as join keys across categories.
package refcode

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Reference is one extracted code with its optional version token.
type Reference struct {
	Code    string
	Version string
}

// separatorClass matches the separators tolerated between reference parts,
// including the unicode hyphen variants seen in real filenames.
const separatorClass = "[ \t_\\-‑-—]"

// wordBoundary consumes one non-word rune (or start of span) ahead of a
// match. RE2 has no lookbehind, so the reference itself sits in a capture
// group and the boundary rune is consumed.
const wordBoundary = `(?:^|[^\p{L}\p{N}_])`

var (
	versionRe      = regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}])V\s?(\d+)(?:[^\p{L}\p{N}]|$)`)
	versionTokenRe = regexp.MustCompile(`(?i)^V\d+$`)
)

type pattern struct {
	re     *regexp.Regexp
	client bool
}

// Extractor matches an ordered pattern library against text spans. Client
// patterns are tried before prefix patterns, in configured order; within
// one pattern the leftmost match wins. An Extractor is immutable after
// construction and safe for concurrent use.
type Extractor struct {
	patterns []pattern
	stageRe  *regexp.Regexp
	stageSet map[string]struct{}
}

// NewExtractor compiles the pattern library. At least one client token or
// prefix is required.
func NewExtractor(clients, prefixes, stageMarkers []string) (*Extractor, error) {
	if len(clients) == 0 && len(prefixes) == 0 {
		return nil, fmt.Errorf("at least one client token or prefix is required")
	}

	e := &Extractor{stageSet: make(map[string]struct{})}

	for _, token := range clients {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		expr := fmt.Sprintf(`(?i)%s((%s)%s*([0-9A-Za-z]{4})%s*([0-9A-Za-z]+(?:[-_][0-9A-Za-z]+)*))`,
			wordBoundary, spacedToken(token), separatorClass, separatorClass)
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("failed to compile client pattern for %q: %w", token, err)
		}
		e.patterns = append(e.patterns, pattern{re: re, client: true})
	}

	for _, prefix := range prefixes {
		prefix = strings.TrimSpace(prefix)
		if prefix == "" {
			continue
		}
		expr := fmt.Sprintf(`(?i)%s(%s\d+)`, wordBoundary, regexp.QuoteMeta(prefix))
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("failed to compile prefix pattern for %q: %w", prefix, err)
		}
		e.patterns = append(e.patterns, pattern{re: re})
	}

	if len(stageMarkers) > 0 {
		quoted := make([]string, 0, len(stageMarkers))
		for _, m := range stageMarkers {
			m = strings.TrimSpace(m)
			if m == "" {
				continue
			}
			quoted = append(quoted, regexp.QuoteMeta(m))
			e.stageSet[strings.ToUpper(m)] = struct{}{}
		}
		if len(quoted) > 0 {
			expr := fmt.Sprintf(`(?i)(?:^|[^\p{L}\p{N}])(%s)(?:[^\p{L}\p{N}]|$)`, strings.Join(quoted, "|"))
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("failed to compile stage marker pattern: %w", err)
			}
			e.stageRe = re
		}
	}

	return e, nil
}

// Extract returns the first reference found in the span, or nil when no
// pattern matches. Patterns are evaluated in library order; the version
// token comes from a trailing code segment when present, otherwise from the
// rest of the span.
func (e *Extractor) Extract(span string) *Reference {
	for _, p := range e.patterns {
		m := p.re.FindStringSubmatch(span)
		if m == nil {
			continue
		}
		if !p.client {
			return &Reference{
				Code:    strings.ToUpper(m[1]),
				Version: e.ExtractVersion(span),
			}
		}

		client := strings.ToUpper(stripSpace(m[2]))
		epoch := strings.ToUpper(m[3])
		code := strings.ToUpper(strings.ReplaceAll(m[4], "_", "-"))

		version := ""
		segments := strings.Split(code, "-")
		if len(segments) > 1 {
			if v := e.normalizeMarker(segments[len(segments)-1]); v != "" {
				version = v
				code = strings.Join(segments[:len(segments)-1], "-")
			}
		}
		if version == "" {
			version = e.ExtractVersion(span)
		}

		return &Reference{
			Code:    client + "-" + epoch + "-" + code,
			Version: version,
		}
	}
	return nil
}

// Matches reports whether any library pattern matches the span.
func (e *Extractor) Matches(span string) bool {
	for _, p := range e.patterns {
		if p.re.MatchString(span) {
			return true
		}
	}
	return false
}

// ExtractVersion returns the first version token in the span: an explicit
// V<digits> marker wins over document-stage markers. Absence of a version
// is the empty string, not an error.
func (e *Extractor) ExtractVersion(span string) string {
	if m := versionRe.FindStringSubmatch(span); m != nil {
		return "V" + m[1]
	}
	if e.stageRe != nil {
		if m := e.stageRe.FindStringSubmatch(span); m != nil {
			return strings.ToUpper(m[1])
		}
	}
	return ""
}

// normalizeMarker maps a candidate token to its canonical version form, or
// returns the empty string when the token is not a version marker.
func (e *Extractor) normalizeMarker(token string) string {
	if versionTokenRe.MatchString(token) {
		return strings.ToUpper(token)
	}
	if _, ok := e.stageSet[strings.ToUpper(token)]; ok {
		return strings.ToUpper(token)
	}
	return ""
}

// spacedToken renders a client token as a pattern tolerating whitespace
// between its runes, e.g. "CAPS" matches "C A P S".
func spacedToken(token string) string {
	var b strings.Builder
	first := true
	for _, r := range token {
		if !first {
			b.WriteString(`\s*`)
		}
		b.WriteString(regexp.QuoteMeta(string(r)))
		first = false
	}
	return b.String()
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// Fold removes diacritics (NFD, strip combining marks, NFC) so pattern and
// phrase matching is accent-insensitive. Returns the input unchanged when
// the transform fails.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
