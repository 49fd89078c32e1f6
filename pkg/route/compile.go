package route

import (
	"regexp"
	"strings"
)

type tokenKind uint8

const (
	tokenLiteral tokenKind = iota
	tokenRequired
	tokenOptional
)

type token struct {
	kind tokenKind
	text string // literal text or parameter name
	sep  string // separator consumed together with an optional parameter
}

type segment struct {
	// whole is set for segments made of a single parameter.
	whole  bool
	tokens []token
}

var (
	wholeRequiredRe = regexp.MustCompile(`^:([\w-]+)$`)
	wholeOptionalRe = regexp.MustCompile(`^:\?([\w-]+)$`)
	subParamRe      = regexp.MustCompile(`:(\??)([A-Za-z0-9]+)`)
)

// neverMatch matches no input.
const neverMatch = `[^\s\S]`

const (
	wholeGroup = `([^/]+)`
	subGroup   = `([^/_-]+)`
)

// trimPath collapses empty segments: "//a/b/" and "a/b" both become "/a/b".
func trimPath(path string) string {
	parts := strings.Split(path, "/")
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return "/" + strings.Join(kept, "/")
}

// splitQuery separates the path from the query string.
func splitQuery(path string) (string, string) {
	p, q, _ := strings.Cut(path, "?")
	if i := strings.IndexByte(p, '#'); i >= 0 {
		p = p[:i]
	}
	if i := strings.IndexByte(q, '#'); i >= 0 {
		q = q[:i]
	}
	return p, q
}

// parseSegments tokenizes a trimmed path expression.
func parseSegments(trimmed string) []segment {
	if trimmed == "/" {
		return nil
	}

	var segments []segment
	for _, raw := range strings.Split(trimmed[1:], "/") {
		// Required whole-segment parameters first, then optional ones, so a
		// "?" is never read as part of a required name.
		if m := wholeRequiredRe.FindStringSubmatch(raw); m != nil {
			segments = append(segments, segment{whole: true, tokens: []token{{kind: tokenRequired, text: m[1]}}})
			continue
		}
		if m := wholeOptionalRe.FindStringSubmatch(raw); m != nil {
			segments = append(segments, segment{whole: true, tokens: []token{{kind: tokenOptional, text: m[1]}}})
			continue
		}
		segments = append(segments, segment{tokens: parseSubParams(raw)})
	}
	return segments
}

// parseSubParams splits a mixed segment into literals and parameters.
func parseSubParams(raw string) []token {
	var tokens []token
	last := 0
	for _, loc := range subParamRe.FindAllStringSubmatchIndex(raw, -1) {
		if loc[0] > last {
			tokens = append(tokens, token{kind: tokenLiteral, text: raw[last:loc[0]]})
		}
		kind := tokenRequired
		if loc[3] > loc[2] {
			kind = tokenOptional
		}
		name := raw[loc[4]:loc[5]]

		if kind == tokenOptional && len(tokens) > 0 {
			// An optional sub-parameter takes its leading separator along.
			prev := &tokens[len(tokens)-1]
			if prev.kind == tokenLiteral && (strings.HasSuffix(prev.text, "-") || strings.HasSuffix(prev.text, "_")) {
				sep := prev.text[len(prev.text)-1:]
				prev.text = prev.text[:len(prev.text)-1]
				if prev.text == "" {
					tokens = tokens[:len(tokens)-1]
				}
				tokens = append(tokens, token{kind: kind, text: name, sep: sep})
				last = loc[1]
				continue
			}
		}
		tokens = append(tokens, token{kind: kind, text: name})
		last = loc[1]
	}
	if last < len(raw) {
		tokens = append(tokens, token{kind: tokenLiteral, text: raw[last:]})
	}
	return tokens
}

// compile builds the matcher and the ordered parameter names.
func compile(segments []segment) (*regexp.Regexp, []string) {
	var names []string
	var b strings.Builder
	b.WriteString("^")

	for _, seg := range segments {
		if seg.whole {
			t := seg.tokens[0]
			names = append(names, t.text)
			if t.kind == tokenRequired {
				b.WriteString("/" + wholeGroup)
			} else {
				b.WriteString("(?:/" + wholeGroup + ")?")
			}
			continue
		}

		if illOrdered(seg.tokens) {
			for _, t := range seg.tokens {
				if t.kind != tokenLiteral {
					names = append(names, t.text)
				}
			}
			return regexp.MustCompile(neverMatch), names
		}

		b.WriteString("/")
		for _, t := range seg.tokens {
			switch t.kind {
			case tokenLiteral:
				b.WriteString(regexp.QuoteMeta(t.text))
			case tokenRequired:
				names = append(names, t.text)
				b.WriteString(subGroup)
			case tokenOptional:
				names = append(names, t.text)
				b.WriteString("(?:" + regexp.QuoteMeta(t.sep) + subGroup + ")?")
			}
		}
	}

	b.WriteString("/?$")
	return regexp.MustCompile(b.String()), names
}

// illOrdered reports a required parameter declared after an optional one.
func illOrdered(tokens []token) bool {
	seenOptional := false
	for _, t := range tokens {
		switch t.kind {
		case tokenOptional:
			seenOptional = true
		case tokenRequired:
			if seenOptional {
				return true
			}
		}
	}
	return false
}
