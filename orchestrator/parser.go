package orchestrator

import (
	"encoding/json"
	"regexp"
	"strings"
)

// parsed is the result of scanning one LLM response line-by-line.
type parsed struct {
	thought     string
	action      string
	input       map[string]any
	done        string
	foundAction bool
	foundDone   bool
}

// parseResponse implements spec §4.3's "Parsing (critical)" rules:
//   - lines are scanned in order;
//   - the first THOUGHT before any ACTION is kept;
//   - the first ACTION wins, later ones are ignored;
//   - INPUT is only considered once an action has been found, and only the
//     first one;
//   - DONE is only honored if no action was found (a model that already
//     committed to an action is presumed to be hallucinating a final);
//   - if nothing structured was found, the whole response is the thought.
func parseResponse(response string) parsed {
	var p parsed
	foundThought := false
	foundInput := false
	var inputTail string

	lines := strings.Split(response, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)

		switch {
		case !foundThought && !p.foundAction && hasPrefix(trimmed, "THOUGHT:"):
			p.thought = strings.TrimSpace(stripPrefix(trimmed, "THOUGHT:"))
			foundThought = true

		case !p.foundAction && hasPrefix(trimmed, "ACTION:"):
			p.action = strings.TrimSpace(stripPrefix(trimmed, "ACTION:"))
			p.foundAction = true

		case p.foundAction && !foundInput && hasPrefix(trimmed, "INPUT:"):
			// The tail may span multiple lines if the model wrapped JSON;
			// join the rest of the response from this point on so the
			// JSON-tolerance chain can still find a brace pair.
			inputTail = strings.Join(append([]string{stripPrefix(trimmed, "INPUT:")}, lines[i+1:]...), "\n")
			foundInput = true

		case !p.foundAction && hasPrefix(trimmed, "DONE:"):
			p.done = strings.TrimSpace(stripPrefix(trimmed, "DONE:"))
			p.foundDone = true
		}
	}

	if foundInput {
		p.input = parseInputTolerant(inputTail)
	}

	if !foundThought && !p.foundAction && !p.foundDone {
		p.thought = strings.TrimSpace(response)
	}

	return p
}

func hasPrefix(s, prefix string) bool {
	return strings.HasPrefix(strings.ToUpper(s), prefix)
}

func stripPrefix(s, prefix string) string {
	return s[len(prefix):]
}

var inputBraceRe = regexp.MustCompile(`(?s)\{.*?\}`)
var trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
var bareKeyRe = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)(\s*:)`)
var keyValueRe = regexp.MustCompile(`(\w+)\s*[:=]\s*['"]?([^'"}\],]+)['"]?`)

// parseInputTolerant implements the six-step JSON-tolerance chain spec
// §4.3 specifies for the INPUT directive's payload.
func parseInputTolerant(raw string) map[string]any {
	trimmed := strings.TrimSpace(raw)

	// (a) strict parse of the trimmed tail.
	if m, ok := strictParse(trimmed); ok {
		return m
	}

	// (b) extract INPUT:\s*(\{[\s\S]*?\}) and strict-parse.
	if loc := inputBraceRe.FindString(trimmed); loc != "" {
		if m, ok := strictParse(loc); ok {
			return m
		}

		// (c) replace single quotes with double, quote bare keys.
		candidate := strings.ReplaceAll(loc, "'", "\"")
		candidate = bareKeyRe.ReplaceAllString(candidate, `$1"$2"$3`)
		if m, ok := strictParse(candidate); ok {
			return m
		}

		// (d) also strip trailing commas.
		stripped := trailingCommaRe.ReplaceAllString(candidate, "$1")
		if m, ok := strictParse(stripped); ok {
			return m
		}
	}

	// (e) fall back to a key-value regex.
	if matches := keyValueRe.FindAllStringSubmatch(trimmed, -1); len(matches) > 0 {
		m := make(map[string]any, len(matches))
		for _, match := range matches {
			m[match[1]] = strings.TrimSpace(match[2])
		}
		return m
	}

	// (f) finally {raw: original_string}.
	return map[string]any{"raw": trimmed}
}

func strictParse(s string) (map[string]any, bool) {
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, false
	}
	return m, true
}
