package renderer

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Revival is the application state the server hands to the client in the
// rendered document, so the client boots without recomputing it.
type Revival struct {
	Cache            json.RawMessage `json:"Cache,omitempty"`
	Language         string          `json:"$Language"`
	Env              string          `json:"$Env"`
	Debug            bool            `json:"$Debug"`
	Version          string          `json:"$Version"`
	App              map[string]any  `json:"$App,omitempty"`
	Protocol         string          `json:"$Protocol"`
	Host             string          `json:"$Host"`
	Path             string          `json:"$Path"`
	Root             string          `json:"$Root"`
	LanguagePartPath string          `json:"$LanguagePartPath"`
}

const (
	revivalPrefix = "  root.$IMA = Object.assign(root.$IMA || {}, "
	revivalSuffix = ");"
)

// Script renders the revival script: it assigns the payload to
// window.$IMA and starts the client runner once loaded.
func (r Revival) Script() (string, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("renderer: revival: %w", err)
	}

	var b strings.Builder
	b.WriteString("(function (root) {\n")
	fmt.Fprintf(&b, "  root.$Debug = %t;\n", r.Debug)
	b.WriteString(revivalPrefix)
	b.Write(payload)
	b.WriteString(revivalSuffix + "\n")
	b.WriteString("  if (root.$IMA.Runner) { root.$IMA.Runner.run(); }\n")
	b.WriteString("})(typeof window !== 'undefined' && window !== null ? window : global);\n")
	return b.String(), nil
}

// ParseRevival extracts the payload of a script produced by Script.
func ParseRevival(script string) (Revival, error) {
	var r Revival
	for _, line := range strings.Split(script, "\n") {
		if !strings.HasPrefix(line, revivalPrefix) {
			continue
		}
		payload := strings.TrimSuffix(strings.TrimPrefix(line, revivalPrefix), revivalSuffix)
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return r, fmt.Errorf("renderer: revival: %w", err)
		}
		return r, nil
	}
	return r, fmt.Errorf("renderer: revival: no payload")
}
