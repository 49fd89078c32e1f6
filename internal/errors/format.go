package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ANSI color codes for terminal output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorWhite  = "\033[37m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// colorEnabled controls whether ANSI colors are used.
var colorEnabled = true

// DisableColors disables ANSI color output.
func DisableColors() {
	colorEnabled = false
}

// EnableColors enables ANSI color output.
func EnableColors() {
	colorEnabled = true
}

// color wraps text in ANSI color codes if colors are enabled.
func color(code, text string) string {
	if !colorEnabled {
		return text
	}
	return code + text + colorReset
}

func red(text string) string    { return color(colorRed, text) }
func green(text string) string  { return color(colorGreen, text) }
func yellow(text string) string { return color(colorYellow, text) }
func blue(text string) string   { return color(colorBlue, text) }
func cyan(text string) string   { return color(colorCyan, text) }
func white(text string) string  { return color(colorWhite, text) }
func gray(text string) string   { return color(colorGray, text) }
func bold(text string) string   { return color(colorBold, text) }

// Format returns the error formatted for a terminal: a header with the
// category and code, the setting and file at fault, the offending lines
// and the notes on how to fix it.
func (e *ImagoError) Format() string {
	var b strings.Builder

	b.WriteString("\n  ")
	b.WriteString(red(bold(string(e.category()))))
	if e.Code != "" {
		b.WriteString(" ")
		b.WriteString(bold(e.Code))
	}
	b.WriteString("  ")
	b.WriteString(white(e.Message))
	b.WriteString("\n\n")

	if e.Key != "" || e.Environment != "" {
		writeLabel(&b, "setting", e.subject())
	}
	if e.Location != nil {
		writeLabel(&b, "at", yellow(e.Location.String()))
	}
	if e.Key != "" || e.Environment != "" || e.Location != nil {
		b.WriteString("\n")
	}
	e.writeSnippet(&b)

	if e.Detail != "" {
		for _, line := range wrapText(e.Detail, 70) {
			b.WriteString("  ")
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	notes := false
	if e.Wrapped != nil {
		writeLabel(&b, "cause", e.Wrapped.Error())
		notes = true
	}
	if e.Suggestion != "" {
		writeLabel(&b, "fix", green(e.Suggestion))
		notes = true
	}
	if e.Example != "" {
		writeLabel(&b, "example", "")
		for _, line := range strings.Split(e.Example, "\n") {
			b.WriteString("    ")
			b.WriteString(gray("| "))
			b.WriteString(line)
			b.WriteString("\n")
		}
		notes = true
	}
	if e.DocURL != "" {
		writeLabel(&b, "docs", blue(e.DocURL))
		notes = true
	}
	if notes {
		b.WriteString("\n")
	}
	return b.String()
}

func writeLabel(b *strings.Builder, label, text string) {
	b.WriteString("  ")
	if text == "" {
		b.WriteString(cyan(label))
		b.WriteString("\n")
		return
	}
	b.WriteString(cyan(fmt.Sprintf("%-8s", label)))
	b.WriteString(" ")
	b.WriteString(text)
	b.WriteString("\n")
}

// writeSnippet writes the lines around the location, marking its line
// and column.
func (e *ImagoError) writeSnippet(b *strings.Builder) {
	if e.Location == nil || len(e.Context) == 0 {
		return
	}
	width := len(strconv.Itoa(e.ContextStart + len(e.Context) - 1))
	for i, line := range e.Context {
		num := fmt.Sprintf("%*d", width, e.ContextStart+i)
		if e.ContextStart+i != e.Location.Line {
			fmt.Fprintf(b, "    %s %s %s\n", gray(num), gray("|"), line)
			continue
		}
		fmt.Fprintf(b, "  %s %s %s %s\n", red(">"), bold(num), gray("|"), line)
		if e.Location.Column > 0 {
			fmt.Fprintf(b, "    %s %s %s%s\n", strings.Repeat(" ", width), gray("|"),
				strings.Repeat(" ", e.Location.Column-1), red("^"))
		}
	}
	b.WriteString("\n")
}

func (e *ImagoError) category() Category {
	if e.Category == "" {
		return "error"
	}
	return e.Category
}

// subject describes the setting and environment the error is about.
func (e *ImagoError) subject() string {
	switch {
	case e.Key != "" && e.Environment != "":
		return e.Key + " in environment " + e.Environment
	case e.Environment != "":
		return "environment " + e.Environment
	default:
		return e.Key
	}
}

// FormatCompact returns the error on a single line, prefixed by its
// location like a compiler diagnostic.
func (e *ImagoError) FormatCompact() string {
	var parts []string
	if e.Location != nil {
		parts = append(parts, e.Location.String())
	}
	head := string(e.category())
	if e.Code != "" {
		head += " " + e.Code
	}
	parts = append(parts, head, e.Message)

	s := strings.Join(parts, ": ")
	if subject := e.subject(); subject != "" {
		s += " (" + subject + ")"
	}
	return s
}

// FormatJSON returns the error as a JSON object.
func (e *ImagoError) FormatJSON() string {
	type location struct {
		File   string `json:"file"`
		Line   int    `json:"line"`
		Column int    `json:"column"`
	}
	out := struct {
		Code       string    `json:"code,omitempty"`
		Category   Category  `json:"category"`
		Message    string    `json:"message"`
		Detail     string    `json:"detail,omitempty"`
		Location   *location `json:"location,omitempty"`
		Env        string    `json:"environment,omitempty"`
		Key        string    `json:"key,omitempty"`
		Suggestion string    `json:"suggestion,omitempty"`
		DocURL     string    `json:"docUrl,omitempty"`
		Cause      string    `json:"cause,omitempty"`
	}{
		Code:       e.Code,
		Category:   e.Category,
		Message:    e.Message,
		Detail:     e.Detail,
		Env:        e.Environment,
		Key:        e.Key,
		Suggestion: e.Suggestion,
		DocURL:     e.DocURL,
	}
	if e.Location != nil {
		out.Location = &location{File: e.Location.File, Line: e.Location.Line, Column: e.Location.Column}
	}
	if e.Wrapped != nil {
		out.Cause = e.Wrapped.Error()
	}
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Sprintf(`{"message":%q}`, e.Message)
	}
	return string(data)
}

// wrapText wraps text to the specified width.
func wrapText(text string, width int) []string {
	if text == "" {
		return nil
	}
	if len(text) <= width {
		return []string{text}
	}

	var lines []string
	words := strings.Fields(text)
	var current strings.Builder

	for _, word := range words {
		if current.Len()+len(word)+1 > width {
			if current.Len() > 0 {
				lines = append(lines, current.String())
				current.Reset()
			}
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}

	if current.Len() > 0 {
		lines = append(lines, current.String())
	}

	return lines
}

// PrintError prints a formatted error to stderr.
func PrintError(err error) {
	var ie *ImagoError
	if errors.As(err, &ie) {
		fmt.Fprint(os.Stderr, ie.Format())
		return
	}
	fmt.Fprintf(os.Stderr, "\n  %s  %s\n\n", red(bold("error")), err.Error())
}
