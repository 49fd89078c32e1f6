package errors

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
)

// Category represents the type of error.
type Category string

const (
	CategoryConfig    Category = "config"
	CategoryCLI       Category = "cli"
	CategoryBootstrap Category = "bootstrap"
	CategoryRuntime   Category = "runtime"
)

// Location is a position in a source or configuration file.
type Location struct {
	File   string
	Line   int
	Column int
}

// String returns the location as file:line[:column].
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// ImagoError is a coded error with location, suggestion and documentation.
type ImagoError struct {
	// Code is the registered identifier (e.g. "E100").
	Code string

	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation.
	Detail string

	Location *Location

	// Environment and Key name the environment.yaml section and setting
	// the error is about, if any.
	Environment string
	Key         string

	// Context holds the lines around Location, starting at line
	// ContextStart.
	Context      []string
	ContextStart int

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Example shows the correct approach.
	Example string

	DocURL string

	Wrapped error
}

// Error implements the error interface.
func (e *ImagoError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *ImagoError) Unwrap() error {
	return e.Wrapped
}

// WithLocation sets the location and reads the lines around it.
func (e *ImagoError) WithLocation(file string, line, column int) *ImagoError {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Context, e.ContextStart = readContextLines(file, line, 5)
	return e
}

var yamlLine = regexp.MustCompile(`line (\d+)`)

// WithLocationFromYAML sets the location from the line a YAML decoding
// error reports, if any.
func (e *ImagoError) WithLocationFromYAML(file string, err error) *ImagoError {
	if err == nil {
		return e
	}
	m := yamlLine.FindStringSubmatch(err.Error())
	if m == nil {
		return e
	}
	if line, convErr := strconv.Atoi(m[1]); convErr == nil && line > 0 {
		e.WithLocation(file, line, 0)
	}
	return e
}

// WithEnvironment names the environment the error occurred in.
func (e *ImagoError) WithEnvironment(name string) *ImagoError {
	e.Environment = name
	return e
}

// WithKey names the configuration setting at fault, such as "$Server.port".
func (e *ImagoError) WithKey(key string) *ImagoError {
	e.Key = key
	return e
}

// WithSuggestion adds a fix suggestion.
func (e *ImagoError) WithSuggestion(s string) *ImagoError {
	e.Suggestion = s
	return e
}

// WithExample adds an example of the correct approach.
func (e *ImagoError) WithExample(ex string) *ImagoError {
	e.Example = ex
	return e
}

// WithDetail replaces the registered explanation.
func (e *ImagoError) WithDetail(d string) *ImagoError {
	e.Detail = d
	return e
}

// Wrap sets the underlying error.
func (e *ImagoError) Wrap(err error) *ImagoError {
	e.Wrapped = err
	return e
}

func readContextLines(filename string, targetLine, contextSize int) ([]string, int) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, 0
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	lineNum := 0
	startLine := max(targetLine-contextSize/2, 1)
	endLine := targetLine + contextSize/2

	for scanner.Scan() {
		lineNum++
		if lineNum >= startLine && lineNum <= endLine {
			lines = append(lines, scanner.Text())
		}
		if lineNum > endLine {
			break
		}
	}
	return lines, startLine
}

// New creates an error from a registered code.
func New(code string) *ImagoError {
	template, ok := registry[code]
	if !ok {
		return &ImagoError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &ImagoError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		DocURL:   template.DocURL,
	}
}

// Newf creates an uncoded error with a formatted message.
func Newf(category Category, format string, args ...any) *ImagoError {
	return &ImagoError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps err in an error of the given code. An *ImagoError is
// returned unchanged.
func FromError(err error, code string) *ImagoError {
	if err == nil {
		return nil
	}
	if ie, ok := err.(*ImagoError); ok {
		return ie
	}
	return New(code).Wrap(err)
}
