package errors

import (
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{name: "config", code: "E100", wantMsg: "Project configuration not found", wantCat: CategoryConfig},
		{name: "cli", code: "E120", wantMsg: "Server failed", wantCat: CategoryCLI},
		{name: "bootstrap", code: "E142", wantMsg: "Missing reserved route", wantCat: CategoryBootstrap},
		{name: "runtime", code: "E160", wantMsg: "Page rendering failed", wantCat: CategoryRuntime},
		{name: "unknown error code", code: "E999", wantMsg: "Unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CategoryConfig, "environment %q not found", "staging")
	if err.Message != `environment "staging" not found` {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Error() != err.Message {
		t.Errorf("Error() = %q, want the bare message", err.Error())
	}
}

func TestImagoErrorError(t *testing.T) {
	got := New("E103").Error()
	if want := "E103: Unknown environment"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestWithLocation(t *testing.T) {
	file := filepath.Join(t.TempDir(), "environment.yaml")
	content := "prod:\n  $Server:\n    port: 3001\n  $Host: example.com\ndev:\n  $Debug: true\n"
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		line      int
		wantStart int
		want      []string
	}{
		{line: 4, wantStart: 2, want: []string{"  $Server:", "    port: 3001", "  $Host: example.com", "dev:", "  $Debug: true"}},
		{line: 1, wantStart: 1, want: []string{"prod:", "  $Server:", "    port: 3001"}},
	}
	for _, tt := range tests {
		err := New("E102").WithLocation(file, tt.line, 3)
		if diff := cmp.Diff(&Location{File: file, Line: tt.line, Column: 3}, err.Location); diff != "" {
			t.Errorf("line %d: Location mismatch (-want +got):\n%s", tt.line, diff)
		}
		if err.ContextStart != tt.wantStart {
			t.Errorf("line %d: ContextStart = %d, want %d", tt.line, err.ContextStart, tt.wantStart)
		}
		if diff := cmp.Diff(tt.want, err.Context); diff != "" {
			t.Errorf("line %d: Context mismatch (-want +got):\n%s", tt.line, diff)
		}
	}
}

func TestWithLocationFromYAML(t *testing.T) {
	file := filepath.Join(t.TempDir(), "environment.yaml")
	content := "prod:\n  $Host: [a\n"
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	var v map[string]any
	yerr := yaml.Unmarshal([]byte(content), &v)
	if yerr == nil {
		t.Fatal("expected a YAML error")
	}
	err := New("E102").WithLocationFromYAML(file, yerr)
	if err.Location == nil || err.Location.File != file || err.Location.Line < 1 {
		t.Fatalf("Location = %+v, want a line in %s", err.Location, file)
	}

	plain := New("E102").WithLocationFromYAML(file, stderrors.New("boom"))
	if plain.Location != nil {
		t.Errorf("Location = %+v, want nil without a line number", plain.Location)
	}
}

func TestBuilders(t *testing.T) {
	cause := stderrors.New("permission denied")
	err := New("E101").
		WithSuggestion("Check the file permissions").
		WithExample(`{"name": "shop"}`).
		WithDetail("custom").
		Wrap(cause)

	if err.Suggestion != "Check the file permissions" || err.Example != `{"name": "shop"}` || err.Detail != "custom" {
		t.Errorf("builders not applied: %+v", err)
	}
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "E120") != nil {
		t.Error("FromError(nil, ...) should return nil")
	}

	ie := New("E100")
	if FromError(ie, "E120") != ie {
		t.Error("FromError should return an *ImagoError as is")
	}

	cause := stderrors.New("address already in use")
	got := FromError(cause, "E120")
	if got.Code != "E120" || got.Wrapped != cause {
		t.Errorf("FromError = %+v, want E120 wrapping the cause", got)
	}
}

func TestLocationString(t *testing.T) {
	tests := []struct {
		name string
		loc  *Location
		want string
	}{
		{name: "nil location", want: ""},
		{name: "with column", loc: &Location{File: "imago.json", Line: 10, Column: 5}, want: "imago.json:10:5"},
		{name: "without column", loc: &Location{File: "imago.json", Line: 10}, want: "imago.json:10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.loc.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	file := filepath.Join(t.TempDir(), "environment.yaml")
	if err := os.WriteFile(file, []byte("prod:\n  $Server:\n    port: 99999\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	formatted := New("E104").
		WithLocation(file, 3, 11).
		WithEnvironment("prod").
		WithKey("$Server.port").
		WithSuggestion("Use a port such as 3001").
		WithExample("prod:\n  $Server:\n    port: 3001").
		Wrap(stderrors.New("out of range")).
		Format()

	for _, want := range []string{
		"  config E104  Invalid port\n",
		"  setting  $Server.port in environment prod\n",
		"  at       " + file + ":3:11\n",
		"    1 | prod:\n",
		"  > 3 |     port: 99999\n",
		"      |           ^\n",
		"  cause    out of range\n",
		"  fix      Use a port such as 3001\n",
		"  example\n    | prod:\n",
		"  docs     https://imago.dev/docs/errors/E104\n",
	} {
		if !strings.Contains(formatted, want) {
			t.Errorf("Format() is missing %q:\n%s", want, formatted)
		}
	}
}

func TestFormatUncoded(t *testing.T) {
	DisableColors()
	defer EnableColors()

	formatted := (&ImagoError{Message: "boom"}).Format()
	if want := "\n  error  boom\n\n"; formatted != want {
		t.Errorf("Format() = %q, want %q", formatted, want)
	}
}

func TestFormatCompact(t *testing.T) {
	tests := []struct {
		name string
		err  *ImagoError
		want string
	}{
		{
			name: "location",
			err:  New("E100").WithLocation("imago.json", 10, 5),
			want: "imago.json:10:5: config E100: Project configuration not found",
		},
		{
			name: "setting",
			err:  New("E105").WithEnvironment("dev").WithKey("$Cache.ttl"),
			want: "config E105: Invalid cache TTL ($Cache.ttl in environment dev)",
		},
		{
			name: "environment",
			err:  New("E103").WithEnvironment("staging"),
			want: "config E103: Unknown environment (environment staging)",
		},
		{
			name: "uncoded",
			err:  Newf(CategoryRuntime, "render %s", "home"),
			want: "runtime: render home",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.FormatCompact(); got != tt.want {
				t.Errorf("FormatCompact() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatJSON(t *testing.T) {
	out := New("E101").
		WithLocation("imago.json", 2, 0).
		WithKey("server.port").
		Wrap(stderrors.New(`invalid character '}'`)).
		FormatJSON()

	var got map[string]any
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("FormatJSON() is not valid JSON: %v\n%s", err, out)
	}
	want := map[string]any{
		"code":     "E101",
		"category": "config",
		"message":  "Invalid project configuration",
		"detail":   "imago.json could not be read or is not valid JSON.",
		"location": map[string]any{"file": "imago.json", "line": float64(2), "column": float64(0)},
		"key":      "server.port",
		"docUrl":   "https://imago.dev/docs/errors/E101",
		"cause":    `invalid character '}'`,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FormatJSON() mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry(t *testing.T) {
	codes := GetAllCodes()
	for i := 1; i < len(codes); i++ {
		if codes[i-1] >= codes[i] {
			t.Fatalf("GetAllCodes() is not sorted: %v", codes)
		}
	}
	for _, code := range codes {
		tmpl, _ := GetTemplate(code)
		if tmpl.Message == "" || tmpl.Category == "" {
			t.Errorf("%s: incomplete template %+v", code, tmpl)
		}
		if !strings.HasSuffix(tmpl.DocURL, "/"+code) {
			t.Errorf("%s: DocURL = %q", code, tmpl.DocURL)
		}
	}

	if _, ok := GetTemplate("E999"); ok {
		t.Error("E999 should not exist")
	}
}

func TestRegister(t *testing.T) {
	Register("E998", ErrorTemplate{
		Category: CategoryRuntime,
		Message:  "Plugin failed",
	})
	defer delete(registry, "E998")

	if got := New("E998").Message; got != "Plugin failed" {
		t.Errorf("Message = %q, want %q", got, "Plugin failed")
	}
}

func TestWrapText(t *testing.T) {
	tests := []struct {
		text  string
		width int
		want  []string
	}{
		{text: "short text", width: 100, want: []string{"short text"}},
		{text: "this is a longer text that should be wrapped", width: 20, want: []string{"this is a longer", "text that should be", "wrapped"}},
		{text: "", width: 10},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, wrapText(tt.text, tt.width)); diff != "" {
			t.Errorf("wrapText(%q) mismatch (-want +got):\n%s", tt.text, diff)
		}
	}
}

func TestColors(t *testing.T) {
	EnableColors()
	if !strings.Contains(red("test"), "\033[31m") {
		t.Error("red should contain ANSI code when colors enabled")
	}

	DisableColors()
	defer EnableColors()
	if strings.Contains(red("test"), "\033[") {
		t.Error("red should not contain ANSI code when colors disabled")
	}
}
