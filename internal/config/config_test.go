package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/imago-dev/imago/internal/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func errorCode(err error) string {
	var ie *errors.ImagoError
	if stderrors.As(err, &ie) {
		return ie.Code
	}
	return ""
}

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Static.Prefix != DefaultStaticPrefix {
		t.Errorf("Static.Prefix = %q, want %q", cfg.Static.Prefix, DefaultStaticPrefix)
	}
	if cfg.Environment != EnvironmentFileName {
		t.Errorf("Environment = %q, want %q", cfg.Environment, EnvironmentFileName)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(dir); errorCode(err) != "E100" {
		t.Fatalf("Load() of an empty dir = %v, want E100", err)
	}

	writeFile(t, dir, ConfigFileName, `{
  "name": "shop",
  "server": {"port": 8080},
  "static": {"dir": "public"},
  "scripts": ["/static/app.js"],
  "devtools": true
}
`)
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	want := &Config{
		Name:        "shop",
		Version:     "0.1.0",
		Server:      ServerConfig{Port: 8080, Host: DefaultHost},
		Static:      StaticConfig{Dir: "public", Prefix: DefaultStaticPrefix},
		Scripts:     []string{"/static/app.js"},
		Environment: EnvironmentFileName,
		Devtools:    true,
	}
	if diff := cmp.Diff(want, cfg, cmpopts.IgnoreUnexported(Config{})); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
	if cfg.Dir() != dir {
		t.Errorf("Dir() = %q, want %q", cfg.Dir(), dir)
	}
	if got, want := cfg.StaticPath(), filepath.Join(dir, "public"); got != want {
		t.Errorf("StaticPath() = %q, want %q", got, want)
	}
	if got := cfg.Address(); got != "localhost:8080" {
		t.Errorf("Address() = %q", got)
	}
}

func TestLoadFileInvalidJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), ConfigFileName, "{\n  \"name\": \"shop\",\n}\n")

	_, err := LoadFile(path)
	var ie *errors.ImagoError
	if !stderrors.As(err, &ie) || ie.Code != "E101" {
		t.Fatalf("LoadFile() = %v, want E101", err)
	}
	if ie.Location == nil || ie.Location.Line != 3 {
		t.Errorf("Location = %+v, want line 3", ie.Location)
	}
}

func TestLoadFileInvalidPort(t *testing.T) {
	path := writeFile(t, t.TempDir(), ConfigFileName, `{"server": {"port": 70000}}`)
	if _, err := LoadFile(path); errorCode(err) != "E104" {
		t.Errorf("LoadFile() = %v, want E104", err)
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	cfg := New()
	cfg.Name = "shop"

	if err := cfg.Save(); err == nil {
		t.Error("Save() without a path should fail")
	}

	path := filepath.Join(dir, ConfigFileName)
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error: %v", err)
	}
	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	if diff := cmp.Diff(cfg, loaded, cmpopts.IgnoreUnexported(Config{})); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ConfigFileName, "{}")
	nested := filepath.Join(root, "app", "pages")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatalf("FindProjectRoot() error: %v", err)
	}
	if want, _ := filepath.Abs(root); got != want {
		t.Errorf("FindProjectRoot() = %q, want %q", got, want)
	}

	if _, err := FindProjectRoot(t.TempDir()); errorCode(err) != "E100" {
		t.Errorf("FindProjectRoot() outside a project = %v, want E100", err)
	}
}

const environmentYAML = `prod:
  $Version: 2.0.0
  $Server:
    port: 3001
  $Protocol: "https:"
  $Host: shop.example.com
  $Language:
    "*": en
    shop.example.cz: cs
  $Cache:
    enabled: true
    ttl: 5m
  $App:
    apiUrl: https://api.example.com
dev:
  $Debug: true
  $Protocol: "http:"
  $Host: localhost:3001
  $Language:
    localhost: cs
  $Cache:
    ttl: 1s
broken:
  $Cache:
    ttl: soon
`

func TestLoadEnvironmentFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), EnvironmentFileName, environmentYAML)

	tests := []struct {
		name     string
		env      string
		want     *Environment
		wantCode string
	}{
		{
			name: "prod over defaults",
			env:  "prod",
			want: &Environment{
				Name:     "prod",
				Version:  "2.0.0",
				Server:   ServerConfig{Port: 3001},
				Protocol: "https:",
				Host:     "shop.example.com",
				Language: map[string]string{"*": "en", "shop.example.cz": "cs"},
				Cache:    CacheConfig{Enabled: true, TTL: "5m"},
				App:      map[string]any{"apiUrl": "https://api.example.com"},
			},
		},
		{
			name: "dev over prod",
			env:  "dev",
			want: &Environment{
				Name:     "dev",
				Debug:    true,
				Version:  "2.0.0",
				Server:   ServerConfig{Port: 3001},
				Protocol: "http:",
				Host:     "localhost:3001",
				Language: map[string]string{"*": "en", "shop.example.cz": "cs", "localhost": "cs"},
				Cache:    CacheConfig{Enabled: true, TTL: "1s"},
				App:      map[string]any{"apiUrl": "https://api.example.com"},
			},
		},
		{name: "empty name is prod", env: "", want: nil},
		{name: "unknown environment", env: "staging", wantCode: "E103"},
		{name: "invalid ttl", env: "broken", wantCode: "E105"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadEnvironmentFile(path, tt.env)
			if tt.wantCode != "" {
				if errorCode(err) != tt.wantCode {
					t.Fatalf("error = %v, want %s", err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadEnvironmentFile() error: %v", err)
			}
			if tt.want == nil {
				if got.Name != DefaultEnvironment || got.Host != "shop.example.com" {
					t.Errorf("got %+v, want prod", got)
				}
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadEnvironmentFileMissing(t *testing.T) {
	got, err := LoadEnvironmentFile(filepath.Join(t.TempDir(), EnvironmentFileName), "dev")
	if err != nil {
		t.Fatalf("LoadEnvironmentFile() error: %v", err)
	}
	want := DefaultEnvironmentSettings()
	want.Name = "dev"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadEnvironmentFileInvalidYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), EnvironmentFileName, "prod:\n  $Server:\n    port: [3001\n")

	_, err := LoadEnvironmentFile(path, "prod")
	var ie *errors.ImagoError
	if !stderrors.As(err, &ie) || ie.Code != "E102" {
		t.Fatalf("error = %v, want E102", err)
	}
	if ie.Location == nil || ie.Location.File != path {
		t.Errorf("Location = %+v, want a line of %s", ie.Location, path)
	}
}

func TestLoadEnvironmentFileNamesSetting(t *testing.T) {
	path := writeFile(t, t.TempDir(), EnvironmentFileName, environmentYAML+"far:\n  $Server:\n    port: 70000\n")

	tests := []struct {
		env      string
		wantCode string
		wantKey  string
	}{
		{env: "broken", wantCode: "E105", wantKey: "$Cache.ttl"},
		{env: "far", wantCode: "E104", wantKey: "$Server.port"},
		{env: "staging", wantCode: "E103"},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			_, err := LoadEnvironmentFile(path, tt.env)
			var ie *errors.ImagoError
			if !stderrors.As(err, &ie) || ie.Code != tt.wantCode {
				t.Fatalf("error = %v, want %s", err, tt.wantCode)
			}
			if ie.Environment != tt.env || ie.Key != tt.wantKey {
				t.Errorf("setting = %q in %q, want %q in %q", ie.Key, ie.Environment, tt.wantKey, tt.env)
			}
		})
	}
}

func TestConfigLoadEnvironment(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ConfigFileName, `{"version": "1.4.0", "debug": true, "server": {"port": 4000, "host": "0.0.0.0"}}`)
	writeFile(t, dir, EnvironmentFileName, "prod:\n  $Host: shop.example.com\n")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	env, err := cfg.LoadEnvironment("prod")
	if err != nil {
		t.Fatalf("LoadEnvironment() error: %v", err)
	}
	if !env.Debug || env.Version != "1.4.0" {
		t.Errorf("Debug, Version = %t, %q, want the project's", env.Debug, env.Version)
	}
	if diff := cmp.Diff(ServerConfig{Port: 4000, Host: "0.0.0.0"}, env.Server); diff != "" {
		t.Errorf("Server mismatch (-want +got):\n%s", diff)
	}
}

func TestCacheTTL(t *testing.T) {
	tests := []struct {
		ttl     string
		want    time.Duration
		wantErr bool
	}{
		{ttl: "", want: DefaultCacheTTL},
		{ttl: "90s", want: 90 * time.Second},
		{ttl: "-1s", wantErr: true},
		{ttl: "often", wantErr: true},
	}
	for _, tt := range tests {
		env := &Environment{Cache: CacheConfig{TTL: tt.ttl}}
		got, err := env.CacheTTL()
		if (err != nil) != tt.wantErr {
			t.Errorf("CacheTTL(%q) error = %v, wantErr %t", tt.ttl, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("CacheTTL(%q) = %v, want %v", tt.ttl, got, tt.want)
		}
	}
}

func TestLanguageFor(t *testing.T) {
	env := &Environment{Language: map[string]string{
		"*":               "en",
		"shop.example.cz": "cs",
		"localhost:3002":  "de",
	}}
	tests := map[string]string{
		"shop.example.cz":      "cs",
		"shop.example.cz:8080": "cs",
		"localhost:3002":       "de",
		"localhost:3001":       "en",
		"example.com":          "en",
	}
	for host, want := range tests {
		if got := env.LanguageFor(host); got != want {
			t.Errorf("LanguageFor(%q) = %q, want %q", host, got, want)
		}
	}

	if got := (&Environment{}).LanguageFor("example.com"); got != DefaultLanguage {
		t.Errorf("LanguageFor() without entries = %q, want %q", got, DefaultLanguage)
	}
}
