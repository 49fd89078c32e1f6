package route

import (
	"regexp"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMatches(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"/", "/", true},
		{"/", "", true},
		{"/", "/?a=1", true},
		{"/", "/home", false},
		{"/home", "/home/", true},
		{"/home", "//home", true},
		{"/articles/:id", "/articles/5", true},
		{"/articles/:id", "/articles/5?sort=asc", true},
		{"/articles/:id", "/articles", false},
		{"/articles/:id", "/articles/5/comments", false},
		{"/:?lang/home", "/home", true},
		{"/:?lang/home", "/en/home", true},
		{"/list/:?page", "/list", true},
		{"/list/:?page", "/list/2", true},
		{"/range/:from-:to", "/range/1-5", true},
		{"/range/:from-:to", "/range/1", false},
		{"/photo/:id-:?size", "/photo/7", true},
		{"/photo/:id-:?size", "/photo/7-large", true},
		{"/file/:name_:ext", "/file/report_pdf", true},
		{"/bad/:?a-:b", "/bad/x-y", false},
		{"/bad/:?a-:b", "/bad/y", false},
		{"/a.b/:id", "/aXb/1", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"|"+tt.path, func(t *testing.T) {
			r := New("r", tt.pattern, "C", "V")
			if got := r.Matches(tt.path); got != tt.want {
				t.Errorf("Matches(%q) = %v, want %v (matcher %s)", tt.path, got, tt.want, r.Matcher())
			}
		})
	}
}

func TestExtractParameters(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    Params
	}{
		{"/articles/:id", "/articles/5", Params{"id": "5"}},
		{"/articles/:id", "/articles/a%20b", Params{"id": "a b"}},
		{"/articles/:id", "/articles/5?sort=asc&q=a+b", Params{"id": "5", "sort": "asc", "q": "a b"}},
		{"/articles/:id", "/articles/5?id=9", Params{"id": "9"}},
		{"/articles/:id", "/nope", Params{}},
		{"/:?lang/home", "/home", Params{}},
		{"/:?lang/home", "/cs/home", Params{"lang": "cs"}},
		{"/range/:from-:to", "/range/1-5", Params{"from": "1", "to": "5"}},
		{"/photo/:id-:?size", "/photo/7", Params{"id": "7"}},
		{"/photo/:id-:?size", "/photo/7-large", Params{"id": "7", "size": "large"}},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"|"+tt.path, func(t *testing.T) {
			r := New("r", tt.pattern, "C", "V")
			if diff := cmp.Diff(tt.want, r.ExtractParameters(tt.path)); diff != "" {
				t.Errorf("ExtractParameters(%q) mismatch (-want +got):\n%s", tt.path, diff)
			}
		})
	}
}

func TestToPath(t *testing.T) {
	tests := []struct {
		pattern string
		params  Params
		want    string
	}{
		{"/", nil, "/"},
		{"/", Params{"a": "1"}, "/?a=1"},
		{"/articles/:id", Params{"id": "5", "sort": "asc"}, "/articles/5?sort=asc"},
		{"/articles/:id", Params{"id": "a b/c"}, "/articles/a%20b%2Fc"},
		{"/articles/:id", Params{}, "/articles/:id"},
		{"/:?lang/home", Params{}, "/home"},
		{"/:?lang/home", Params{"lang": "en"}, "/en/home"},
		{"/range/:from-:to", Params{"from": "1", "to": "5"}, "/range/1-5"},
		{"/photo/:id-:?size", Params{"id": "7"}, "/photo/7"},
		{"/photo/:id-:?size", Params{"id": "7", "size": "xl"}, "/photo/7-xl"},
		{"/x", Params{"b": "2", "a": "1"}, "/x?a=1&b=2"},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			r := New("r", tt.pattern, "C", "V")
			if got := r.ToPath(tt.params); got != tt.want {
				t.Errorf("ToPath(%v) = %q, want %q", tt.params, got, tt.want)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	cases := map[string][]string{
		"/":                  {"/", "/?page=2"},
		"/articles/:id":      {"/articles/5", "/articles/hello%20world?sort=asc"},
		"/:?lang/home":       {"/home", "/de/home?x=1"},
		"/range/:from-:to":   {"/range/1-5", "/range/a%2Db-c"},
		"/photo/:id-:?size":  {"/photo/7", "/photo/7-large", "/photo/7-x%5Fl"},
		"/a/:b/c/:?d":        {"/a/1/c", "/a/1/c/2"},
		"/file/:name_:ext":   {"/file/report_pdf", "/file/q3%5Freport_pdf"},
	}

	for pattern, paths := range cases {
		r := New("r", pattern, "C", "V")
		for _, path := range paths {
			if !r.Matches(path) {
				t.Fatalf("%s should match %s", pattern, path)
			}
			params := r.ExtractParameters(path)
			rebuilt := r.ToPath(params)
			if !r.Matches(rebuilt) {
				t.Errorf("%s: ToPath(%v) = %q does not match", pattern, params, rebuilt)
			}
			if diff := cmp.Diff(params, r.ExtractParameters(rebuilt)); diff != "" {
				t.Errorf("%s: params changed across round trip (-first +second):\n%s", pattern, diff)
			}
		}
	}
}

func TestIllOrderedNeverMatches(t *testing.T) {
	r := New("bad", "/bad/:?a-:b", "C", "V")
	for _, p := range []string{"/bad", "/bad/x", "/bad/x-y", "/bad/-y"} {
		if r.Matches(p) {
			t.Errorf("ill-ordered route matched %q", p)
		}
	}
	if diff := cmp.Diff([]string{"a", "b"}, r.ParamNames()); diff != "" {
		t.Errorf("ParamNames() mismatch (-want +got):\n%s", diff)
	}
}

func TestOptions(t *testing.T) {
	o := NewOptions()
	if !o.AutoScroll || !o.AllowSPA || o.OnlyUpdate {
		t.Errorf("defaults = %+v", o)
	}

	o = NewOptions(OnlyUpdate(), AutoScroll(false))
	if !o.ShouldOnlyUpdate("a", "b", "a", "b") || o.AutoScroll {
		t.Errorf("options = %+v", o)
	}

	o = o.With(OnlyUpdateWhen(func(pc, pv, nc, nv any) bool { return pc == nc }))
	if o.ShouldOnlyUpdate("a", "v", "b", "v") {
		t.Error("predicate should override static flag")
	}
}

func TestDynamicRoute(t *testing.T) {
	f := NewFactory()
	d := f.CreateDynamicRoute("article", DynamicPath{
		Matcher: regexp.MustCompile(`^/clanek/(\d+)$`),
		Extract: func(path string) Params {
			m := regexp.MustCompile(`^/clanek/(\d+)$`).FindStringSubmatch(path)
			return Params{"id": m[1]}
		},
		Build: func(p Params) string { return "/clanek/" + p["id"] },
	}, "C", "V")

	if !d.Matches("/clanek/12?x=1") {
		t.Fatal("dynamic route should match")
	}
	if diff := cmp.Diff(Params{"id": "12", "x": "1"}, d.ExtractParameters("/clanek/12?x=1")); diff != "" {
		t.Errorf("ExtractParameters mismatch:\n%s", diff)
	}
	if d.ToPath(Params{"id": "3"}) != "/clanek/3" {
		t.Errorf("ToPath() = %q", d.ToPath(Params{"id": "3"}))
	}
	if len(d.ExtractParameters("/other")) != 0 {
		t.Error("no match should give empty params")
	}
}
