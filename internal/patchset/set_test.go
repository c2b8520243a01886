package patchset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bianoble/composer-patches/internal/patch"
)

type mapFetcher struct {
	docs  map[string]string
	calls map[string]int
}

func newFetcher(docs map[string]string) *mapFetcher {
	return &mapFetcher{docs: docs, calls: map[string]int{}}
}

func (m *mapFetcher) Bytes(_ context.Context, url string) ([]byte, error) {
	m.calls[url]++
	d, ok := m.docs[url]
	if !ok {
		return nil, fmt.Errorf("%s: not found", url)
	}
	return []byte(d), nil
}

func (m *mapFetcher) JSON(ctx context.Context, url string, v any) error {
	data, err := m.Bytes(ctx, url)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func mustParse(t *testing.T, raw string) Config {
	t.Helper()
	cfg, err := Parse(json.RawMessage(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return cfg
}

func urls(patches []*patch.Patch) []string {
	out := make([]string, 0, len(patches))
	for _, p := range patches {
		out = append(out, p.URL)
	}
	return out
}

func TestResolveConstraintMatch(t *testing.T) {
	f := newFetcher(map[string]string{"https://x/p1.patch": "body1"})
	s := New(mustParse(t, `{"foo": [{"url": "https://x/p1.patch", "constraint": ">=1.0"}]}`), f, Options{})

	got, err := s.Resolve(context.Background(), "foo", "1.2.0")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d patches, want 1", len(got))
	}
	if string(got[0].Content) != "body1" {
		t.Errorf("content = %q", got[0].Content)
	}
	if got[0].Checksum == "" {
		t.Error("checksum not computed")
	}

	got, err = s.Resolve(context.Background(), "foo", "0.9.0")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d patches for unmatched version", len(got))
	}
}

func TestResolveUnknownPackage(t *testing.T) {
	s := New(mustParse(t, `{"foo": ["https://x/p1.patch"]}`), newFetcher(nil), Options{})
	got, err := s.Resolve(context.Background(), "bar", "1.0.0")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %v", urls(got))
	}
}

func TestResolveOrderExactThenGlobs(t *testing.T) {
	f := newFetcher(map[string]string{
		"https://x/exact-1.patch": "e1",
		"https://x/exact-2.patch": "e2",
		"https://x/glob-a.patch":  "ga",
		"https://x/glob-b.patch":  "gb",
	})
	cfg := mustParse(t, `{
		"vendor/*": ["https://x/glob-b.patch"],
		"vendor/foo": ["https://x/exact-1.patch", {"url": "https://x/exact-2.patch", "title": "second"}],
		"vend*/f*": "https://x/glob-a.patch",
		"other/*": ["https://x/missing.patch"]
	}`)
	s := New(cfg, f, Options{})

	got, err := s.Resolve(context.Background(), "vendor/foo", "2.0.0")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := []string{
		"https://x/exact-1.patch",
		"https://x/exact-2.patch",
		"https://x/glob-a.patch",
		"https://x/glob-b.patch",
	}
	if diff := cmp.Diff(want, urls(got)); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if got[1].Title != "second" {
		t.Errorf("title = %q", got[1].Title)
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	f := newFetcher(map[string]string{
		"https://x/a.patch": "a",
		"https://x/b.patch": "b",
	})
	s := New(mustParse(t, `{"foo": ["https://x/a.patch", "https://x/b.patch"]}`), f, Options{})

	first, err := s.Resolve(context.Background(), "foo", "1.0.0")
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Resolve(context.Background(), "foo", "1.0.0")
	if err != nil {
		t.Fatal(err)
	}
	for i := range first {
		if first[i].Checksum != second[i].Checksum || first[i].URL != second[i].URL {
			t.Errorf("patch %d differs between resolutions", i)
		}
	}
}

func TestResolveTokens(t *testing.T) {
	f := newFetcher(map[string]string{"https://x/vendor/foo/1.2.0.patch": "tok"})
	s := New(mustParse(t, `{"vendor/foo": ["https://x/{package}/{version}.patch"]}`), f, Options{})

	got, err := s.Resolve(context.Background(), "vendor/foo", "1.2.0")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if diff := cmp.Diff([]string{"https://x/vendor/foo/1.2.0.patch"}, urls(got)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestResolveIndirectDocuments(t *testing.T) {
	f := newFetcher(map[string]string{
		"https://x/list.json":   `[{"url": "https://x/a.patch", "title": "A"}, {"url": "https://x/more.json"}]`,
		"https://x/more.json":   `{"foo": [{"url": "https://x/b.patch", "constraint": "^1.0"}, {"url": "https://x/c.patch", "constraint": "^2.0"}], "bar": ["https://x/z.patch"]}`,
		"https://x/a.patch":     "a",
		"https://x/b.patch":     "b",
		"https://x/c.patch":     "c",
		"https://x/local.patch": "l",
	})
	s := New(mustParse(t, `{"foo": ["https://x/list.json", "https://x/local.patch"]}`), f, Options{})

	got, err := s.Resolve(context.Background(), "foo", "1.4.2")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := []string{"https://x/a.patch", "https://x/b.patch", "https://x/local.patch"}
	if diff := cmp.Diff(want, urls(got)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if got[0].Title != "A" {
		t.Errorf("title = %q", got[0].Title)
	}
}

func TestResolveNestedGroupConstraint(t *testing.T) {
	f := newFetcher(map[string]string{"https://x/a.patch": "a", "https://x/b.patch": "b"})
	cfg := mustParse(t, `{"foo": [{"constraint": "<2.0", "patches": ["https://x/a.patch", "https://x/b.patch"]}]}`)
	s := New(cfg, f, Options{})

	got, err := s.Resolve(context.Background(), "foo", "1.0.0")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("got %v", urls(got))
	}
	got, err = s.Resolve(context.Background(), "foo", "2.1.0")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("got %v for excluded version", urls(got))
	}
}

func TestResolveCycle(t *testing.T) {
	f := newFetcher(map[string]string{
		"https://x/one.json": `["https://x/two.json"]`,
		"https://x/two.json": `["https://x/one.json"]`,
	})
	s := New(mustParse(t, `{"foo": ["https://x/one.json"]}`), f, Options{})

	_, err := s.Resolve(context.Background(), "foo", "1.0.0")
	if !errors.Is(err, ErrCycle) {
		t.Fatalf("err = %v, want ErrCycle", err)
	}
}

func TestResolveSharedDocumentIsNotACycle(t *testing.T) {
	f := newFetcher(map[string]string{
		"https://x/shared.json": `["https://x/a.patch"]`,
		"https://x/a.patch":     "a",
	})
	s := New(mustParse(t, `{"foo": ["https://x/shared.json", "https://x/shared.json"]}`), f, Options{})

	got, err := s.Resolve(context.Background(), "foo", "1.0.0")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d patches, want 2", len(got))
	}
}

func TestResolveRemoteConfig(t *testing.T) {
	f := newFetcher(map[string]string{
		"https://x/patches.json": `{"foo": ["https://x/a.patch"]}`,
		"https://x/a.patch":      "a",
	})
	s := New(mustParse(t, `"https://x/patches.json"`), f, Options{})

	got, err := s.Resolve(context.Background(), "foo", "1.0.0")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %v", urls(got))
	}
	if _, err := s.Resolve(context.Background(), "foo", "1.0.0"); err != nil {
		t.Fatal(err)
	}
	if f.calls["https://x/patches.json"] != 1 {
		t.Errorf("document fetched %d times", f.calls["https://x/patches.json"])
	}
}

func TestResolveRemoteConfigCycle(t *testing.T) {
	f := newFetcher(map[string]string{
		"https://x/a.json": `"https://x/b.json"`,
		"https://x/b.json": `"https://x/a.json"`,
	})
	s := New(mustParse(t, `"https://x/a.json"`), f, Options{})

	_, err := s.Resolve(context.Background(), "foo", "1.0.0")
	if !errors.Is(err, ErrCycle) {
		t.Fatalf("err = %v, want ErrCycle", err)
	}
	if f.calls["https://x/a.json"] != 1 || f.calls["https://x/b.json"] != 1 {
		t.Errorf("calls = %v, want one per document", f.calls)
	}
}

func TestResolveDocumentSingleDescriptor(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		title string
	}{
		{"url", `{"url": "https://x/a.patch", "title": "Fix A"}`, "Fix A"},
		{"group", `{"constraint": ">=1.0", "patches": [{"url": "https://x/a.patch", "title": "Fix A"}]}`, "Fix A"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFetcher(map[string]string{
				"https://x/doc.json": tt.doc,
				"https://x/a.patch":  "a",
			})
			s := New(mustParse(t, `{"foo": ["https://x/doc.json"]}`), f, Options{})

			got, err := s.Resolve(context.Background(), "foo", "1.0.0")
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if len(got) != 1 {
				t.Fatalf("got %v, want one patch", urls(got))
			}
			if got[0].Title != tt.title {
				t.Errorf("title = %q, want %q", got[0].Title, tt.title)
			}
		})
	}
}

func TestResolveDocumentBadDescriptor(t *testing.T) {
	f := newFetcher(map[string]string{"https://x/doc.json": `{"title": "x", "patches": []}`})
	s := New(mustParse(t, `{"foo": ["https://x/doc.json"]}`), f, Options{})

	if _, err := s.Resolve(context.Background(), "foo", "1.0.0"); err == nil {
		t.Fatal("expected an error for a descriptor without url or patches")
	}
}

func TestResolveRelativePathUsesBaseDir(t *testing.T) {
	base := filepath.Join("vendor", "acme", "patches")
	want := filepath.Join(base, "fix.patch")
	f := newFetcher(map[string]string{want: "fix"})
	s := New(mustParse(t, `{"foo": ["fix.patch"]}`), f, Options{BaseDir: base})

	got, err := s.Resolve(context.Background(), "foo", "1.0.0")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(got) != 1 || got[0].URL != want {
		t.Errorf("got %v, want [%s]", urls(got), want)
	}
}

func TestResolveFetchErrorPropagates(t *testing.T) {
	s := New(mustParse(t, `{"foo": ["https://x/gone.patch"]}`), newFetcher(nil), Options{})
	if _, err := s.Resolve(context.Background(), "foo", "1.0.0"); err == nil {
		t.Fatal("expected fetch error")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
		empty   bool
	}{
		{name: "null", raw: `null`, empty: true},
		{name: "object", raw: `{"a": ["u"]}`},
		{name: "url", raw: `"https://x/p.json"`},
		{name: "empty url", raw: `""`, wantErr: true},
		{name: "number", raw: `42`, wantErr: true},
		{name: "bad entry", raw: `{"a": [{"title": "no url"}]}`, wantErr: true},
		{name: "bad entries", raw: `{"a": 3}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse(json.RawMessage(tt.raw))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if cfg.Empty() != tt.empty {
				t.Errorf("Empty() = %v, want %v", cfg.Empty(), tt.empty)
			}
		})
	}
}

func TestSatisfies(t *testing.T) {
	tests := []struct {
		constraint string
		version    string
		want       bool
		wantErr    bool
	}{
		{"", "dev-main", true, false},
		{"*", "1.0.0", true, false},
		{">=1.0", "1.2.0", true, false},
		{">=1.0", "0.9", false, false},
		{"^1.2", "1.9.9", true, false},
		{"^1.2", "2.0.0", false, false},
		{"1.2.*", "1.2.7", true, false},
		{"~1.2.0", "1.3.0", false, false},
		{">=1.0 <2.0", "1.5.0", true, false},
		{">=1.0, <2.0", "2.5.0", false, false},
		{"^1.0 | ^3.0", "3.1.0", true, false},
		{"^1.0 || ^3.0", "2.1.0", false, false},
		{">=1.0", "1.2.0.0", true, false},
		{">=1.0", "v1.2.0", true, false},
		{">=1.0", "dev-main", false, false},
		{"not a constraint!!", "1.0.0", false, true},
	}
	for _, tt := range tests {
		got, err := Satisfies(tt.constraint, tt.version)
		if (err != nil) != tt.wantErr {
			t.Errorf("Satisfies(%q, %q) err = %v", tt.constraint, tt.version, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Satisfies(%q, %q) = %v, want %v", tt.constraint, tt.version, got, tt.want)
		}
	}
}
