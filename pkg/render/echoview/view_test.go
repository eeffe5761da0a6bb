package echoview_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/goliatone/go-htmlrender/pkg/config"
	"github.com/goliatone/go-htmlrender/pkg/loader"
	"github.com/goliatone/go-htmlrender/pkg/render"
	"github.com/goliatone/go-htmlrender/pkg/render/echoview"
)

func TestView_RenderDefaultAndNamed(t *testing.T) {
	view := newView(t)

	var buf bytes.Buffer
	if err := view.Render(&buf, "hello.html", map[string]any{"name": "Ada"}, nil); err != nil {
		t.Fatalf("render default: %v", err)
	}
	if buf.String() != "<p>Hello, Ada!</p>" {
		t.Fatalf("unexpected default output %q", buf.String())
	}

	buf.Reset()
	if err := view.Render(&buf, "mail:hello.html", echo.Map{"name": "Ada"}, nil); err != nil {
		t.Fatalf("render mail: %v", err)
	}
	if buf.String() != "Hi Ada" {
		t.Fatalf("unexpected mail output %q", buf.String())
	}
}

func TestView_RejectsNonMapData(t *testing.T) {
	view := newView(t)
	var buf bytes.Buffer
	if err := view.Render(&buf, "hello.html", []string{"x"}, nil); err == nil {
		t.Fatalf("expected error for slice data")
	}
}

func TestView_RequiresRegisteredDefault(t *testing.T) {
	if _, err := echoview.New(render.NewRegistry(), "site"); err == nil {
		t.Fatalf("expected missing default renderer to fail")
	}
	if _, err := echoview.New(nil, "site"); err == nil {
		t.Fatalf("expected nil registry to fail")
	}
}

func TestView_Handler(t *testing.T) {
	view := newView(t)

	e := echo.New()
	e.Renderer = view
	e.GET("/render/*", view.Handler())

	cases := []struct {
		target string
		status int
		body   string
	}{
		{"/render/hello.html?name=Bo", http.StatusOK, "<p>Hello, Bo!</p>"},
		{"/render/hello.html?name=Bo&renderer=mail", http.StatusOK, "Hi Bo"},
		{"/render/missing.html", http.StatusNotFound, ""},
		{"/render/hello.html?renderer=pdf", http.StatusNotFound, ""},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.target, nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != tc.status {
			t.Fatalf("%s: expected status %d, got %d (%s)", tc.target, tc.status, rec.Code, rec.Body.String())
		}
		if tc.body != "" && rec.Body.String() != tc.body {
			t.Fatalf("%s: expected body %q, got %q", tc.target, tc.body, rec.Body.String())
		}
	}
}

func TestView_HandlerDoesNotServeOutsideRoots(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "page.html"), []byte("page"), 0o644); err != nil {
		t.Fatalf("write page: %v", err)
	}
	secret := filepath.Join(outside, "secret.txt")
	if err := os.WriteFile(secret, []byte("secret"), 0o644); err != nil {
		t.Fatalf("write secret: %v", err)
	}

	adapter, err := render.New(config.Values{
		"name":    "site",
		"loaders": []config.LoaderSpec{{Name: loader.NameFilesystem, Args: []any{root}}},
	})
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	registry := render.NewRegistry()
	registry.MustRegister(adapter)
	view, err := echoview.New(registry, "site")
	if err != nil {
		t.Fatalf("new view: %v", err)
	}

	e := echo.New()
	e.Renderer = view
	e.GET("/render/*", view.Handler())

	slashed := filepath.ToSlash(secret)
	for _, target := range []string{"/render/" + slashed, "/render//" + slashed, "/render///" + slashed} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d (%s)", target, rec.Code, rec.Body.String())
		}
		if rec.Body.String() == "secret" {
			t.Fatalf("%s: served a file outside the loader root", target)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/render//page.html", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "page" {
		t.Fatalf("expected page under the root, got %d %q", rec.Code, rec.Body.String())
	}
}

func newView(t *testing.T) *echoview.View {
	t.Helper()

	registry := render.NewRegistry()
	registry.MustRegister(mustAdapter(t, "site", map[string]string{"hello.html": "<p>Hello, {{ name }}!</p>"}))
	registry.MustRegister(mustAdapter(t, "mail", map[string]string{"hello.html": "Hi {{ name }}"}))

	view, err := echoview.New(registry, "site")
	if err != nil {
		t.Fatalf("new view: %v", err)
	}
	return view
}

func mustAdapter(t *testing.T, name string, templates map[string]string) *render.Adapter {
	t.Helper()

	adapter, err := render.New(config.Values{
		"name":    name,
		"loaders": []config.LoaderSpec{{Name: loader.NameMemory, Args: []any{templates}}},
	})
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	return adapter
}
