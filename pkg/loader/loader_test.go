package loader_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/flosch/pongo2/v6"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-htmlrender/pkg/loader"
)

func TestDefaultRegistryNames(t *testing.T) {
	got := loader.Default().Names()
	want := []string{"filesystem", "fs", "http", "memory"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("registry names mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_UnknownLoader(t *testing.T) {
	_, err := loader.Default().Resolve("Twig_Loader_Filesystem", "/tmp")
	if !errors.Is(err, loader.ErrUnknownLoader) {
		t.Fatalf("expected ErrUnknownLoader, got %v", err)
	}
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	r := loader.NewRegistry()
	factory := func(args ...any) (pongo2.TemplateLoader, error) {
		return loader.NewMemory()
	}
	if err := r.Register("mem", factory); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register("mem", factory); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
	if err := r.Register(" ", factory); err == nil {
		t.Fatalf("expected blank name to fail")
	}
	if !r.Has("mem") {
		t.Fatalf("expected mem to be registered")
	}
}

func TestRegistry_FactoryErrorIsWrapped(t *testing.T) {
	_, err := loader.Default().Resolve(loader.NameFilesystem, filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Fatalf("expected missing directory to fail")
	}
}

func TestChain_TriesLoadersInOrder(t *testing.T) {
	first, err := loader.NewMemory(map[string]string{"page.html": "first"})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	second, err := loader.NewMemory(map[string]string{
		"page.html":  "second",
		"other.html": "other",
	})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}

	chain := loader.NewChain(first, nil, second)
	if chain.Len() != 2 {
		t.Fatalf("expected nil loaders to be skipped, got %d", chain.Len())
	}

	if got := mustRead(t, chain, "page.html"); got != "first" {
		t.Fatalf("expected first loader to win, got %q", got)
	}
	if got := mustRead(t, chain, "./other.html"); got != "other" {
		t.Fatalf("expected fallback to second loader, got %q", got)
	}
}

func TestChain_NotFound(t *testing.T) {
	chain := loader.NewChain()
	_, err := chain.Get("missing.html")

	var notFound *loader.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if notFound.Name != "missing.html" {
		t.Fatalf("unexpected name %q", notFound.Name)
	}
	if !errors.Is(err, loader.ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound in chain")
	}
	if chain.Exists("missing.html") {
		t.Fatalf("expected Exists to be false")
	}
}

func TestFilesystem_MultipleDirectories(t *testing.T) {
	primary := t.TempDir()
	shared := t.TempDir()
	writeFile(t, filepath.Join(shared, "layout.html"), "shared layout")
	writeFile(t, filepath.Join(primary, "index.html"), "primary index")

	l, err := loader.NewFilesystem(primary, []string{shared})
	if err != nil {
		t.Fatalf("filesystem: %v", err)
	}
	chain := loader.NewChain(l)

	if got := mustRead(t, chain, "index.html"); got != "primary index" {
		t.Fatalf("unexpected index %q", got)
	}
	if got := mustRead(t, chain, "layout.html"); got != "shared layout" {
		t.Fatalf("unexpected layout %q", got)
	}
}

func TestChain_StaysInsideLoaderRoots(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	writeFile(t, filepath.Join(root, "index.html"), "inside")
	secret := filepath.Join(outside, "secret.txt")
	writeFile(t, secret, "secret")

	l, err := loader.NewFilesystem(root)
	if err != nil {
		t.Fatalf("filesystem: %v", err)
	}
	chain := loader.NewChain(l)

	rel, err := filepath.Rel(root, secret)
	if err != nil {
		t.Fatalf("rel: %v", err)
	}
	for _, name := range []string{secret, "//" + secret, filepath.ToSlash(rel), "/"} {
		if chain.Exists(name) {
			t.Fatalf("expected %q to stay unresolved outside the root", name)
		}
		if _, err := chain.Get(chain.Abs("", name)); !errors.Is(err, loader.ErrTemplateNotFound) {
			t.Fatalf("expected not found for %q, got %v", name, err)
		}
	}

	if got := mustRead(t, chain, "/index.html"); got != "inside" {
		t.Fatalf("expected leading slash to resolve under the root, got %q", got)
	}
	if got := mustRead(t, chain, "../index.html"); got != "inside" {
		t.Fatalf("expected parent segments to fold under the root, got %q", got)
	}
}

func TestFilesystem_RequiresDirectory(t *testing.T) {
	if _, err := loader.NewFilesystem(); err == nil {
		t.Fatalf("expected error without directories")
	}
	if _, err := loader.NewFilesystem(42); err == nil {
		t.Fatalf("expected error for non-string argument")
	}
}

func TestFS_SubDirectory(t *testing.T) {
	fsys := fstest.MapFS{
		"views/hello.txt": &fstest.MapFile{Data: []byte("hello from fs")},
	}
	l, err := loader.NewFS(fsys, "views")
	if err != nil {
		t.Fatalf("fs: %v", err)
	}
	if got := mustRead(t, loader.NewChain(l), "hello.txt"); got != "hello from fs" {
		t.Fatalf("unexpected content %q", got)
	}

	if _, err := loader.NewFS("not-a-fs"); err == nil {
		t.Fatalf("expected error for non fs.FS argument")
	}
}

func TestMemory_RejectsNonStringSource(t *testing.T) {
	if _, err := loader.NewMemory(map[string]any{"a.html": 1}); err == nil {
		t.Fatalf("expected error for non-string template")
	}
	if _, err := loader.NewMemory("a.html"); err == nil {
		t.Fatalf("expected error for non-map argument")
	}
}

func TestHTTP_FetchesRelativeToBase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/templates/mail/welcome.html" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, "welcome {{ user }}")
	}))
	defer srv.Close()

	l, err := loader.NewHTTP(srv.URL+"/templates", "2s")
	if err != nil {
		t.Fatalf("http: %v", err)
	}
	chain := loader.NewChain(l)

	if got := mustRead(t, chain, "mail/welcome.html"); got != "welcome {{ user }}" {
		t.Fatalf("unexpected body %q", got)
	}
	if chain.Exists("mail/missing.html") {
		t.Fatalf("expected 404 to be reported as missing")
	}
}

func TestHTTP_RejectsInvalidArguments(t *testing.T) {
	cases := [][]any{
		{},
		{""},
		{"ftp://example.com/templates"},
		{"http://example.com", "soon"},
		{"http://example.com", 5},
	}
	for _, args := range cases {
		if _, err := loader.NewHTTP(args...); err == nil {
			t.Fatalf("expected error for args %v", args)
		}
	}
}

func mustRead(t *testing.T, l pongo2.TemplateLoader, name string) string {
	t.Helper()

	r, err := l.Get(l.Abs("", name))
	if err != nil {
		t.Fatalf("get %s: %v", name, err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(data)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
