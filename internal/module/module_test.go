package module

import (
	"os"
	"path/filepath"
	"testing"

	"oak/internal/errors"
	"oak/internal/value"
)

func writeFile(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestLoadCompilesModule(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "greet.oak", `println "hi"`)

	l := NewLoader(value.NewHeap(), errors.NewReporter())
	m, err := l.Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Name != "greet" {
		t.Fatalf("expected module name 'greet', got %q", m.Name)
	}
	if m.Program == nil || len(m.Program.Code) == 0 {
		t.Fatalf("expected compiled code, got %#v", m.Program)
	}
}

func TestLoadCachesByResolvedPath(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "once.oak", `var x = 1`)

	l := NewLoader(value.NewHeap(), errors.NewReporter())
	m1, err := l.Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	m2, err := l.Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m1 != m2 {
		t.Fatalf("expected the second Load to return the cached module")
	}
	if m2.ID != m1.ID {
		t.Fatalf("expected stable module id across cached loads")
	}
}

func TestLoadAssignsSequentialIDs(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.oak", `var x = 1`)
	b := writeFile(t, dir, "b.oak", `var y = 2`)

	l := NewLoader(value.NewHeap(), errors.NewReporter())
	ma, err := l.Load(a, nil)
	if err != nil {
		t.Fatalf("Load a: %v", err)
	}
	mb, err := l.Load(b, nil)
	if err != nil {
		t.Fatalf("Load b: %v", err)
	}
	if mb.ID == ma.ID {
		t.Fatalf("expected distinct module ids, got %d and %d", ma.ID, mb.ID)
	}
}

func TestLoadMissingFile(t *testing.T) {
	l := NewLoader(value.NewHeap(), errors.NewReporter())
	if _, err := l.Load(filepath.Join(t.TempDir(), "missing.oak"), nil); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

func TestLoadSearchPath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "util.oak", `var z = 3`)

	l := NewLoader(value.NewHeap(), errors.NewReporter())
	l.AddSearchPath(dir)
	m, err := l.Load("util", nil)
	if err != nil {
		t.Fatalf("Load via search path: %v", err)
	}
	if m.Name != "util" {
		t.Fatalf("expected module name 'util', got %q", m.Name)
	}
}

func TestLoadKeepsPipelineArtifacts(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "greet.oak", `println "hi"`)

	l := NewLoader(value.NewHeap(), errors.NewReporter())
	m, err := l.Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Source != `println "hi"` {
		t.Fatalf("expected Source to hold the raw file text, got %q", m.Source)
	}
	if len(m.Tokens) == 0 {
		t.Fatalf("expected a non-empty token stream")
	}
	if len(m.Stmts) == 0 {
		t.Fatalf("expected a non-empty statement list")
	}
}

func TestLoadSourceCompilesWithoutAFile(t *testing.T) {
	l := NewLoader(value.NewHeap(), errors.NewReporter())
	m, err := l.LoadSource("-e", `var x = 1 + 2`, nil)
	if err != nil {
		t.Fatalf("LoadSource: %v", err)
	}
	if m.Name != "-e" || m.Path != "" {
		t.Fatalf("got %#v", m)
	}
	if m.Program == nil || len(m.Program.Code) == 0 {
		t.Fatalf("expected compiled code, got %#v", m.Program)
	}
}

func TestLoadSourceRejectsParseErrors(t *testing.T) {
	l := NewLoader(value.NewHeap(), errors.NewReporter())
	if _, err := l.LoadSource("-e", `var = `, nil); err == nil {
		t.Fatalf("expected a parse error")
	}
}
