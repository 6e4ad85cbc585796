package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	revbrief "github.com/alnah/go-revbrief"
)

// ---------------------------------------------------------------------------
// Test Infrastructure - Fake exporter and pool
// ---------------------------------------------------------------------------

// fakePDF is what fakeExporter returns as the document body.
var fakePDF = []byte("%PDF-1.3 fake")

// fakeExporter records inputs and returns a canned result.
type fakeExporter struct {
	mu     sync.Mutex
	inputs []revbrief.Input
	err    error
	pages  int
}

func (f *fakeExporter) Export(_ context.Context, in revbrief.Input) (*revbrief.Result, error) {
	f.mu.Lock()
	f.inputs = append(f.inputs, in)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	res := &revbrief.Result{
		Markup: revbrief.Normalize(in.Text),
		HTML:   []byte("<html>" + in.Text + "</html>"),
	}
	if in.HTMLOnly {
		return res, nil
	}
	res.Document = &revbrief.Document{
		Name:  revbrief.DefaultDocumentName,
		PDF:   fakePDF,
		Pages: make([]revbrief.PagePlacement, max(f.pages, 1)),
	}
	return res, nil
}

func (f *fakeExporter) calls() []revbrief.Input {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]revbrief.Input(nil), f.inputs...)
}

// fakePool hands out a single shared fakeExporter.
type fakePool struct {
	exp        BriefExporter
	acquireErr error
	size       int

	mu       sync.Mutex
	acquired int
	released int
	closed   bool
	opts     []revbrief.Option
}

func (p *fakePool) Acquire() (BriefExporter, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	p.acquired++
	return p.exp, nil
}

func (p *fakePool) Release(BriefExporter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released++
}

func (p *fakePool) Size() int {
	if p.size < 1 {
		return 1
	}
	return p.size
}

func (p *fakePool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// newTestEnv returns an Environment whose pool factory yields pool.
func newTestEnv(pool *fakePool) (*Environment, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	env := DefaultEnv()
	env.Stdin = &bytes.Buffer{}
	env.Stdout = &stdout
	env.Stderr = &stderr
	env.NewPool = func(n int, opts ...revbrief.Option) Pool {
		pool.mu.Lock()
		pool.opts = opts
		pool.mu.Unlock()
		return pool
	}
	return env, &stdout, &stderr
}

// setupTestDir writes files (relative path -> content) under a temp dir.
func setupTestDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}
