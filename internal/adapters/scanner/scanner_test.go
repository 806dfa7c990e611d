package scanner_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/cascade/internal/adapters/scanner"
	"go.trai.ch/cascade/internal/core/domain"
	"go.trai.ch/cascade/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func quietLogger(t *testing.T) *mocks.MockLogger {
	t.Helper()
	logger := mocks.NewMockLogger(gomock.NewController(t))
	logger.EXPECT().Info(gomock.Any()).AnyTimes()
	logger.EXPECT().Warn(gomock.Any()).AnyTimes()
	logger.EXPECT().Error(gomock.Any()).AnyTimes()
	return logger
}

func findDecl(t *testing.T, summary domain.FileSummary, name string) domain.Declaration {
	t.Helper()
	for _, decl := range summary.Decls {
		if decl.Name == name {
			return decl
		}
	}
	t.Fatalf("declaration %q not found in %s", name, summary.Path)
	return domain.Declaration{}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const goSource = `// Package greet says hello.
package greet

import (
	"fmt"
	"strings"
)

// Greeter renders greetings.
type Greeter struct {
	name string
}

func (g *Greeter) Greet(loud bool) string {
	msg := fmt.Sprintf("hello, %s", g.name)
	if loud {
		return strings.ToUpper(msg)
	}
	return msg
}

func NewGreeter(name string) *Greeter {
	return &Greeter{name: name}
}
`

func TestGoParser(t *testing.T) {
	summary, err := scanner.NewGoParser().Parse("greet.go", []byte(goSource))
	require.NoError(t, err)

	assert.Equal(t, "go", summary.Language)
	assert.Equal(t, "Package greet says hello.", summary.Doc)
	assert.Equal(t, []string{"fmt", "strings"}, summary.Imports)
	assert.False(t, summary.Approximate)
	assert.Regexp(t, `^[0-9a-f]{16}$`, summary.Hash)
	assert.Equal(t, 24, summary.Lines)

	greeter := findDecl(t, summary, "Greeter")
	assert.Equal(t, domain.DeclType, greeter.Kind)

	greet := findDecl(t, summary, "Greet")
	assert.Equal(t, domain.DeclMethod, greet.Kind)
	assert.Equal(t, []string{"loud"}, greet.Params)
	assert.Greater(t, greet.EndLine, greet.StartLine)

	ctor := findDecl(t, summary, "NewGreeter")
	assert.Equal(t, domain.DeclFunc, ctor.Kind)
	assert.Equal(t, []string{"name"}, ctor.Params)
}

const pythonSource = `"""Session helpers."""

import os
from datetime import timedelta


class Session:
    def refresh(self, ttl):
        return ttl


def new_session(user_id):
    return Session()
`

func TestPythonParser(t *testing.T) {
	summary, err := scanner.NewPythonParser().Parse("session.py", []byte(pythonSource))
	require.NoError(t, err)

	assert.Equal(t, "python", summary.Language)
	assert.Equal(t, "Session helpers.", summary.Doc)
	assert.Equal(t, []string{"os", "datetime"}, summary.Imports)

	session := findDecl(t, summary, "Session")
	assert.Equal(t, domain.DeclType, session.Kind)

	// self is dropped from the parameter list.
	refresh := findDecl(t, summary, "refresh")
	assert.Equal(t, domain.DeclMethod, refresh.Kind)
	assert.Equal(t, []string{"ttl"}, refresh.Params)

	ctor := findDecl(t, summary, "new_session")
	assert.Equal(t, domain.DeclFunc, ctor.Kind)
	assert.Equal(t, []string{"user_id"}, ctor.Params)
}

const jsSource = `// Store helpers.

import fs from 'node:fs';
const path = require('path');

class Store {
  load(key) {
    return key;
  }
}

const makeStore = (root) => new Store(root);

function clear() {}
`

func TestJavaScriptParser(t *testing.T) {
	summary, err := scanner.NewJavaScriptParser().Parse("store.js", []byte(jsSource))
	require.NoError(t, err)

	assert.Equal(t, "javascript", summary.Language)
	assert.Equal(t, "Store helpers.", summary.Doc)
	assert.Contains(t, summary.Imports, "node:fs")
	assert.Contains(t, summary.Imports, "path")

	store := findDecl(t, summary, "Store")
	assert.Equal(t, domain.DeclType, store.Kind)

	load := findDecl(t, summary, "load")
	assert.Equal(t, domain.DeclMethod, load.Kind)
	assert.Equal(t, []string{"key"}, load.Params)

	// Arrow functions bound to const count as free-standing functions.
	maker := findDecl(t, summary, "makeStore")
	assert.Equal(t, domain.DeclFunc, maker.Kind)
	assert.Equal(t, []string{"root"}, maker.Params)

	findDecl(t, summary, "clear")
}

const rustSource = `use std::fmt;

pub struct Cursor {
    offset: usize,
}

pub fn advance(cursor: &mut Cursor) {
    cursor.offset += 1;
}
`

func TestGenericParser(t *testing.T) {
	summary, err := scanner.NewGenericParser().Parse("cursor.rs", []byte(rustSource))
	require.NoError(t, err)

	assert.Equal(t, "generic", summary.Language)
	assert.True(t, summary.Approximate)
	assert.Equal(t, []string{"std::fmt"}, summary.Imports)

	cursor := findDecl(t, summary, "Cursor")
	assert.Equal(t, domain.DeclType, cursor.Kind)
	// Line patterns cannot see block ends.
	assert.Equal(t, cursor.StartLine, cursor.EndLine)

	advance := findDecl(t, summary, "advance")
	assert.Equal(t, domain.DeclFunc, advance.Kind)
}

func TestRegistry_ParserFor(t *testing.T) {
	registry := scanner.NewDefaultRegistry()

	goParser, ok := registry.ParserFor("cmd/main.go")
	require.True(t, ok)
	assert.Equal(t, "go", goParser.Language())

	jsParser, ok := registry.ParserFor("web/app.MJS")
	require.True(t, ok)
	assert.Equal(t, "javascript", jsParser.Language())

	_, ok = registry.ParserFor("notes.txt")
	assert.False(t, ok)
}

func TestScan_WalksRootsAndParses(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", goSource)
	writeFile(t, root, "session.py", pythonSource)
	writeFile(t, root, "README.md", "# readme\n")

	s := scanner.NewScanner(quietLogger(t), nil)
	summaries, issues, err := s.Scan(t.Context(), []string{root}, []string{".go", ".py"})

	require.NoError(t, err)
	assert.Empty(t, issues)
	require.Len(t, summaries, 2)

	goKey := filepath.ToSlash(filepath.Join(root, "main.go"))
	require.Contains(t, summaries, goKey)
	assert.Equal(t, "go", summaries[goKey].Language)
	findDecl(t, summaries[goKey], "NewGreeter")
}

func TestScan_SkipsExcludedDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", goSource)
	writeFile(t, root, filepath.Join("vendor", "dep.go"), goSource)

	s := scanner.NewScanner(quietLogger(t), []string{"vendor"})
	summaries, _, err := s.Scan(t.Context(), []string{root}, []string{".go"})

	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Contains(t, summaries, filepath.ToSlash(filepath.Join(root, "main.go")))
}

func TestScan_HonorsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "generated.go\n")
	writeFile(t, root, "main.go", goSource)
	writeFile(t, root, "generated.go", goSource)

	s := scanner.NewScanner(quietLogger(t), nil)
	summaries, _, err := s.Scan(t.Context(), []string{root}, []string{".go"})

	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Contains(t, summaries, filepath.ToSlash(filepath.Join(root, "main.go")))
}

func TestScan_UnknownExtensionFallsBackToGeneric(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "cursor.rs", rustSource)

	s := scanner.NewScanner(quietLogger(t), nil)
	summaries, issues, err := s.Scan(t.Context(), []string{root}, []string{".rs"})

	require.NoError(t, err)
	assert.Empty(t, issues)
	require.Len(t, summaries, 1)

	key := filepath.ToSlash(filepath.Join(root, "cursor.rs"))
	require.Contains(t, summaries, key)
	assert.True(t, summaries[key].Approximate)
}

func TestScan_UnusableRootFails(t *testing.T) {
	s := scanner.NewScanner(quietLogger(t), nil)

	_, _, err := s.Scan(t.Context(), []string{filepath.Join(t.TempDir(), "missing")}, []string{".go"})

	assert.ErrorContains(t, err, domain.ErrScanFailed.Error())
}
