package sourceparse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_UnrecognizedExtensionYieldsEmpty(t *testing.T) {
	p := New()
	syms, err := p.Parse(context.Background(), "notes.txt", []byte("hello"))
	require.NoError(t, err)
	assert.Empty(t, syms)
}

func TestParseFile_UnreadablePathYieldsEmptyNotError(t *testing.T) {
	p := New()
	syms, err := p.ParseFile(context.Background(), "/nonexistent/does-not-exist.ts")
	require.NoError(t, err)
	assert.Empty(t, syms)
}

func TestParse_TypeScriptFunctionAndInterface(t *testing.T) {
	src := []byte(`
/** Adds two numbers. */
export function add(a: number, b: number): number {
  return a + b;
}

interface Point {
  x: number;
  y: number;
}
`)
	p := New()
	syms, err := p.Parse(context.Background(), "math.ts", src)
	require.NoError(t, err)

	var names []string
	for _, s := range syms {
		names = append(names, s.Name)
	}
	assert.Contains(t, names, "add")
	assert.Contains(t, names, "Point")

	for _, s := range syms {
		if s.Name == "add" {
			assert.Equal(t, KindFunction, s.Kind)
			assert.Equal(t, "Adds two numbers.", s.DocComment)
		}
		if s.Name == "Point" {
			assert.Equal(t, KindInterface, s.Kind)
		}
	}
}

func TestParse_ReactComponentDetection(t *testing.T) {
	src := []byte(`
export function Greeting(props) {
  return <div>{props.name}</div>;
}

export const useCounter = () => {
  return 0;
};
`)
	p := New()
	syms, err := p.Parse(context.Background(), "greeting.tsx", src)
	require.NoError(t, err)

	kinds := map[string]SymbolKind{}
	for _, s := range syms {
		kinds[s.Name] = s.Kind
	}
	assert.Equal(t, KindComponent, kinds["Greeting"])
	assert.Equal(t, KindHook, kinds["useCounter"])
}

func TestParse_ClassMethodsAreNamespacedWithClassName(t *testing.T) {
	src := []byte(`
class Widget {
  render() {
    return this.value;
  }
}
`)
	p := New()
	syms, err := p.Parse(context.Background(), "widget.ts", src)
	require.NoError(t, err)

	var names []string
	for _, s := range syms {
		names = append(names, s.Name)
	}
	assert.Contains(t, names, "Widget")
	assert.Contains(t, names, "Widget.render")
}

func TestParse_GoFallsBackToRegexExtractor(t *testing.T) {
	src := []byte(`package sample

func Add(a, b int) int {
	return a + b
}

type Config struct {
	Name string
}
`)
	p := New()
	syms, err := p.Parse(context.Background(), "sample.go", src)
	require.NoError(t, err)

	var names []string
	for _, s := range syms {
		names = append(names, s.Name)
	}
	assert.Contains(t, names, "Add")
	assert.Contains(t, names, "Config")
}

func TestParse_PythonUsesIndentationForBodyExtent(t *testing.T) {
	src := []byte("def greet(name):\n    return \"hi \" + name\n\ndef other():\n    pass\n")
	p := New()
	syms, err := p.Parse(context.Background(), "greet.py", src)
	require.NoError(t, err)
	require.Len(t, syms, 2)
	assert.Equal(t, "greet", syms[0].Name)
	assert.Equal(t, 1, syms[0].StartLine)
	assert.Equal(t, 2, syms[0].EndLine)
}
