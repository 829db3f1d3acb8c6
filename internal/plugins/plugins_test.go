package plugins

import (
	"errors"
	"testing"

	"github.com/shaiso/Flust/internal/ir"
)

func node(pluginType string, props map[string]any) *ir.Node {
	return &ir.Node{ID: "n1", PluginType: pluginType, Properties: props}
}

// Registry Tests

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	// Пустой реестр
	if r.Count() != 0 {
		t.Errorf("expected empty registry")
	}

	// Регистрация
	r.Register(NewLegacyCodePlugin())
	if r.Count() != 1 {
		t.Errorf("expected 1 plugin, got %d", r.Count())
	}

	// Получение по типу и по алиасу
	for _, typ := range []string{"legacy-code", "legacy_code"} {
		p, err := r.Get(typ)
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", typ, err)
		}
		if p.Type() != "legacy-code" {
			t.Errorf("expected legacy-code, got %s", p.Type())
		}
	}

	// Несуществующий тип
	_, err := r.Get("unknown")
	if !errors.Is(err, ErrUnknownPluginType) {
		t.Errorf("expected ErrUnknownPluginType, got %v", err)
	}

	// Повторная регистрация заменяет плагин, алиасы сохраняются
	r.Register(NewLegacyCodePlugin())
	if r.Count() != 1 {
		t.Errorf("re-register should replace, got %d plugins", r.Count())
	}
	if _, err := r.Get("legacy_code"); err != nil {
		t.Errorf("alias lost after re-register: %v", err)
	}
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	expectedTypes := []string{"call-function", "debug", "function-definition", "legacy-code", "start-node"}
	if r.Count() != len(expectedTypes) {
		t.Fatalf("expected %d types, got %d", len(expectedTypes), r.Count())
	}
	for _, typ := range expectedTypes {
		if _, err := r.Get(typ); err != nil {
			t.Errorf("default registry should have %s: %v", typ, err)
		}
	}

	descs := r.Descriptors()
	if len(descs) != len(expectedTypes) {
		t.Fatalf("expected %d descriptors, got %d", len(expectedTypes), len(descs))
	}
	for i, d := range descs {
		if d.ID != expectedTypes[i] {
			t.Errorf("descriptor %d: expected %s, got %s", i, expectedTypes[i], d.ID)
		}
		if d.Name == "" || d.Category == "" {
			t.Errorf("descriptor %s should have name and category", d.ID)
		}
	}
}

// Call Function Tests

func TestCallFunctionPlugin_Render(t *testing.T) {
	mapped := []ir.Connection{{From: "start", To: "n1", VariableMapping: map[string]string{"x": "42", "y": "name"}}}

	tests := []struct {
		name     string
		props    map[string]any
		incoming []ir.Connection
		expected string
	}{
		{
			name:     "bare call",
			props:    map[string]any{"target_function": "ping"},
			expected: "ping().await;",
		},
		{
			name: "arguments in declared order",
			props: map[string]any{
				"target_function": "my_func",
				"arguments":       []any{map[string]any{"name": "y"}, map[string]any{"name": "x"}},
			},
			incoming: mapped,
			expected: "my_func(name, 42).await;",
		},
		{
			name: "arguments as json string",
			props: map[string]any{
				"target_function": "my_func",
				"arguments":       `[{"name":"x","type":"i32"}]`,
			},
			incoming: mapped,
			expected: "my_func(42).await;",
		},
		{
			name: "declared binding",
			props: map[string]any{
				"target_function": "compute",
				"return_variable": "result",
			},
			expected: "let result = compute().await;",
		},
		{
			name: "mutable typed binding",
			props: map[string]any{
				"target_function": "compute",
				"return_variable": "result",
				"is_mutable":      true,
				"return_type":     "i32",
			},
			expected: "let mut result: i32 = compute().await;",
		},
		{
			name: "assignment",
			props: map[string]any{
				"target_function":  "compute",
				"return_variable":  "result",
				"declare_variable": false,
				"is_mutable":       true,
			},
			expected: "result = compute().await;",
		},
		{
			name: "only first incoming connection is used",
			props: map[string]any{
				"target_function": "my_func",
				"arguments":       []any{map[string]any{"name": "x"}},
			},
			incoming: []ir.Connection{
				{From: "a", To: "n1", VariableMapping: map[string]string{"x": "first"}},
				{From: "b", To: "n1", VariableMapping: map[string]string{"x": "second"}},
			},
			expected: "my_func(first).await;",
		},
	}

	p := NewCallFunctionPlugin()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Render(node("call-function", tt.props), tt.incoming, &RenderContext{})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestCallFunctionPlugin_Errors(t *testing.T) {
	tests := []struct {
		name     string
		props    map[string]any
		incoming []ir.Connection
		wantErr  error
		wantKey  string
	}{
		{
			name:    "missing target",
			props:   map[string]any{},
			wantErr: ErrMissingProperty,
			wantKey: "target_function",
		},
		{
			name: "no incoming connection",
			props: map[string]any{
				"target_function": "f",
				"arguments":       []any{map[string]any{"name": "x"}},
			},
			wantErr: ErrUnmappedArgument,
			wantKey: "x",
		},
		{
			name: "mapping without argument",
			props: map[string]any{
				"target_function": "f",
				"arguments":       []any{map[string]any{"name": "x"}, map[string]any{"name": "y"}},
			},
			incoming: []ir.Connection{{From: "a", To: "n1", VariableMapping: map[string]string{"x": "1"}}},
			wantErr:  ErrUnmappedArgument,
			wantKey:  "y",
		},
		{
			name: "second connection is not consulted",
			props: map[string]any{
				"target_function": "f",
				"arguments":       []any{map[string]any{"name": "x"}},
			},
			incoming: []ir.Connection{
				{From: "a", To: "n1"},
				{From: "b", To: "n1", VariableMapping: map[string]string{"x": "1"}},
			},
			wantErr: ErrUnmappedArgument,
			wantKey: "x",
		},
		{
			name: "invalid arguments",
			props: map[string]any{
				"target_function": "f",
				"arguments":       "not json",
			},
			wantErr: ErrInvalidProperty,
			wantKey: "arguments",
		},
	}

	p := NewCallFunctionPlugin()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Render(node("call-function", tt.props), tt.incoming, nil)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}

			var propErr *PropertyError
			if !errors.As(err, &propErr) {
				t.Fatalf("expected *PropertyError, got %T", err)
			}
			if propErr.Key != tt.wantKey {
				t.Errorf("expected key %s, got %s", tt.wantKey, propErr.Key)
			}
		})
	}
}

// Legacy Code Tests

func TestLegacyCodePlugin_Render(t *testing.T) {
	tests := []struct {
		name     string
		props    map[string]any
		expected string
	}{
		{
			name:     "single line",
			props:    map[string]any{"code": "let x = 42;"},
			expected: "let x = 42;",
		},
		{
			name:     "keeps newlines",
			props:    map[string]any{"code": "let a = 1;\nlet b = a + 1;"},
			expected: "let a = 1;\nlet b = a + 1;",
		},
		{
			name:     "braces are not templates",
			props:    map[string]any{"code": `println!("{}", "{{x}}");`},
			expected: `println!("{}", "{{x}}");`,
		},
		{
			name:     "missing code",
			props:    map[string]any{},
			expected: "",
		},
		{
			name:     "null code",
			props:    map[string]any{"code": nil},
			expected: "",
		},
	}

	p := NewLegacyCodePlugin()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Render(node("legacy-code", tt.props), nil, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

// Debug Tests

func TestDebugPlugin_Render(t *testing.T) {
	tests := []struct {
		name     string
		props    map[string]any
		expected string
	}{
		{
			name:     "with label",
			props:    map[string]any{"variable": "x", "label": "Value"},
			expected: `println!("Value: {:?}", x);`,
		},
		{
			name:     "without label",
			props:    map[string]any{"variable": "x"},
			expected: `println!("{:?}", x);`,
		},
		{
			name:     "empty label",
			props:    map[string]any{"variable": "x", "label": ""},
			expected: `println!("{:?}", x);`,
		},
		{
			name:     "label is escaped",
			props:    map[string]any{"variable": "v", "label": `say "{hi}"`},
			expected: `println!("say \"{{hi}}\": {:?}", v);`,
		},
	}

	p := NewDebugPlugin()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Render(node("debug", tt.props), nil, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestDebugPlugin_MissingVariable(t *testing.T) {
	_, err := NewDebugPlugin().Render(node("debug", map[string]any{"label": "L"}), nil, nil)
	if !errors.Is(err, ErrMissingProperty) {
		t.Errorf("expected ErrMissingProperty, got %v", err)
	}
}

// Structural Tests

func TestStructuralPlugins(t *testing.T) {
	for _, p := range []Plugin{NewStartNodePlugin(), NewFunctionDefinitionPlugin()} {
		got, err := p.Render(node(p.Type(), map[string]any{"function_name": "f"}), nil, nil)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", p.Type(), err)
		}
		if got != "" {
			t.Errorf("%s: expected no output, got %q", p.Type(), got)
		}
		if !IsStructural(p.Type()) {
			t.Errorf("%s should be structural", p.Type())
		}
	}

	if IsStructural("debug") {
		t.Error("debug is not structural")
	}
}
