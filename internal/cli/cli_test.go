package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Flust/internal/codegen"
)

const hierarchicalFlow = `
nodes:
  - id: fn
    plugin_type: function-definition
    properties:
      function_name: my_func
      arguments:
        - name: x
          type: i32
  - id: dbg
    plugin_type: debug
    parent_id: fn
    properties:
      variable: x
  - id: main
    plugin_type: function-definition
    properties:
      function_name: main
  - id: start
    plugin_type: start-node
    parent_id: main
  - id: call
    plugin_type: call-function
    parent_id: main
    properties:
      target_function: my_func
      arguments:
        - name: x
connections:
  - from: start
    to: call
    variable_mapping:
      x: "42"
`

const hierarchicalCode = "async fn my_func(x: i32) {\n    println!(\"{:?}\", x);\n}\n\n" +
	"#[tokio::main]\nasync fn main() {\n    my_func(42).await;\n}\n"

const cyclicFlow = `{"nodes":[{"id":"a","plugin_type":"legacy-code"},{"id":"b","plugin_type":"legacy-code"}],
"connections":[{"from":"a","to":"b"},{"from":"b","to":"a"}]}`

// --- helpers ---

type testIO struct {
	stdout bytes.Buffer
	stderr bytes.Buffer
}

func (tio *testIO) output(jsonMode bool) func() *Output {
	return func() *Output { return NewOutputTo(jsonMode, &tio.stdout, &tio.stderr) }
}

func genFn() *codegen.Generator { return codegen.New() }

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(cmd *cobra.Command, args ...string) error {
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return cmd.Execute()
}

// --- scaffold ---

func TestPackageName(t *testing.T) {
	tests := map[string]string{
		"./my_flow":      "my_flow",
		"/tmp/My Flow":   "my_flow",
		"demo-app":       "demo-app",
		"2048":           "flust_2048",
		"привет":         defaultPackageName,
		".":              defaultPackageName,
		"out/rust.proj/": "rust_proj",
	}

	for dir, want := range tests {
		assert.Equal(t, want, PackageName(dir), dir)
	}
}

func TestWriteProject(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "pow_demo")

	project, err := WriteProject(dir, hierarchicalCode)
	require.NoError(t, err)
	assert.False(t, project.ManifestKept)

	manifest, err := os.ReadFile(filepath.Join(dir, "Cargo.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(manifest), `name = "pow_demo"`)
	assert.Contains(t, string(manifest), `tokio = { version = "1", features = ["full"] }`)

	main, err := os.ReadFile(filepath.Join(dir, "src", "main.rs"))
	require.NoError(t, err)
	assert.Equal(t, hierarchicalCode, string(main))

	// Повторная генерация не трогает отредактированный Cargo.toml
	require.NoError(t, os.WriteFile(project.Manifest, []byte("custom"), 0o644))
	project, err = WriteProject(dir, codegen.EmptyProgram)
	require.NoError(t, err)
	assert.True(t, project.ManifestKept)

	manifest, err = os.ReadFile(project.Manifest)
	require.NoError(t, err)
	assert.Equal(t, "custom", string(manifest))

	main, err = os.ReadFile(project.Main)
	require.NoError(t, err)
	assert.Equal(t, codegen.EmptyProgram, string(main))
}

// --- local commands ---

func TestCompileCmd_Stdout(t *testing.T) {
	var tio testIO
	input := writeFile(t, "flow.yaml", hierarchicalFlow)

	err := run(NewCompileCmd(genFn, tio.output(false)), "-i", input, "--stdout")
	require.NoError(t, err)
	assert.Equal(t, hierarchicalCode, tio.stdout.String())
}

func TestCompileCmd_Project(t *testing.T) {
	var tio testIO
	input := writeFile(t, "flow.yaml", hierarchicalFlow)
	outDir := filepath.Join(t.TempDir(), "app")

	err := run(NewCompileCmd(genFn, tio.output(false)), "-i", input, "-o", outDir)
	require.NoError(t, err)

	main, err := os.ReadFile(filepath.Join(outDir, "src", "main.rs"))
	require.NoError(t, err)
	assert.Equal(t, hierarchicalCode, string(main))
	assert.Contains(t, tio.stderr.String(), "Compiled 5 nodes")
	assert.Empty(t, tio.stdout.String())
}

func TestCompileCmd_RequiresDestination(t *testing.T) {
	var tio testIO
	input := writeFile(t, "flow.yaml", hierarchicalFlow)

	err := run(NewCompileCmd(genFn, tio.output(false)), "-i", input)
	assert.ErrorContains(t, err, "--output or --stdout")
}

func TestCompileCmd_Errors(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantKind string
	}{
		{name: "cycle", content: cyclicFlow, wantKind: codegen.KindCycleDetected},
		{name: "malformed", content: `{"nodes": [`, wantKind: codegen.KindParse},
		{name: "missing property", content: `{"nodes":[{"id":"d","plugin_type":"debug"}]}`, wantKind: codegen.KindMissingProperty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tio testIO
			input := writeFile(t, "flow.json", tt.content)

			err := run(NewCompileCmd(genFn, tio.output(false)), "-i", input, "--stdout")

			var compileErr *CompileError
			require.True(t, errors.As(err, &compileErr), "got %v", err)
			assert.Equal(t, tt.wantKind, compileErr.Kind)
			assert.Empty(t, tio.stdout.String(), "no partial output")
		})
	}
}

func TestCheckCmd(t *testing.T) {
	input := writeFile(t, "flow.yaml", hierarchicalFlow)

	var text testIO
	require.NoError(t, run(NewCheckCmd(genFn, text.output(false)), "-i", input))
	assert.Contains(t, text.stderr.String(), "OK: 5 nodes, 1 connections, 8 lines")

	var js testIO
	require.NoError(t, run(NewCheckCmd(genFn, js.output(true)), "-i", input))

	var result CheckResult
	require.NoError(t, json.Unmarshal(js.stdout.Bytes(), &result))
	assert.Equal(t, CheckResult{Valid: true, Nodes: 5, Connections: 1, Lines: 8}, result)
}

func TestPluginsCmd(t *testing.T) {
	var tio testIO

	require.NoError(t, run(NewPluginsCmd(genFn, tio.output(false))))

	table := tio.stdout.String()
	assert.Contains(t, table, "TYPE")
	assert.Contains(t, table, "call-function")
	assert.Contains(t, table, "target_function*")
	assert.Contains(t, table, "legacy_code")
}

// --- remote commands ---

func newFakeAPI(t *testing.T) *httptest.Server {
	t.Helper()

	compilation := map[string]any{
		"id":          "0b9f6a52-8d1c-4a55-9d3e-6d2f3f1b7a10",
		"name":        "flow",
		"status":      "SUCCEEDED",
		"code":        hierarchicalCode,
		"duration_ms": 3,
		"created_at":  "2026-10-19T10:00:00Z",
	}

	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/compile", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if bytes.Contains(body, []byte("teleport")) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": map[string]any{
				"code": "COMPILE_FAILED", "message": "unknown plugin type", "kind": "UnknownPluginType", "node_id": "t",
			}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"code": hierarchicalCode, "lines": 8}})
	})
	mux.HandleFunc("POST /api/v1/compilations", func(w http.ResponseWriter, r *http.Request) {
		var req CreateCompilationRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "flow", req.Name)
		assert.True(t, json.Valid(req.Flow))

		queued := map[string]any{"id": compilation["id"], "name": req.Name, "status": "PENDING"}
		writeJSON(w, http.StatusCreated, map[string]any{"data": queued})
	})
	mux.HandleFunc("GET /api/v1/compilations/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != compilation["id"] {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": map[string]any{
				"code": "NOT_FOUND", "message": "compilation not found",
			}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": compilation})
	})
	mux.HandleFunc("GET /api/v1/compilations", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "FAILED", r.URL.Query().Get("status"))
		writeJSON(w, http.StatusOK, map[string]any{"data": []any{compilation}, "total": 1})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestRemoteCompile(t *testing.T) {
	server := newFakeAPI(t)
	clientFn := func() *Client { return NewClient(server.URL) }
	input := writeFile(t, "flow.yaml", hierarchicalFlow)

	var tio testIO
	require.NoError(t, run(NewRemoteCmd(clientFn, tio.output(false)), "compile", "-i", input))
	assert.Equal(t, hierarchicalCode, tio.stdout.String())

	var queued testIO
	require.NoError(t, run(NewRemoteCmd(clientFn, queued.output(false)), "compile", "-i", input, "--async"))
	assert.Contains(t, queued.stderr.String(), "Compilation queued: 0b9f6a52")
	assert.Contains(t, queued.stdout.String(), "PENDING")
}

func TestRemoteCompile_APIError(t *testing.T) {
	server := newFakeAPI(t)
	input := writeFile(t, "flow.json", `{"nodes":[{"id":"t","plugin_type":"teleport"}]}`)

	var tio testIO
	err := run(NewRemoteCmd(func() *Client { return NewClient(server.URL) }, tio.output(false)), "compile", "-i", input)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "UnknownPluginType", apiErr.Kind)
	assert.Equal(t, "t", apiErr.NodeID)
	assert.Equal(t, "COMPILE_FAILED (UnknownPluginType): unknown plugin type", apiErr.Error())
}

func TestRemoteShowAndList(t *testing.T) {
	server := newFakeAPI(t)
	clientFn := func() *Client { return NewClient(server.URL) }

	var code testIO
	require.NoError(t, run(NewRemoteCmd(clientFn, code.output(false)),
		"show", "0b9f6a52-8d1c-4a55-9d3e-6d2f3f1b7a10", "--code"))
	assert.Equal(t, hierarchicalCode, code.stdout.String())

	var table testIO
	require.NoError(t, run(NewRemoteCmd(clientFn, table.output(false)), "list", "--status", "FAILED"))
	assert.Contains(t, table.stdout.String(), "SUCCEEDED")
	assert.Contains(t, table.stdout.String(), "3ms")

	var missing testIO
	err := run(NewRemoteCmd(clientFn, missing.output(false)), "show", "nope")
	assert.ErrorContains(t, err, "NOT_FOUND")
}
