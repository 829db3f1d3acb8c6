package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaiso/Flust/internal/codegen"
	"github.com/shaiso/Flust/internal/ir"
	"github.com/shaiso/Flust/internal/plugins"
)

// PluginInfo — описание плагина (локальный реестр или API).
type PluginInfo = plugins.Descriptor

// CompileError — ошибка компиляции с видом для вывода пользователю.
type CompileError struct {
	Kind string
	Err  error
}

// Error реализует интерфейс error.
func (e *CompileError) Error() string {
	return e.Kind + ": " + e.Err.Error()
}

// Unwrap возвращает базовую ошибку.
func (e *CompileError) Unwrap() error {
	return e.Err
}

// compileFile разбирает, валидирует и компилирует файл Flow.
func compileFile(gen *codegen.Generator, path string) (*ir.Flow, string, error) {
	flow, err := ir.ParseFile(path)
	if err != nil {
		return nil, "", wrapCompileError(err)
	}
	if err := ir.Validate(flow); err != nil {
		return nil, "", wrapCompileError(err)
	}

	code, err := gen.Generate(flow)
	if err != nil {
		return nil, "", wrapCompileError(err)
	}
	return flow, code, nil
}

func wrapCompileError(err error) error {
	return &CompileError{Kind: codegen.ErrorKind(err), Err: err}
}

// NewCompileCmd создаёт команду локальной компиляции.
func NewCompileCmd(genFn func() *codegen.Generator, outputFn func() *Output) *cobra.Command {
	var (
		input  string
		output string
		stdout bool
	)

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile a flow file into a Rust project",
		Example: `  flust compile -i my_flow.yaml -o ./my_flow
  flust compile -i my_flow.json --stdout`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			if output == "" && !stdout {
				return errors.New("either --output or --stdout is required")
			}

			flow, code, err := compileFile(genFn(), input)
			if err != nil {
				return err
			}

			if stdout {
				out.Code(code)
				return nil
			}

			project, err := WriteProject(output, code)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Compiled %d nodes into %s", len(flow.Nodes), project.Main))
			if project.ManifestKept {
				out.Success("Kept existing " + project.Manifest)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Input flow file (YAML/JSON, required)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output directory for the generated project")
	cmd.Flags().BoolVar(&stdout, "stdout", false, "Print generated code instead of writing a project")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

// CheckResult — результат проверки Flow.
type CheckResult struct {
	Valid       bool `json:"valid"`
	Nodes       int  `json:"nodes"`
	Connections int  `json:"connections"`
	Lines       int  `json:"lines"`
}

// NewCheckCmd создаёт команду проверки Flow без записи файлов.
func NewCheckCmd(genFn func() *codegen.Generator, outputFn func() *Output) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a flow file without writing output",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			flow, code, err := compileFile(genFn(), input)
			if err != nil {
				return err
			}

			result := CheckResult{
				Valid:       true,
				Nodes:       len(flow.Nodes),
				Connections: len(flow.Connections),
				Lines:       strings.Count(code, "\n"),
			}

			if out.IsJSON() {
				out.JSON(result)
				return nil
			}
			out.Success(fmt.Sprintf("OK: %d nodes, %d connections, %d lines of Rust",
				result.Nodes, result.Connections, result.Lines))
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Input flow file (YAML/JSON, required)")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

// NewPluginsCmd создаёт команду вывода каталога плагинов.
func NewPluginsCmd(genFn func() *codegen.Generator, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List available node plugins",
		RunE: func(cmd *cobra.Command, args []string) error {
			printPlugins(outputFn(), genFn().Registry().Descriptors())
			return nil
		},
	}
}

func printPlugins(out *Output, descs []PluginInfo) {
	headers := []string{"TYPE", "NAME", "CATEGORY", "ALIASES", "PROPERTIES"}
	rows := make([][]string, len(descs))
	for i, d := range descs {
		props := make([]string, len(d.Properties))
		for j, p := range d.Properties {
			props[j] = p.Name
			if p.Required {
				props[j] += "*"
			}
		}
		rows[i] = []string{d.ID, d.Name, d.Category, strings.Join(d.Aliases, ","), strings.Join(props, ",")}
	}

	out.Print(headers, rows, descs)
}
