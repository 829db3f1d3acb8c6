package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaiso/Flust/internal/ir"
)

// NewRemoteCmd создаёт группу команд для работы с flust-api.
func NewRemoteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Compile flows on a flust-api server",
	}

	cmd.AddCommand(
		newRemoteCompileCmd(clientFn, outputFn),
		newRemoteShowCmd(clientFn, outputFn),
		newRemoteListCmd(clientFn, outputFn),
		newRemotePluginsCmd(clientFn, outputFn),
	)

	return cmd
}

var compilationHeaders = []string{"ID", "NAME", "STATUS", "ERROR KIND", "DURATION", "CREATED"}

func compilationRow(c CompilationResponse) []string {
	duration := ""
	if c.DurationMs > 0 {
		duration = strconv.FormatInt(c.DurationMs, 10) + "ms"
	}
	return []string{c.ID, c.Name, c.Status, c.ErrorKind, duration, c.CreatedAt}
}

func newRemoteCompileCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var (
		input  string
		output string
		name   string
		async  bool
	)

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile a flow file on the server",
		Example: `  flust remote compile -i my_flow.yaml
  flust remote compile -i my_flow.yaml -o ./my_flow
  flust remote compile -i my_flow.yaml --async --name nightly`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			doc, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("read flow file: %w", err)
			}

			if async {
				// API принимает только JSON, поэтому YAML переводится локально
				flow, err := ir.Parse(doc)
				if err != nil {
					return wrapCompileError(err)
				}
				flowJSON, err := json.Marshal(flow)
				if err != nil {
					return fmt.Errorf("marshal flow: %w", err)
				}

				if name == "" {
					name = strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
				}

				c, err := client.CreateCompilation(CreateCompilationRequest{Name: name, Flow: flowJSON})
				if err != nil {
					return err
				}

				out.Success(fmt.Sprintf("Compilation queued: %s", c.ID))
				out.Print(compilationHeaders, [][]string{compilationRow(*c)}, c)
				return nil
			}

			result, err := client.Compile(doc)
			if err != nil {
				return err
			}

			if output == "" {
				out.Code(result.Code)
				return nil
			}

			project, err := WriteProject(output, result.Code)
			if err != nil {
				return err
			}
			out.Success(fmt.Sprintf("Compiled on server into %s", project.Main))
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Input flow file (YAML/JSON, required)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output directory (default: print code)")
	cmd.Flags().StringVar(&name, "name", "", "Compilation name for --async (default: file name)")
	cmd.Flags().BoolVar(&async, "async", false, "Queue the compilation instead of waiting for the result")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func newRemoteShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var code bool

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show compilation details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			c, err := client.GetCompilation(args[0])
			if err != nil {
				return err
			}

			if code {
				if c.Code == "" {
					return errors.New("compilation has no code (status " + c.Status + ")")
				}
				out.Code(c.Code)
				return nil
			}

			out.Print(compilationHeaders, [][]string{compilationRow(*c)}, c)
			if c.Error != "" && !out.IsJSON() {
				out.Error(c.Error)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&code, "code", false, "Print only the generated code")

	return cmd
}

func newRemoteListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var opts ListCompilationsOpts

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List compilations",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			compilations, err := client.ListCompilations(opts)
			if err != nil {
				return err
			}

			rows := make([][]string, len(compilations))
			for i, c := range compilations {
				rows[i] = compilationRow(c)
			}

			out.Print(compilationHeaders, rows, compilations)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Status, "status", "", "Filter by status (PENDING, RUNNING, SUCCEEDED, FAILED)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Maximum number of compilations")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Skip the first N compilations")

	return cmd
}

func newRemotePluginsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List plugins known to the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			descs, err := clientFn().ListPlugins()
			if err != nil {
				return err
			}
			printPlugins(outputFn(), descs)
			return nil
		},
	}
}
