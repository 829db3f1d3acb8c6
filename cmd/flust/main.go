// Flust CLI — компилятор Flow в исходный код на Rust.
//
// Использование:
//
//	flust [--api-url URL] [--json] [-v] <command> [flags]
//
// Команды:
//
//	compile   Скомпилировать Flow в Cargo-проект
//	check     Проверить Flow без записи файлов
//	plugins   Каталог плагинов
//	remote    Компиляция на сервере flust-api
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Flust/internal/cli"
	"github.com/shaiso/Flust/internal/codegen"
	"github.com/shaiso/Flust/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var (
		apiURL     string
		jsonOutput bool
		verbose    bool
	)

	rootCmd := &cobra.Command{
		Use:           "flust",
		Short:         "Flust — compile visual flows into async Rust",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://localhost:8080", "API server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log generator debug output to stderr")

	// Логи идут в stderr: stdout занят сгенерированным кодом
	genFn := func() *codegen.Generator {
		logger := telemetry.NewLogger(os.Stderr)
		if verbose {
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		}
		return codegen.New(codegen.WithLogger(logger))
	}
	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewCompileCmd(genFn, outputFn),
		cli.NewCheckCmd(genFn, outputFn),
		cli.NewPluginsCmd(genFn, outputFn),
		cli.NewRemoteCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
