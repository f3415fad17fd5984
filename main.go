// Copyright 2025 phdl Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// readInput reads the host-parser AST dump from a file, or stdin for "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// writeOutput writes the generated text to a file, or stdout when no
// output path is set.
func writeOutput(path, text string) error {
	if path == "" {
		_, err := fmt.Print(text)
		return err
	}
	return os.WriteFile(path, []byte(text), 0o644)
}

// printSummary reports per-module warning counts and each warning text.
func printSummary(modules []*ModuleContext, warnings []Warning) {
	bold := color.New(color.Bold)
	yellow := color.New(color.FgYellow)
	_, _ = bold.Fprintln(os.Stderr, "Transpilation Summary")
	perModule := map[string][]Warning{}
	for _, w := range warnings {
		perModule[w.Module] = append(perModule[w.Module], w)
	}
	for _, m := range modules {
		_, _ = fmt.Fprintf(os.Stderr, "  %s: %d warnings\n", m.Name, len(perModule[m.Name]))
		for _, w := range perModule[m.Name] {
			_, _ = yellow.Fprintf(os.Stderr, "    - %s\n", w.Message)
		}
		delete(perModule, m.Name)
	}
	for module, ws := range perModule {
		if module == "" {
			module = "(top level)"
		}
		_, _ = fmt.Fprintf(os.Stderr, "  %s: %d warnings\n", module, len(ws))
		for _, w := range ws {
			_, _ = yellow.Fprintf(os.Stderr, "    - %s\n", w.Message)
		}
	}
}

func transpile(input, output, target string) error {
	data, err := readInput(input)
	if err != nil {
		return err
	}
	prog, err := DecodeProgram(data)
	if err != nil {
		return fmt.Errorf("failed to decode AST dump %v: %w", input, err)
	}
	transpiler := NewTranspiler()
	if err := transpiler.Translate(prog); err != nil {
		return err
	}
	emitter, err := GetEmitter(target)
	if err != nil {
		return err
	}
	modules := transpiler.Modules()
	if err := writeOutput(output, emitter.Emit(modules)); err != nil {
		return err
	}
	printSummary(modules, transpiler.Warnings())
	return nil
}

var command = &cobra.Command{
	Use:  "phdl ast.json [-o output.sv]",
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.PersistentFlags().GetString("config")
		cfg, err := loadConfig(configPath)
		if err != nil {
			_, _ = fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		output, _ := cmd.PersistentFlags().GetString("output")
		if output == "" {
			output = cfg.Output
		}
		target, _ := cmd.PersistentFlags().GetString("target")
		if !cmd.PersistentFlags().Changed("target") && cfg.Target != "" {
			target = cfg.Target
		}
		verbose, _ := cmd.PersistentFlags().GetBool("verbose")
		if verbose || cfg.Verbose {
			log.SetLevel(log.DebugLevel)
		}
		if err := transpile(args[0], output, target); err != nil {
			_, _ = color.New(color.FgRed).Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
}

func init() {
	command.PersistentFlags().StringP("output", "o", "", "output file for generated SystemVerilog (default stdout)")
	command.PersistentFlags().StringP("target", "t", "systemverilog", "target language")
	command.PersistentFlags().StringP("config", "c", "", "config file (default phdl.yaml if present)")
	command.PersistentFlags().BoolP("verbose", "v", false, "if set, increase verbosity level")
}

func main() {
	if err := command.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
