package compiler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"aotc/internal/config"
	"aotc/internal/plugin"
	"aotc/internal/plugin/shadowframe"
	"aotc/pkg/color"
	"aotc/pkg/interpreter"
	"aotc/pkg/ir"
	"aotc/pkg/lexer"
	"aotc/pkg/parser"
	"aotc/pkg/shadowstack"

	"github.com/charmbracelet/log"
)

type Compiler struct {
	Help            bool   // Show help message
	Verbose         bool   // Enable verbose output
	ShouldInterpret bool   // Whether to run the entry function
	NoColor         bool   // Disable colored output
	NoLineNumbers   bool   // Force line number tracking off
	ConfigFile      string // Path to a TOML or YAML config file
	Entry           string // Entry function, overrides the config
	SourceFile      string // Path to the source file
	OutputFile      string // Path to write the instrumented IR to

	Stdout io.Writer // program and listing output, os.Stdout if nil
}

// Compile parses the source file, runs the compiler passes over every
// function and then writes, prints or runs the result as requested.
func (opts *Compiler) Compile() error {
	out := opts.Stdout
	if out == nil {
		out = os.Stdout
	}

	log.Info("Processing file", "file", opts.SourceFile)

	input, err := os.ReadFile(opts.SourceFile)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", opts.SourceFile, err)
	}

	cfg, err := opts.config()
	if err != nil {
		return err
	}

	p := parser.NewParser(lexer.NewLexer(string(input)))
	m := p.Parse()

	if errs := p.Errors(); len(errs) > 0 {
		fmt.Fprintln(out, color.BrightRedText("=== Syntax Errors ==="))
		for _, e := range errs {
			fmt.Fprintln(out, e)
		}
		return fmt.Errorf("parsing failed with %d errors", len(errs))
	}

	pass := shadowframe.New()
	pipeline := plugin.NewPipeline(cfg, pass)
	if err := pipeline.Run(context.Background(), m); err != nil {
		return fmt.Errorf("instrumentation failed: %w", err)
	}

	log.Info("Instrumented module",
		"functions", pass.Stats.Instrumented.Load(),
		"skipped", pass.Stats.Skipped.Load(),
		"pops", pass.Stats.PopsInserted.Load())

	listing := m.String()

	if opts.Verbose {
		fmt.Fprintln(out, color.GreenText("=== Instrumented IR ==="))
		fmt.Fprint(out, listing)
	}

	if opts.OutputFile != "" {
		if err := os.WriteFile(opts.OutputFile, []byte(listing), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", opts.OutputFile, err)
		}
		log.Info("Wrote output", "file", opts.OutputFile)
	}

	if opts.ShouldInterpret {
		return run(out, m, cfg, opts.Verbose)
	}

	return nil
}

func (opts *Compiler) config() (*config.Config, error) {
	cfg := config.Default()
	if opts.ConfigFile != "" {
		var err error
		if cfg, err = config.Load(opts.ConfigFile); err != nil {
			return nil, err
		}
		log.Debug("Loaded config", "file", cfg.Path)
	}

	if opts.NoLineNumbers {
		cfg.Compiler.UseLineNumbers = false
	}
	if opts.Entry != "" {
		cfg.Runtime.Entry = opts.Entry
	}

	return cfg, nil
}

// run invokes the entry function in a fresh execution context
func run(out io.Writer, m *ir.Module, cfg *config.Config, verbose bool) error {
	it := interpreter.NewInterpreter(m,
		interpreter.WithWriter(out),
		interpreter.WithMaxSteps(cfg.Runtime.MaxSteps))
	env := shadowstack.NewEnv()

	fmt.Fprintln(out, color.GreenText("=== Program Output ==="))
	result, err := it.Invoke(env, cfg.Runtime.Entry)

	var exc *interpreter.Exception
	if errors.As(err, &exc) {
		fmt.Fprintf(out, "%s %s\n", color.BrightRedText("Exception in"), color.BlueText(exc.Function)+": "+exc.Value.String())
		fmt.Fprint(out, exc.Trace)
		if exc.TraceErr != nil {
			fmt.Fprintln(out, color.GrayText("\t(trace truncated: "+exc.TraceErr.Error()+")"))
		}
		if verbose {
			dumpRecords(out, exc.Records)
		}
		return err
	}
	if err != nil {
		return fmt.Errorf("interpretation failed: %w", err)
	}

	if result.Kind != interpreter.KindVoid {
		fmt.Fprintf(out, "%s %s\n", color.CyanText("=>"), result)
	}
	log.Debug("Execution finished", "entry", cfg.Runtime.Entry, "depth", env.Depth())

	return nil
}

// dumpRecords prints the shadow frames captured at the throw point the way
// a stack walker decodes them from memory.
func dumpRecords(out io.Writer, records []shadowstack.RawFrame) {
	fmt.Fprintln(out, color.GreenText("=== Shadow Frames ==="))
	for _, raw := range records {
		var r shadowstack.Record
		if err := r.UnmarshalBinary(raw.Data); err != nil {
			fmt.Fprintf(out, "\t%#x: %v\n", raw.Address, err)
			continue
		}
		fmt.Fprintf(out, "\t%#x: previous=%#x function=%#x line=%d\n", raw.Address, r.Previous, r.Function, r.Line)
	}
}
