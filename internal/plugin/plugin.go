// Package plugin hosts compiler passes that run after each function's
// instruction graph has been built.
package plugin

import (
	"context"
	"fmt"

	"aotc/internal/config"
	"aotc/internal/logger"
	"aotc/pkg/ir"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// Method is the source method descriptor a function was compiled from.
type Method interface {
	IsNative() bool
	IsAbstract() bool
	HasBody() bool
}

// Context is what a pass sees besides the function itself.
type Context struct {
	Config *config.Config
	Method Method
	Module *ir.Module
	Log    *log.Logger
}

// CompilerPass is a transformation invoked once per compiled function,
// after the function's instruction graph is complete. A pass may only
// mutate the function it is given and module-level declarations.
type CompilerPass interface {
	Name() string
	AfterFunctionBuilt(ctx *Context, fn *ir.Function) error
}

// Pipeline runs an ordered list of passes over every function of a module.
type Pipeline struct {
	passes []CompilerPass
	cfg    *config.Config
}

// NewPipeline creates a pipeline running passes in the given order
func NewPipeline(cfg *config.Config, passes ...CompilerPass) *Pipeline {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Pipeline{passes: passes, cfg: cfg}
}

// Add appends a pass
func (p *Pipeline) Add(pass CompilerPass) {
	p.passes = append(p.passes, pass)
}

// Passes returns the passes in execution order
func (p *Pipeline) Passes() []CompilerPass {
	return p.passes
}

// Run applies every pass to every function of m. Each function sees the
// passes in order; distinct functions may be processed concurrently, up to
// the configured worker count. The first failure stops the run.
func (p *Pipeline) Run(ctx context.Context, m *ir.Module) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.cfg.Compiler.Workers, 1))

	for _, fn := range m.Functions {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return p.runFunction(m, fn)
		})
	}

	return g.Wait()
}

// RunFunction applies every pass to a single function.
func (p *Pipeline) RunFunction(m *ir.Module, fn *ir.Function) error {
	return p.runFunction(m, fn)
}

func (p *Pipeline) runFunction(m *ir.Module, fn *ir.Function) error {
	pctx := &Context{
		Config: p.cfg,
		Method: fn.Method,
		Module: m,
		Log:    logger.ForFunction(fn.Name),
	}

	for _, pass := range p.passes {
		pctx.Log.Debug("Running pass", "pass", pass.Name())
		if err := pass.AfterFunctionBuilt(pctx, fn); err != nil {
			return fmt.Errorf("pass %s failed on %s: %w", pass.Name(), fn.Name, err)
		}
	}

	return nil
}
