// Package sandbox resolves players whose strategy is Go source stored with
// the player record. Sources run inside the yaegi interpreter with a symbol
// table limited to a few pure standard packages.
//
// A source must define
//
//	func Decide(history [][2]string) string
//
// where each history entry is {own, opponent} and the result is "cooperate"
// or "defect".
package sandbox

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/okian/dilemma/internal/domain/model"
	"github.com/okian/dilemma/internal/domain/strategy"
	"github.com/okian/dilemma/pkg/logger"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

const (
	defaultCompileTimeout = 2 * time.Second
	defaultBusyTimeout    = time.Second
	defaultMaxCallDepth   = 256

	// identifiers with this prefix belong to the depth guard
	reservedPrefix = "__sandbox"
	guardCall      = "__sandboxEnter(); defer __sandboxLeave(); "
	guardDecls     = `

var __sandboxDepth int

func __sandboxEnter() {
	__sandboxDepth++
	if __sandboxDepth > %d {
		panic("strategy exceeded the call depth limit")
	}
}

func __sandboxLeave() { __sandboxDepth-- }

func __sandboxReset() { __sandboxDepth = 0 }
`
)

// DefaultAllowedPackages are the imports a strategy source may use.
var DefaultAllowedPackages = []string{"strings", "strconv", "math", "sort"} //nolint:gochecknoglobals // read-only default

// Resolver compiles Player.Code into a strategy.
type Resolver struct {
	allowed        map[string]bool
	compileTimeout time.Duration
	busyTimeout    time.Duration
	maxCallDepth   int
	logger         logger.Logger
}

var _ strategy.Resolver = (*Resolver)(nil)

// NewResolver creates a resolver with the default allow-list.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		compileTimeout: defaultCompileTimeout,
		busyTimeout:    defaultBusyTimeout,
		maxCallDepth:   defaultMaxCallDepth,
		logger:         logger.Get().Named("sandbox"),
	}
	WithAllowedPackages(DefaultAllowedPackages...)(r)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns strategy.ErrUnknownStrategy for players without code so
// that a registry earlier in a chain can claim them.
func (r *Resolver) Resolve(ctx context.Context, p model.Player) (strategy.Strategy, error) {
	if strings.TrimSpace(p.Code) == "" {
		return nil, fmt.Errorf("player %s has no code: %w", p.ID, strategy.ErrUnknownStrategy)
	}
	s, err := r.Compile(ctx, p.Code)
	if err != nil {
		r.logger.Warn(ctx, "strategy rejected",
			logger.String("player_id", p.ID),
			logger.String("function_name", p.FunctionName),
			logger.Error(err),
		)
		return nil, fmt.Errorf("player %s: %w", p.ID, err)
	}
	return s, nil
}

// Compile validates and evaluates src and returns the callable strategy.
//
// Every function body, literals included, is entered through a depth guard:
// a call chain deeper than the configured limit panics inside the
// interpreter instead of exhausting the goroutine stack. Go statements are
// rejected.
func (r *Resolver) Compile(ctx context.Context, src string) (s strategy.Strategy, err error) {
	src, err = r.prepare(wrap(src))
	if err != nil {
		return nil, err
	}

	defer func() {
		if p := recover(); p != nil {
			s, err = nil, fmt.Errorf("%w: interpreter panic: %v", ErrCompile, p)
		}
	}()

	i := interp.New(interp.Options{})
	if err := i.Use(r.symbols()); err != nil {
		return nil, fmt.Errorf("load symbols: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.compileTimeout)
	defer cancel()
	if _, err := i.EvalWithContext(ctx, src); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompile, err)
	}

	v, err := i.Eval("main.Decide")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingDecide, err)
	}
	fn, ok := v.Interface().(func([][2]string) string)
	if !ok {
		return nil, fmt.Errorf("%w: got %s", ErrBadSignature, v.Type())
	}

	rv, err := i.Eval("main." + reservedPrefix + "Reset")
	if err != nil {
		return nil, fmt.Errorf("%w: depth guard: %v", ErrCompile, err)
	}
	reset, ok := rv.Interface().(func())
	if !ok {
		return nil, fmt.Errorf("%w: depth guard has type %s", ErrCompile, rv.Type())
	}

	return &compiled{fn: fn, reset: reset, sem: make(chan struct{}, 1), busyTimeout: r.busyTimeout}, nil
}

func (r *Resolver) symbols() interp.Exports {
	out := make(interp.Exports, len(r.allowed)+1)
	for key, syms := range stdlib.Symbols {
		// keys look like "strings/strings": import path, then package name.
		// "." holds interface wrappers the interpreter needs.
		if key == "." || r.allowed[path.Dir(key)] {
			out[key] = syms
		}
	}
	return out
}

// prepare parses src, checks its imports and identifiers and returns it
// with the depth guard inserted at the top of every function body.
func (r *Resolver) prepare(src string) (string, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "strategy.go", src, parser.SkipObjectResolution)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCompile, err)
	}
	if err := r.checkImports(f); err != nil {
		return "", err
	}

	var (
		bodies   []int
		rejected error
	)
	ast.Inspect(f, func(n ast.Node) bool {
		if rejected != nil {
			return false
		}
		switch n := n.(type) {
		case *ast.Ident:
			if strings.HasPrefix(n.Name, reservedPrefix) {
				rejected = fmt.Errorf("%w: identifier %s is reserved", ErrUnsafeSource, n.Name)
			}
		case *ast.GoStmt:
			rejected = fmt.Errorf("%w: go statement at line %d", ErrUnsafeSource, fset.Position(n.Pos()).Line)
		case *ast.FuncDecl:
			if n.Body != nil {
				bodies = append(bodies, fset.Position(n.Body.Lbrace).Offset)
			}
		case *ast.FuncLit:
			bodies = append(bodies, fset.Position(n.Body.Lbrace).Offset)
		}
		return true
	})
	if rejected != nil {
		return "", rejected
	}

	// back to front so earlier offsets stay valid
	sort.Sort(sort.Reverse(sort.IntSlice(bodies)))
	for _, off := range bodies {
		src = src[:off+1] + guardCall + src[off+1:]
	}
	return src + fmt.Sprintf(guardDecls, r.maxCallDepth), nil
}

func (r *Resolver) checkImports(f *ast.File) error {
	var forbidden []string
	for _, imp := range f.Imports {
		p, err := strconv.Unquote(imp.Path.Value)
		if err != nil || !r.allowed[p] {
			forbidden = append(forbidden, imp.Path.Value)
		}
	}
	if len(forbidden) > 0 {
		allowed := make([]string, 0, len(r.allowed))
		for p := range r.allowed {
			allowed = append(allowed, p)
		}
		sort.Strings(allowed)
		return fmt.Errorf("%w: %s (allowed: %s)", ErrForbiddenImport,
			strings.Join(forbidden, ", "), strings.Join(allowed, ", "))
	}
	return nil
}

func wrap(src string) string {
	if strings.HasPrefix(strings.TrimSpace(src), "package ") {
		return src
	}
	return "package main\n\n" + src
}

// compiled serializes calls into one interpreted function.
type compiled struct {
	fn          func([][2]string) string
	reset       func()
	sem         chan struct{}
	busyTimeout time.Duration
}

func (c *compiled) Decide(h model.History) model.Choice {
	timer := time.NewTimer(c.busyTimeout)
	defer timer.Stop()
	select {
	case c.sem <- struct{}{}:
	case <-timer.C:
		// a previous call is still running
		return ""
	}
	defer func() { <-c.sem }()

	in := make([][2]string, len(h))
	for i, m := range h {
		in[i] = [2]string{string(m.Own), string(m.Opponent)}
	}
	c.reset()
	return model.Choice(strings.ToLower(strings.TrimSpace(c.fn(in))))
}
