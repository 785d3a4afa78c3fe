package universe

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/esg-screener/server/internal/agent/model"
)

var (
	filterEnv     *cel.Env
	filterEnvErr  error
	filterEnvOnce sync.Once
)

// getFilterEnv declares the variables a universe filter can reference:
//
//	ticker, name, sector, industry  string
//	metrics                         map(string, double), only present attributes
//
// Example: `sector != "Energy" && (!has(metrics.beta) || metrics.beta < 1.5)`.
func getFilterEnv() (*cel.Env, error) {
	filterEnvOnce.Do(func() {
		filterEnv, filterEnvErr = cel.NewEnv(
			cel.Variable("ticker", cel.StringType),
			cel.Variable("name", cel.StringType),
			cel.Variable("sector", cel.StringType),
			cel.Variable("industry", cel.StringType),
			cel.Variable("metrics", cel.MapType(cel.StringType, cel.DoubleType)),
		)
	})
	return filterEnv, filterEnvErr
}

// Filter is a compiled CEL predicate over company records.
type Filter struct {
	expr string
	prg  cel.Program
}

// CompileFilter compiles expr once; the result is safe for concurrent use.
func CompileFilter(expr string) (*Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("empty filter expression")
	}
	env, err := getFilterEnv()
	if err != nil {
		return nil, fmt.Errorf("filter env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile filter %q: %w", expr, issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program filter %q: %w", expr, err)
	}
	return &Filter{expr: expr, prg: prg}, nil
}

func (f *Filter) String() string {
	return f.expr
}

// Match evaluates the predicate for r.
func (f *Filter) Match(r *model.CompanyRecord) (bool, error) {
	metrics := make(map[string]float64, len(r.Metrics))
	for a, v := range r.Metrics {
		metrics[string(a)] = v
	}
	out, _, err := f.prg.Eval(map[string]any{
		"ticker":   r.Ticker,
		"name":     r.Name,
		"sector":   r.Sector,
		"industry": r.Industry,
		"metrics":  metrics,
	})
	if err != nil {
		return false, fmt.Errorf("eval filter on %s: %w", r.Ticker, err)
	}
	ok, isBool := out.Value().(bool)
	if !isBool {
		return false, fmt.Errorf("filter %q must return bool, got %T", f.expr, out.Value())
	}
	return ok, nil
}

// Apply returns the records f accepts. The first evaluation error aborts.
func (u *Universe) Apply(f *Filter) (*Universe, error) {
	var evalErr error
	sub := u.Filter(func(r *model.CompanyRecord) bool {
		if evalErr != nil {
			return false
		}
		ok, err := f.Match(r)
		if err != nil {
			evalErr = err
			return false
		}
		return ok
	})
	if evalErr != nil {
		return nil, evalErr
	}
	return sub, nil
}
