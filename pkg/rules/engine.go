package rules

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/ajitpratap0/parquet-linter/internal/pipeline"
	"github.com/ajitpratap0/parquet-linter/pkg/config"
	"github.com/ajitpratap0/parquet-linter/pkg/logger"
	"github.com/ajitpratap0/parquet-linter/pkg/metadata"
	"github.com/ajitpratap0/parquet-linter/pkg/metrics"
)

// Engine evaluates a rule registry against files
type Engine struct {
	logger    *zap.Logger
	processor *pipeline.ParallelProcessor
	rules     []Rule
}

// NewEngine creates an engine over RegistryFor(cfg)
func NewEngine(cfg config.AnalysisConfig, log *zap.Logger) *Engine {
	return NewEngineWithRules(cfg, log, RegistryFor(cfg)...)
}

// NewEngineWithRules creates an engine over the given rules, evaluated and
// reported in the order passed.
func NewEngineWithRules(cfg config.AnalysisConfig, log *zap.Logger, rules ...Rule) *Engine {
	log = logger.OrGlobal(log).With(zap.String("component", "rules"))
	return &Engine{
		logger: log,
		processor: pipeline.NewParallelProcessor(pipeline.ParallelConfig{
			Name:       "rules",
			NumWorkers: cfg.Workers,
		}, log),
		rules: rules,
	}
}

// Rules returns the engine's rules in evaluation order
func (e *Engine) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

// Run checks file with every rule. Rules run concurrently but the result is
// always the concatenation of each rule's output in declared order, each
// sorted with file-level targets first and columns by path.
func (e *Engine) Run(ctx context.Context, file *metadata.FileContext) ([]Diagnostic, error) {
	perRule, err := pipeline.Map(ctx, e.processor, len(e.rules),
		func(ctx context.Context, i int) ([]Diagnostic, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			rule := e.rules[i]
			timer := metrics.NewTimer(rule.Name())
			diags := rule.Check(file)
			timer.ObserveDuration(metrics.RuleDuration.WithLabelValues(rule.Name()))

			sort.SliceStable(diags, func(a, b int) bool {
				return diags[a].Target.less(diags[b].Target)
			})
			return diags, nil
		})
	if err != nil {
		return nil, err
	}

	var out []Diagnostic
	for _, diags := range perRule {
		for _, d := range diags {
			metrics.DiagnosticsEmitted.WithLabelValues(d.Rule, d.Severity.String()).Inc()
		}
		out = append(out, diags...)
	}

	e.logger.Debug("rules evaluated",
		zap.String("path", file.Path),
		zap.Int("rules", len(e.rules)),
		zap.Int("diagnostics", len(out)))
	return out, nil
}
