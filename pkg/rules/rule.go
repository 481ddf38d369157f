// Package rules inspects a FileContext and reports Diagnostics, each with the
// prescription directives that would address it.
//
// Rules are independent: every rule sees the same read-only FileContext and
// never the output of another rule. The Engine evaluates the registry in its
// declared order and concatenates the results, so two runs over the same
// file produce the same list.
package rules

import (
	"fmt"

	"github.com/ajitpratap0/parquet-linter/pkg/config"
	"github.com/ajitpratap0/parquet-linter/pkg/metadata"
	"github.com/ajitpratap0/parquet-linter/pkg/prescription"
)

// Rule checks one property of a file
type Rule interface {
	// Name is the stable kebab-case identifier used in filters and reports
	Name() string
	// Check returns the rule's findings for file. It must not modify file.
	Check(file *metadata.FileContext) []Diagnostic
}

const (
	mib = 1024 * 1024

	// maxCompressionRatio is the compressed/uncompressed ratio above which a
	// codec is not worth its decode cost
	maxCompressionRatio = 0.95
	// embeddingValuesPerRow marks a repeated float column as a vector
	embeddingValuesPerRow = 64
	embeddingPageSize     = 8192

	highCardinalityRatio = 0.5
	lowCardinalityRatio  = 0.1
	dictionaryPageSize   = 2 * mib

	minRowGroupBytes    = 32 * mib
	maxRowGroupBytes    = 512 * mib
	targetRowGroupBytes = 128 * mib

	largeUncompressedChunk = 4 * mib
	maxStatisticsLength    = 64
)

// Registry returns every rule in declared order with default settings
func Registry() []Rule {
	return RegistryFor(config.AnalysisConfig{})
}

// RegistryFor returns every rule in declared order, tuned by cfg
func RegistryFor(cfg config.AnalysisConfig) []Rule {
	policy := cfg.SortPolicy
	if policy == "" {
		policy = config.SortPolicyRowGroupBounds
	}
	return []Rule{
		CompressionRatioRule{},
		PageStatisticsRule{},
		VectorEmbeddingRule{},
		DictionaryEncodingRule{},
		RowGroupSizeRule{},
		FloatEncodingRule{},
		SortedIntegersRule{Policy: policy},
		BloomFilterRule{},
		CompressionCodecRule{},
		TimestampEncodingRule{},
		StringStatisticsRule{},
		TextEncodingRule{},
	}
}

// Names returns the rule names of the registry in declared order
func Names() []string {
	registry := Registry()
	names := make([]string, len(registry))
	for i, r := range registry {
		names[i] = r.Name()
	}
	return names
}

func columnDiagnostic(rule Rule, severity Severity, col *metadata.ColumnContext, message string, fixes ...prescription.Directive) Diagnostic {
	return Diagnostic{
		Rule:     rule.Name(),
		Severity: severity,
		Target:   ColumnTarget(col.Path),
		Message:  message,
		Fixes:    fixes,
	}
}

func columnFix(col *metadata.ColumnContext, property prescription.Property, value prescription.Value) prescription.Directive {
	return prescription.Column(col.Path, property, value)
}

func encodingFix(col *metadata.ColumnContext, enc prescription.DataEncoding) prescription.Directive {
	return columnFix(col, prescription.PropEncoding, prescription.Ident(string(enc)))
}

func megabytes(n int64) string {
	return fmt.Sprintf("%.1f MB", float64(n)/mib)
}

func percent(ratio float64) string {
	return fmt.Sprintf("%.0f%%", ratio*100)
}
