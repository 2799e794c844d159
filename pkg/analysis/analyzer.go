// Package analysis provides the text ingestion front-end: it tokenizes
// documents, creates concepts for content terms, wires co-occurrence and
// sentence-pattern relations, and activates the concepts it touched. It is
// a pure consumer of the knowledge facade's public operations and never
// reaches into actor state.
package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mindmesh/mindmesh/pkg/concept"
)

// GraphWriter is the slice of the knowledge facade the analyzer uses.
type GraphWriter interface {
	CreateConcept(term string) (uint64, error)
	ActivateConcept(id uint64)
	AddRelation(source, target uint64, kind concept.RelationKind, weight float64)
}

// Config holds the configuration for an Analyzer.
type Config struct {
	// WindowSize is the co-occurrence window within a sentence.
	WindowSize int

	// MinTokenLength filters tokens shorter than this.
	MinTokenLength int

	// RateLimit caps ingested tokens per second (0 = unlimited).
	RateLimit float64
}

// DefaultConfig returns the standard analyzer configuration.
func DefaultConfig() Config {
	return Config{
		WindowSize:     4,
		MinTokenLength: 3,
	}
}

// Validate validates the analyzer configuration.
func (c *Config) Validate() error {
	if c.WindowSize <= 0 {
		return fmt.Errorf("window size must be positive, got %d", c.WindowSize)
	}
	if c.MinTokenLength <= 0 {
		return fmt.Errorf("min token length must be positive, got %d", c.MinTokenLength)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit cannot be negative")
	}
	return nil
}

// analyzerLogger is the minimal logger interface used by the Analyzer.
type analyzerLogger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
}

type nopAnalyzerLogger struct{}

func (nopAnalyzerLogger) Debug(msg string, args ...any) {}
func (nopAnalyzerLogger) Info(msg string, args ...any)  {}

// MetricsRecorder defines the interface for recording ingestion metrics.
type MetricsRecorder interface {
	RecordDocument(tokens int, duration time.Duration)
}

type nopAnalyzerMetrics struct{}

func (nopAnalyzerMetrics) RecordDocument(int, time.Duration) {}

// Report summarizes one ingested document.
type Report struct {
	Sentences int `json:"sentences"`
	Tokens    int `json:"tokens"`
	Concepts  int `json:"concepts"`
	Relations int `json:"relations"`
}

// Analyzer turns raw text into concepts and relations.
type Analyzer struct {
	cfg     Config
	graph   GraphWriter
	limiter *rate.Limiter
	logger  analyzerLogger
	metrics MetricsRecorder
}

// AnalyzerOption is a functional option for configuring an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithLogger sets the analyzer logger.
func WithLogger(l analyzerLogger) AnalyzerOption {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m MetricsRecorder) AnalyzerOption {
	return func(a *Analyzer) {
		if m != nil {
			a.metrics = m
		}
	}
}

// New creates an Analyzer writing into the given graph.
func New(cfg Config, graph GraphWriter, opts ...AnalyzerOption) (*Analyzer, error) {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = DefaultConfig().WindowSize
	}
	if cfg.MinTokenLength <= 0 {
		cfg.MinTokenLength = DefaultConfig().MinTokenLength
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &Analyzer{
		cfg:     cfg,
		graph:   graph,
		logger:  nopAnalyzerLogger{},
		metrics: nopAnalyzerMetrics{},
	}
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		a.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// SetRateLimit adjusts the ingestion token rate at runtime. An analyzer
// built without rate limiting stays unlimited; non-positive values are
// ignored.
func (a *Analyzer) SetRateLimit(perSecond float64) {
	if a.limiter == nil || perSecond <= 0 {
		return
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	a.limiter.SetLimit(rate.Limit(perSecond))
	a.limiter.SetBurst(burst)
	a.logger.Debug("ingestion rate adjusted", "tokens_per_second", perSecond)
}

// IngestDocument processes one document: per sentence it creates concepts
// for content terms, extracts pattern relations from the raw token stream,
// links co-occurring terms, and activates every concept it touched.
func (a *Analyzer) IngestDocument(ctx context.Context, text string) (Report, error) {
	start := time.Now()
	report := Report{}
	touched := make(map[uint64]struct{})

	for _, sentence := range splitSentences(text) {
		raw := tokenize(sentence)
		if len(raw) == 0 {
			continue
		}
		report.Sentences++
		report.Tokens += len(raw)

		if a.limiter != nil {
			n := len(raw)
			if b := a.limiter.Burst(); n > b {
				n = b
			}
			if err := a.limiter.WaitN(ctx, n); err != nil {
				return report, err
			}
		}

		terms := a.contentTerms(raw)
		ids := make([]uint64, len(terms))
		for i, term := range terms {
			id, err := a.graph.CreateConcept(term)
			if err != nil {
				return report, fmt.Errorf("create concept %q: %w", term, err)
			}
			ids[i] = id
			if _, seen := touched[id]; !seen {
				touched[id] = struct{}{}
				report.Concepts++
			}
		}

		report.Relations += a.linkPatterns(raw)
		report.Relations += a.linkCooccurrence(ids)
	}

	for id := range touched {
		a.graph.ActivateConcept(id)
	}

	a.metrics.RecordDocument(report.Tokens, time.Since(start))
	a.logger.Debug("document ingested",
		"sentences", report.Sentences,
		"tokens", report.Tokens,
		"concepts", report.Concepts,
		"relations", report.Relations,
	)
	return report, nil
}

// linkCooccurrence wires AssociatedWith edges between terms that appear
// within the window, weighted down with distance.
func (a *Analyzer) linkCooccurrence(ids []uint64) int {
	created := 0
	for i := 0; i < len(ids); i++ {
		for d := 1; d <= a.cfg.WindowSize && i+d < len(ids); d++ {
			j := i + d
			if ids[i] == ids[j] {
				continue
			}
			weight := 1.0 / float64(1+d)
			a.graph.AddRelation(ids[i], ids[j], concept.AssociatedWith, weight)
			a.graph.AddRelation(ids[j], ids[i], concept.AssociatedWith, weight)
			created += 2
		}
	}
	return created
}

// linkPatterns extracts typed relations from simple sentence patterns on
// the raw token stream: "X is a Y", "X causes Y", "X part of Y". The
// heuristics are deliberately shallow.
func (a *Analyzer) linkPatterns(raw []string) int {
	created := 0
	for i := 1; i < len(raw)-1; i++ {
		var kind concept.RelationKind
		var weight float64
		var subject, object string

		switch raw[i] {
		case "is", "are":
			if i+2 < len(raw) && (raw[i+1] == "a" || raw[i+1] == "an") {
				subject, object = raw[i-1], objectAfter(raw, i+2)
				kind, weight = concept.IsA, 0.8
			}
		case "causes", "cause", "caused":
			subject, object = raw[i-1], objectAfter(raw, i+1)
			kind, weight = concept.Causes, 0.7
		case "part":
			if i+2 < len(raw) && raw[i+1] == "of" {
				subject, object = raw[i-1], objectAfter(raw, i+2)
				kind, weight = concept.PartOf, 0.7
			}
		}

		if subject == "" || object == "" || subject == object {
			continue
		}
		if !a.isContentTerm(subject) || !a.isContentTerm(object) {
			continue
		}

		src, err := a.graph.CreateConcept(subject)
		if err != nil {
			continue
		}
		tgt, err := a.graph.CreateConcept(object)
		if err != nil {
			continue
		}
		a.graph.AddRelation(src, tgt, kind, weight)
		created++
	}
	return created
}

// objectAfter returns the token at idx, stepping over leading articles.
func objectAfter(raw []string, idx int) string {
	for idx < len(raw) {
		switch raw[idx] {
		case "the", "a", "an":
			idx++
		default:
			return raw[idx]
		}
	}
	return ""
}

// contentTerms filters the raw tokens down to concept-worthy terms.
func (a *Analyzer) contentTerms(raw []string) []string {
	terms := make([]string, 0, len(raw))
	for _, tok := range raw {
		if a.isContentTerm(tok) {
			terms = append(terms, tok)
		}
	}
	return terms
}

func (a *Analyzer) isContentTerm(tok string) bool {
	if len(tok) < a.cfg.MinTokenLength {
		return false
	}
	_, stop := stopWords[tok]
	return !stop
}

// splitSentences breaks text on sentence punctuation and newlines.
func splitSentences(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case '.', '!', '?', '\n', ';':
			return true
		}
		return false
	})
}

// tokenize lowercases and strips everything but letters, digits, hyphens.
func tokenize(sentence string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return ' '
		}
	}, sentence)
	return strings.Fields(cleaned)
}

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "her": {}, "was": {}, "one": {},
	"our": {}, "out": {}, "his": {}, "has": {}, "had": {}, "were": {},
	"they": {}, "this": {}, "that": {}, "with": {}, "from": {}, "have": {},
	"will": {}, "been": {}, "when": {}, "which": {}, "their": {}, "there": {},
	"what": {}, "would": {}, "about": {}, "into": {}, "than": {}, "then": {},
	"them": {}, "these": {}, "some": {}, "could": {}, "other": {}, "very": {},
	"also": {}, "just": {}, "because": {}, "over": {}, "such": {}, "only": {},
	"more": {}, "most": {}, "each": {}, "does": {}, "part": {},
	"through": {}, "between": {}, "where": {}, "while": {}, "after": {},
}
