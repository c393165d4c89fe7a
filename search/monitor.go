package search

import (
	"log/slog"

	"github.com/poiesic/concierge/core"
)

// SearchMonitor receives callbacks at each stage of a search.
// Used for debugging and for explaining why an answer was chosen.
type SearchMonitor interface {
	Start(tenantID, query string)
	AfterFetch(entries []*core.KnowledgeEntry)
	AfterLexical(results []core.MatchCandidate)
	AfterSemantic(results []core.MatchCandidate)
	UsageRecorded(id core.ID, err error)
	Finish(results []core.MatchCandidate)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_, _ string)                     {}
func (n *noopMonitor) AfterFetch(_ []*core.KnowledgeEntry)   {}
func (n *noopMonitor) AfterLexical(_ []core.MatchCandidate)  {}
func (n *noopMonitor) AfterSemantic(_ []core.MatchCandidate) {}
func (n *noopMonitor) UsageRecorded(_ core.ID, _ error)      {}
func (n *noopMonitor) Finish(_ []core.MatchCandidate)        {}

// LogMonitor writes every search stage to a logger.
type LogMonitor struct {
	logger *slog.Logger
}

var _ SearchMonitor = (*LogMonitor)(nil)

// NewLogMonitor creates a monitor logging at Info level.
func NewLogMonitor(logger *slog.Logger) *LogMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMonitor{logger: logger.With("component", "search-monitor")}
}

func (m *LogMonitor) Start(tenantID, query string) {
	m.logger.Info("search started", "tenant", tenantID, "query", query)
}

func (m *LogMonitor) AfterFetch(entries []*core.KnowledgeEntry) {
	m.logger.Info("fetched active entries", "count", len(entries))
}

func (m *LogMonitor) AfterLexical(results []core.MatchCandidate) {
	m.logStage("lexical", results)
}

func (m *LogMonitor) AfterSemantic(results []core.MatchCandidate) {
	m.logStage("semantic", results)
}

func (m *LogMonitor) UsageRecorded(id core.ID, err error) {
	if err != nil {
		m.logger.Info("usage not recorded", "id", id, "err", err)
		return
	}
	m.logger.Info("usage recorded", "id", id)
}

func (m *LogMonitor) Finish(results []core.MatchCandidate) {
	source := "none"
	if len(results) > 0 {
		source = string(results[0].Source)
	}
	m.logger.Info("search finished", "results", len(results), "source", source)
}

func (m *LogMonitor) logStage(stage string, results []core.MatchCandidate) {
	m.logger.Info("matcher finished", "matcher", stage, "results", len(results))
	for i, r := range results {
		m.logger.Info("candidate", "matcher", stage, "rank", i+1, "score", r.Score, "question", r.Question)
	}
}
