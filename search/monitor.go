package search

import (
	"github.com/poiesic/occusearch/core"
)

// SearchMonitor provides hooks to observe the ranking process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query core.Query, mode core.Mode)
	AfterQueryEmbedding(dimensions int)
	CandidateScored(result core.Result)
	Degraded(err error)
	Finish(ranking *Ranking)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ core.Query, _ core.Mode) {}
func (n *noopMonitor) AfterQueryEmbedding(_ int)       {}
func (n *noopMonitor) CandidateScored(_ core.Result)   {}
func (n *noopMonitor) Degraded(_ error)                {}
func (n *noopMonitor) Finish(_ *Ranking)               {}
