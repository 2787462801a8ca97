// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package search

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/occusearch/core"
	"github.com/poiesic/occusearch/index"
)

const (
	messageHybrid   = "Results ranked by semantic and lexical similarity"
	messageFallback = "Embedding provider unavailable; results ranked by substring match (fallback mode)"
	messageDegraded = "Embedding provider failed for this search; results ranked by substring match"
	messageError    = "Search failed unexpectedly"
)

// Service is the caller-facing search entry point.
type Service struct {
	controller *Controller
	ranker     *Ranker
	monitor    SearchMonitor
	logger     *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithMonitor attaches a monitor to every search run by the service.
func WithMonitor(monitor SearchMonitor) ServiceOption {
	return func(s *Service) {
		s.monitor = monitor
	}
}

// WithServiceLogger sets the logger used by the service.
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a service over idx. The controller must already have
// been probed; its mode and embedder are fixed for the service's lifetime.
// Ranker options are applied to the service's ranker.
func NewService(controller *Controller, idx *index.Index, rankerOpts []Option, opts ...ServiceOption) (*Service, error) {
	if controller == nil {
		return nil, ErrControllerRequired
	}
	if idx == nil {
		return nil, ErrIndexRequired
	}
	switch controller.State() {
	case StateHybridReady, StateFallbackReady:
	default:
		return nil, ErrNotProbed
	}

	ranker, err := NewRanker(idx, controller.Embedder(), rankerOpts...)
	if err != nil {
		return nil, err
	}

	s := &Service{
		controller: controller,
		ranker:     ranker,
		logger:     slog.Default().With("component", "search-service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Mode returns the mode searches are served in.
func (s *Service) Mode() core.Mode {
	return s.controller.CurrentMode()
}

// Search ranks the catalog against queryText and returns up to topK results.
// The only errors are invalid arguments (core.ErrInvalidArgument) and
// cancellation of ctx; provider failures degrade the search instead.
func (s *Service) Search(ctx context.Context, queryText string, topK int) (*core.Response, error) {
	query := core.Query{Text: queryText, TopK: topK}
	mode := s.controller.CurrentMode()

	ranking, err := s.ranker.RankWithMonitor(ctx, query, mode, s.monitor)
	if err != nil {
		return nil, err
	}

	resp := &core.Response{
		Status:   core.StatusOK,
		Mode:     ranking.Mode,
		Degraded: ranking.Degraded,
		Results:  ranking.Results,
	}
	switch {
	case ranking.Degraded:
		resp.Message = messageDegraded
	case ranking.Mode == core.ModeHybrid:
		resp.Message = messageHybrid
	default:
		resp.Message = messageFallback
	}
	if ranking.NoMatches {
		resp.Status = core.StatusNoMatches
		resp.Message = core.NoMatchesTitle
	}
	return resp, nil
}

// Handle is Search for presentation layers: it never returns an error.
// Invalid arguments become StatusInvalidArgument with the reason as the
// message; any other failure becomes StatusError with the search-error
// sentinel row.
func (s *Service) Handle(ctx context.Context, queryText string, topK int) *core.Response {
	resp, err := s.Search(ctx, queryText, topK)
	if err == nil {
		return resp
	}

	mode := s.controller.CurrentMode()
	if errors.Is(err, core.ErrInvalidArgument) {
		return &core.Response{
			Status:  core.StatusInvalidArgument,
			Message: err.Error(),
			Mode:    mode,
		}
	}

	s.logger.Error("search failed", "query", queryText, "err", err)
	return &core.Response{
		Status:  core.StatusError,
		Message: messageError,
		Mode:    mode,
		Results: []core.Result{core.SearchErrorResult()},
	}
}
