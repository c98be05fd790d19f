package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/BaSui01/agentmarket/agent/discovery"
	"github.com/BaSui01/agentmarket/internal/catalog"
	"github.com/BaSui01/agentmarket/types"
	"go.uber.org/zap"
)

// =============================================================================
// 🔍 Agent Discovery Handler
// =============================================================================

// Searcher is the search facade the handler serves.
// *discovery.SearchService satisfies it.
type Searcher interface {
	Search(ctx context.Context, query *discovery.SearchQuery) ([]*discovery.MatchResult, error)
	GetByID(ctx context.Context, id string) (*discovery.AgentRecord, bool, error)
	TopByCapability(ctx context.Context, capability string, limit int, sortBy discovery.SortField, partial bool) ([]*discovery.MatchResult, error)
	BestValue(ctx context.Context, capability string, limit int, partial bool) ([]*discovery.MatchResult, error)
	Broaden(ctx context.Context, query *discovery.SearchQuery, step discovery.BroadeningStep) (*discovery.SearchQuery, []*discovery.MatchResult, error)
}

var _ Searcher = (*discovery.SearchService)(nil)

// AgentHandler serves the discovery endpoints under /api/v1/agents.
type AgentHandler struct {
	searcher Searcher
	cardOpts catalog.CardOptions
	logger   *zap.Logger
}

// AgentHandlerOption configures an AgentHandler.
type AgentHandlerOption func(*AgentHandler)

// WithCardOptions overrides the agent card generation options.
func WithCardOptions(opts catalog.CardOptions) AgentHandlerOption {
	return func(h *AgentHandler) {
		h.cardOpts = opts
	}
}

// SearchResponse is the data payload of the list endpoints.
type SearchResponse struct {
	Count   int                      `json:"count"`
	Results []*discovery.MatchResult `json:"results"`
}

// BroadenRequest is the body of POST /api/v1/agents/broaden.
type BroadenRequest struct {
	Query *discovery.SearchQuery `json:"query"`
	Step  string                 `json:"step"`
}

// BroadenResponse carries the relaxed query and what it found.
type BroadenResponse struct {
	Step    discovery.BroadeningStep `json:"step"`
	Query   *discovery.SearchQuery   `json:"query"`
	Count   int                      `json:"count"`
	Results []*discovery.MatchResult `json:"results"`
}

// NewAgentHandler creates the discovery handler.
func NewAgentHandler(searcher Searcher, logger *zap.Logger, opts ...AgentHandlerOption) *AgentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &AgentHandler{
		searcher: searcher,
		cardOpts: catalog.DefaultCardOptions(),
		logger:   logger.With(zap.String("component", "agent_handler")),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes mounts the discovery endpoints on mux.
func (h *AgentHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/agents/search", h.HandleSearch)
	mux.HandleFunc("GET /api/v1/agents/top", h.HandleTop)
	mux.HandleFunc("GET /api/v1/agents/best-value", h.HandleBestValue)
	mux.HandleFunc("POST /api/v1/agents/broaden", h.HandleBroaden)
	mux.HandleFunc("GET /api/v1/agents/{id}", h.HandleGet)
	mux.HandleFunc("GET /api/v1/agents/{id}/card", h.HandleCard)
}

// =============================================================================
// 🎯 HTTP Handlers
// =============================================================================

// HandleSearch runs a general search.
// @Summary Search agents
// @Tags agent
// @Produce json
// @Param capabilities query string false "Comma separated capabilities"
// @Param max_price query number false "Maximum price per call"
// @Param min_karma query int false "Minimum karma"
// @Param sort_by query string false "karma, agent_pricing or agent_name"
// @Param sort_order query string false "asc or desc"
// @Param limit query int false "Result limit"
// @Param name_contains query string false "Name or description substring"
// @Param partial_match query bool false "Fuzzy capability matching (default true)"
// @Success 200 {object} Response{data=SearchResponse}
// @Failure 400 {object} Response
// @Router /api/v1/agents/search [get]
func (h *AgentHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query, err := parseSearchQuery(r.URL.Query())
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	results, err := h.searcher.Search(r.Context(), query)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	WriteSuccess(w, r, newSearchResponse(results))
}

// HandleTop returns the top providers for one capability.
// @Summary Top agents by capability
// @Tags agent
// @Produce json
// @Param capability query string true "Capability"
// @Param limit query int false "Result limit"
// @Param sort_by query string false "karma, agent_pricing or agent_name"
// @Param partial_match query bool false "Fuzzy capability matching (default true)"
// @Success 200 {object} Response{data=SearchResponse}
// @Failure 400 {object} Response
// @Router /api/v1/agents/top [get]
func (h *AgentHandler) HandleTop(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	limit, err := intParam(values, "limit")
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	partial, err := boolParam(values, "partial_match", true)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	results, err := h.searcher.TopByCapability(r.Context(),
		strings.TrimSpace(values.Get("capability")),
		limit,
		discovery.SortField(values.Get("sort_by")),
		partial)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	WriteSuccess(w, r, newSearchResponse(results))
}

// HandleBestValue ranks providers by karma per unit price.
// @Summary Best value agents
// @Tags agent
// @Produce json
// @Param capability query string false "Capability"
// @Param limit query int false "Result limit"
// @Param partial_match query bool false "Fuzzy capability matching (default true)"
// @Success 200 {object} Response{data=SearchResponse}
// @Failure 400 {object} Response
// @Router /api/v1/agents/best-value [get]
func (h *AgentHandler) HandleBestValue(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	limit, err := intParam(values, "limit")
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	partial, err := boolParam(values, "partial_match", true)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	results, err := h.searcher.BestValue(r.Context(), values.Get("capability"), limit, partial)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	WriteSuccess(w, r, newSearchResponse(results))
}

// HandleGet returns a single catalog record.
// @Summary Get agent
// @Tags agent
// @Produce json
// @Param id path string true "Agent ID"
// @Success 200 {object} Response{data=discovery.AgentRecord}
// @Failure 404 {object} Response
// @Router /api/v1/agents/{id} [get]
func (h *AgentHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.lookup(w, r)
	if !ok {
		return
	}
	WriteSuccess(w, r, rec)
}

// HandleCard returns the agent card for a catalog record.
// @Summary Get agent card
// @Tags agent
// @Produce json
// @Param id path string true "Agent ID"
// @Success 200 {object} Response{data=catalog.AgentCard}
// @Failure 404 {object} Response
// @Router /api/v1/agents/{id}/card [get]
func (h *AgentHandler) HandleCard(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.lookup(w, r)
	if !ok {
		return
	}
	WriteSuccess(w, r, catalog.BuildCard(rec, h.cardOpts))
}

// HandleBroaden applies one broadening step and runs the relaxed query.
// @Summary Broaden a search
// @Tags agent
// @Accept json
// @Produce json
// @Param request body BroadenRequest true "Query and step"
// @Success 200 {object} Response{data=BroadenResponse}
// @Failure 400 {object} Response
// @Router /api/v1/agents/broaden [post]
func (h *AgentHandler) HandleBroaden(w http.ResponseWriter, r *http.Request) {
	var req BroadenRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if req.Query == nil {
		WriteErrorMessage(w, r, types.ErrInvalidRequest, "query is required", h.logger)
		return
	}
	step, err := discovery.ParseBroadeningStep(req.Step)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	relaxed, results, err := h.searcher.Broaden(r.Context(), req.Query, step)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	if results == nil {
		results = []*discovery.MatchResult{}
	}
	WriteSuccess(w, r, BroadenResponse{
		Step:    step,
		Query:   relaxed,
		Count:   len(results),
		Results: results,
	})
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// lookup resolves the {id} path value. It writes the error response itself.
func (h *AgentHandler) lookup(w http.ResponseWriter, r *http.Request) (*discovery.AgentRecord, bool) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		WriteErrorMessage(w, r, types.ErrInvalidRequest, "agent id is required", h.logger)
		return nil, false
	}
	rec, found, err := h.searcher.GetByID(r.Context(), id)
	if err != nil {
		h.writeErr(w, r, err)
		return nil, false
	}
	if !found {
		WriteErrorMessage(w, r, types.ErrNotFound, fmt.Sprintf("agent %q not found", id), h.logger)
		return nil, false
	}
	return rec, true
}

func (h *AgentHandler) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	WriteError(w, r, ToAPIError(err), h.logger)
}

func newSearchResponse(results []*discovery.MatchResult) SearchResponse {
	if results == nil {
		results = []*discovery.MatchResult{}
	}
	return SearchResponse{Count: len(results), Results: results}
}

// parseSearchQuery builds a SearchQuery from URL parameters. Partial matching
// defaults to on.
func parseSearchQuery(values url.Values) (*discovery.SearchQuery, error) {
	q := discovery.NewSearchQuery(splitList(values.Get("capabilities"))...)

	if v := values.Get("max_price"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, invalidParam("max_price", v)
		}
		q.MaxPrice = &price
	}
	if v := values.Get("min_karma"); v != "" {
		karma, err := strconv.Atoi(v)
		if err != nil {
			return nil, invalidParam("min_karma", v)
		}
		q.MinReputation = &karma
	}

	var err error
	if q.SortBy, err = discovery.ParseSortField(values.Get("sort_by")); err != nil {
		return nil, err
	}
	if q.SortOrder, err = discovery.ParseSortOrder(values.Get("sort_order")); err != nil {
		return nil, err
	}
	if q.Limit, err = intParam(values, "limit"); err != nil {
		return nil, err
	}
	if q.PartialMatch, err = boolParam(values, "partial_match", true); err != nil {
		return nil, err
	}
	q.NameContains = strings.TrimSpace(values.Get("name_contains"))
	return q, nil
}

// splitList splits a comma separated list, dropping blanks.
func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func intParam(values url.Values, name string) (int, error) {
	v := values.Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, invalidParam(name, v)
	}
	return n, nil
}

func boolParam(values url.Values, name string, def bool) (bool, error) {
	v := values.Get(name)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, invalidParam(name, v)
	}
	return b, nil
}

func invalidParam(name, value string) error {
	return fmt.Errorf("%w: invalid %s %q", discovery.ErrInvalidQuery, name, value)
}
