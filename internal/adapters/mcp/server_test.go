package mcpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
	"github.com/kirillkom/leave-policy-bot/internal/core/usecase"
)

type searcherFake struct {
	chunks []domain.RetrievedChunk
	err    error
	last   domain.SearchQuery
}

func (f *searcherFake) Search(_ context.Context, query domain.SearchQuery) ([]domain.RetrievedChunk, error) {
	f.last = query
	return f.chunks, f.err
}

type askerFake struct {
	result *domain.AskResult
	err    error
	last   domain.AskRequest
}

func (f *askerFake) Ask(_ context.Context, req domain.AskRequest) (*domain.AskResult, error) {
	f.last = req
	return f.result, f.err
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

func TestHandleSearchReturnsJSON(t *testing.T) {
	searcher := &searcherFake{chunks: []domain.RetrievedChunk{{ChunkID: "c1", Content: "Diwali - Oct 20"}}}
	s := NewServer(searcher, nil, "IN")

	res, err := s.handleSearch(context.Background(), callRequest(ToolSearch, map[string]any{"query": "holidays", "top_k": float64(3)}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	var out searchOutput
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.Equal(t, 1, out.Count)
	assert.Equal(t, "c1", out.Results[0].ChunkID)
	assert.Equal(t, domain.SearchQuery{Query: "holidays", CountryCode: "IN", TopK: 3}, searcher.last)
}

func TestHandleSearchRequiresQuery(t *testing.T) {
	s := NewServer(&searcherFake{}, nil, "IN")
	res, err := s.handleSearch(context.Background(), callRequest(ToolSearch, map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestHandleSearchHidesInternalErrors(t *testing.T) {
	s := NewServer(&searcherFake{err: errors.New("dial tcp 10.0.0.5:5432")}, nil, "IN")
	res, err := s.handleSearch(context.Background(), callRequest(ToolSearch, map[string]any{"query": "leave"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, usecase.MessageFailure, resultText(t, res))
}

func TestHandleAskUsesCountryOverride(t *testing.T) {
	asker := &askerFake{result: &domain.AskResult{Text: "You get 26 weeks."}}
	s := NewServer(nil, asker, "IN")

	res, err := s.handleAsk(context.Background(), callRequest(ToolAsk, map[string]any{"question": "maternity leave?", "country_code": "us"}))
	require.NoError(t, err)
	assert.Equal(t, "You get 26 weeks.", resultText(t, res))
	assert.Equal(t, "US", asker.last.CountryCode)
}

func TestHandleAskDegradedIsToolError(t *testing.T) {
	asker := &askerFake{result: &domain.AskResult{Text: usecase.MessageFailure, Degraded: true}}
	s := NewServer(nil, asker, "IN")

	res, err := s.handleAsk(context.Background(), callRequest(ToolAsk, map[string]any{"question": "leave?"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
