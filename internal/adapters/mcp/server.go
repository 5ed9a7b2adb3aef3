package mcpadapter

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
	"github.com/kirillkom/leave-policy-bot/internal/core/ports"
	"github.com/kirillkom/leave-policy-bot/internal/core/usecase"
)

const (
	serverName    = "leave-policy-bot"
	serverVersion = "1.0.0"

	ToolSearch = "search_leave_policy"
	ToolAsk    = "ask_leave_policy"
)

// Server exposes policy search and question answering as MCP tools.
type Server struct {
	searcher    ports.Searcher
	asker       ports.PolicyAsker
	countryCode string
	mcp         *server.MCPServer
}

func NewServer(searcher ports.Searcher, asker ports.PolicyAsker, defaultCountry string) *Server {
	s := &Server{
		searcher:    searcher,
		asker:       asker,
		countryCode: defaultCountry,
		mcp:         server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(false)),
	}
	s.registerTools()
	return s
}

// Serve speaks MCP over the given streams until ctx is done or in closes.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

func (s *Server) registerTools() {
	if s.searcher != nil {
		s.mcp.AddTool(mcp.NewTool(ToolSearch,
			mcp.WithDescription("Find leave policy passages relevant to a query, scoped to a country."),
			mcp.WithString("query", mcp.Required(), mcp.Description("what to look for, e.g. 'maternity leave duration'")),
			mcp.WithString("country_code", mcp.Description("ISO country code; global passages are always included")),
			mcp.WithNumber("top_k", mcp.Description("maximum number of passages (default 10)")),
		), s.handleSearch)
	}
	if s.asker != nil {
		s.mcp.AddTool(mcp.NewTool(ToolAsk,
			mcp.WithDescription("Answer a question about leave, holidays or time-off policy."),
			mcp.WithString("question", mcp.Required(), mcp.Description("the employee's question")),
			mcp.WithString("country_code", mcp.Description("ISO country code of the employee")),
		), s.handleAsk)
	}
}

type searchOutput struct {
	Results []domain.RetrievedChunk `json:"results"`
	Count   int                     `json:"count"`
}

func (s *Server) handleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	chunks, err := s.searcher.Search(ctx, domain.SearchQuery{
		Query:       query,
		CountryCode: s.country(req.GetString("country_code", "")),
		TopK:        req.GetInt("top_k", 0),
	})
	if err != nil {
		return toolError("search", err), nil
	}
	if chunks == nil {
		chunks = []domain.RetrievedChunk{}
	}
	return jsonResult(searchOutput{Results: chunks, Count: len(chunks)})
}

func (s *Server) handleAsk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.asker.Ask(ctx, domain.AskRequest{
		Question:    question,
		CountryCode: s.country(req.GetString("country_code", "")),
	})
	if err != nil {
		return toolError("ask", err), nil
	}
	if result.Degraded {
		return mcp.NewToolResultError(result.Text), nil
	}
	return mcp.NewToolResultText(result.Text), nil
}

func (s *Server) country(cc string) string {
	if cc = strings.ToUpper(strings.TrimSpace(cc)); cc != "" {
		return cc
	}
	return s.countryCode
}

func toolError(tool string, err error) *mcp.CallToolResult {
	if domain.IsKind(err, domain.ErrInvalidInput) {
		return mcp.NewToolResultError(err.Error())
	}
	slog.Error("mcp_tool_failed", "tool", tool, "error", err)
	return mcp.NewToolResultError(usecase.MessageFailure)
}

func jsonResult(payload any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(raw)), nil
}
