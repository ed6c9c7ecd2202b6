// Package mcpserver exposes the query operations as MCP tools over stdio.
package mcpserver

import (
	"context"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/Napageneral/imessage-max/internal/tools"
)

// Server is the imessage-max MCP server.
type Server struct {
	svc     *tools.Service
	logger  *zap.Logger
	version string
	server  *gomcp.Server
}

// Option configures the MCP server.
type Option func(*Server)

// WithVersion sets the server version string.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// WithLogger sets the logger used for tool calls.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer creates an MCP server answering tool calls with svc.
func NewServer(svc *tools.Service, opts ...Option) *Server {
	s := &Server{
		svc:     svc,
		logger:  zap.NewNop(),
		version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{
			Name:    "imessage-max",
			Version: s.version,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run serves MCP on stdin/stdout until the client disconnects or ctx is
// canceled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("mcp server starting", zap.String("version", s.version), zap.String("db", s.svc.DBPath()))
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// registerTools registers all MCP tool handlers with the server.
func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "find_chat",
		Description: "Find chats by participants (names, phone numbers or emails), group name, or text from a recent message. Returns chat ids for the other tools.",
	}, s.handleFindChat)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_messages",
		Description: "Get messages from one chat, newest first, with optional time, sender, text and content filters. unanswered=true returns my questions that got no reply within 24 hours (best-effort heuristic).",
	}, s.handleGetMessages)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_chats",
		Description: "List recently active chats with participant counts and a preview of the last message",
	}, s.handleListChats)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "search",
		Description: "Search messages across all chats by text, sender, content type or time range",
	}, s.handleSearch)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_context",
		Description: "Get the messages before and after a message, found by id or by chat and text",
	}, s.handleGetContext)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_attachments",
		Description: "List attachments (images, videos, audio, documents) with sender, chat and message references",
	}, s.handleGetAttachments)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "contacts_status",
		Description: "Report whether contact names are available and how many handles they cover",
	}, s.handleContactsStatus)
}
