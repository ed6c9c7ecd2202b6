package mcpserver

import (
	"context"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/Napageneral/imessage-max/internal/tools"
)

// envelope wraps an operation outcome as the tool's structured output and
// logs the call.
func envelope[T any](s *Server, tool string, start time.Time, result T, err error) (*gomcp.CallToolResult, any, error) {
	fields := []zap.Field{zap.String("tool", tool), zap.Duration("took", time.Since(start))}
	if err != nil {
		te := tools.AsError(err)
		s.logger.Info("tool call failed", append(fields, zap.String("kind", string(te.Kind)), zap.String("message", te.Message))...)
		return nil, te, nil
	}
	s.logger.Debug("tool call", fields...)
	return nil, result, nil
}

// handleFindChat locates chats.
func (s *Server) handleFindChat(
	ctx context.Context,
	req *gomcp.CallToolRequest,
	input tools.FindChatInput,
) (*gomcp.CallToolResult, any, error) {
	start := time.Now()
	res, err := s.svc.FindChat(ctx, input)
	return envelope(s, "find_chat", start, res, err)
}

// handleGetMessages returns messages of one chat.
func (s *Server) handleGetMessages(
	ctx context.Context,
	req *gomcp.CallToolRequest,
	input tools.GetMessagesInput,
) (*gomcp.CallToolResult, any, error) {
	start := time.Now()
	res, err := s.svc.GetMessages(ctx, input)
	return envelope(s, "get_messages", start, res, err)
}

// handleListChats lists recently active chats.
func (s *Server) handleListChats(
	ctx context.Context,
	req *gomcp.CallToolRequest,
	input tools.ListChatsInput,
) (*gomcp.CallToolResult, any, error) {
	start := time.Now()
	res, err := s.svc.ListChats(ctx, input)
	return envelope(s, "list_chats", start, res, err)
}

// handleSearch searches messages across chats.
func (s *Server) handleSearch(
	ctx context.Context,
	req *gomcp.CallToolRequest,
	input tools.SearchInput,
) (*gomcp.CallToolResult, any, error) {
	start := time.Now()
	res, err := s.svc.Search(ctx, input)
	return envelope(s, "search", start, res, err)
}

// handleGetContext returns the messages around a target.
func (s *Server) handleGetContext(
	ctx context.Context,
	req *gomcp.CallToolRequest,
	input tools.GetContextInput,
) (*gomcp.CallToolResult, any, error) {
	start := time.Now()
	res, err := s.svc.GetContext(ctx, input)
	return envelope(s, "get_context", start, res, err)
}

// handleGetAttachments lists attachments.
func (s *Server) handleGetAttachments(
	ctx context.Context,
	req *gomcp.CallToolRequest,
	input tools.GetAttachmentsInput,
) (*gomcp.CallToolResult, any, error) {
	start := time.Now()
	res, err := s.svc.GetAttachments(ctx, input)
	return envelope(s, "get_attachments", start, res, err)
}

// handleContactsStatus reports the contact directory state.
func (s *Server) handleContactsStatus(
	ctx context.Context,
	req *gomcp.CallToolRequest,
	input ContactsStatusInput,
) (*gomcp.CallToolResult, any, error) {
	start := time.Now()
	res, err := s.svc.ContactsStatus(ctx)
	return envelope(s, "contacts_status", start, res, err)
}
