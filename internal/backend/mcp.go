package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/yndnr/skillgate-go/internal/core/identity"
	"github.com/yndnr/skillgate-go/internal/skills"
)

// MCP transport endpoints.
const (
	SSEEndpoint     = "/sse"
	MessageEndpoint = "/sse/message"
)

// MCPOptions configures the skill-serving MCP backend.
type MCPOptions struct {
	Name    string
	Version string

	// SkillsRoot is the directory holding <user_id>/<skill_name>/SKILL.md.
	SkillsRoot string

	// BaseURL prefixes the message endpoint announced to SSE clients.
	// Empty announces a relative path.
	BaseURL string

	KeepAliveInterval time.Duration

	Logger *slog.Logger
}

// NewMCPFactory returns a Factory that builds the MCP server over a skill
// repository. The skills root is created if missing.
func NewMCPFactory(opts MCPOptions) Factory {
	return func(ctx context.Context) (Backend, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if opts.SkillsRoot == "" {
			return nil, errors.New("skills root is not configured")
		}
		if err := os.MkdirAll(opts.SkillsRoot, 0o750); err != nil {
			return nil, fmt.Errorf("prepare skills root: %w", err)
		}
		info, err := os.Stat(opts.SkillsRoot)
		if err != nil {
			return nil, fmt.Errorf("stat skills root: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("skills root %s is not a directory", opts.SkillsRoot)
		}
		return newMCPBackend(skills.NewRepository(opts.SkillsRoot), opts), nil
	}
}

type mcpBackend struct {
	repo       *skills.Repository
	logger     *slog.Logger
	mcpServer  *server.MCPServer
	streamable *server.StreamableHTTPServer
	sse        *server.SSEServer
}

func newMCPBackend(repo *skills.Repository, opts MCPOptions) *mcpBackend {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := opts.Name
	if name == "" {
		name = "skillgate"
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}
	keepAlive := opts.KeepAliveInterval
	if keepAlive <= 0 {
		keepAlive = 30 * time.Second
	}

	b := &mcpBackend{
		repo:   repo,
		logger: logger.With("component", "mcp"),
		mcpServer: server.NewMCPServer(
			name,
			version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
	}
	b.registerTools()

	b.streamable = server.NewStreamableHTTPServer(
		b.mcpServer,
		server.WithHTTPContextFunc(withOwner),
	)
	b.sse = server.NewSSEServer(
		b.mcpServer,
		server.WithBaseURL(strings.TrimSuffix(opts.BaseURL, "/")),
		server.WithSSEEndpoint(SSEEndpoint),
		server.WithMessageEndpoint(MessageEndpoint),
		server.WithKeepAlive(true),
		server.WithKeepAliveInterval(keepAlive),
		server.WithSSEContextFunc(withOwner),
	)
	return b
}

// Handler implements Backend.
func (b *mcpBackend) Handler(m Mount) http.Handler {
	if m == MountSSE {
		return b.sse
	}
	return b.streamable
}

// Close implements Backend.
func (b *mcpBackend) Close(ctx context.Context) error {
	return errors.Join(
		b.sse.Shutdown(ctx),
		b.streamable.Shutdown(ctx),
	)
}

func (b *mcpBackend) registerTools() {
	b.mcpServer.AddTool(mcp.NewTool("load_skill_metadata",
		mcp.WithDescription("List the name and description of every skill available to the caller"),
	), b.handleLoadSkillMetadata)

	b.mcpServer.AddTool(mcp.NewTool("load_skill",
		mcp.WithDescription("Load the SKILL.md instructions of a skill"),
		mcp.WithString("skill_name",
			mcp.Required(),
			mcp.Description("Name of the skill"),
		),
	), b.handleLoadSkill)

	b.mcpServer.AddTool(mcp.NewTool("read_reference_file",
		mcp.WithDescription("Read a reference file inside a skill directory"),
		mcp.WithString("skill_name",
			mcp.Required(),
			mcp.Description("Name of the skill"),
		),
		mcp.WithString("file_name",
			mcp.Required(),
			mcp.Description("Path of the file relative to the skill directory"),
		),
	), b.handleReadReferenceFile)

	b.mcpServer.AddTool(mcp.NewTool("list_skill_files",
		mcp.WithDescription("List the files of a skill"),
		mcp.WithString("skill_name",
			mcp.Required(),
			mcp.Description("Name of the skill"),
		),
	), b.handleListSkillFiles)
}

func (b *mcpBackend) handleLoadSkillMetadata(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := b.repo.List(ownerFrom(ctx))
	if err != nil {
		return b.toolError(ctx, "load_skill_metadata", err), nil
	}
	data, err := json.Marshal(list)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format skills: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (b *mcpBackend) handleLoadSkill(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("skill_name")
	if err != nil {
		return mcp.NewToolResultError("skill_name argument is required"), nil
	}
	s, err := b.repo.Load(ownerFrom(ctx), name)
	if err != nil {
		return b.toolError(ctx, "load_skill", err), nil
	}
	return mcp.NewToolResultText(s.Body), nil
}

func (b *mcpBackend) handleReadReferenceFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("skill_name")
	if err != nil {
		return mcp.NewToolResultError("skill_name argument is required"), nil
	}
	file, err := request.RequireString("file_name")
	if err != nil {
		return mcp.NewToolResultError("file_name argument is required"), nil
	}
	data, err := b.repo.ReadFile(ownerFrom(ctx), name, file)
	if err != nil {
		return b.toolError(ctx, "read_reference_file", err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (b *mcpBackend) handleListSkillFiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("skill_name")
	if err != nil {
		return mcp.NewToolResultError("skill_name argument is required"), nil
	}
	files, err := b.repo.ListFiles(ownerFrom(ctx), name)
	if err != nil {
		return b.toolError(ctx, "list_skill_files", err), nil
	}
	return mcp.NewToolResultText(strings.Join(files, "\n")), nil
}

// toolError converts a repository error into a tool-level error result.
// Unexpected errors are logged and reported without their cause.
func (b *mcpBackend) toolError(ctx context.Context, tool string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, skills.ErrNotFound),
		errors.Is(err, skills.ErrInvalidName),
		errors.Is(err, skills.ErrInvalidPath),
		errors.Is(err, skills.ErrTooLarge):
		return mcp.NewToolResultError(err.Error())
	}
	b.logger.ErrorContext(ctx, "skill tool failed", "tool", tool, "owner", ownerFrom(ctx), "error", err)
	return mcp.NewToolResultError("internal error")
}

type ownerKey struct{}

// withOwner copies the caller's user id out of the request-scoped identity.
// SSE tool calls complete after the HTTP request that carried them, when the
// identity binding has already been released.
func withOwner(ctx context.Context, r *http.Request) context.Context {
	return context.WithValue(ctx, ownerKey{}, identity.UserID(r.Context()))
}

func ownerFrom(ctx context.Context) string {
	if v, ok := ctx.Value(ownerKey{}).(string); ok {
		return v
	}
	return identity.UserID(ctx)
}
