package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/cogniweave/cogniweave/internal/article"
	"github.com/cogniweave/cogniweave/internal/profile"
	"github.com/cogniweave/cogniweave/internal/transform"
)

// NewMCPServer creates an MCP server with all cogniweave tools and resources
// registered. It shares AppDeps with the HTTP handler.
func NewMCPServer(deps AppDeps, version string) *server.MCPServer {
	if deps.Transformer == nil {
		deps.Transformer = transform.New(nil)
	}

	s := server.NewMCPServer(
		"cogniweave",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("cogniweave adapts reading material to a cognitive profile: shorter chunks, plainer vocabulary, optional analogies."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("derive_profile",
			mcp.WithDescription("Derive a cognitive profile from onboarding questionnaire answers."),
			mcp.WithString("reading_style", mcp.Description("short-paragraphs, bullet-points, single-sentences or standard")),
			mcp.WithString("distractions", mcp.Description("ads-images, sidebars, animations or minimal")),
			mcp.WithString("complex_topics", mcp.Description("analogies, summaries, step-by-step or detailed")),
			mcp.WithString("learning_environment", mcp.Description("Preferred learning environment")),
			mcp.WithString("time_preference", mcp.Description("e.g. short-bursts")),
			mcp.WithArray("additional_needs", mcp.Description("Checkbox labels, e.g. \"Larger font sizes\""), mcp.WithStringItems()),
			mcp.WithArray("focus_challenges", mcp.Description("Checkbox labels, e.g. \"Difficulty with complex vocabulary\""), mcp.WithStringItems()),
			mcp.WithBoolean("save", mcp.Description("Store the derived profile as the current profile")),
		),
		mcpDeriveProfile(deps),
	)

	s.AddTool(
		mcp.NewTool("transform_content",
			mcp.WithDescription("Transform an article or raw text with the stored profile."),
			mcp.WithString("article_id", mcp.Description("Library article id (see list_articles)")),
			mcp.WithString("text", mcp.Description("Raw text to transform; paragraphs separated by a blank line")),
		),
		mcpTransformContent(deps),
	)

	s.AddTool(
		mcp.NewTool("update_profile",
			mcp.WithDescription("Deep-merge a partial profile JSON object into the stored profile."),
			mcp.WithString("patch", mcp.Description(`Partial profile, e.g. {"preferences":{"fontSize":20}}`), mcp.Required()),
		),
		mcpUpdateProfile(deps),
	)

	s.AddTool(
		mcp.NewTool("list_articles",
			mcp.WithDescription("List the articles available for transformation."),
		),
		mcpListArticles(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"profile://current",
			"Current Profile",
			mcp.WithResourceDescription("The stored cognitive profile as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceProfile(deps),
	)

	return s
}

func mcpDeriveProfile(deps AppDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		answers := profile.Answers{
			ReadingStyle:        req.GetString("reading_style", ""),
			Distractions:        req.GetString("distractions", ""),
			ComplexTopics:       req.GetString("complex_topics", ""),
			LearningEnvironment: req.GetString("learning_environment", ""),
			TimePreference:      req.GetString("time_preference", ""),
			AdditionalNeeds:     req.GetStringSlice("additional_needs", nil),
			FocusChallenges:     req.GetStringSlice("focus_challenges", nil),
		}
		p := profile.Derive(answers)

		if req.GetBool("save", false) {
			if err := deps.Profile.Set(p); err != nil {
				return mcpError(fmt.Sprintf("failed to save profile: %v", err)), nil
			}
		}
		return mcpJSON(p)
	}
}

func mcpTransformContent(deps AppDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		articleID := req.GetString("article_id", "")
		text := req.GetString("text", "")
		if (articleID == "") == (text == "") {
			return mcpError("exactly one of article_id or text is required"), nil
		}

		p, err := deps.Profile.Get()
		if errors.Is(err, profile.ErrNoProfile) {
			return mcpError("no profile stored; call derive_profile with save=true first"), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to load profile: %v", err)), nil
		}

		if text != "" {
			return mcpJSON(deps.Transformer.Transform(text, p))
		}

		a, err := deps.Library.Get(articleID)
		if errors.Is(err, article.ErrNotFound) {
			return mcpError(fmt.Sprintf("article %q not found", articleID)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to load article: %v", err)), nil
		}
		out, err := transformAndRecord(deps, a, p)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to record transform: %v", err)), nil
		}
		return mcpJSON(out)
	}
}

func mcpUpdateProfile(deps AppDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		patch, err := req.RequireString("patch")
		if err != nil {
			return mcpError("patch is required"), nil
		}

		p, err := deps.Profile.Merge([]byte(patch))
		var verr *profile.ValidationError
		switch {
		case errors.Is(err, profile.ErrNoProfile):
			return mcpError("no profile stored; call derive_profile with save=true first"), nil
		case errors.As(err, &verr):
			return mcpError(fmt.Sprintf("invalid profile: %v", verr)), nil
		case err != nil:
			return mcpError(fmt.Sprintf("failed to update profile: %v", err)), nil
		}
		return mcpJSON(p)
	}
}

func mcpListArticles(deps AppDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcpJSON(deps.Library.List())
	}
}

func mcpResourceProfile(deps AppDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		p, err := deps.Profile.Get()
		if err != nil {
			return nil, fmt.Errorf("failed to get profile: %w", err)
		}

		b, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal profile: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
