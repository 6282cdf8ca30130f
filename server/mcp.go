package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/oxybridge/store"
	"github.com/hazyhaar/oxybridge/tree"
)

// RegisterMCP exposes the tree operations as MCP tools, sharing the store
// and validation path with the REST handlers. Auth is the transport's
// concern: MCP runs over stdio for a local agent, not over the network.
func (s *Server) RegisterMCP(srv *mcp.Server) {
	s.registerValidateTool(srv)
	s.registerTransformTool(srv)
	s.registerGetDocumentTool(srv)
	s.registerSaveDocumentTool(srv)
	s.registerListDocumentsTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// addTool wires decode → run → encode with uniform error reporting. Tool
// failures are results, not protocol errors, so the agent can read them.
func addTool[Req any](srv *mcp.Server, tool *mcp.Tool, run func(context.Context, *Req) (any, error)) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var p Req
		if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("invalid arguments: %w", err))
			return &res, nil
		}
		out, err := run(ctx, &p)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(err)
			return &res, nil
		}
		data, err := json.Marshal(out)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("marshal: %w", err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

func (s *Server) registerValidateTool(srv *mcp.Server) {
	type req struct {
		Tree map[string]any `json:"tree"`
	}
	tool := &mcp.Tool{
		Name:        "oxybridge_validate_tree",
		Description: "Validate a design tree against the builder's structural contract; returns every defect with a path and machine code",
		InputSchema: inputSchema(map[string]any{
			"tree": map[string]any{"type": "object", "description": "The design tree to validate"},
		}, []string{"tree"}),
	}
	addTool(srv, tool, func(_ context.Context, p *req) (any, error) {
		return tree.Validate(p.Tree), nil
	})
}

func (s *Server) registerTransformTool(srv *mcp.Server) {
	type req struct {
		Elements []any `json:"elements"`
	}
	tool := &mcp.Tool{
		Name:        "oxybridge_transform_tree",
		Description: "Expand a flat element list into a canonical, validated design tree",
		InputSchema: inputSchema(map[string]any{
			"elements": map[string]any{"type": "array", "description": "Flat element descriptors: {type, id?, parent?, text?, properties?}"},
		}, []string{"elements"}),
	}
	addTool(srv, tool, func(_ context.Context, p *req) (any, error) {
		doc, stats, err := tree.TransformSimplified(p.Elements)
		if err != nil {
			return nil, err
		}
		return map[string]any{"tree": doc, "_processing": stats}, nil
	})
}

func (s *Server) registerGetDocumentTool(srv *mcp.Server) {
	type req struct {
		ID string `json:"id"`
	}
	tool := &mcp.Tool{
		Name:        "oxybridge_get_document",
		Description: "Read a stored template or page, including its design tree",
		InputSchema: inputSchema(map[string]any{
			"id": map[string]any{"type": "string", "description": "Document id"},
		}, []string{"id"}),
	}
	addTool(srv, tool, func(ctx context.Context, p *req) (any, error) {
		doc, err := s.store.GetDocument(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		return toPayload(doc), nil
	})
}

func (s *Server) registerSaveDocumentTool(srv *mcp.Server) {
	type req struct {
		ID    string         `json:"id"`
		Kind  string         `json:"kind"`
		Title string         `json:"title"`
		Slug  string         `json:"slug"`
		Tree  map[string]any `json:"tree"`
	}
	tool := &mcp.Tool{
		Name:        "oxybridge_save_document",
		Description: "Create or update a template/page; the tree is normalized and must validate",
		InputSchema: inputSchema(map[string]any{
			"id":    map[string]any{"type": "string", "description": "Existing document id; omit to create"},
			"kind":  map[string]any{"type": "string", "description": "template or page (create only)"},
			"title": map[string]any{"type": "string", "description": "Document title"},
			"slug":  map[string]any{"type": "string", "description": "URL slug"},
			"tree":  map[string]any{"type": "object", "description": "The design tree to store"},
		}, []string{"tree"}),
	}
	addTool(srv, tool, func(ctx context.Context, p *req) (any, error) {
		doc := tree.Normalize(p.Tree)
		if report := tree.Validate(doc); !report.Valid {
			data, _ := json.Marshal(report)
			return nil, fmt.Errorf("tree failed validation: %s", data)
		}
		treeJSON, err := json.Marshal(doc)
		if err != nil {
			return nil, err
		}

		if p.ID != "" {
			updated, err := s.store.UpdateDocument(ctx, p.ID, p.Title, p.Slug, string(treeJSON))
			if err != nil {
				return nil, err
			}
			return toPayload(updated), nil
		}

		kind := p.Kind
		if kind != store.KindTemplate && kind != store.KindPage {
			if kind != "" {
				return nil, errors.New("kind must be template or page")
			}
			kind = store.KindPage
		}
		created := &store.Document{Kind: kind, Title: p.Title, Slug: p.Slug, TreeJSON: string(treeJSON)}
		if err := s.store.CreateDocument(ctx, created); err != nil {
			return nil, err
		}
		return toPayload(created), nil
	})
}

func (s *Server) registerListDocumentsTool(srv *mcp.Server) {
	type req struct {
		Kind  string `json:"kind"`
		Limit int    `json:"limit"`
	}
	tool := &mcp.Tool{
		Name:        "oxybridge_list_documents",
		Description: "List stored templates or pages, most recently updated first",
		InputSchema: inputSchema(map[string]any{
			"kind":  map[string]any{"type": "string", "description": "template or page"},
			"limit": map[string]any{"type": "integer", "description": "Max results, default 50"},
		}, []string{"kind"}),
	}
	addTool(srv, tool, func(ctx context.Context, p *req) (any, error) {
		docs, err := s.store.ListDocuments(ctx, p.Kind, p.Limit, 0)
		if err != nil {
			return nil, err
		}
		out := make([]documentPayload, 0, len(docs))
		for i := range docs {
			out = append(out, toPayload(&docs[i]))
		}
		return out, nil
	})
}
