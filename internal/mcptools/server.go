package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// Version reports the build version.
func Version() string { return version }

// tool pairs an MCP tool definition with its registration.
type tool struct {
	name, description string
	register          func(*mcp.Server, *mcp.Tool)
}

func add[In, Out any](h mcp.ToolHandlerFor[In, Out]) func(*mcp.Server, *mcp.Tool) {
	return func(s *mcp.Server, t *mcp.Tool) { mcp.AddTool(s, t, h) }
}

// NewEditorMCPServer creates an MCP server exposing the modeling
// operations, rule queries, history and graph queries of svc.
func NewEditorMCPServer(svc *EditorService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "cmmnedit",
		Version: version,
	}, nil)

	for _, t := range []tool{
		{"create_shape", "Create a shape with its semantic node: a plan item or discretionary item (with a new or shared definition), a criterion attached to a host, the case plan model, a case file item or an annotation.", add(svc.CreateShape)},
		{"append_shape", "Create a shape and connect the source element to it in a single undoable operation.", add(svc.AppendShape)},
		{"create_connection", "Connect two shapes. The rules pick an on-part, discretionary connection or association.", add(svc.CreateConnection)},
		{"move_elements", "Move elements by a delta, optionally into a new parent or onto a host. Shared definitions and sentries are split when they leave their scope.", add(svc.MoveElements)},
		{"resize_shape", "Set the bounds of a shape.", add(svc.ResizeShape)},
		{"replace_element", "Replace a shape: plan item and discretionary item, entry and exit criterion, or a definition type change.", add(svc.ReplaceElement)},
		{"toggle_collapse", "Collapse an expanded stage or plan fragment, or expand a collapsed one.", add(svc.ToggleCollapse)},
		{"delete_elements", "Delete elements together with their connections and attached criteria.", add(svc.DeleteElements)},
		{"update_properties", "Change the name, blocking or auto complete flag of the node an element renders.", add(svc.UpdateProperties)},
		{"undo", "Undo the last operation.", add(svc.Undo)},
		{"redo", "Redo the last undone operation.", add(svc.Redo)},
		{"can_connect", "Ask which connection type, if any, the rules allow between two shapes.", add(svc.CanConnect)},
		{"can_move", "Ask whether elements may be dropped on a target and which replacements would make the drop legal.", add(svc.CanMove)},
		{"get_references", "List the semantic nodes that refer to a definition or sentry.", add(svc.GetReferences)},
		{"query_nodes", "Search semantic nodes by id or name substring.", add(svc.QueryNodes)},
		{"get_containment", "Traverse containment upstream (containers) or downstream (contents) from a node.", add(svc.GetContainment)},
		{"assess_impact", "List the nodes depending on a set of nodes through references and on-part or association endpoints, with a risk score.", add(svc.AssessImpact)},
		{"export_document", "Render the document as JSON or as a Mermaid diagram.", add(svc.ExportDocument)},
		{"verify", "Check containment symmetry and reference bookkeeping of the open document.", add(svc.Verify)},
	} {
		t.register(server, &mcp.Tool{Name: t.name, Description: t.description})
	}
	return server
}

// RunStdio runs the MCP server on stdio transport, blocking until stdin is
// closed or the context is cancelled.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the MCP server over streamable HTTP on addr until ctx is
// cancelled.
func RunHTTP(ctx context.Context, server *mcp.Server, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
