package mcptools

import (
	"context"
	"encoding/json"
	"sort"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// setupServerClient wires an MCP server and client together using in-memory
// transports. It returns the connected client session.
func setupServerClient(t *testing.T) *mcp.ClientSession {
	t.Helper()

	server := NewEditorMCPServer(newService(t))
	st, ct := mcp.NewInMemoryTransports()
	ctx := context.Background()

	ss, err := server.Connect(ctx, st, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		session.Close()
		ss.Wait()
	})

	return session
}

// callTool invokes name and decodes its structured output into out.
func callTool(t *testing.T, session *mcp.ClientSession, name string, args any, out any) {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	require.NoError(t, err)
	require.False(t, result.IsError, "%s should not return an error", name)
	require.NotNil(t, result.StructuredContent, "expected structured content from %s", name)

	raw, err := json.Marshal(result.StructuredContent)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

func TestMCPListTools(t *testing.T) {
	session := setupServerClient(t)

	result, err := session.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)

	names := make([]string, len(result.Tools))
	for i, tool := range result.Tools {
		names[i] = tool.Name
	}
	sort.Strings(names)

	expected := []string{
		"append_shape",
		"assess_impact",
		"can_connect",
		"can_move",
		"create_connection",
		"create_shape",
		"delete_elements",
		"export_document",
		"get_containment",
		"get_references",
		"move_elements",
		"query_nodes",
		"redo",
		"replace_element",
		"resize_shape",
		"toggle_collapse",
		"undo",
		"update_properties",
		"verify",
	}
	assert.Equal(t, expected, names)
}

func TestMCPModelingRoundTrip(t *testing.T) {
	session := setupServerClient(t)

	var cpm ElementOutput
	callTool(t, session, "create_shape", CreateShapeInput{Kind: "CasePlanModel", X: 600, Y: 400, As: "cpm"}, &cpm)
	assert.Equal(t, "cmmn:CasePlanModel", cpm.Kind)

	var hist HistoryOutput
	callTool(t, session, "resize_shape", ResizeShapeInput{Element: "cpm", Width: 1200, Height: 800}, &hist)

	var ht ElementOutput
	callTool(t, session, "create_shape", CreateShapeInput{Kind: "PlanItem", Definition: "HumanTask", Name: "Assess", Parent: "cpm", X: 200, Y: 300, As: "ht"}, &ht)

	var d ElementOutput
	callTool(t, session, "append_shape", AppendShapeInput{Source: "ht", Kind: "DiscretionaryItem", Definition: "Task", X: 500, Y: 300, As: "d"}, &d)
	assert.Equal(t, "cmmn:DiscretionaryItem", d.Kind)
	assert.Equal(t, 4, d.History.UndoDepth)

	var check VerifyOutput
	callTool(t, session, "verify", VerifyInput{}, &check)
	assert.True(t, check.Consistent, check.Problems)

	callTool(t, session, "undo", HistoryInput{}, &hist)
	assert.Equal(t, History{UndoDepth: 3, RedoDepth: 1}, hist.History)

	var nodes QueryNodesOutput
	callTool(t, session, "query_nodes", QueryNodesInput{Query: "PlanningTable"}, &nodes)
	assert.Zero(t, nodes.Total, "undo removes the planning table created for the discretionary item")

	callTool(t, session, "redo", HistoryInput{}, &hist)
	callTool(t, session, "query_nodes", QueryNodesInput{Query: "PlanningTable"}, &nodes)
	assert.NotZero(t, nodes.Total)
}

func TestMCPToolError(t *testing.T) {
	session := setupServerClient(t)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "create_connection",
		Arguments: CreateConnectionInput{Source: "ghost", Target: "phantom"},
	})
	if err != nil {
		return
	}
	require.NotNil(t, result)
	assert.True(t, result.IsError, "an unknown element should set IsError")
}

// TestMCPCallUnknownTool verifies that calling a non-existent tool returns an
// error.
func TestMCPCallUnknownTool(t *testing.T) {
	session := setupServerClient(t)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "nonexistent_tool",
		Arguments: map[string]any{},
	})

	// The MCP SDK may return an error at the protocol level or set IsError on
	// the result. Accept either behavior.
	if err != nil {
		return
	}

	require.NotNil(t, result)
	assert.True(t, result.IsError, "calling an unknown tool should set IsError")
}
