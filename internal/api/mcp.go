package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/plugvox/internal/control"
	"github.com/kalambet/plugvox/internal/credentials"
	"github.com/kalambet/plugvox/internal/device"
	"github.com/kalambet/plugvox/internal/intent"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Executor  *control.Executor
	Assistant *control.Assistant
	Creds     credentials.Record // configured account used by every tool
}

// NewMCPServer creates an MCP server with the device tools registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"plugvox",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("plugvox switches smart plugs on the configured vendor account."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("list_devices",
			mcp.WithDescription("List the smart plugs on the configured account."),
		),
		mcpListDevices(deps),
	)

	s.AddTool(
		mcp.NewTool("turn_on",
			mcp.WithDescription("Turn a smart plug on. Without arguments the default device is used."),
			mcp.WithString("device", mcp.Description("Device name or description, matched loosely")),
			mcp.WithString("uuid", mcp.Description("Exact device uuid; takes precedence over device")),
		),
		mcpSwitch(deps, intent.ActionTurnOn),
	)

	s.AddTool(
		mcp.NewTool("turn_off",
			mcp.WithDescription("Turn a smart plug off. Without arguments the default device is used."),
			mcp.WithString("device", mcp.Description("Device name or description, matched loosely")),
			mcp.WithString("uuid", mcp.Description("Exact device uuid; takes precedence over device")),
		),
		mcpSwitch(deps, intent.ActionTurnOff),
	)

	s.AddTool(
		mcp.NewTool("command",
			mcp.WithDescription("Run a natural-language command such as \"turn off the kitchen lamp\"."),
			mcp.WithString("text", mcp.Description("What the user said"), mcp.Required()),
		),
		mcpCommand(deps),
	)

	return s
}

func mcpListDevices(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if !deps.Creds.Valid() {
			return mcpError(control.ErrCredentialsMissing.Error()), nil
		}

		devices, err := deps.Executor.Devices(ctx, deps.Creds)
		if err != nil {
			_, msg := commandError(err)
			return mcpError(msg), nil
		}
		if devices == nil {
			devices = []device.Record{}
		}

		b, err := json.Marshal(DeviceList{Devices: devices, Count: len(devices)})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal devices: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpSwitch(deps MCPDeps, action intent.Action) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if !deps.Creds.Valid() {
			return mcpError(control.ErrCredentialsMissing.Error()), nil
		}

		target := control.Target{
			UUID:  strings.TrimSpace(req.GetString("uuid", "")),
			Query: strings.TrimSpace(req.GetString("device", "")),
		}
		res, err := deps.Executor.Execute(ctx, deps.Creds, target, action)
		if err != nil {
			_, msg := commandError(err)
			return mcpError(msg), nil
		}
		if !res.Success {
			return mcpError(fmt.Sprintf("%s: %s", res.Device.Name, res.Message)), nil
		}
		return mcpText(res.Message), nil
	}
}

func mcpCommand(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil || strings.TrimSpace(text) == "" {
			return mcpError("text is required"), nil
		}

		out, err := deps.Assistant.Handle(ctx, deps.Creds, text)
		if err != nil {
			return mcpError(spoken(err)), nil
		}
		if out.Result == nil {
			msg := joinReply(out.Intent.AssistantMessage, out.Intent.FollowUp)
			if msg == "" {
				msg = "No device action taken."
			}
			return mcpText(msg), nil
		}
		if !out.Result.Success {
			return mcpError(fmt.Sprintf("I couldn't switch %s: %s", out.Result.Device.Name, out.Result.Message)), nil
		}
		return mcpText(out.Result.Message), nil
	}
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
