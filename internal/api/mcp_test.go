package api

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kalambet/plugvox/internal/cloud"
	"github.com/kalambet/plugvox/internal/credentials"
	"github.com/kalambet/plugvox/internal/intent"
)

func newTestMCPDeps(t *testing.T) (MCPDeps, *testEnv) {
	t.Helper()
	env := newTestEnv(t, true)
	return MCPDeps{
		Executor:  env.deps.Executor,
		Assistant: env.deps.Assistant,
		Creds:     fallbackCreds,
	}, env
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func TestMCPServer_RegistersTools(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	s := NewMCPServer(deps)

	resp := s.HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	b, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshaling response: %v", err)
	}
	for _, name := range []string{"list_devices", "turn_on", "turn_off", "command"} {
		if !strings.Contains(string(b), `"name":"`+name+`"`) {
			t.Fatalf("tool %q not registered: %s", name, b)
		}
	}
}

func TestMCPTool_ListDevices(t *testing.T) {
	deps, _ := newTestMCPDeps(t)

	result, err := mcpListDevices(deps)(context.Background(), makeCallToolRequest("list_devices", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	var list DeviceList
	if err := json.Unmarshal([]byte(toolText(t, result)), &list); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if list.Count != 3 || list.Devices[0].Name != "Kitchen Light" {
		t.Fatalf("unexpected list %+v", list)
	}
}

func TestMCPTool_Switch(t *testing.T) {
	tests := []struct {
		name    string
		action  intent.Action
		args    map[string]interface{}
		wantCmd string
		wantMsg string
	}{
		{"on by name", intent.ActionTurnOn, map[string]interface{}{"device": "kitchen"}, "k1:true", "Turned on Kitchen Light"},
		{"off by uuid", intent.ActionTurnOff, map[string]interface{}{"uuid": "h1", "device": "kitchen"}, "h1:false", "Turned off Heater"},
		{"default device", intent.ActionTurnOff, nil, "l1:false", "Turned off Living Room"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps, env := newTestMCPDeps(t)
			result, err := mcpSwitch(deps, tt.action)(context.Background(), makeCallToolRequest(string(tt.action), tt.args))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.IsError {
				t.Fatalf("unexpected tool error: %s", toolText(t, result))
			}
			if got := toolText(t, result); got != tt.wantMsg {
				t.Fatalf("expected %q, got %q", tt.wantMsg, got)
			}
			if sent := env.cloud.sent(); len(sent) != 1 || sent[0] != tt.wantCmd {
				t.Fatalf("expected [%s], got %v", tt.wantCmd, sent)
			}
		})
	}
}

func TestMCPTool_SwitchErrors(t *testing.T) {
	t.Run("unknown uuid", func(t *testing.T) {
		deps, _ := newTestMCPDeps(t)
		result, _ := mcpSwitch(deps, intent.ActionTurnOn)(context.Background(),
			makeCallToolRequest("turn_on", map[string]interface{}{"uuid": "missing"}))
		if !result.IsError || !strings.Contains(toolText(t, result), "not found") {
			t.Fatalf("expected not-found tool error, got %+v", result)
		}
	})

	t.Run("vendor rejects", func(t *testing.T) {
		deps, env := newTestMCPDeps(t)
		env.cloud.powerErr = &cloud.CommandError{UUID: "l1", Message: "device offline"}
		result, _ := mcpSwitch(deps, intent.ActionTurnOn)(context.Background(), makeCallToolRequest("turn_on", nil))
		if !result.IsError || toolText(t, result) != "Living Room: device offline" {
			t.Fatalf("unexpected result %s", toolText(t, result))
		}
	})

	t.Run("no credentials", func(t *testing.T) {
		deps, env := newTestMCPDeps(t)
		deps.Creds = credentials.Record{}
		result, _ := mcpSwitch(deps, intent.ActionTurnOn)(context.Background(), makeCallToolRequest("turn_on", nil))
		if !result.IsError {
			t.Fatal("expected tool error")
		}
		if env.cloud.logins != 0 {
			t.Fatalf("expected no vendor login, got %d", env.cloud.logins)
		}
	})
}

func TestMCPTool_Command(t *testing.T) {
	deps, env := newTestMCPDeps(t)
	env.inferer.intent = intent.Intent{Action: intent.ActionTurnOn, Device: "heater"}

	result, err := mcpCommand(deps)(context.Background(),
		makeCallToolRequest("command", map[string]interface{}{"text": "warm it up in here"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError || toolText(t, result) != "Turned on Heater" {
		t.Fatalf("unexpected result %s", toolText(t, result))
	}
}

func TestMCPTool_CommandReply(t *testing.T) {
	deps, env := newTestMCPDeps(t)
	env.inferer.intent = intent.Intent{Action: intent.ActionNone, AssistantMessage: "Which one?"}

	result, _ := mcpCommand(deps)(context.Background(),
		makeCallToolRequest("command", map[string]interface{}{"text": "turn it on"}))
	if result.IsError || toolText(t, result) != "Which one?" {
		t.Fatalf("unexpected result %s", toolText(t, result))
	}
	if len(env.cloud.sent()) != 0 {
		t.Fatal("no command should be sent")
	}
}

func TestMCPTool_CommandRequiresText(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	result, _ := mcpCommand(deps)(context.Background(), makeCallToolRequest("command", nil))
	if !result.IsError || toolText(t, result) != "text is required" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestMCPServer_ConcurrentCalls(t *testing.T) {
	deps, env := newTestMCPDeps(t)
	onHandler := mcpSwitch(deps, intent.ActionTurnOn)
	listHandler := mcpListDevices(deps)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := onHandler(context.Background(), makeCallToolRequest("turn_on", nil)); err != nil {
				errs <- err
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := listHandler(context.Background(), makeCallToolRequest("list_devices", nil)); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent call failed: %v", err)
	}
	if n := len(env.cloud.sent()); n != 10 {
		t.Fatalf("expected 10 commands, got %d", n)
	}
	env.cloud.mu.Lock()
	defer env.cloud.mu.Unlock()
	if env.cloud.logins != env.cloud.logouts {
		t.Fatalf("sessions leaked: %d logins, %d logouts", env.cloud.logins, env.cloud.logouts)
	}
}
