package main

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kalambet/plugvox/internal/api"
	"github.com/kalambet/plugvox/internal/config"
	"github.com/kalambet/plugvox/internal/transcript"
)

// --- devices ---

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List smart plugs on the configured account",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/devices")
		if err != nil {
			return err
		}

		var list api.DeviceList
		if err := decodeJSON(resp, &list); err != nil {
			return err
		}
		if list.Count == 0 {
			printWarning("No devices found")
			return nil
		}
		printDevices(os.Stdout, list.Devices)
		return nil
	},
}

// --- on / off ---

var onCmd = &cobra.Command{
	Use:   "on",
	Short: "Turn a smart plug on",
	Long: `Turn a smart plug on.

Examples:
  plugvox on                      # default device
  plugvox on --name kitchen
  plugvox on --device 1912...a3f`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSwitch(cmd, true)
	},
}

var offCmd = &cobra.Command{
	Use:   "off",
	Short: "Turn a smart plug off",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSwitch(cmd, false)
	},
}

func init() {
	for _, c := range []*cobra.Command{onCmd, offCmd} {
		c.Flags().String("device", "", "device uuid")
		c.Flags().String("name", "", "device name, matched loosely")
	}
}

// switchPath builds the /on or /off request path.
func switchPath(on bool, deviceID, name string) string {
	path := "/off"
	if on {
		path = "/on"
	}
	q := url.Values{}
	if deviceID != "" {
		q.Set("device", deviceID)
	}
	if name != "" {
		q.Set("name", name)
	}
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

func runSwitch(cmd *cobra.Command, on bool) error {
	deviceID, _ := cmd.Flags().GetString("device")
	name, _ := cmd.Flags().GetString("name")

	client, err := newAPIClient()
	if err != nil {
		return err
	}

	resp, err := client.get(cmd.Context(), switchPath(on, strings.TrimSpace(deviceID), strings.TrimSpace(name)))
	if err != nil {
		return err
	}

	var result api.SwitchResponse
	if err := decodeJSON(resp, &result); err != nil {
		return err
	}
	printSuccess("%s", result.Message)
	return nil
}

// --- say ---

var sayCmd = &cobra.Command{
	Use:   "say <text...>",
	Short: "Send a spoken command to the gateway as a webhook transcript",
	Long: `Send a spoken command to the gateway as a webhook transcript.

Examples:
  plugvox say turn off the living room lamp
  plugvox say "is the heater on?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		uid, _ := cmd.Flags().GetString("uid")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/webhook", sayRequest(strings.Join(args, " "), uid))
		if err != nil {
			return err
		}

		var result api.WebhookResponse
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		return reportReply(result)
	},
}

func init() {
	sayCmd.Flags().String("uid", "", "webhook user id bound at /login")
}

// sayRequest wraps text in a one-segment webhook payload attributed to the user.
func sayRequest(text, uid string) api.WebhookRequest {
	return api.WebhookRequest{
		SessionID: "cli-" + uuid.NewString(),
		UID:       uid,
		Segments: []transcript.Segment{{
			ID:      uuid.NewString(),
			Text:    text,
			Speaker: "SPEAKER_0",
			IsUser:  true,
		}},
	}
}

func reportReply(r api.WebhookResponse) error {
	switch r.Status {
	case "ok":
		printSuccess("%s", r.Message)
	case "reply":
		fmt.Println(r.Message)
	case "ignored":
		printWarning("Nothing to do")
	default:
		return fmt.Errorf("%s", r.Message)
	}
	return nil
}

// --- status ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show gateway status",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(envFile)
		if err != nil {
			printError("config error: %v", err)
			return nil
		}

		base := serverURL
		if base == "" {
			base = localURL(cfg.Server)
		}
		client := &http.Client{Timeout: 2 * time.Second}
		resp, err := client.Get(strings.TrimRight(base, "/") + "/health")
		if err != nil {
			printStatus("Server", "stopped")
		} else {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				printStatus("Server", "running at %s", base)
			} else {
				printStatus("Server", "error (HTTP %d)", resp.StatusCode)
			}
		}

		printStatus("Cloud bridge", "%s", cfg.Cloud.BaseURL)
		printStatus("Intent model", "%s", cfg.OpenAI.IntentModel)
		printStatus("Transcribe model", "%s", cfg.OpenAI.TranscribeModel)
		printStatus("Default device", "%s", cfg.Devices.DefaultName)
		if cfg.Proxy.SocksAddr != "" {
			printStatus("SOCKS5 proxy", "%s", cfg.Proxy.SocksAddr)
		}
		for _, w := range config.Warnings(cfg) {
			printWarning("%s", w)
		}
		return nil
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(envFile)
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configSetSecretCmd = &cobra.Command{
	Use:   "set-secret <key> <value>",
	Short: "Store a secret in the platform secret store",
	Long: fmt.Sprintf(`Store a secret in the platform secret store.

Secret keys: %s`, strings.Join(config.SecretKeys(), ", ")),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetSecret(key, value); err != nil {
			return err
		}

		printSuccess("Stored %s", key)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configSetSecretCmd)
}
