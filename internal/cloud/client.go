package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/kalambet/plugvox/internal/device"
)

// DefaultChannel is the outlet addressed on single-channel plugs.
const DefaultChannel = 0

// Client reaches the vendor cloud bridge over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client for the bridge at baseURL. A nil httpClient uses
// http.DefaultClient.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signinResponse struct {
	Token string `json:"token"`
}

// Login signs in and returns a session bound to the issued token.
func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	var out signinResponse
	err := c.do(ctx, http.MethodPost, "/v1/auth/signin", "", signinRequest{Email: email, Password: password}, &out)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && (se.code == http.StatusUnauthorized || se.code == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: %s", ErrAuth, se.message)
		}
		return nil, fmt.Errorf("signing in: %w", err)
	}
	if out.Token == "" {
		return nil, fmt.Errorf("signing in: %w: empty token", ErrAuth)
	}
	return &session{client: c, token: out.Token}, nil
}

type session struct {
	client *Client
	token  string
}

type devicesResponse struct {
	Devices []device.Record `json:"devices"`
}

func (s *session) Devices(ctx context.Context) ([]device.Record, error) {
	var out devicesResponse
	if err := s.client.do(ctx, http.MethodGet, "/v1/devices", s.token, nil, &out); err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	return out.Devices, nil
}

type powerRequest struct {
	On      bool `json:"on"`
	Channel int  `json:"channel"`
}

type powerResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

func (s *session) SetPower(ctx context.Context, uuid string, on bool) error {
	path := "/v1/devices/" + url.PathEscape(uuid) + "/power"
	var out powerResponse
	err := s.client.do(ctx, http.MethodPost, path, s.token, powerRequest{On: on, Channel: DefaultChannel}, &out)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code >= 400 && se.code < 500 && se.code != http.StatusUnauthorized {
			return &CommandError{UUID: uuid, Message: se.message}
		}
		return fmt.Errorf("setting power on %s: %w", uuid, err)
	}
	if !out.OK {
		msg := out.Message
		if msg == "" {
			msg = "device did not acknowledge the command"
		}
		return &CommandError{UUID: uuid, Message: msg}
	}
	return nil
}

func (s *session) Logout(ctx context.Context) error {
	if err := s.client.do(ctx, http.MethodPost, "/v1/auth/logout", s.token, nil, nil); err != nil {
		return fmt.Errorf("logging out: %w", err)
	}
	return nil
}

// statusError is a non-2xx bridge response.
type statusError struct {
	code    int
	message string
}

func (e *statusError) Error() string {
	if e.message == "" {
		return fmt.Sprintf("unexpected status %d", e.code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.code, e.message)
}

// do sends a JSON request and decodes a JSON reply into out when non-nil.
func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &statusError{code: resp.StatusCode, message: readMessage(resp.Body)}
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// readMessage extracts {"message": "..."} from an error body, falling back to
// the raw text.
func readMessage(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 4096))
	var env struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(data, &env) == nil {
		if env.Message != "" {
			return env.Message
		}
		if env.Error != "" {
			return env.Error
		}
	}
	return strings.TrimSpace(string(data))
}
