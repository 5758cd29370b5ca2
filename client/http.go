package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Client talks to the DroidPilot backend's plain request/response endpoints.
// The execution stream has its own entry point in stream.go.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ListDevices returns the serials the backend's adb sees.
func (c *Client) ListDevices() ([]DeviceEntry, error) {
	resp, err := c.get("/api/device/list")
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}
	var result DeviceListResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode device list: %w", err)
	}
	return result.Data, nil
}

// Connect attaches the backend to a device. An empty serial lets the
// backend pick the first available device.
func (c *Client) Connect(serial string) (*DeviceInfo, error) {
	resp, err := c.postJSON("/api/device/connect", ConnectRequest{Serial: serial})
	if err != nil {
		return nil, fmt.Errorf("connect device: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}
	var result ConnectResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode connect: %w", err)
	}
	return &result.Data, nil
}

// Disconnect detaches the backend from the current device.
func (c *Client) Disconnect() error {
	return c.postResult("/api/device/disconnect", nil)
}

// DeviceInfo fetches details for the connected device.
func (c *Client) DeviceInfo() (*DeviceInfo, error) {
	resp, err := c.get("/api/device/info")
	if err != nil {
		return nil, fmt.Errorf("device info: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}
	var result ConnectResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode device info: %w", err)
	}
	return &result.Data, nil
}

// Screenshot fetches the current device frame as a data:image/png URI.
func (c *Client) Screenshot() (string, error) {
	resp, err := c.get("/api/device/screenshot")
	if err != nil {
		return "", fmt.Errorf("screenshot: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", c.parseError(resp)
	}
	var result ScreenshotResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode screenshot: %w", err)
	}
	return result.Data, nil
}

// StopExecution asks the agent to stop the running task. The stream is not
// torn down locally; the server closes it after honoring the signal.
func (c *Client) StopExecution() error {
	return c.postResult("/api/chat/stop", nil)
}

// SingleAction performs one manual device operation outside a task run.
func (c *Client) SingleAction(action AgentAction) error {
	return c.postResult("/api/chat/single-action", SingleActionRequest{Action: action})
}

// History returns the server-side conversation history.
func (c *Client) History() ([]HistoryEntry, error) {
	resp, err := c.get("/api/chat/history")
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}
	var result HistoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return result.Data, nil
}

// ClearHistory wipes the server-side conversation history.
func (c *Client) ClearHistory() error {
	return c.postResult("/api/chat/clear", nil)
}

// StartPairing begins a wireless pairing session. timeoutSeconds is enforced
// server-side; the client only observes the eventual timeout status.
func (c *Client) StartPairing(timeoutSeconds int) (*PairingStartResponse, error) {
	resp, err := c.postJSON("/api/device/wireless/start", PairingStartRequest{Timeout: timeoutSeconds})
	if err != nil {
		return nil, fmt.Errorf("start pairing: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}
	var result PairingStartResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode pairing start: %w", err)
	}
	if !result.Success {
		return nil, fmt.Errorf("start pairing: %s", result.Message)
	}
	return &result, nil
}

// PairingStatus fetches the current pairing state. Polled once per second
// while a pairing session is live.
func (c *Client) PairingStatus() (*PairingStatusResponse, error) {
	resp, err := c.get("/api/device/wireless/status")
	if err != nil {
		return nil, fmt.Errorf("pairing status: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}
	var result PairingStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode pairing status: %w", err)
	}
	return &result, nil
}

// StopPairing tears down the server-side pairing session.
func (c *Client) StopPairing() error {
	return c.postResult("/api/device/wireless/stop", nil)
}

// postResult posts and decodes the common {success, message} envelope.
func (c *Client) postResult(path string, body any) error {
	resp, err := c.postJSON(path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return c.parseError(resp)
	}
	var result APIResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	if !result.Success {
		return fmt.Errorf("%s: %s", path, result.Message)
	}
	return nil
}

func (c *Client) get(path string) (*http.Response, error) {
	req, err := http.NewRequest("GET", c.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	return c.HTTPClient.Do(req)
}

func (c *Client) postJSON(path string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	req, err := http.NewRequest("POST", c.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	return c.HTTPClient.Do(req)
}

func (c *Client) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	var apiErr APIResult
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
		return fmt.Errorf("API %d: %s", resp.StatusCode, apiErr.Message)
	}
	return fmt.Errorf("API %d: %s", resp.StatusCode, string(body))
}
