package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// --- Response types (дублируются из api, CLI не импортирует internal/api) ---

// PollerResponse — статус poller'а из API.
type PollerResponse struct {
	Name         string `json:"name"`
	State        string `json:"state"`
	Interval     string `json:"interval"`
	Lock         string `json:"lock"`
	Leader       bool   `json:"leader"`
	Ticks        uint64 `json:"ticks"`
	Skipped      uint64 `json:"skipped"`
	Failures     uint64 `json:"failures"`
	LastOutcome  string `json:"last_outcome,omitempty"`
	LastTickAt   string `json:"last_tick_at,omitempty"`
	LastDuration string `json:"last_duration,omitempty"`
	LastError    string `json:"last_error,omitempty"`
}

// TickResponse — результат ручного тика.
type TickResponse struct {
	Poller  string `json:"poller"`
	Outcome string `json:"outcome"`
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для admin API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			// ручной тик ждёт окончания действия
			Timeout: 5 * time.Minute,
		},
	}
}

// ListPollers возвращает статусы всех poller'ов.
func (c *Client) ListPollers() ([]PollerResponse, error) {
	var pollers []PollerResponse
	err := c.list("/api/v1/pollers", nil, &pollers)
	return pollers, err
}

// GetPoller возвращает статус poller'а по имени.
func (c *Client) GetPoller(name string) (*PollerResponse, error) {
	var p PollerResponse
	err := c.get("/api/v1/pollers/"+url.PathEscape(name), &p)
	return &p, err
}

// TickPoller запускает внеплановый тик.
func (c *Client) TickPoller(name string) (*TickResponse, error) {
	var tick TickResponse
	err := c.post("/api/v1/pollers/"+url.PathEscape(name)+"/tick", nil, &tick)
	return &tick, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
