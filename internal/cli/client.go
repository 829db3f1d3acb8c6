package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// --- Response types (дублируются из api/dto.go, клиент не импортирует internal/api) ---

// CompileResponse — результат синхронной компиляции.
type CompileResponse struct {
	Code   string `json:"code"`
	Lines  int    `json:"lines"`
	Cached bool   `json:"cached"`
}

// CompilationResponse — компиляция из API.
type CompilationResponse struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Status     string          `json:"status"`
	Code       string          `json:"code,omitempty"`
	ErrorKind  string          `json:"error_kind,omitempty"`
	Error      string          `json:"error,omitempty"`
	DurationMs int64           `json:"duration_ms,omitempty"`
	CreatedAt  string          `json:"created_at"`
	FinishedAt string          `json:"finished_at,omitempty"`
	Flow       json.RawMessage `json:"flow,omitempty"`
}

// --- Request types ---

// CreateCompilationRequest — создание асинхронной компиляции.
type CreateCompilationRequest struct {
	Name string          `json:"name"`
	Flow json.RawMessage `json:"flow"`
}

// ListCompilationsOpts — параметры фильтрации компиляций.
type ListCompilationsOpts struct {
	Status string
	Limit  int
	Offset int
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
	Error APIError `json:"error"`
}

// APIError — ошибка, которую вернул API.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
	NodeID  string `json:"node_id,omitempty"`
	Key     string `json:"key,omitempty"`
}

// Error реализует интерфейс error.
func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("%s (%s): %s", e.Code, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// --- Client ---

// Client — HTTP-клиент для Flust API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Compile ---

// Compile отправляет документ Flow (JSON или YAML) на синхронную компиляцию.
func (c *Client) Compile(doc []byte) (*CompileResponse, error) {
	resp, err := c.doRaw(http.MethodPost, "/api/v1/compile", doc, "application/yaml")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result CompileResponse
	if err := c.decodeData(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListPlugins возвращает каталог плагинов сервера.
func (c *Client) ListPlugins() ([]PluginInfo, error) {
	var descs []PluginInfo
	err := c.list("/api/v1/plugins", nil, &descs)
	return descs, err
}

// --- Compilations ---

// CreateCompilation ставит Flow в очередь на компиляцию.
func (c *Client) CreateCompilation(req CreateCompilationRequest) (*CompilationResponse, error) {
	var compilation CompilationResponse
	err := c.post("/api/v1/compilations", req, &compilation)
	return &compilation, err
}

// GetCompilation возвращает компиляцию по ID.
func (c *Client) GetCompilation(id string) (*CompilationResponse, error) {
	var compilation CompilationResponse
	err := c.get("/api/v1/compilations/"+url.PathEscape(id), &compilation)
	return &compilation, err
}

// ListCompilations возвращает компиляции с фильтрацией.
func (c *Client) ListCompilations(opts ListCompilationsOpts) ([]CompilationResponse, error) {
	params := url.Values{}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		params.Set("offset", strconv.Itoa(opts.Offset))
	}

	var compilations []CompilationResponse
	err := c.list("/api/v1/compilations", params, &compilations)
	return compilations, err
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

	return c.decodeData(resp, result)
}

func (c *Client) decodeData(resp *http.Response, result any) error {
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
	if body == nil {
		return c.doRaw(method, path, nil, "")
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.doRaw(method, path, data, "application/json")
}

func (c *Client) doRaw(method, path string, body []byte, contentType string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil || er.Error.Code == "" {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	er.Error.Status = resp.StatusCode
	return &er.Error
}
