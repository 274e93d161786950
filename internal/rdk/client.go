package rdk

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"dabbridge/internal/logger"
	"dabbridge/internal/metrics"
)

// Client is a synchronous JSON-RPC client for the device's Thunder endpoint
type Client struct {
	httpClient *http.Client
	address    string
	nextID     atomic.Int64
	debug      bool
	logger     zerolog.Logger
}

// NewClient creates a client for the device at address ("host:port")
func NewClient(address string, debug bool) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		address: address,
		debug:   debug,
		logger:  logger.Component("rdk"),
	}
}

// Address returns the device address the client talks to
func (c *Client) Address() string {
	return c.address
}

// URL returns the JSON-RPC endpoint URL
func (c *Client) URL() string {
	return fmt.Sprintf("http://%s%s", c.address, Endpoint)
}

// NextID returns a new request id. Ids are unique for the process lifetime.
func (c *Client) NextID() int64 {
	return c.nextID.Add(1)
}

// Call invokes method and decodes the result into result (which may be nil).
// A response carrying an error object, or a result with success=false, fails.
// So does a missing result when the caller expects one.
func (c *Client) Call(method Method, params interface{}, result interface{}) error {
	raw, err := c.call(method, params)
	metrics.ObserveRPC(string(method), err)
	if err != nil {
		return err
	}

	if result == nil {
		return nil
	}
	if len(raw) == 0 || string(raw) == "null" {
		return fmt.Errorf("%s response carries no result", method)
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return nil
}

func (c *Client) call(method Method, params interface{}) (json.RawMessage, error) {
	request := Request{
		JSONRPC: JSONRPCVersion,
		ID:      c.NextID(),
		Method:  string(method),
		Params:  params,
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	req, err := http.NewRequest(http.MethodPost, c.URL(), bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.debug {
		c.logger.Debug().
			Int64("id", request.ID).
			Str("method", request.Method).
			Str("payload", string(jsonData)).
			Msg("Sending RPC request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send %s request: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", method, err)
	}

	if c.debug {
		c.logger.Debug().
			Int64("id", request.ID).
			Int("status", resp.StatusCode).
			Str("body", string(body)).
			Msg("RPC response received")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s failed with HTTP status %d: %s", method, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return checkResponse(method, body)
}

// checkResponse inspects the envelope generically before any typed decode,
// since services disagree on whether and where they report success.
func checkResponse(method Method, body []byte) (json.RawMessage, error) {
	var envelope Response
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse %s response: %w", method, err)
	}

	if envelope.Error != nil {
		return nil, &CallError{Method: method, Code: envelope.Error.Code, Message: envelope.Error.Message}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(envelope.Result, &fields); err == nil {
		if success, ok := fields["success"]; ok && string(success) == "false" {
			return nil, &CallError{Method: method, Message: fmt.Sprintf("%s failed", method)}
		}
	}

	return envelope.Result, nil
}

// Property calls method without params and returns one field of the result
// as a string. An empty key returns the whole result.
func (c *Client) Property(method Method, key string) (string, error) {
	var result json.RawMessage
	if err := c.Call(method, nil, &result); err != nil {
		return "", err
	}

	if key == "" {
		return rawString(result), nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(result, &fields); err != nil {
		return "", fmt.Errorf("%s result is not an object: %w", method, err)
	}
	value, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("%s result has no field %q", method, key)
	}
	return rawString(value), nil
}

// rawString renders a JSON value: strings unquoted, anything else as compact JSON text
func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
