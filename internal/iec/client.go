// Package iec talks to the electoral-commission voter-verification API.
// One HTTP call per identifier; the response shape is tolerant of absent
// fields, which are reported as zero values rather than parse errors.
package iec

import (
    "context"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "net/url"
    "time"

    "go.uber.org/zap"
)

// DefaultTimeout bounds a single verification call.
const DefaultTimeout = 30 * time.Second

// Response is the decoded verification result for one identifier. Ward and
// VotingDistrict keep their raw shape because the API is inconsistent about
// numbers versus strings; callers collapse them through idnum.
type Response struct {
    Registered     bool        `json:"registered"`
    Deceased       bool        `json:"deceased"`
    Ward           interface{} `json:"ward"`
    VotingDistrict interface{} `json:"voting_district"`
    VotingStation  string      `json:"voting_station"`
    MunicipalityID int64       `json:"municipality_id"`
    ProvinceID     int64       `json:"province_id"`

    // Raw is the verbatim response body, kept for audit.
    Raw json.RawMessage `json:"-"`
}

// Verifier is the call surface the batch verifier depends on.
type Verifier interface {
    Verify(ctx context.Context, idNumber string) (*Response, error)
}

// Client is an HTTP Verifier against the commission's API.
type Client struct {
    baseURL string
    http    *http.Client
    logger  *zap.Logger
}

// NewClient creates a client with a hard per-call timeout. A zero timeout
// falls back to DefaultTimeout; calls are never sent without one.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
    if timeout <= 0 {
        timeout = DefaultTimeout
    }
    if logger == nil {
        logger = zap.NewNop()
    }
    return &Client{
        baseURL: baseURL,
        http:    &http.Client{Timeout: timeout},
        logger:  logger,
    }
}

// Verify looks up one identifier. Network failures, non-2xx statuses and
// unreadable bodies are returned as errors; the caller converts them to
// per-row API_ERROR outcomes.
func (c *Client) Verify(ctx context.Context, idNumber string) (*Response, error) {
    endpoint := fmt.Sprintf("%s/api/voters/%s", c.baseURL, url.PathEscape(idNumber))
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
    if err != nil {
        return nil, fmt.Errorf("failed to create request: %w", err)
    }
    req.Header.Set("Accept", "application/json")

    resp, err := c.http.Do(req)
    if err != nil {
        return nil, fmt.Errorf("verification call failed: %w", err)
    }
    defer resp.Body.Close()

    if resp.StatusCode != http.StatusOK {
        return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
    }

    body, err := io.ReadAll(resp.Body)
    if err != nil {
        return nil, fmt.Errorf("failed to read response: %w", err)
    }

    result, err := decodeResponse(body)
    if err != nil {
        return nil, err
    }
    c.logger.Debug("verification call completed",
        zap.Bool("registered", result.Registered),
        zap.Bool("deceased", result.Deceased))
    return result, nil
}

// decodeResponse parses the payload into a Response. Every field is optional:
// a missing key becomes the zero value for that field.
func decodeResponse(body []byte) (*Response, error) {
    var payload map[string]interface{}
    if err := json.Unmarshal(body, &payload); err != nil {
        return nil, fmt.Errorf("failed to decode response: %w", err)
    }
    resp := &Response{
        Registered:     getBool(payload, "registered"),
        Deceased:       getBool(payload, "deceased"),
        Ward:           payload["ward"],
        VotingDistrict: payload["voting_district"],
        VotingStation:  getString(payload, "voting_station"),
        MunicipalityID: getInt(payload, "municipality_id"),
        ProvinceID:     getInt(payload, "province_id"),
        Raw:            json.RawMessage(body),
    }
    return resp, nil
}

func getBool(m map[string]interface{}, key string) bool {
    v, ok := m[key].(bool)
    return ok && v
}

func getString(m map[string]interface{}, key string) string {
    v, _ := m[key].(string)
    return v
}

func getInt(m map[string]interface{}, key string) int64 {
    switch v := m[key].(type) {
    case float64:
        return int64(v)
    case string:
        var n int64
        if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
            return n
        }
    }
    return 0
}
