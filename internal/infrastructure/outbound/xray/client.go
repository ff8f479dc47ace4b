// Package xray talks to the sampling-rule management API of the decision
// service (X-Ray daemon style: POST endpoints with JSON bodies).
package xray

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"

	"github.com/sophialabs/samplingconformance/internal/domain/conformance"
	"github.com/sophialabs/samplingconformance/internal/domain/rule"
	"github.com/sophialabs/samplingconformance/internal/infrastructure/ports"
)

// API paths, relative to the endpoint.
const (
	PathCreate = "/CreateSamplingRule"
	PathDelete = "/DeleteSamplingRule"
	PathList   = "/GetSamplingRules"
)

// ruleNamePath selects every rule name anywhere in a GetSamplingRules reply.
const ruleNamePath = "$..RuleName"

// maxErrorBody bounds how much of an error response is kept for logs.
const maxErrorBody = 512

var _ ports.RuleBackend = (*Client)(nil)

// Client implements ports.RuleBackend over HTTP.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     ports.Logger
}

// NewClient creates a client for endpoint. A zero timeout means none.
func NewClient(endpoint string, timeout time.Duration, logger ports.Logger) *Client {
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// CreateRule registers r with the backend. Any non-2xx status is a failure.
func (c *Client) CreateRule(ctx context.Context, r rule.Rule) error {
	body, err := r.Payload()
	if err != nil {
		return fmt.Errorf("encode rule %s: %w", r.Name, err)
	}

	status, reply, err := c.post(ctx, PathCreate, body)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return fmt.Errorf("%w: create %s: status %d: %s", conformance.ErrBackendUnavailable, r.Name, status, reply)
	}

	c.logger.Debug("rule created", "rule", r.Name, "priority", r.Priority)
	return nil
}

// DeleteRule removes the named rule. Default is never sent. A 404, or a 4xx
// whose error body says the rule does not exist, counts as already deleted.
func (c *Client) DeleteRule(ctx context.Context, name rule.Name) error {
	if name.Immutable() {
		return nil
	}

	body, err := json.Marshal(rule.DeleteRequest{RuleName: string(name)})
	if err != nil {
		return fmt.Errorf("encode delete %s: %w", name, err)
	}

	status, reply, err := c.post(ctx, PathDelete, body)
	if err != nil {
		return err
	}
	switch {
	case ruleAbsent(status, reply):
		c.logger.Debug("rule already absent", "rule", name, "status", status)
	case status < 200 || status > 299:
		return fmt.Errorf("%w: delete %s: status %d: %s", conformance.ErrBackendUnavailable, name, status, reply)
	default:
		c.logger.Debug("rule deleted", "rule", name)
	}
	return nil
}

// apiError is the AWS JSON protocol error body.
type apiError struct {
	Type     string `json:"__type"`
	Message  string `json:"Message"`
	LowerMsg string `json:"message"`
}

func ruleAbsent(status int, reply []byte) bool {
	if status == http.StatusNotFound {
		return true
	}
	if status < 400 || status > 499 {
		return false
	}

	var e apiError
	if err := json.Unmarshal(reply, &e); err != nil {
		return false
	}
	// The type may carry a namespace prefix: "com.amazonaws.xray#InvalidRequestException".
	kind := e.Type[strings.LastIndex(e.Type, "#")+1:]
	switch kind {
	case "ResourceNotFoundException", "RuleNotFoundException":
		return true
	case "InvalidRequestException":
		msg := strings.ToLower(e.Message + " " + e.LowerMsg)
		return strings.Contains(msg, "not exist") || strings.Contains(msg, "not found")
	}
	return false
}

// ListRuleNames returns the names of every rule the backend currently holds.
func (c *Client) ListRuleNames(ctx context.Context) ([]string, error) {
	status, reply, err := c.post(ctx, PathList, nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, fmt.Errorf("%w: list rules: status %d: %s", conformance.ErrBackendUnavailable, status, reply)
	}

	return ExtractRuleNames(reply)
}

// ExtractRuleNames pulls every RuleName value out of a JSON document.
func ExtractRuleNames(doc []byte) ([]string, error) {
	var data any
	if err := json.Unmarshal(doc, &data); err != nil {
		return nil, fmt.Errorf("%w: decode rule list: %w", conformance.ErrBackendUnavailable, err)
	}

	result, err := jsonpath.Get(ruleNamePath, data)
	if err != nil {
		return nil, fmt.Errorf("%w: select rule names: %w", conformance.ErrBackendUnavailable, err)
	}

	values, _ := result.([]any)
	names := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			names = append(names, s)
		}
	}
	return names, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: build request %s: %w", conformance.ErrBackendUnavailable, path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %s: %w", conformance.ErrBackendUnavailable, path, err)
	}
	defer resp.Body.Close()

	reply, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read %s response: %w", conformance.ErrBackendUnavailable, path, err)
	}
	if resp.StatusCode >= 300 && len(reply) > maxErrorBody {
		reply = reply[:maxErrorBody]
	}
	return resp.StatusCode, reply, nil
}
