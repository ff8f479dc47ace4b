// Package target drives decision trials through the instrumented sample app.
package target

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sophialabs/samplingconformance/internal/domain/conformance"
	"github.com/sophialabs/samplingconformance/internal/domain/testcase"
	"github.com/sophialabs/samplingconformance/internal/infrastructure/ports"
)

// Headers the sample app reads to shape each span.
const (
	HeaderUser        = "user"
	HeaderServiceName = "service_name"
	HeaderRequired    = "required"
	HeaderTotalSpans  = "totalSpans"
)

var _ ports.TrafficTarget = (*Client)(nil)

// Client implements ports.TrafficTarget over HTTP.
type Client struct {
	address    string
	httpClient *http.Client
}

// NewClient creates a client for the sample app at address. A zero timeout means none.
func NewClient(address string, timeout time.Duration) *Client {
	return &Client{
		address:    strings.TrimRight(address, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Send asks the app to make trials sampling decisions shaped like tc and
// returns the sampled count from the plain-integer reply body.
func (c *Client) Send(ctx context.Context, tc testcase.TestCase, trials int) (int, error) {
	method := tc.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, c.address+tc.Endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: build request: %w", conformance.ErrTargetUnavailable, err)
	}
	// Header names are lowercase on the wire; bypass canonicalisation.
	req.Header[HeaderUser] = []string{tc.User}
	req.Header[HeaderServiceName] = []string{tc.Name}
	req.Header[HeaderRequired] = []string{tc.Required}
	req.Header[HeaderTotalSpans] = []string{strconv.Itoa(trials)}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %s: %w", conformance.ErrTargetUnavailable, method, tc.Endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("%w: read body: %w", conformance.ErrTargetUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("%w: status %d", conformance.ErrMalformedResponse, resp.StatusCode)
	}

	return ParseCount(body)
}

// ParseCount reads a sampled count from a reply body.
func ParseCount(body []byte) (int, error) {
	text := strings.TrimSpace(string(body))
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", conformance.ErrMalformedResponse, text)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: negative count %d", conformance.ErrMalformedResponse, n)
	}
	return n, nil
}
