package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	jmespath "github.com/jmespath-community/go-jmespath"
	"golang.org/x/time/rate"

	"github.com/target/mmk-outbound/config"
)

const (
	maxResponseBytes = 64 << 10
	maxDetailLength  = 200
)

// errorDetailExpr pulls a human readable reason out of Twilio, Graph API and generic error bodies.
const errorDetailExpr = "message || error.message || error_message || error"

// searchFunc evaluates a compiled JMESPath expression.
type searchFunc func(data any) (any, error)

func compileExpr(expr string) (searchFunc, error) {
	compiled, err := jmespath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", expr, err)
	}
	return compiled.Search, nil
}

func mustCompileExpr(expr string) searchFunc {
	fn, err := compileExpr(expr)
	if err != nil {
		panic(err)
	}
	return fn
}

var errorDetail = mustCompileExpr(errorDetailExpr)

// searchString returns the string result of fn over data, or "" when absent.
func searchString(fn searchFunc, data any) string {
	if fn == nil || data == nil {
		return ""
	}
	v, err := fn(data)
	if err != nil || v == nil {
		return ""
	}
	switch tv := v.(type) {
	case string:
		return strings.TrimSpace(tv)
	case float64:
		return strings.TrimSpace(fmt.Sprintf("%.0f", tv))
	default:
		return ""
	}
}

// providerResponse is a fully read provider reply.
type providerResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

// JSON decodes the body for JMESPath evaluation. Non-JSON bodies decode to nil.
func (r *providerResponse) JSON() any {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	var data any
	if err := json.Unmarshal(r.Body, &data); err != nil {
		return nil
	}
	return data
}

// httpProvider is the transport shared by live adapters: a bounded client and a rate limiter.
type httpProvider struct {
	name    string
	client  *http.Client
	limiter *rate.Limiter
}

func newHTTPProvider(name string, client *http.Client, rc config.RateConfig) httpProvider {
	perSec := rc.PerSecond
	if perSec <= 0 {
		perSec = 10
	}
	burst := rc.Burst
	if burst < 1 {
		burst = 1
	}
	return httpProvider{
		name:    name,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(perSec), burst),
	}
}

// do waits for a rate token, executes req and maps failures to SendError.
func (p httpProvider) do(ctx context.Context, req *http.Request) (*providerResponse, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, &SendError{
			Code:      CodeProviderThrottled,
			Message:   p.name + " local rate limit wait aborted",
			Retryable: true,
			Cause:     err,
		}
	}

	resp, err := p.client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, networkError(p.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, networkError(p.name, err)
	}
	out := &providerResponse{Status: resp.StatusCode, Header: resp.Header, Body: body}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(p.name, resp.StatusCode, truncate(searchString(errorDetail, out.JSON())))
	}
	return out, nil
}

// truncate keeps at most maxDetailLength runes of a provider detail.
func truncate(s string) string {
	if utf8.RuneCountInString(s) <= maxDetailLength {
		return s
	}
	return string([]rune(s)[:maxDetailLength])
}

func defaultHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
