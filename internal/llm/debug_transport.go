package llm

import (
	"bytes"
	"io"
	"net/http"
	"regexp"
	"strings"

	"troublebot-backend/pkg/logger"
)

// maxLoggedBody caps how much of a request body is logged; screenshots make
// bodies large.
const maxLoggedBody = 4096

var (
	sensitiveHeaders = map[string]bool{
		"authorization":  true,
		"x-api-key":      true,
		"x-goog-api-key": true,
		"x-auth-token":   true,
		"cookie":         true,
	}
	sensitiveFieldPattern = regexp.MustCompile(`(?i)("(?:api_key|apikey|password|secret|token)"\s*:\s*)"[^"]*"`)
	inlineImagePattern    = regexp.MustCompile(`data:image/[a-zA-Z0-9.+-]+;base64,[A-Za-z0-9+/=]+`)
	keyQueryPattern       = regexp.MustCompile(`([?&]key=)[^&]+`)
)

// DebugTransport logs outgoing provider requests with credentials removed.
type DebugTransport struct {
	base     http.RoundTripper
	provider string
}

func NewDebugTransport(base http.RoundTripper, provider string) *DebugTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &DebugTransport{base: base, provider: provider}
}

func (t *DebugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method == http.MethodPost {
		t.logRequest(req)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		logger.Errorf("[%s debug] request failed: %v", t.provider, err)
		return nil, err
	}
	logger.Debugf("[%s debug] %s %s -> %d", t.provider, req.Method, redactURL(req.URL.String()), resp.StatusCode)
	return resp, nil
}

func (t *DebugTransport) logRequest(req *http.Request) {
	entry := logger.WithFields(map[string]interface{}{
		"provider": t.provider,
		"method":   req.Method,
		"url":      redactURL(req.URL.String()),
	})

	headers := make([]string, 0, len(req.Header))
	for name, values := range req.Header {
		if sensitiveHeaders[strings.ToLower(name)] {
			headers = append(headers, name+": [REDACTED]")
			continue
		}
		headers = append(headers, name+": "+strings.Join(values, ", "))
	}
	entry = entry.WithField("headers", strings.Join(headers, "; "))

	if req.Body != nil && req.Body != http.NoBody {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			entry.Errorf("failed to read request body: %v", err)
			return
		}
		// 恢复请求体，以免影响实际请求
		req.Body = io.NopCloser(bytes.NewReader(body))
		entry = entry.WithField("body_size", len(body))
		entry = entry.WithField("body", RedactBody(string(body)))
	}

	entry.Debug("outgoing model request")
}

// RedactBody masks credential fields and inline image payloads in a JSON body
// and truncates it for logging.
func RedactBody(body string) string {
	body = sensitiveFieldPattern.ReplaceAllString(body, `$1"[REDACTED]"`)
	body = inlineImagePattern.ReplaceAllString(body, "data:image/*;base64,[IMAGE]")
	if len(body) > maxLoggedBody {
		body = body[:maxLoggedBody] + "...(truncated)"
	}
	return body
}

func redactURL(u string) string {
	return keyQueryPattern.ReplaceAllString(u, "${1}[REDACTED]")
}
