package utils

import (
	"net/http"
	"time"
)

// TransportWrapper decorates the base transport of a client built by NewHTTPClient.
type TransportWrapper func(http.RoundTripper) http.RoundTripper

// NewHTTPClient returns a pooled client for provider SDKs. A zero timeout
// leaves request deadlines to the caller's context.
func NewHTTPClient(timeout time.Duration, wrappers ...TransportWrapper) *http.Client {
	var transport http.RoundTripper = &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	for _, wrap := range wrappers {
		if wrap != nil {
			transport = wrap(transport)
		}
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
