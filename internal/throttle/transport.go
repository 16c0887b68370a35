package throttle

import (
	"net/http"
	"time"
)

// Transport applies a Gate immediately before the wrapped RoundTripper sends
// a request, so every outbound call through a gated client is throttled
// regardless of HTTP verb.
type Transport struct {
	Base http.RoundTripper
	Gate *Gate
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Gate != nil {
		if err := t.Gate.Wait(req.Context()); err != nil {
			return nil, err
		}
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// NewClient returns an http.Client whose requests pass through the gate.
func NewClient(gate *Gate, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: &Transport{Gate: gate},
	}
}
