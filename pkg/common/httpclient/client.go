// Package httpclient holds the outbound transport policy shared by the
// forecasting-engine clients: a pooled HTTP client and retry helpers for
// transient failures during engine probes.
package httpclient

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

// maxBackoff caps the doubling delay between retry attempts.
const maxBackoff = 2 * time.Second

// New returns the client used for engine traffic. The caller supplies the
// overall request timeout; connection pooling and handshake timeouts are
// fixed here so every engine flavour shares one policy.
func New(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// Retry runs fn up to attempts times, doubling the delay between attempts up
// to maxBackoff. Cancelling the context stops both the wait and any further
// attempts; the last error is returned when every attempt fails.
func Retry(ctx context.Context, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts <= 1 {
		return fn()
	}

	var err error
	delay := baseDelay
	for i := 0; i < attempts; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err = fn()
		if err == nil {
			return nil
		}

		if i == attempts-1 {
			break
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		delay *= 2
		if delay > maxBackoff {
			delay = maxBackoff
		}
	}

	return err
}

// IsRetriable reports whether an error looks transient: network timeouts,
// temporary network conditions, or an expired deadline.
func IsRetriable(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout() || netErr.Temporary()
	}
	return errors.Is(err, context.DeadlineExceeded)
}
