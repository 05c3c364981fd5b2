package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/use-agent/steel-scraper/models"
)

// ClassifyTransport maps a failure that happened before any HTTP response was
// received. Name resolution is checked first, then timeouts and aborts.
func ClassifyTransport(err error) models.ErrorKind {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return models.KindNetworkDNSFailure
	}

	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, os.ErrDeadlineExceeded) {
		return models.KindNetworkTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return models.KindNetworkTimeout
	}

	return models.KindNetworkUnavailable
}

// ClassifyStatus maps a non-success HTTP status from the remote service.
func ClassifyStatus(code int) models.ErrorKind {
	switch {
	case code == http.StatusUnauthorized:
		return models.KindAuthRequired
	case code == http.StatusForbidden:
		return models.KindAuthInvalid
	case code == http.StatusTooManyRequests:
		return models.KindRateLimitExceeded
	case code >= 400 && code < 500:
		return models.KindClientError
	case code == http.StatusServiceUnavailable:
		return models.KindServerUnavailable
	case code >= 500 && code < 600:
		return models.KindServerError
	default:
		return models.KindUnknown
	}
}

// StatusMessage keeps the remote's message verbatim when present, otherwise
// synthesizes "<status> <status text>".
func StatusMessage(code int, remoteMessage string) string {
	if remoteMessage != "" {
		return remoteMessage
	}
	text := http.StatusText(code)
	if text == "" {
		return fmt.Sprintf("%d", code)
	}
	return fmt.Sprintf("%d %s", code, text)
}

// transportError builds the SteelError for a failed remote invocation.
func transportError(err error, url string) *models.SteelError {
	return models.NewSteelError(ClassifyTransport(err), err.Error(), map[string]any{
		"url": url,
	}, err)
}

// statusError builds the SteelError for a non-2xx reply.
func statusError(reply *models.RemoteReply, url string) *models.SteelError {
	return models.NewSteelError(
		ClassifyStatus(reply.StatusCode),
		StatusMessage(reply.StatusCode, reply.ErrorMessage),
		map[string]any{
			"url":        url,
			"statusCode": reply.StatusCode,
		},
		nil,
	)
}
