package retry

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"strings"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/example/hikelog/internal/apperr"
)

// transientKeywords are matched case-insensitively against error messages.
// 503, 504 and 429 are the service unavailable, gateway timeout and too many
// requests status codes.
var transientKeywords = []string{
	"timeout",
	"timed out",
	"unavailable",
	"deadline",
	"throttled",
	"throttling",
	"rate limit",
	"rate-limit",
	"ratelimit",
	"too many requests",
	"503",
	"504",
	"429",
}

// IsRetryable reports whether err is a transient failure.
//
// Explicit apperr kinds win: validation, not-found, permanent and fatal errors
// are never retried, transient ones always are. Otherwise the error is
// retryable if it belongs to a transient category (network timeout, DNS, TLS,
// open circuit breaker) or its message carries a transient keyword.
// Cancellation by the caller is never retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindNotFound, apperr.KindPermanent, apperr.KindFatal:
		return false
	case apperr.KindTransient:
		return true
	}

	if isTransientCategory(err) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, kw := range transientKeywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}

func isTransientCategory(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) {
		return true
	}
	var alertErr tls.AlertError
	if errors.As(err, &alertErr) {
		return true
	}
	var unknownAuthority x509.UnknownAuthorityError
	if errors.As(err, &unknownAuthority) {
		return true
	}
	var certInvalid x509.CertificateInvalidError
	if errors.As(err, &certInvalid) {
		return true
	}

	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
