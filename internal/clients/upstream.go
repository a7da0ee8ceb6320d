package clients

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/vadiminshakov/coinrates/internal/domain"
)

const defaultTimeout = 30 * time.Second

func newRestyClient(baseURL string, timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
}

// upstreamError wraps domain.ErrUpstream with the source name and detail.
func upstreamError(source, format string, args ...any) error {
	return errors.Wrapf(domain.ErrUpstream, "%s: %s", source, fmt.Sprintf(format, args...))
}

// transportError wraps a network level failure.
func transportError(source string, err error) error {
	return errors.Wrapf(domain.ErrUpstream, "%s: request failed: %s", source, err)
}
