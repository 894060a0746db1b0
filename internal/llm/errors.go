package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrFatalAPI indicates an API error that will not resolve by retrying or
// moving on to the next document: bad credentials, exhausted quota, billing.
// Ingestion aborts when it sees this error.
var ErrFatalAPI = errors.New("fatal LLM API error")

// fatalPatterns are matched case-insensitively against error text.
var fatalPatterns = []string{
	"credit balance",
	"insufficient credit",
	"rate limit",
	"quota",
	"billing",
	"invalid api key",
	"authentication",
	"unauthorized",
	"401",
	"403",
}

// isFatalAPIError reports whether err is an account-level API failure.
func isFatalAPIError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range fatalPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// wrapFatalError tags account-level failures with ErrFatalAPI so callers can
// distinguish them from transient per-document failures.
func wrapFatalError(err error) error {
	if err == nil {
		return nil
	}
	if isFatalAPIError(err) {
		return fmt.Errorf("%w: %v", ErrFatalAPI, err)
	}
	return err
}
