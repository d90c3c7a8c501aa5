package ytchat

import (
	"errors"
	"strings"

	"google.golang.org/api/googleapi"
)

// SendErrorClass partitions outbound send failures into the recovery the
// messenger applies: refresh on auth, rotate on rate limit, retry on transient
// trouble, give up otherwise.
type SendErrorClass int

const (
	SendErrorAuth SendErrorClass = iota
	SendErrorRateLimited
	SendErrorRetryable
	SendErrorFatal
)

// String returns a human-readable name for the error class.
func (c SendErrorClass) String() string {
	switch c {
	case SendErrorAuth:
		return "auth"
	case SendErrorRateLimited:
		return "rate_limited"
	case SendErrorRetryable:
		return "retryable"
	default:
		return "fatal"
	}
}

// ClassifySendError inspects a YouTube API error and decides how the send
// should be recovered. Structured googleapi errors are preferred; string
// matching covers transport-level failures that surface as plain errors.
func ClassifySendError(err error) SendErrorClass {
	if err == nil {
		return SendErrorFatal
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == 401:
			return SendErrorAuth
		case gerr.Code == 429:
			return SendErrorRateLimited
		case gerr.Code == 403:
			for _, e := range gerr.Errors {
				switch e.Reason {
				case "rateLimitExceeded", "userRateLimitExceeded", "quotaExceeded", "liveChatRateLimitExceeded":
					return SendErrorRateLimited
				}
			}
			return SendErrorAuth
		case gerr.Code >= 500:
			return SendErrorRetryable
		default:
			return SendErrorFatal
		}
	}

	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "401") ||
		strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "invalid_grant") ||
		strings.Contains(lower, "invalid credentials"):
		return SendErrorAuth
	case strings.Contains(lower, "429") ||
		strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "quota") ||
		strings.Contains(lower, "too many requests"):
		return SendErrorRateLimited
	case strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "connection reset") ||
		strings.Contains(lower, "connection refused") ||
		strings.Contains(lower, "eof") ||
		strings.Contains(lower, "broken pipe") ||
		strings.Contains(lower, "temporary failure in name resolution") ||
		strings.Contains(lower, "service unavailable") ||
		strings.Contains(lower, "bad gateway"):
		return SendErrorRetryable
	}
	return SendErrorFatal
}
