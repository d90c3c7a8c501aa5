package ytchat

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/api/googleapi"
)

func TestClassifySendErrorStructured(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want SendErrorClass
	}{
		{"401", &googleapi.Error{Code: 401}, SendErrorAuth},
		{"429", &googleapi.Error{Code: 429}, SendErrorRateLimited},
		{"403 rate", &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "rateLimitExceeded"}}}, SendErrorRateLimited},
		{"403 quota", &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "quotaExceeded"}}}, SendErrorRateLimited},
		{"403 livechat", &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "liveChatRateLimitExceeded"}}}, SendErrorRateLimited},
		{"403 other", &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "forbidden"}}}, SendErrorAuth},
		{"403 bare", &googleapi.Error{Code: 403}, SendErrorAuth},
		{"500", &googleapi.Error{Code: 500}, SendErrorRetryable},
		{"503", &googleapi.Error{Code: 503}, SendErrorRetryable},
		{"404", &googleapi.Error{Code: 404}, SendErrorFatal},
		{"wrapped 401", fmt.Errorf("send: %w", &googleapi.Error{Code: 401}), SendErrorAuth},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := ClassifySendError(c.err); got != c.want {
				t.Errorf("ClassifySendError = %v, want %v", got, c.want)
			}
		})
	}
}

func TestClassifySendErrorStringFallback(t *testing.T) {
	cases := []struct {
		err  string
		want SendErrorClass
	}{
		{"oauth2: cannot fetch token: invalid_grant", SendErrorAuth},
		{"Request had invalid credentials", SendErrorAuth},
		{"too many requests, slow down", SendErrorRateLimited},
		{"daily quota exceeded", SendErrorRateLimited},
		{"dial tcp: i/o timeout", SendErrorRetryable},
		{"read: connection reset by peer", SendErrorRetryable},
		{"unexpected EOF", SendErrorRetryable},
		{"502 Bad Gateway", SendErrorRetryable},
		{"video not found", SendErrorFatal},
	}
	for _, c := range cases {
		if got := ClassifySendError(errors.New(c.err)); got != c.want {
			t.Errorf("ClassifySendError(%q) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestClassifySendErrorNil(t *testing.T) {
	if got := ClassifySendError(nil); got != SendErrorFatal {
		t.Errorf("nil error class = %v, want fatal", got)
	}
}
