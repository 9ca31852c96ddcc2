package resilience

import (
	"fmt"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestRetryableStatusCodes(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{408, true},
		{429, true},
		{500, true},
		{502, true},
		{503, true},
		{504, true},
		{400, false},
		{401, false},
		{403, false},
		{404, false},
	}
	for _, tt := range tests {
		err := &StatusError{Endpoint: "/drug/ndc.json", Code: tt.code}
		assert.Equal(t, tt.want, Retryable(err), "status %d", tt.code)
	}
}

func TestRetryableWrappedStatusError(t *testing.T) {
	err := eris.Wrap(&StatusError{Endpoint: "/drug/label.json", Code: 503}, "openfda: search labels")
	assert.True(t, Retryable(err))
}

func TestRetryableConnectionErrors(t *testing.T) {
	assert.True(t, Retryable(syscall.ECONNRESET))
	assert.True(t, Retryable(fmt.Errorf("dial tcp: lookup api.fda.gov: no such host")))
	assert.True(t, Retryable(fmt.Errorf("read: connection reset by peer")))
	assert.True(t, Retryable(fmt.Errorf("net/http: TLS handshake timeout")))
}

func TestRetryableRejectsOtherErrors(t *testing.T) {
	assert.False(t, Retryable(nil))
	assert.False(t, Retryable(fmt.Errorf("invalid search query")))
	assert.False(t, Retryable(eris.New("decode response")))
}

func TestStatusErrorMessageNamesEndpoint(t *testing.T) {
	err := &StatusError{Endpoint: "/drug/event.json", Code: 429}
	assert.Contains(t, err.Error(), "/drug/event.json")
	assert.Contains(t, err.Error(), "429")
}
