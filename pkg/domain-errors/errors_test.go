package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodedErrors(t *testing.T) {
	err := Newf(CodeEconomic, "balance %d below stake %d", 5, 10)
	assert.Equal(t, "economic: balance 5 below stake 10", err.Error())
	assert.True(t, Is(err, CodeEconomic))
	assert.False(t, Is(err, CodeValidation))
	assert.Equal(t, CodeEconomic, CodeOf(err))
	assert.Equal(t, "balance 5 below stake 10", MessageOf(err))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeInternal, "claim store unavailable")

	assert.ErrorIs(t, err, cause)
	assert.True(t, Is(err, CodeInternal))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestWrappedCodeSurvivesFmtChain(t *testing.T) {
	inner := New(CodeCooldown, "in cooldown")
	outer := fmt.Errorf("create claim: %w", inner)

	assert.True(t, Is(outer, CodeCooldown))
	assert.Equal(t, CodeCooldown, CodeOf(outer))
}

func TestBareErrorDefaultsToInternal(t *testing.T) {
	err := errors.New("something broke")
	assert.Equal(t, CodeInternal, CodeOf(err))
	assert.Equal(t, "internal error", MessageOf(err))
	assert.False(t, Is(err, CodeInternal))
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:    http.StatusBadRequest,
		CodeEligibility:   http.StatusForbidden,
		CodeEconomic:      http.StatusPaymentRequired,
		CodeStateConflict: http.StatusConflict,
		CodeCooldown:      http.StatusTooManyRequests,
		CodeTiming:        http.StatusPreconditionFailed,
		CodeNotFound:      http.StatusNotFound,
		CodeUnauthorized:  http.StatusUnauthorized,
		CodeInternal:      http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, ToHTTPStatus(code), "code %s", code)
	}
	assert.Equal(t, http.StatusInternalServerError, ToHTTPStatus(Code("unknown")))
}
