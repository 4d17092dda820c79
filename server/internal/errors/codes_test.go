package errors

import (
	"net/http"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/hrygo/circle/store"
)

func TestFromStore(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   ErrorCode
		status int
	}{
		{"tag not found", pkgerrors.Wrapf(store.ErrTagNotFound, "tag %d", 1), ErrCodeNotFound, http.StatusNotFound},
		{"owner not found", pkgerrors.Wrap(store.ErrOwnerNotFound, "member 2"), ErrCodeNotFound, http.StatusNotFound},
		{"underflow", pkgerrors.Wrap(store.ErrUsageCountUnderflow, "tag 3"), ErrCodeInvariantViolation, http.StatusInternalServerError},
		{"database", pkgerrors.New("disk I/O error"), ErrCodeInternal, http.StatusInternalServerError},
		{"already coded", pkgerrors.Wrap(InvalidArgument("empty name"), "submit"), ErrCodeInvalidArgument, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FromStore(tt.err, "operation failed")
			assert.True(t, IsCode(err, tt.code), "got %v", err)
			assert.Equal(t, tt.status, HTTPStatus(err))
		})
	}

	assert.NoError(t, FromStore(nil, "noop"))
}

func TestAppErrorUnwrap(t *testing.T) {
	err := FromStore(pkgerrors.Wrap(store.ErrTagNotFound, "tag 7"), "attach failed")
	assert.ErrorIs(t, err, store.ErrTagNotFound)
	assert.Contains(t, err.Error(), "[NOT_FOUND] attach failed")
}

func TestHTTPStatusForPlainError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(pkgerrors.New("boom")))
	assert.Equal(t, http.StatusTooManyRequests, HTTPStatus(RateLimitExceeded("slow down")))
}

func TestWithContext(t *testing.T) {
	err := NotFound("member not found").WithContext("member_id", int32(4))
	assert.Equal(t, int32(4), err.Context["member_id"])
}
