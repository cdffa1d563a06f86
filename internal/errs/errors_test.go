package errs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrKind_String(t *testing.T) {
	tests := []struct {
		kind ErrKind
		want string
	}{
		{ErrKindUnknown, "unknown"},
		{ErrKindNotFound, "not_found"},
		{ErrKindConnectionFailed, "connection_failed"},
		{ErrKindTimeout, "timeout"},
		{ErrKindQueryFailed, "query_failed"},
		{ErrKindInvalidInput, "invalid_input"},
		{ErrKindPermissionDenied, "permission_denied"},
		{ErrKindConflict, "conflict"},
		{ErrKind(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.String())
		})
	}
}

func TestError_Message(t *testing.T) {
	assert.Equal(t, "[not_found] bucket missing", New(ErrKindNotFound, "bucket missing").Error())

	err := Wrap(ErrKindTimeout, "upload", context.DeadlineExceeded)
	assert.Equal(t, "[timeout] upload: context deadline exceeded", err.Error())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPredicates_TraverseChain(t *testing.T) {
	base := Wrap(ErrKindConflict, "duplicate key", nil)
	wrapped := fmt.Errorf("saving user: %w", base)

	assert.True(t, IsConflict(wrapped))
	assert.False(t, IsNotFound(wrapped))
	assert.Equal(t, ErrKindConflict, KindOf(wrapped))
}

func TestPredicates_ForeignErrors(t *testing.T) {
	err := errors.New("plain")

	assert.Equal(t, ErrKindUnknown, KindOf(err))
	assert.Equal(t, ErrKindUnknown, KindOf(nil))
	assert.False(t, IsTimeout(err))
}

type customKinded struct{}

func (customKinded) Error() string    { return "custom" }
func (customKinded) ErrKind() ErrKind { return ErrKindPermissionDenied }

func TestPredicates_AnyKinded(t *testing.T) {
	err := fmt.Errorf("outer: %w", customKinded{})
	assert.True(t, IsPermissionDenied(err))
}
