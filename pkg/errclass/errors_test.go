package errclass_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ito-project/ito/pkg/errclass"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItoError_Error(t *testing.T) {
	err := errclass.ErrEntityKindUnknown.WithMessage("entity kind \"ticket\" is not writable")
	assert.Equal(t, `E_ENTITY_KIND_UNKNOWN: entity kind "ticket" is not writable`, err.Error())
}

func TestItoError_ErrorWithoutMessage(t *testing.T) {
	assert.Equal(t, "E_AUDIT_WRITE", errclass.ErrAuditWrite.Error())
}

func TestItoError_Is(t *testing.T) {
	err := errclass.ErrEventInvalid.WithMessagef("missing %s", "entity_id")
	require.True(t, errors.Is(err, errclass.ErrEventInvalid))
	require.False(t, errors.Is(err, errclass.ErrNameInvalid))
}

func TestItoError_IsThroughWrap(t *testing.T) {
	err := fmt.Errorf("append: %w", errclass.ErrAuditWrite.WithMessage("disk full"))
	assert.True(t, errors.Is(err, errclass.ErrAuditWrite))
}

func TestItoError_WithMessageDoesNotMutateSentinel(t *testing.T) {
	_ = errclass.ErrConfigKeyUnknown.WithMessage("foo")
	assert.Empty(t, errclass.ErrConfigKeyUnknown.Message)
}
