package shared

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConstraintfWrapsSentinel(t *testing.T) {
	err := Constraintf("sku %q already exists", "W-100")
	require.ErrorIs(t, err, ErrConstraint)
	require.Contains(t, err.Error(), "W-100")
}

func TestConsistencyKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Consistency(cause)
	require.ErrorIs(t, err, ErrConsistency)
	require.ErrorIs(t, err, cause)
	require.NoError(t, Consistency(nil))
}
