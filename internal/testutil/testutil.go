package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const pollInterval = 5 * time.Millisecond

// WaitForCondition fails the test unless cond turns true within timeout.
// msgAndArgs name the condition in the failure message, as in testify.
func WaitForCondition(t *testing.T, timeout time.Duration, cond func() bool, msgAndArgs ...any) {
	t.Helper()
	if len(msgAndArgs) == 0 {
		msgAndArgs = []any{"condition not met within %s", timeout}
	}
	require.Eventually(t, cond, timeout, pollInterval, msgAndArgs...)
}
