package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	v, c, d := Version, Commit, Date
	t.Cleanup(func() { Version, Commit, Date = v, c, d })

	Version, Commit, Date = "v1.2.0", "abc1234", ""
	require.Equal(t, "v1.2.0 (abc1234)", String())

	Date = "2026-10-01T12:00:00Z"
	require.Equal(t, "v1.2.0 (abc1234, 2026-10-01T12:00:00Z)", String())
}
