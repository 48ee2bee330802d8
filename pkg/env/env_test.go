package env

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetFallsBackOnBlank(t *testing.T) {
	t.Setenv("SUBHUB_TEST_VALUE", "   ")
	require.Equal(t, "fallback", Get("SUBHUB_TEST_VALUE", "fallback"))

	t.Setenv("SUBHUB_TEST_VALUE", " console ")
	require.Equal(t, "console", Get("SUBHUB_TEST_VALUE", "fallback"))
}

func TestFirstPicksEarliestKey(t *testing.T) {
	t.Setenv("SUBHUB_TEST_A", "")
	t.Setenv("SUBHUB_TEST_B", "web.1")
	t.Setenv("SUBHUB_TEST_C", "host")
	require.Equal(t, "web.1", First("SUBHUB_TEST_A", "SUBHUB_TEST_B", "SUBHUB_TEST_C"))
	require.Empty(t, First("SUBHUB_TEST_A"))
}

func TestBool(t *testing.T) {
	t.Setenv("SUBHUB_TEST_FLAG", "true")
	require.True(t, Bool("SUBHUB_TEST_FLAG", false))

	t.Setenv("SUBHUB_TEST_FLAG", "nope")
	require.True(t, Bool("SUBHUB_TEST_FLAG", true))

	t.Setenv("SUBHUB_TEST_FLAG", "")
	require.False(t, Bool("SUBHUB_TEST_FLAG", false))
}
