package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	_, err := Init("loud", "json")
	require.ErrorContains(t, err, "invalid log level")

	_, err = Init("info", "xml")
	require.ErrorContains(t, err, "invalid log format")

	l, err := Init("debug", "console")
	require.NoError(t, err)
	require.Same(t, l, L())
	require.Equal(t, "exchange", Named("exchange").Name())
}
