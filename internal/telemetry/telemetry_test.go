package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInit_InstallsShutdownableProvider(t *testing.T) {
	shutdown, err := Init(context.Background(), "localflow-test")
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	require.NoError(t, shutdown(context.Background()))
}
