package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-studio/internal/types"
)

func TestNoop(t *testing.T) {
	var c SignalCache = Noop{}
	require.NoError(t, c.PutSignals(context.Background(), "h", []types.VacancySignal{{Name: "Go"}}))

	got, err := c.GetSignals(context.Background(), "h")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestConfig_NewClient_InvalidURL(t *testing.T) {
	_, err := Config{URL: "not-a-url"}.NewClient(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid redis url")
}
