package cli

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupReportsInvalidConfigOnce(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("VAGENT_MAX_CONCURRENCY", "0")

	_, err := setup(context.Background(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_concurrency")
	assert.Equal(t, 1, strings.Count(err.Error(), "invalid config"), err.Error())
}
