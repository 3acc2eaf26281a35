package ados

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/ados/types"
)

func TestNew_Defaults(t *testing.T) {
	orch, err := New(DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, orch)
	assert.False(t, orch.IsInitialized())
}

func TestNew_NilConfig(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrMalformedConfig, types.GetErrorCode(err))
}
