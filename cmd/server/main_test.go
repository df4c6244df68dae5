package main

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/streetscan-api/internal/config"
)

func TestRootCmdFlags(t *testing.T) {
	cmd := newRootCmd()

	for _, name := range []string{"config", "port", "model"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}

	require.NoError(t, cmd.ParseFlags([]string{"--port", "5000", "-m", "weights/signs.onnx"}))
	assert.True(t, cmd.Flags().Changed("port"))
	assert.True(t, cmd.Flags().Changed("model"))
	assert.False(t, cmd.Flags().Changed("config"))
}

func TestRootCmdRejectsBadConfig(t *testing.T) {
	t.Setenv("STREETSCAN_MODEL_CONFIDENCE_THRESHOLD", "2")
	cmd := newRootCmd()
	cmd.SetArgs([]string{})

	err := cmd.Execute()

	assert.ErrorContains(t, err, "confidence_threshold")
}

func TestRootCmdPortDefaultMatchesConfig(t *testing.T) {
	flag := newRootCmd().Flags().Lookup("port")
	require.NotNil(t, flag)

	assert.Equal(t, strconv.Itoa(config.Default().Server.Port), flag.DefValue)
	assert.Contains(t, newRootCmd().UsageString(), "(default "+flag.DefValue+")")
}
