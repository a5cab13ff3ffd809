package cli

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/admissions-kb/internal/logger"
)

func TestVersionCmd_Use(t *testing.T) {
	assert.Equal(t, "version", versionCmd.Use)
	assert.Equal(t, "Print the version number", versionCmd.Short)
}

func TestVersionCmd_Executes(t *testing.T) {
	originalVersion := version
	version = "test-version-1.0.0"
	defer func() { version = originalVersion }()

	out, err := execute(t, "version")

	require.NoError(t, err)
	assert.Contains(t, out, "admkb version test-version-1.0.0")
}

func TestVersionCmd_DisplaysDevByDefault(t *testing.T) {
	originalVersion := version
	version = "dev"
	defer func() { version = originalVersion }()

	out, err := execute(t, "version")

	require.NoError(t, err)
	assert.Contains(t, out, "admkb version dev")
}

func TestVersionCmd_DoesNotWireServices(t *testing.T) {
	prev := bootstrap
	bootstrap = nil
	defer func() { bootstrap = prev }()

	_, err := execute(t, "version")
	assert.NoError(t, err)
}

func TestVersionCmd_VerboseShowsRuntime(t *testing.T) {
	t.Cleanup(func() { logger.SetVerbose(false) })

	out, err := execute(t, "version", "--verbose")

	require.NoError(t, err)
	assert.Contains(t, out, "go:       "+runtime.Version())
}

func TestVersionCmd_RejectsArgs(t *testing.T) {
	_, err := execute(t, "version", "extra")
	assert.Error(t, err)
}
