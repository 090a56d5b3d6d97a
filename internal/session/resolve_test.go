package session

import (
	"testing"

	"github.com/matheus3301/crmlive/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePrecedence(t *testing.T) {
	t.Setenv(HomeEnv, t.TempDir())
	t.Setenv(SessionEnv, "")

	assert.Equal(t, DefaultSessionName, Resolve(""))

	require.NoError(t, config.Save(ConfigPath(), &config.Config{DefaultSession: "work"}))
	assert.Equal(t, "work", Resolve(""), "config default")

	t.Setenv(SessionEnv, "support")
	assert.Equal(t, "support", Resolve(""), "env beats config")
	assert.Equal(t, "override", Resolve("override"), "flag beats env")
}
