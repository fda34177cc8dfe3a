package oauth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registryBroker(t *testing.T, name string) *Broker {
	t.Helper()
	cfg, ok := Defaults(name)
	require.True(t, ok)
	cfg.ClientID = "id"
	cfg.ClientSecret = "secret"
	return NewBroker(cfg, NewMemoryStore())
}

func TestRegistryGet(t *testing.T) {
	registry := NewRegistry()
	registry.Register(registryBroker(t, "github"))

	broker, err := registry.Get("github")
	require.NoError(t, err)
	assert.Equal(t, "github", broker.Name())
}

func TestRegistryGetUnknown(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Get("twitter")
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

func TestRegistryNames(t *testing.T) {
	registry := NewRegistry()
	registry.Register(registryBroker(t, "twitter"))
	registry.Register(registryBroker(t, "discord"))
	registry.Register(registryBroker(t, "github"))

	assert.Equal(t, []string{"discord", "github", "twitter"}, registry.Names())
}
