package oauth

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var alphanumeric = regexp.MustCompile(`^[A-Za-z0-9]+$`)

func TestGenerateCodeVerifier(t *testing.T) {
	// Stripping is random, so check the bounds over many draws.
	for i := 0; i < 100; i++ {
		verifier, err := GenerateCodeVerifier()
		require.NoError(t, err)

		// RFC 7636: verifier must be 43-128 characters
		assert.GreaterOrEqual(t, len(verifier), 43)
		assert.LessOrEqual(t, len(verifier), 128)
		assert.Regexp(t, alphanumeric, verifier)
	}
}

func TestGenerateCodeVerifierUnique(t *testing.T) {
	a, err := GenerateCodeVerifier()
	require.NoError(t, err)
	b, err := GenerateCodeVerifier()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestGenerateCodeChallenge(t *testing.T) {
	// Test vector from RFC 7636 appendix B.
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	challenge := GenerateCodeChallenge(verifier)

	assert.Equal(t, "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM", challenge)
}

func TestGenerateCodeChallengeDeterministic(t *testing.T) {
	verifier, err := GenerateCodeVerifier()
	require.NoError(t, err)

	first := GenerateCodeChallenge(verifier)
	second := GenerateCodeChallenge(verifier)

	assert.Equal(t, first, second)
	assert.NotContains(t, first, "+")
	assert.NotContains(t, first, "/")
	assert.NotContains(t, first, "=")
}

func TestGenerateState(t *testing.T) {
	state, err := GenerateState()
	require.NoError(t, err)

	// 16 random bytes hex-encoded: 32 characters, 128 bits of entropy.
	assert.Len(t, state, 32)
	assert.Regexp(t, `^[0-9a-f]{32}$`, state)

	other, err := GenerateState()
	require.NoError(t, err)
	assert.NotEqual(t, state, other)
}
