package internal

import (
	"testing"
	"time"

	"github.com/Netflix/go-env"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	req := require.New(t)
	t.Setenv("JWT_SECRET", "a_secret_long_enough_for_hs256_signing")
	t.Setenv("BADGER_FILEPATH", "/tmp/badger")

	var config Config
	_, err := env.UnmarshalFromEnviron(&config)

	req.NoError(err)
	req.NoError(config.Validate())
	req.Equal("INFO", config.LogLevel)
	req.Equal("0.0.0.0:3000", config.Address())
	req.Equal(5*time.Second, config.HandshakeTimeout)
	req.Equal(64, config.ConnectionBufferSize)
	req.Empty(config.CensoredWordsFile)
}

func TestConfig_MissingSecret(t *testing.T) {
	t.Setenv("BADGER_FILEPATH", "/tmp/badger")

	var config Config
	_, err := env.UnmarshalFromEnviron(&config)

	require.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{
		JWTSecret:            "a_secret_long_enough_for_hs256_signing",
		ConnectionBufferSize: 8,
		HandshakeTimeout:     time.Second,
		ReadTimeout:          time.Minute,
		PingInterval:         30 * time.Second,
	}

	testCases := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"short secret", func(c *Config) { c.JWTSecret = "short" }},
		{"ping slower than read timeout", func(c *Config) { c.PingInterval = 2 * time.Minute }},
		{"empty buffer", func(c *Config) { c.ConnectionBufferSize = 0 }},
		{"no handshake bound", func(c *Config) { c.HandshakeTimeout = 0 }},
	}

	require.NoError(t, valid.Validate())
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			config := valid
			tc.mutate(&config)
			require.Error(t, config.Validate())
		})
	}
}

func TestCharacterRune(t *testing.T) {
	req := require.New(t)

	r, err := CharacterRune("#")
	req.NoError(err)
	req.Equal('#', r)

	_, err = CharacterRune("**")
	req.Error(err)
}
