package internal

import (
	"fmt"
	"time"
)

type Config struct {
	LogLevel   string `env:"LOG_LEVEL,default=INFO"`
	Host       string `env:"HOST,default=0.0.0.0"`
	Port       int    `env:"PORT,default=3000"`
	HealthPort int    `env:"HEALTH_PORT,default=3001"`

	JWTSecret         string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=2h"`
	BadgerFilepath    string        `env:"BADGER_FILEPATH,required=true"`

	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	HandshakeTimeout     time.Duration `env:"HANDSHAKE_TIMEOUT,default=5s"`
	ReadTimeout          time.Duration `env:"READ_TIMEOUT,default=60s"`
	PingInterval         time.Duration `env:"PING_INTERVAL,default=54s"`
	WriteTimeout         time.Duration `env:"WRITE_TIMEOUT,default=10s"`
	MaxMessageSize       int64         `env:"MAX_MESSAGE_SIZE,default=4096"`

	CensoredWordsFile string `env:"CENSORED_WORDS_FILE"`
	CharReplacement   string `env:"CHARACTER_REPLACEMENT,default=*"`

	EnableInspector bool          `env:"ENABLE_INSPECTOR,default=false"`
	ReportInterval  time.Duration `env:"REPORT_INTERVAL,default=30s"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=1s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

// Validate checks the relations between settings that tags cannot express.
func (c Config) Validate() error {
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes long")
	}
	if c.PingInterval >= c.ReadTimeout {
		return fmt.Errorf("PING_INTERVAL (%s) must be shorter than READ_TIMEOUT (%s)", c.PingInterval, c.ReadTimeout)
	}
	if c.ConnectionBufferSize <= 0 {
		return fmt.Errorf("CONNECTION_BUFFER_SIZE must be positive, got %d", c.ConnectionBufferSize)
	}
	if c.HandshakeTimeout <= 0 {
		return fmt.Errorf("HANDSHAKE_TIMEOUT must be positive, got %s", c.HandshakeTimeout)
	}
	return nil
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) HealthAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HealthPort)
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
