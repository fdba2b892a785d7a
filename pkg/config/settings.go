package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// DefaultPrefix is the environment prefix used by LoadSettings.
const DefaultPrefix = "HERO"

// Settings are process-level knobs read from the environment.
type Settings struct {
	Address         string        `envconfig:"ADDRESS" default:":2345"`
	ConfigFile      string        `envconfig:"CONFIG_FILE" default:"config/app.yaml"`
	PublicDir       string        `envconfig:"PUBLIC_DIR" default:"public"`
	RedisURL        string        `envconfig:"REDIS_URL"`
	SentryDSN       string        `envconfig:"SENTRY_DSN"`
	SentryEnv       string        `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"json"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	Debug           bool          `envconfig:"DEBUG" default:"false"`
}

// LoadSettings loads the given .env files (missing files are ignored) and
// then reads Settings from variables named <prefix>_<FIELD>.
// Variables already present in the environment win over .env entries.
func LoadSettings(prefix string, envFiles ...string) (Settings, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Settings{}, err
		}
	}

	var s Settings
	if err := envconfig.Process(prefix, &s); err != nil {
		return Settings{}, err
	}
	return s, nil
}
