package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hero/pkg/config"
)

const sample = `
app:
  name: demo
  debug: true
  port: 8080
  ratio: 0.5
middleware:
  - cors
  - requestid
redis:
  url: redis://localhost:6379/0
  pool_size: 20
  read_timeout: 2s
empty:
`

func TestTree(t *testing.T) {
	t.Parallel()

	tree, err := config.Parse([]byte(sample))
	require.NoError(t, err)

	t.Run("dotted lookup", func(t *testing.T) {
		t.Parallel()

		require.Equal(t, "demo", tree.Get("app.name", nil))
		require.Equal(t, 8080, tree.Get("app.port", nil))
		require.InDelta(t, 0.5, tree.Get("app.ratio", nil), 0.0001)
		require.Equal(t, true, tree.Get("app.debug", false))
	})

	t.Run("defaults for missing keys", func(t *testing.T) {
		t.Parallel()

		require.Equal(t, "fallback", tree.Get("app.missing", "fallback"))
		require.Equal(t, "x", tree.Get("app.name.deeper", "x"))
		require.Nil(t, tree.Get("nope", nil))
	})

	t.Run("explicit null stays present", func(t *testing.T) {
		t.Parallel()

		v, ok := tree.Lookup("empty")
		require.True(t, ok)
		require.Nil(t, v)
	})

	t.Run("typed accessors", func(t *testing.T) {
		t.Parallel()

		require.Equal(t, "demo", tree.String("app.name", ""))
		require.Equal(t, "d", tree.String("app.port", "d"))
		require.True(t, tree.Bool("app.debug", false))
		require.Equal(t, 8080, tree.Int("app.port", 0))
		require.Equal(t, []string{"cors", "requestid"}, tree.Strings("middleware"))
		require.Equal(t, "demo", tree.Sub("app").String("name", ""))
	})

	t.Run("decode subtree", func(t *testing.T) {
		t.Parallel()

		var cfg struct {
			URL         string        `yaml:"url"`
			PoolSize    int           `yaml:"pool_size"`
			ReadTimeout time.Duration `yaml:"read_timeout"`
		}
		require.NoError(t, tree.Decode("redis", &cfg))
		require.Equal(t, "redis://localhost:6379/0", cfg.URL)
		require.Equal(t, 20, cfg.PoolSize)
		require.Equal(t, 2*time.Second, cfg.ReadTimeout)

		require.ErrorIs(t, tree.Decode("missing", &cfg), config.ErrKeyNotFound)
	})
}

func TestParseInvalid(t *testing.T) {
	t.Parallel()

	_, err := config.Parse([]byte("a: [unclosed"))
	require.ErrorIs(t, err, config.ErrInvalidFile)

	tree, err := config.Parse(nil)
	require.NoError(t, err)
	require.Nil(t, tree.Get("anything", nil))
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	tree, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "demo", tree.String("app.name", ""))

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
