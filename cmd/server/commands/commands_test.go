package commands_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/SolarSense/backend/cmd/server/commands"
	"github.com/GriffinCanCode/SolarSense/backend/internal/infrastructure/config"
)

func execute(t *testing.T, serve commands.ServeFunc, args ...string) (string, error) {
	t.Helper()
	if serve == nil {
		serve = func(context.Context, *config.Config) error { return nil }
	}
	out := new(bytes.Buffer)
	cli := commands.New(serve)
	cli.SetArgs(args)
	cli.SetOutput(out, out)
	err := cli.Execute(context.Background())
	return out.String(), err
}

func TestCommands_Serve(t *testing.T) {
	t.Run("flags override the environment", func(t *testing.T) {
		t.Setenv("PORT", "9000")

		var got *config.Config
		_, err := execute(t, func(_ context.Context, cfg *config.Config) error {
			got = cfg
			return nil
		}, "serve", "--host", "127.0.0.1", "--esp", "http://10.0.0.5", "--dev")
		require.NoError(t, err)

		require.NotNil(t, got)
		assert.Equal(t, "9000", got.Server.Port)
		assert.Equal(t, "127.0.0.1", got.Server.Host)
		assert.Equal(t, "http://10.0.0.5", got.Device.URL)
		assert.True(t, got.Logging.Development)
		assert.Equal(t, "debug", got.Logging.Level)
	})

	t.Run("rejects an invalid board URL", func(t *testing.T) {
		called := false
		_, err := execute(t, func(context.Context, *config.Config) error {
			called = true
			return nil
		}, "serve", "--esp", "://nope")
		assert.Error(t, err)
		assert.False(t, called)
	})

	t.Run("serves without a subcommand", func(t *testing.T) {
		var got *config.Config
		_, err := execute(t, func(_ context.Context, cfg *config.Config) error {
			got = cfg
			return nil
		}, "--port", "8123")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "8123", got.Server.Port)
	})

	t.Run("returns server errors", func(t *testing.T) {
		_, err := execute(t, func(context.Context, *config.Config) error {
			return errors.New("address in use")
		}, "serve")
		assert.EqualError(t, err, "address in use")
	})
}

func TestCommands_Position(t *testing.T) {
	out, err := execute(t, nil, "position", "--lat", "51.5", "--lon", "-0.12", "--time", "2024-06-21T12:00:00+01:00")
	require.NoError(t, err)
	assert.Contains(t, out, "base 14°, panel 119°")
	assert.Contains(t, out, "2024-06-21T12:00:00+01:00")

	_, err = execute(t, nil, "position", "--lat", "95", "--lon", "0")
	assert.Error(t, err)

	_, err = execute(t, nil, "position", "--lat", "51.5")
	assert.ErrorContains(t, err, "lon")
}

func TestCommands_Profile(t *testing.T) {
	out, err := execute(t, nil, "profile", "--lat", "51.5", "--lon", "-0.12", "--date", "2024-06-21", "--tz", "UTC", "--step", "1h", "--samples")
	require.NoError(t, err)
	assert.Contains(t, out, "Date:")
	assert.Contains(t, out, "2024-06-21")
	assert.Contains(t, out, "Sunrise:")
	assert.Contains(t, out, "AZIMUTH")

	_, err = execute(t, nil, "profile", "--lat", "0", "--lon", "0", "--date", "21/06/2024")
	assert.ErrorContains(t, err, "YYYY-MM-DD")
}

func TestCommands_Manifest(t *testing.T) {
	t.Run("prints the built-in manifest", func(t *testing.T) {
		out, err := execute(t, nil, "manifest", "--format", "toml")
		require.NoError(t, err)
		assert.Contains(t, out, "com.example.solarsenseapp")
	})

	t.Run("validates the built-in manifest", func(t *testing.T) {
		out, err := execute(t, nil, "manifest", "validate")
		require.NoError(t, err)
		assert.Contains(t, out, "fingerprint")
		assert.Contains(t, out, "warning: unresolved volley")
		assert.NotContains(t, out, "provided by")
		assert.Contains(t, out, "ok")
	})

	t.Run("resolves against a catalog", func(t *testing.T) {
		out, err := execute(t, nil, "manifest", "validate", "--catalog", filepath.Join("..", "..", "..", "configs", "libs.versions.toml"))
		require.NoError(t, err)
		assert.Contains(t, out, "warning: http-client provided by com.android.volley:volley, com.squareup.okhttp3:okhttp")
		assert.NotContains(t, out, "warning: unresolved")
		assert.NotContains(t, out, "material-components provided by")
	})

	t.Run("reports problems in a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("identity:\n  namespace: app\n"), 0o600))

		out, err := execute(t, nil, "manifest", "validate", "--file", path)
		assert.ErrorContains(t, err, "manifest has problems")
		assert.Contains(t, out, "error: identity.namespace")
	})

	t.Run("rejects unknown formats", func(t *testing.T) {
		_, err := execute(t, nil, "manifest", "--format", "xml")
		assert.Error(t, err)
	})
}

func TestCommands_Command(t *testing.T) {
	out, err := execute(t, nil, "command", "set", "base", "to", "120")
	require.NoError(t, err)
	assert.Contains(t, out, `"action": "set_angle"`)
	assert.Contains(t, out, `"servo": "base"`)
	assert.Contains(t, out, `"angle": 120`)

	out, err = execute(t, nil, "command", "help")
	require.NoError(t, err)
	assert.Contains(t, out, "Voice Commands")

	_, err = execute(t, nil, "command", "make", "tea")
	assert.ErrorContains(t, err, "unrecognized command")
}

func TestCommands_Version(t *testing.T) {
	out, err := execute(t, nil, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "solarsense version dev")
}
