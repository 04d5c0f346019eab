package main

import (
	"testing"

	"github.com/dickeyy/bundle-dashboard/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// runLoadConfig runs the app's global flag parsing and returns the resulting
// config.
func runLoadConfig(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()
	var cfg *config.Config
	app := newApp()
	app.Commands = []*cli.Command{{
		Name: "show-config",
		Action: func(c *cli.Context) error {
			var err error
			cfg, err = loadConfig(c)
			return err
		},
	}}
	err := app.Run(append(append([]string{"bundledash"}, args...), "show-config"))
	return cfg, err
}

func TestTimezoneIgnoresPOSIXTZ(t *testing.T) {
	t.Setenv("TZ", ":/etc/localtime")

	cfg, err := runLoadConfig(t)
	require.NoError(t, err)
	assert.Equal(t, "UTC", cfg.Timezone)
}

func TestTimezoneFromEnvironment(t *testing.T) {
	t.Setenv("BUNDLEDASH_TIMEZONE", "Asia/Riyadh")

	cfg, err := runLoadConfig(t)
	require.NoError(t, err)
	assert.Equal(t, "Asia/Riyadh", cfg.Timezone)
}

func TestTimezoneFlagIsValidated(t *testing.T) {
	_, err := runLoadConfig(t, "--timezone", "Mars/Olympus")
	assert.Error(t, err)
}
