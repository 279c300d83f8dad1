package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

const testConfig = `
[tree]
initial-capacity = 64
multi = true

[churn]
ops = 10
timeout = "3s"
report = "out/report.json"

[metrics]
collect-metrics = true
metrics-port = 9090

[metrics.metrics-push-headers]
authorization = "Bearer x"

[logging]
log-encoder = "json"
tree = "debug"
`

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arenatree.toml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))

	vip := viper.New()
	require.NoError(t, LoadConfig(path, vip))
	conf := DefaultConfig()
	require.NoError(t, Unmarshal(vip, &conf))
	require.NoError(t, conf.Validate())

	require.Equal(t, 64, conf.Tree.InitialCapacity)
	require.True(t, conf.Tree.Multi)
	require.Equal(t, DefaultConfig().Tree.MinBucketCapacity, conf.Tree.MinBucketCapacity)
	require.Equal(t, 10, conf.Churn.Ops)
	require.Equal(t, 3*time.Second, conf.Churn.Timeout)
	require.Equal(t, "out/report.json", conf.Churn.Report)
	require.Equal(t, DefaultChurnConfig().Keys, conf.Churn.Keys)
	require.True(t, conf.Metrics.Collect)
	require.Equal(t, 9090, conf.Metrics.Port)
	require.Equal(t, map[string]string{"authorization": "Bearer x"}, conf.Metrics.PushHeaders)
	require.Equal(t, JSONLogEncoder, conf.LOGGING.Encoder)
	require.Equal(t, "debug", conf.LOGGING.TreeLoggerLevel)
	require.Equal(t, "info", conf.LOGGING.AppLoggerLevel)
}

func TestLoadConfigMissing(t *testing.T) {
	require.NoError(t, LoadConfig("", viper.New()))
	require.NoError(t, LoadConfig(defaultConfigFileName, viper.New()))
	err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"), viper.New())
	require.ErrorContains(t, err, "read config file")

	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[tree"), 0o600))
	require.Error(t, LoadConfig(path, viper.New()))
}

func TestValidate(t *testing.T) {
	conf := DefaultConfig()
	require.NoError(t, conf.Validate())

	for _, tc := range []struct {
		desc   string
		modify func(*Config)
		err    string
	}{
		{
			desc:   "tree",
			modify: func(c *Config) { c.Tree.MinBucketCapacity = 0 },
			err:    "min-bucket-capacity",
		},
		{
			desc:   "keys",
			modify: func(c *Config) { c.Churn.Keys = 0 },
			err:    "churn keys",
		},
		{
			desc:   "ratios",
			modify: func(c *Config) { c.Churn.InsertRatio = 90 },
			err:    "bad churn ratios",
		},
		{
			desc: "metrics port",
			modify: func(c *Config) {
				c.Metrics.Collect = true
				c.Metrics.Port = 0
			},
			err: "bad metrics port",
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			conf := DefaultConfig()
			tc.modify(&conf)
			require.ErrorContains(t, conf.Validate(), tc.err)
		})
	}
}
