package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spacemeshos/go-arenatree/codec"
	"github.com/spacemeshos/go-arenatree/config"
	"github.com/spacemeshos/go-arenatree/config/presets"
	"github.com/spacemeshos/go-arenatree/log/logtest"
	"github.com/spacemeshos/go-arenatree/tree"
)

func smokeConfig(t *testing.T) config.Config {
	conf, err := presets.Get("smoke")
	require.NoError(t, err)
	conf.Churn.Ops = 3000
	return conf
}

func sampleCount(t *testing.T, h prometheus.Observer) uint64 {
	m := &dto.Metric{}
	require.NoError(t, h.(prometheus.Metric).Write(m))
	return m.GetHistogram().GetSampleCount()
}

func TestChurn(t *testing.T) {
	for _, multi := range []bool{false, true} {
		conf := smokeConfig(t)
		conf.Tree.Multi = multi
		name := "unique"
		if multi {
			name = "multi"
		}
		t.Run(name, func(t *testing.T) {
			clones := testutil.ToFloat64(cloneOps)
			verified := sampleCount(t, verifyDuration)
			core, logs := observer.New(zapcore.InfoLevel)
			report, handles, err := runChurn(context.Background(), zap.New(core), logtest.New(t), conf)
			require.NoError(t, err)
			require.Equal(t, conf.Churn.Ops, report.Ops)
			require.False(t, report.Interrupted)
			require.NotZero(t, report.Inserts)
			require.NotZero(t, report.Erases)
			require.NotZero(t, report.Clones)
			require.NotZero(t, report.Lookups)
			require.Equal(t, conf.Churn.Ops/conf.Churn.VerifyEvery+1, report.Verifications)
			require.Greater(t, report.Stats.Buckets, 0)
			require.Equal(t, report.Stats.Used-report.Stats.Recycled, report.Stats.Len)
			require.NotEmpty(t, handles)
			require.Greater(t, testutil.ToFloat64(cloneOps), clones)
			require.Equal(t, verified+uint64(report.Verifications), sampleCount(t, verifyDuration))
			require.Equal(t, 1, logs.FilterMessage("churn finished").Len())
		})
	}
}

func TestChurnDeterministic(t *testing.T) {
	conf := smokeConfig(t)
	a, ha, err := runChurn(context.Background(), zap.NewNop(), zap.NewNop(), conf)
	require.NoError(t, err)
	b, hb, err := runChurn(context.Background(), zap.NewNop(), zap.NewNop(), conf)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(a, b, cmpopts.IgnoreFields(Report{}, "Duration")))
	require.Equal(t, ha, hb)

	conf.Churn.Seed++
	c, _, err := runChurn(context.Background(), zap.NewNop(), zap.NewNop(), conf)
	require.NoError(t, err)
	require.NotEmpty(t, cmp.Diff(a, c, cmpopts.IgnoreFields(Report{}, "Duration")))
}

func TestChurnInterrupted(t *testing.T) {
	conf := smokeConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, _, err := runChurn(ctx, zap.NewNop(), zap.NewNop(), conf)
	require.NoError(t, err)
	require.True(t, report.Interrupted)
	require.Zero(t, report.Ops)
	require.Zero(t, report.Stats.Len)
}

func TestChurnCommand(t *testing.T) {
	dir := t.TempDir()
	reportPath := filepath.Join(dir, "report.json")
	handlesPath := filepath.Join(dir, "handles.bin")

	root := newRootCmd()
	root.SetArgs([]string{
		"churn",
		"--preset", "smoke",
		"--ops", "2000",
		"--seed", "7",
		"--report", reportPath,
		"--handles-file", handlesPath,
	})
	require.NoError(t, root.Execute())

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	var report Report
	require.NoError(t, json.Unmarshal(data, &report))
	require.Equal(t, 2000, report.Ops)
	require.NotZero(t, report.Stats.Len)

	data, err = os.ReadFile(handlesPath)
	require.NoError(t, err)
	handles, err := codec.DecodeSlice[tree.RawIndex](data)
	require.NoError(t, err)
	require.NotEmpty(t, handles)
	for _, h := range handles {
		require.GreaterOrEqual(t, int64(h.Tag), int64(0))
	}
}
