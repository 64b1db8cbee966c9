package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/BasketMiner/internal/apriori"
)

func TestRecorder(t *testing.T) {
	r := New()
	r.Level(apriori.LevelStats{Size: 1, Candidates: 5, Frequent: 3})
	r.Level(apriori.LevelStats{Size: 2, Candidates: 3, Frequent: 1})
	r.Rules("lift", 4)
	r.Baskets(12)
	r.Step("Mine", 20*time.Millisecond)
	r.Run(nil, time.Unix(1700000000, 0))
	r.Run(errors.New("boom"), time.Unix(1700000100, 0))

	assert.Equal(t, 5.0, testutil.ToFloat64(r.candidates.WithLabelValues("1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.frequent.WithLabelValues("2")))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.rules.WithLabelValues("lift")))
	assert.Equal(t, 12.0, testutil.ToFloat64(r.baskets))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues("failed")))
	assert.Equal(t, 1700000100.0, testutil.ToFloat64(r.lastRunUnixTs))
	assert.Equal(t, 1, testutil.CollectAndCount(r.stepDuration))
}

func TestReset(t *testing.T) {
	r := New()
	r.Level(apriori.LevelStats{Size: 3, Candidates: 2, Frequent: 2})
	r.Rules("support", 9)
	r.Reset()

	assert.Equal(t, 0, testutil.CollectAndCount(r.candidates))
	assert.Equal(t, 0, testutil.CollectAndCount(r.rules))
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	r.Level(apriori.LevelStats{Size: 1})
	r.Rules("lift", 1)
	r.Step("Load", time.Second)
	r.Run(nil, time.Now())
	r.Reset()
	assert.Nil(t, r.Registry())
	assert.NoError(t, r.WriteTextfile("ignored.prom"))
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.Baskets(7)
	path := filepath.Join(t.TempDir(), "basketminer.prom")

	require.NoError(t, r.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "basketminer_baskets 7")
}
