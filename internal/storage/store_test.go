package storage

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mandelsoft/vfs/pkg/memoryfs"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/episim/internal/results"
)

func sampleResult(t *testing.T) *results.Result {
	t.Helper()
	res := results.New("sir", []string{"S", "I", "R"})
	require.NoError(t, res.AppendSample(0, []float64{990, 10, 0}))
	require.NoError(t, res.AppendSample(0.5, []float64{985.25, 13.5, 1.25}))
	return res
}

func TestStoreSaveLoad(t *testing.T) {
	st := New("/runs", memoryfs.New())
	require.NoError(t, st.Init())

	runID, err := st.Save(RunMetadata{
		Model:   "sir",
		Method:  "rk4",
		Dt:      0.5,
		Horizon: 0.5,
		Status:  "completed",
		Steps:   1,
		Metrics: map[string]float64{"population_drift": 1e-15},
	}, sampleResult(t))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(runID, "sir_"))

	meta, err := st.Load(runID)
	require.NoError(t, err)
	require.Equal(t, "sir", meta.Model)
	require.Equal(t, "rk4", meta.Method)
	require.Equal(t, []string{"S", "I", "R"}, meta.Labels)
	require.InDelta(t, 1e-15, meta.Metrics["population_drift"], 1e-20)

	res, err := st.LoadResult(runID)
	require.NoError(t, err)
	require.Equal(t, 2, res.Len())
	tm, values := res.Sample(1)
	require.Equal(t, 0.5, tm)
	require.Equal(t, []float64{985.25, 13.5, 1.25}, values)
}

func TestStoreList(t *testing.T) {
	st := New("/runs", memoryfs.New())

	runs, err := st.List()
	require.NoError(t, err)
	require.Empty(t, runs)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, model := range []string{"seir", "sir"} {
		_, err := st.Save(RunMetadata{Model: model, Method: "euler", Timestamp: base.Add(time.Duration(-i) * time.Hour)}, sampleResult(t))
		require.NoError(t, err)
	}

	runs, err = st.List()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, "sir", runs[0].Model)
	require.Equal(t, "seir", runs[1].Model)
}

func TestStoreUnknownRun(t *testing.T) {
	st := New("/runs", memoryfs.New())
	require.NoError(t, st.Init())

	_, err := st.Load("nope")
	require.ErrorIs(t, err, ErrUnknownRun)
	require.ErrorIs(t, st.Delete("nope"), ErrUnknownRun)
}

func TestStoreDelete(t *testing.T) {
	st := New("/runs", memoryfs.New())
	runID, err := st.Save(RunMetadata{Model: "sir"}, sampleResult(t))
	require.NoError(t, err)

	require.NoError(t, st.Delete(runID))
	runs, err := st.List()
	require.NoError(t, err)
	require.Empty(t, runs)
}

func TestExport(t *testing.T) {
	st := New("/runs", memoryfs.New())
	runID, err := st.Save(RunMetadata{Model: "sir", Method: "heun"}, sampleResult(t))
	require.NoError(t, err)

	var csvOut bytes.Buffer
	require.NoError(t, st.ExportCSV(&csvOut, runID))
	require.Equal(t, "t,S,I,R\n0,990,10,0\n0.5,985.25,13.5,1.25\n", csvOut.String())

	var jsonOut bytes.Buffer
	require.NoError(t, st.ExportJSON(&jsonOut, runID))
	var data ExportData
	require.NoError(t, json.Unmarshal(jsonOut.Bytes(), &data))
	require.Equal(t, "heun", data.Method)
	require.Equal(t, []float64{0, 0.5}, data.Times)
	require.Len(t, data.Samples, 2)
}
