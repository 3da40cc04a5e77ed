package model

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/sivem-incident-service/internal/domain"
)

var vocabulary = []string{domain.CategoryShootings, domain.CategoryDetentions, domain.CategoryDeaths}

var trainedAt = time.Date(2024, time.December, 1, 12, 0, 0, 0, time.UTC)

func trainingSamples() []Fields {
	provinces := []string{"Maputo", "Gaza", "Sofala", "Nampula", ""}
	var out []Fields
	for i := range 20 {
		cases := 0.0
		if i%2 == 0 {
			cases = float64(1 + i%5)
		}
		out = append(out, Fields{
			Province:        provinces[i%len(provinces)],
			RegisteredCases: cases,
			Indicators: map[string]float64{
				domain.CategoryShootings:  float64((i / 2) % 2),
				domain.CategoryDetentions: float64((i / 3) % 2),
				domain.CategoryDeaths:     float64((i / 5) % 2),
			},
		})
	}
	return out
}

func newTestTrainer(trees int, seed uint64) *Trainer {
	return NewTrainer(TrainConfig{Trees: trees, MaxDepth: 6, Seed: seed}, clockwork.NewFakeClockAt(trainedAt), slog.Default())
}

func trainTestModel(t *testing.T) *Model {
	t.Helper()
	m, err := newTestTrainer(25, 42).Train(context.Background(), trainingSamples(), vocabulary)
	require.NoError(t, err)
	return m
}

func TestTrain_LearnsPositiveCases(t *testing.T) {
	m := trainTestModel(t)

	assert.Equal(t, ArtifactVersion, m.Version)
	assert.Equal(t, trainedAt, m.TrainedAt)
	assert.Equal(t, []string{"registered_cases", "baleamentos", "detencoes", "mortes", "province"}, m.Features)
	assert.Equal(t, vocabulary, m.Vocabulary())
	assert.Len(t, m.Trees, 25)

	pos, err := m.PredictFields(Fields{Province: "Maputo", RegisteredCases: 4})
	require.NoError(t, err)
	assert.Equal(t, 1, pos.Label)
	assert.Greater(t, pos.Probability, 0.5)

	neg, err := m.PredictFields(Fields{Province: "Maputo", RegisteredCases: 0})
	require.NoError(t, err)
	assert.Equal(t, 0, neg.Label)
	assert.LessOrEqual(t, neg.Probability, 0.5)
}

func TestTrain_Deterministic(t *testing.T) {
	a, err := newTestTrainer(10, 7).Train(context.Background(), trainingSamples(), vocabulary)
	require.NoError(t, err)
	b, err := newTestTrainer(10, 7).Train(context.Background(), trainingSamples(), vocabulary)
	require.NoError(t, err)

	ja, err := json.Marshal(a)
	require.NoError(t, err)
	jb, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, string(ja), string(jb))
}

func TestTrain_WithoutProvinces(t *testing.T) {
	samples := trainingSamples()
	for i := range samples {
		samples[i].Province = ""
	}
	m, err := newTestTrainer(5, 1).Train(context.Background(), samples, vocabulary)
	require.NoError(t, err)

	assert.Nil(t, m.Encoder)
	assert.Equal(t, []string{"registered_cases", "baleamentos", "detencoes", "mortes"}, m.Features)
	assert.Equal(t, vocabulary, m.Vocabulary())
}

func TestTrain_Errors(t *testing.T) {
	_, err := newTestTrainer(5, 1).Train(context.Background(), nil, vocabulary)
	require.ErrorIs(t, err, ErrNoSamples)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = newTestTrainer(5, 1).Train(ctx, trainingSamples(), vocabulary)
	require.ErrorIs(t, err, context.Canceled)

	_, err = NewTrainer(TrainConfig{Trees: 0, MaxDepth: 3}, clockwork.NewFakeClock(), slog.Default()).
		Train(context.Background(), trainingSamples(), vocabulary)
	require.Error(t, err)
}

func TestPredict_FeatureCount(t *testing.T) {
	m := trainTestModel(t)

	_, err := m.Predict([]float64{1, 0, 1})
	require.ErrorIs(t, err, ErrFeatureCount)

	p, err := m.Predict([]float64{3, 1, 0, 1, 0})
	require.NoError(t, err)
	assert.Equal(t, 1, p.Label)
}

func TestProvinceEncoder(t *testing.T) {
	enc := FitEncoder([]string{"Maputo", "maputo ", "Zambézia", "Gaza", ""})
	require.NotNil(t, enc)
	assert.Equal(t, []string{"gaza", "maputo", "zambezia"}, enc.Labels)

	assert.InDelta(t, 1.0, enc.Encode("MAPUTO"), 0)
	assert.InDelta(t, 2.0, enc.Encode("Zambezia"), 0)
	assert.InDelta(t, -1.0, enc.Encode("Niassa"), 0)
	assert.InDelta(t, -1.0, enc.Encode(""), 0)

	assert.Nil(t, FitEncoder([]string{"", "  "}))
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	m := trainTestModel(t)
	path := filepath.Join(t.TempDir(), "model", "sivem_model.json")
	require.NoError(t, m.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, m.Features, loaded.Features)
	assert.Equal(t, m.Encoder, loaded.Encoder)
	assert.True(t, m.TrainedAt.Equal(loaded.TrainedAt))

	for _, f := range trainingSamples() {
		want, err := m.PredictFields(f)
		require.NoError(t, err)
		got, err := loaded.PredictFields(f)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestLoad_Absent(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorIs(t, err, ErrModelUnavailable)
	assert.Equal(t, "modelo indisponivel", err.Error())
}

func TestLoad_Corrupt(t *testing.T) {
	dir := t.TempDir()

	garbage := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte("{not json"), 0o600))
	_, err := Load(garbage)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrModelUnavailable)
	assert.Contains(t, err.Error(), "decode model")

	badTree := filepath.Join(dir, "bad_tree.json")
	require.NoError(t, os.WriteFile(badTree, []byte(
		`{"version":1,"features":["registered_cases"],"trees":[{"nodes":[{"f":0,"t":0.5,"l":0,"r":0,"v":0.5}]}]}`,
	), 0o600))
	_, err = Load(badTree)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad child index")

	version := filepath.Join(dir, "version.json")
	require.NoError(t, os.WriteFile(version, []byte(`{"version":9,"features":["x"],"trees":[{"nodes":[{"f":-1,"v":1}]}]}`), 0o600))
	_, err = Load(version)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported version 9")
}

func TestLoader_ReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sivem_model.json")
	l := NewLoader(path)

	_, err := l.Model()
	require.ErrorIs(t, err, ErrModelUnavailable)
	require.ErrorIs(t, l.CheckReadiness(context.Background()), ErrModelUnavailable)

	first := trainTestModel(t)
	require.NoError(t, first.Save(path))

	got, err := l.Model()
	require.NoError(t, err)
	again, err := l.Model()
	require.NoError(t, err)
	assert.Same(t, got, again)
	assert.NoError(t, l.CheckReadiness(context.Background()))

	second, err := newTestTrainer(3, 9).Train(context.Background(), trainingSamples(), vocabulary)
	require.NoError(t, err)
	require.NoError(t, second.Save(path))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	reloaded, err := l.Model()
	require.NoError(t, err)
	assert.NotSame(t, got, reloaded)
	assert.Len(t, reloaded.Trees, 3)

	require.NoError(t, os.Remove(path))
	_, err = l.Model()
	require.ErrorIs(t, err, ErrModelUnavailable)
}

func TestFieldsFromTable(t *testing.T) {
	table := domain.Table{
		Headers: []string{"Período", "Província", "start_date", "registered_cases", "baleamentos", "detencoes", "mortes"},
		Rows: [][]string{
			{"21/10/2024", " Maputo ", "2024-10-21", "3", "1", "0", "1"},
			{"sem data", "", "", "abc", "0", "1", "0"},
		},
	}

	fields, err := FieldsFromTable(table, domain.DefaultSchema())
	require.NoError(t, err)
	require.Len(t, fields, 2)

	assert.Equal(t, Fields{
		Province:        "Maputo",
		RegisteredCases: 3,
		Indicators:      map[string]float64{"baleamentos": 1, "detencoes": 0, "mortes": 1},
	}, fields[0])
	assert.InDelta(t, 0.0, fields[1].RegisteredCases, 0)
	assert.Empty(t, fields[1].Province)
}

func TestFieldsFromTable_MissingFeature(t *testing.T) {
	_, err := FieldsFromTable(domain.Table{Headers: []string{"registered_cases", "baleamentos"}}, domain.DefaultSchema())
	require.ErrorIs(t, err, ErrMissingFeature)
	assert.Contains(t, err.Error(), "detencoes")

	_, err = FieldsFromTable(domain.Table{Headers: []string{"baleamentos", "detencoes", "mortes"}}, domain.DefaultSchema())
	require.ErrorIs(t, err, ErrMissingFeature)
}

func TestFieldsFromSummaries(t *testing.T) {
	fields := FieldsFromSummaries([]domain.IncidentSummary{{
		Province:        "Gaza",
		RegisteredCases: 2,
		Indicators:      map[string]int{"mortes": 1},
	}})
	require.Len(t, fields, 1)
	assert.Equal(t, Fields{Province: "Gaza", RegisteredCases: 2, Indicators: map[string]float64{"mortes": 1}}, fields[0])
}

func TestPredictTable(t *testing.T) {
	m := trainTestModel(t)
	table := domain.Table{
		Headers: []string{"province", "registered_cases", "baleamentos", "detencoes", "mortes"},
		Rows: [][]string{
			{"Maputo", "4", "1", "0", "0"},
			{"Gaza", "0", "0", "1"},
		},
	}

	got, err := m.PredictTable(table, domain.DefaultSchema())
	require.NoError(t, err)
	assert.Equal(t, append(table.Headers, ColumnPrediction, ColumnProbability), got.Headers)
	require.Len(t, got.Rows, 2)
	for i, row := range got.Rows {
		require.Len(t, row, 7, "row %d", i)
	}
	assert.Equal(t, "1", got.Rows[0][5])
	assert.Equal(t, "0", got.Rows[1][5])
	assert.Empty(t, got.Rows[1][4], "short rows are padded")
	assert.Len(t, table.Headers, 5, "input table is not modified")

	_, err = m.PredictTable(domain.Table{Headers: []string{"province"}}, domain.DefaultSchema())
	require.ErrorIs(t, err, ErrMissingFeature)
}
