package sqlite

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/sivem-incident-service/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "incidentes.db"), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func dataset(t *testing.T, rows ...[]string) *domain.Dataset {
	t.Helper()
	ds, err := domain.NewNormalizer(domain.DefaultSchema()).Normalize(domain.Table{
		Headers: []string{"Período", "Casos registados", "Tipo de incidente", "Província"},
		Rows:    rows,
	})
	require.NoError(t, err)
	return ds
}

var testRun = domain.Run{ID: "run-1", StartedAt: time.Date(2024, time.December, 1, 8, 0, 0, 0, time.UTC)}

func TestStore_ProvincesAndHistory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ds := dataset(t,
		[]string{"02/11/2024", "1", "Detenções", "Zambézia"},
		[]string{"21/10/2024", "3", "Baleamentos e Mortes", "Zambézia"},
		[]string{"sem data", "0", "Mortes", "ZAMBEZIA"},
		[]string{"05/11/2024", "2", "Baleamentos", "Gaza"},
		[]string{"06/11/2024", "NA", "", ""},
	)
	require.NoError(t, s.LoadDataset(ctx, testRun, ds))

	provinces, err := s.Provinces(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Gaza", "ZAMBEZIA", "Zambézia"}, provinces)

	history, err := s.History(ctx, "zambezia")
	require.NoError(t, err)
	require.Len(t, history, 3)

	assert.Equal(t, "2024-10-21", history[0].StartDate.Format(time.DateOnly))
	assert.Equal(t, 3, history[0].RegisteredCases)
	assert.Equal(t, []string{"baleamentos", "mortes"}, history[0].Types)
	assert.Equal(t, map[string]int{"baleamentos": 1, "detencoes": 0, "mortes": 1}, history[0].Indicators)

	assert.Equal(t, "2024-11-02", history[1].StartDate.Format(time.DateOnly))
	assert.True(t, history[2].StartDate.IsZero(), "undated rows sort last")
	assert.Equal(t, "ZAMBEZIA", history[2].Province)
}

func TestStore_EmptyResults(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	provinces, err := s.Provinces(ctx)
	require.NoError(t, err)
	assert.NotNil(t, provinces)
	assert.Empty(t, provinces)

	history, err := s.History(ctx, "Niassa")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestStore_LoadReplacesPreviousRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.LoadDataset(ctx, testRun, dataset(t,
		[]string{"02/11/2024", "1", "Detenções", "Tete"},
	)))
	second := domain.Run{ID: "run-2", StartedAt: testRun.StartedAt.Add(time.Hour)}
	require.NoError(t, s.LoadDataset(ctx, second, dataset(t,
		[]string{"03/11/2024", "4", "Mortes", "Manica"},
	)))

	provinces, err := s.Provinces(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Manica"}, provinces)

	var runID string
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT run_id FROM incidents`).Scan(&runID))
	assert.Equal(t, "run-2", runID)
}

func TestStore_LoadCancelled(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.LoadDataset(ctx, testRun, dataset(t, []string{"02/11/2024", "1", "Detenções", "Tete"}))
	require.Error(t, err)
}
