package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/gridedit/internal/config"
	"github.com/JonMunkholm/gridedit/internal/core"
)

func sampleDoc() *core.Document {
	return core.NewDocument("ledger.csv",
		core.NewSheet("Sheet1", [][]core.CellValue{
			{core.String("account"), core.String("amount")},
			{core.String("cash"), core.Number(125.5)},
			{core.Bool(true), core.Null()},
		}),
		core.NewBlankSheet("Notes", 1, 2),
	)
}

// exerciseStore runs the contract every snapshot store must meet.
func exerciseStore(t *testing.T, s Snapshots) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Load(ctx, "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist), "got %v", err)
	assert.ErrorIs(t, err, ErrNotFound)

	doc := sampleDoc()
	require.NoError(t, s.Store(ctx, "alpha", doc))

	got, err := s.Load(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, "ledger.csv", got.FileName)
	if diff := cmp.Diff(doc.Content(), got.Content()); diff != "" {
		t.Errorf("content mismatch (-want +got):\n%s", diff)
	}

	// Overwrite.
	doc.Sheets = doc.Sheets[:1]
	require.NoError(t, s.Store(ctx, "alpha", doc))
	got, err = s.Load(ctx, "alpha")
	require.NoError(t, err)
	assert.Len(t, got.Sheets, 1)

	require.NoError(t, s.Store(ctx, "beta", sampleDoc()))
	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alpha", "beta"}, keys)

	require.NoError(t, s.Delete(ctx, "alpha"))
	require.NoError(t, s.Delete(ctx, "alpha"))
	_, err = s.Load(ctx, "alpha")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBolt(t *testing.T) {
	b, err := OpenBolt(filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	defer b.Close()

	exerciseStore(t, b)
}

func TestBoltReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.db")
	ctx := context.Background()

	b, err := OpenBolt(path)
	require.NoError(t, err)
	require.NoError(t, b.Store(ctx, "k", sampleDoc()))
	require.NoError(t, b.Close())

	b, err = OpenBolt(path)
	require.NoError(t, err)
	defer b.Close()

	got, err := b.Load(ctx, "k")
	require.NoError(t, err)
	assert.Len(t, got.Sheets, 2)
}

func TestBoltCanceledContext(t *testing.T) {
	b, err := OpenBolt(filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, b.Store(ctx, "k", sampleDoc()), context.Canceled)
}

func TestPostgres(t *testing.T) {
	url := os.Getenv("GRIDEDIT_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("GRIDEDIT_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	p := NewPostgres(pool)
	require.NoError(t, p.EnsureSchema(ctx))
	_, err = pool.Exec(ctx, `DELETE FROM document_snapshots WHERE name IN ('alpha', 'beta', 'missing')`)
	require.NoError(t, err)

	exerciseStore(t, onlyKeys{p, []string{"alpha", "beta"}})
}

// onlyKeys narrows Keys to names the test owns, so a shared database with
// other snapshots still passes.
type onlyKeys struct {
	*Postgres
	owned []string
}

func (o onlyKeys) Keys(ctx context.Context) ([]string, error) {
	all, err := o.Postgres.Keys(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, k := range all {
		for _, want := range o.owned {
			if k == want {
				out = append(out, k)
			}
		}
	}
	return out, nil
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.SnapshotConfig{Driver: "none"})
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = Open(ctx, config.SnapshotConfig{Driver: "bolt", BoltPath: filepath.Join(t.TempDir(), "x.db")})
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.IsType(t, &Bolt{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, config.SnapshotConfig{Driver: "mongo"})
	assert.Error(t, err)

	_, err = Open(ctx, config.SnapshotConfig{Driver: "postgres", DatabaseURL: "postgres://user@localhost:notaport/db"})
	assert.Error(t, err)
}
