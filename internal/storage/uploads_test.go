package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"docchat/internal/config"
	"docchat/internal/models"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	cfg := &config.Config{Databases: map[string]config.DatabaseConfig{
		"sqlite3": {DSN: ":memory:"},
	}}
	db, err := Open("sqlite3", cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Migrate(db))
	return db
}

func TestOpenUnknownDatabase(t *testing.T) {
	_, err := Open("oracle", &config.Config{Databases: map[string]config.DatabaseConfig{"oracle": {}}})
	require.Error(t, err)
	_, err = Open("sqlite3", &config.Config{})
	require.Error(t, err)
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, Migrate(db))
}

func TestPrepareCreatesOwnerDirectory(t *testing.T) {
	base := t.TempDir()
	store := NewUploadStore(nil, base)

	name, path, err := store.Prepare("u1", "Report.DOCX")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(name, ".docx"))
	require.Equal(t, filepath.Join(base, "u1", name), path)
	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	require.True(t, info.IsDir())

	other, _, err := store.Prepare("u1", "Report.DOCX")
	require.NoError(t, err)
	require.NotEqual(t, name, other)
}

func TestPrepareSanitizesOwner(t *testing.T) {
	base := t.TempDir()
	store := NewUploadStore(nil, base)
	_, path, err := store.Prepare("../../etc", "x.txt")
	require.NoError(t, err)
	rel, err := filepath.Rel(base, path)
	require.NoError(t, err)
	require.False(t, strings.HasPrefix(rel, ".."))
}

func TestRecordChunksAndRemove(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	store := NewUploadStore(db, t.TempDir())

	name, path, err := store.Prepare("u1", "notes.txt")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("Hello\nWorld"), 0o644))

	file := models.IngestedFile{
		ID:            "file-1",
		OwnerID:       "u1",
		DisplayName:   "notes.txt",
		StoredName:    name,
		Path:          path,
		MimeType:      "text/plain",
		Summary:       "Hello World",
		ExtractedText: "Hello\nWorld",
		TokenCount:    3,
		SizeBytes:     11,
		UploadedAt:    time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC),
	}
	require.NoError(t, store.Record(ctx, file, []string{"Hello", "World"}))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	rec := loaded[0]
	require.Equal(t, "u1", rec.OwnerID)
	require.Equal(t, "notes.txt", rec.DisplayName)
	require.Equal(t, "Hello\nWorld", rec.ExtractedText)
	require.Equal(t, 3, rec.TokenCount)
	require.Equal(t, path, rec.Path)
	require.True(t, file.UploadedAt.Equal(rec.UploadedAt))

	chunks, err := store.Chunks(ctx, "file-1")
	require.NoError(t, err)
	require.Equal(t, []string{"Hello", "World"}, chunks)

	require.NoError(t, store.Remove(ctx, file))
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Dir(path))
	require.True(t, os.IsNotExist(err))
	loaded, err = store.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, loaded)
	chunks, err = store.Chunks(ctx, "file-1")
	require.NoError(t, err)
	require.Empty(t, chunks)
}

func TestLoadOrdersByUploadTime(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	store := NewUploadStore(newTestDB(t), base)
	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Record(ctx, models.IngestedFile{ID: "b", OwnerID: "u2", StoredName: "b.txt", UploadedAt: first.Add(time.Hour)}, nil))
	require.NoError(t, store.Record(ctx, models.IngestedFile{ID: "a", OwnerID: "u1", StoredName: "a.txt", UploadedAt: first}, nil))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	require.Equal(t, "a", loaded[0].ID)
	require.Equal(t, "b", loaded[1].ID)
	require.Equal(t, filepath.Join(base, "u2", "b.txt"), loaded[1].Path)
}

func TestLoadWithoutDatabase(t *testing.T) {
	loaded, err := NewUploadStore(nil, t.TempDir()).Load(context.Background())
	require.NoError(t, err)
	require.Empty(t, loaded)
}

func TestMySQLDSNEnablesParseTime(t *testing.T) {
	dsn, err := mysqlDSN(config.DatabaseConfig{
		Host:     "db",
		Port:     3306,
		Username: "docchat",
		Password: "secret",
		DBName:   "docchat",
		Params:   "charset=utf8mb4",
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(dsn, "docchat:secret@tcp(db:3306)/docchat?"), dsn)
	require.Contains(t, dsn, "parseTime=true")
	require.Contains(t, dsn, "charset=utf8mb4")

	dsn, err = mysqlDSN(config.DatabaseConfig{DSN: "root:pw@tcp(127.0.0.1:3306)/app"})
	require.NoError(t, err)
	require.Contains(t, dsn, "parseTime=true")

	_, err = mysqlDSN(config.DatabaseConfig{DSN: "not a dsn"})
	require.Error(t, err)
}

func TestRecordDuplicateIDFails(t *testing.T) {
	ctx := context.Background()
	store := NewUploadStore(newTestDB(t), t.TempDir())
	file := models.IngestedFile{ID: "dup", OwnerID: "u1", UploadedAt: time.Now()}
	require.NoError(t, store.Record(ctx, file, nil))
	require.Error(t, store.Record(ctx, file, []string{"x"}))

	chunks, err := store.Chunks(ctx, "dup")
	require.NoError(t, err)
	require.Empty(t, chunks)
}

func TestRemoveMissingBytesIsNotAnError(t *testing.T) {
	store := NewUploadStore(nil, t.TempDir())
	err := store.Remove(context.Background(), models.IngestedFile{
		ID:   "gone",
		Path: filepath.Join(t.TempDir(), "gone.txt"),
	})
	require.NoError(t, err)
}

func TestDiscard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.bin")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	store := NewUploadStore(nil, t.TempDir())
	require.NoError(t, store.Discard(path))
	require.NoError(t, store.Discard(path))
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))
}
