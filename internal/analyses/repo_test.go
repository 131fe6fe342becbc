package analyses

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compliance-backend/internal/obligations"
	"compliance-backend/internal/shared/storage/db"
)

func sampleRecord(id, hash string) Record {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return Record{
		UploadID:                  id,
		FileHash:                  hash,
		SourceDocumentChunksCount: 2,
		FailedChunksCount:         1,
		AnalyzedTasks: []Task{{
			Obligation: obligations.Obligation{
				Summary:          "Encrypt data",
				Department:       "IT",
				RiskScore:        "High",
				RemediationSteps: "Enable AES",
				XAIRationale:     "Data shall be encrypted.",
			},
			ObligationID:      "ob-1",
			OriginalChunkID:   "chunk-1",
			SourcePage:        "4",
			AnalysisTimestamp: ts,
		}},
		Timestamp: ts,
	}
}

func openSQLiteRepo(t *testing.T) *SQLiteRepo {
	t.Helper()
	ctx := context.Background()
	database, err := db.OpenSQLite(ctx, filepath.Join(t.TempDir(), "analyses.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, db.RunMigrations(ctx, database, db.DialectSQLite))
	return NewSQLiteRepo(database)
}

func storeImplementations(t *testing.T) map[string]Store {
	fileRepo, err := NewFileRepo(filepath.Join(t.TempDir(), "nested", DefaultStoreFile))
	require.NoError(t, err)
	return map[string]Store{
		"memory": NewMemoryRepo(),
		"file":   fileRepo,
		"sqlite": openSQLiteRepo(t),
	}
}

func TestStoreContract(t *testing.T) {
	for name, store := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, ok, err := store.FindByHash(ctx, "hash-a")
			require.NoError(t, err)
			assert.False(t, ok)

			rec := sampleRecord("upload-1", "hash-a")
			stored, created, err := store.Save(ctx, rec)
			require.NoError(t, err)
			assert.True(t, created)
			assert.Equal(t, "upload-1", stored.UploadID)

			id, ok, err := store.FindByHash(ctx, "hash-a")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "upload-1", id)

			// Same hash, new id: the first record wins.
			stored, created, err = store.Save(ctx, sampleRecord("upload-2", "hash-a"))
			require.NoError(t, err)
			assert.False(t, created)
			assert.Equal(t, "upload-1", stored.UploadID)

			got, err := store.Get(ctx, "upload-1")
			require.NoError(t, err)
			assert.Equal(t, "hash-a", got.FileHash)
			assert.Equal(t, 2, got.SourceDocumentChunksCount)
			assert.Equal(t, 1, got.FailedChunksCount)
			assert.True(t, rec.Timestamp.Equal(got.Timestamp))
			require.Len(t, got.AnalyzedTasks, 1)
			assert.Equal(t, "Encrypt data", got.AnalyzedTasks[0].Summary)
			assert.Equal(t, "4", got.AnalyzedTasks[0].SourcePage)

			tasks, err := store.GetTasks(ctx, "upload-1")
			require.NoError(t, err)
			assert.Len(t, tasks, 1)

			tasks, err = store.GetTasks(ctx, "unknown")
			require.NoError(t, err)
			assert.NotNil(t, tasks)
			assert.Empty(t, tasks)

			_, err = store.Get(ctx, "unknown")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreConcurrentSavesKeepOneRecordPerHash(t *testing.T) {
	for name, store := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			const writers = 8
			var wg sync.WaitGroup
			created := make([]bool, writers)
			ids := make([]string, writers)
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					rec := sampleRecord("upload-"+string(rune('a'+i)), "same-hash")
					stored, ok, err := store.Save(ctx, rec)
					assert.NoError(t, err)
					created[i] = ok
					ids[i] = stored.UploadID
				}()
			}
			wg.Wait()

			winners := 0
			for i := range created {
				if created[i] {
					winners++
				}
				assert.Equal(t, ids[0], ids[i])
			}
			assert.Equal(t, 1, winners)
		})
	}
}

func TestFileRepoCorruptFileReadsEmptyAndIsMovedAside(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultStoreFile)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	repo, err := NewFileRepo(path)
	require.NoError(t, err)
	ctx := context.Background()

	_, ok, err := repo.FindByHash(ctx, "anything")
	require.NoError(t, err)
	assert.False(t, ok)

	_, created, err := repo.Save(ctx, sampleRecord("upload-1", "hash-a"))
	require.NoError(t, err)
	assert.True(t, created)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var aside int
	for _, e := range entries {
		if strings.Contains(e.Name(), ".corrupt-") {
			aside++
		}
	}
	assert.Equal(t, 1, aside)

	id, ok, err := repo.FindByHash(ctx, "hash-a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "upload-1", id)
}

func TestFileRepoUnreadableStoreReadsEmptyAndSaveFails(t *testing.T) {
	// A directory at the store path exists but cannot be read as a file.
	path := filepath.Join(t.TempDir(), DefaultStoreFile)
	require.NoError(t, os.Mkdir(path, 0o755))
	repo, err := NewFileRepo(path)
	require.NoError(t, err)
	ctx := context.Background()

	id, ok, err := repo.FindByHash(ctx, "hash-a")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, id)

	tasks, err := repo.GetTasks(ctx, "upload-1")
	require.NoError(t, err)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)

	_, err = repo.Get(ctx, "upload-1")
	assert.ErrorIs(t, err, ErrNotFound)

	_, created, err := repo.Save(ctx, sampleRecord("upload-1", "hash-a"))
	require.Error(t, err)
	assert.False(t, created)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.IsDir(), "unreadable store must not be moved aside")
}

func TestFileRepoWritesJSONCollection(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultStoreFile)
	repo, err := NewFileRepo(path)
	require.NoError(t, err)

	_, _, err = repo.Save(context.Background(), sampleRecord("upload-1", "hash-a"))
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, key := range []string{`"app_id"`, `"file_hash"`, `"source_document_chunks_count"`, `"analyzed_tasks"`, `"timestamp"`, `"xai_rationale"`} {
		assert.Contains(t, string(raw), key)
	}
}

func TestMemoryRepoReturnsCopies(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	_, _, err := repo.Save(ctx, sampleRecord("upload-1", "hash-a"))
	require.NoError(t, err)

	tasks, err := repo.GetTasks(ctx, "upload-1")
	require.NoError(t, err)
	tasks[0].Summary = "mutated"

	again, err := repo.GetTasks(ctx, "upload-1")
	require.NoError(t, err)
	assert.Equal(t, "Encrypt data", again[0].Summary)
}

func TestSQLiteRepoCorruptTasksDecodeEmpty(t *testing.T) {
	repo := openSQLiteRepo(t)
	ctx := context.Background()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO analyses (upload_id, file_hash, chunks_count, failed_chunks, analyzed_tasks, created_at) VALUES (?, ?, 1, 0, ?, ?)`,
		"upload-x", "hash-x", "{broken", time.Now().UTC().Format(time.RFC3339Nano))
	require.NoError(t, err)

	tasks, err := repo.GetTasks(ctx, "upload-x")
	require.NoError(t, err)
	assert.Empty(t, tasks)

	rec, err := repo.Get(ctx, "upload-x")
	require.NoError(t, err)
	assert.Empty(t, rec.AnalyzedTasks)
}
