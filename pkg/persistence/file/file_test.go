package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dukex/playbook/pkg/models"
	"github.com/dukex/playbook/pkg/persistence"
	"github.com/dukex/playbook/pkg/persistence/persistencetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPersistence(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	p, err := NewPersistence(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, p.root)
	assert.DirExists(t, dir)

	p, err = NewPersistence("file://" + dir)
	require.NoError(t, err)
	assert.Equal(t, dir, p.root)
}

func TestPersistence_Close(t *testing.T) {
	p, err := NewPersistence(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, p.Close(t.Context()))
}

func TestPersistence_HealthCheck_MissingRoot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	p, err := NewPersistence(dir)
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(dir))

	assert.Error(t, p.HealthCheck(t.Context()))
}

func TestWorkflowRepository_Contract(t *testing.T) {
	persistencetest.RunWorkflowRepositoryTests(t, func(t *testing.T) persistence.Persistence {
		t.Helper()

		p, err := NewPersistence(t.TempDir())
		require.NoError(t, err)

		return p
	})
}

func TestWorkflowRepository_SaveWritesJSONDocument(t *testing.T) {
	dir := t.TempDir()
	repo := NewWorkflowRepository(dir)

	record := persistencetest.NewRecord(time.Now())
	require.NoError(t, repo.Save(t.Context(), record))

	filePath := filepath.Join(dir, "workflows", record.ID+".json")
	assert.FileExists(t, filePath)

	body, err := os.ReadFile(filePath)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"isPlaybook": false`)

	leftovers, err := filepath.Glob(filepath.Join(dir, "workflows", "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestWorkflowRepository_RejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	repo := NewWorkflowRepository(dir)
	ctx := t.Context()

	for _, id := range []string{"", ".", "..", "../escape", `a\b`, "nested/id"} {
		t.Run(id, func(t *testing.T) {
			record := persistencetest.NewRecord(time.Now())
			record.ID = id

			err := repo.Save(ctx, record)
			require.Error(t, err)
			assert.ErrorIs(t, err, persistence.ErrInvalidWorkflowID)

			got, err := repo.GetByID(ctx, id)
			require.NoError(t, err)
			assert.Nil(t, got)

			assert.True(t, persistence.IsWorkflowNotFound(repo.Delete(ctx, id)))
			assert.True(t, persistence.IsWorkflowNotFound(repo.UpdateStatus(ctx, id, true, time.Now())))
		})
	}

	_, err := os.Stat(filepath.Join(dir, "escape.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestWorkflowRepository_CorruptDocument(t *testing.T) {
	dir := t.TempDir()
	repo := NewWorkflowRepository(dir)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "workflows"), 0750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "workflows", "broken.json"), []byte("{not json"), 0600))

	_, err := repo.GetByID(t.Context(), "broken")
	require.Error(t, err)
	assert.True(t, persistence.IsPersistenceError(err))

	_, err = repo.List(t.Context(), persistence.ListOptions{})
	assert.Error(t, err)
}

func TestWorkflowRepository_ConcurrentStatusUpdates(t *testing.T) {
	repo := NewWorkflowRepository(t.TempDir())
	ctx := t.Context()

	record := persistencetest.NewRecord(time.Now(), func(r *models.Record) {
		r.Title = "contended"
	})
	require.NoError(t, repo.Save(ctx, record))

	var wg sync.WaitGroup

	for i := range 20 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			updatedAt := record.UpdatedAt.Add(time.Duration(i+1) * time.Microsecond)
			assert.NoError(t, repo.UpdateStatus(ctx, record.ID, i%2 == 0, updatedAt))
		}()
	}

	wg.Wait()

	got, err := repo.GetByID(ctx, record.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "contended", got.Title)
	assert.Len(t, got.Steps, len(record.Steps))
}
