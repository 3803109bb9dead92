package jobs

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustbench/pkg/models"
)

func TestStoreCreateAndGet(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs, "/jobs")

	job, err := store.Create("https://example.com/repo.git", "default", nil)
	require.NoError(t, err)
	assert.Equal(t, models.JobStateQueued, job.State)

	loaded, err := store.Get(job.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, job.ID, loaded.ID)
}

func TestStoreUpdateForcesTerminalProgress(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs, "/jobs")
	job, err := store.Create("https://example.com/repo.git", "default", nil)
	require.NoError(t, err)

	updated, err := store.Update(job.ID, func(j *models.Job) {
		j.State = models.JobStateComplete
		j.Progress = 0.4
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, updated.Progress)
	assert.Equal(t, models.JobStageComplete, updated.Stage)
}

func TestStoreUpdateFailedKeepsProgress(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs, "/jobs")
	job, err := store.Create("https://example.com/repo.git", "default", nil)
	require.NoError(t, err)

	updated, err := store.Update(job.ID, func(j *models.Job) {
		j.State = models.JobStateFailed
		j.Progress = 0.4
		j.Error = "boom"
	})
	require.NoError(t, err)
	assert.Equal(t, 0.4, updated.Progress)
	assert.Equal(t, models.JobStageComplete, updated.Stage)
}

func TestAllocateWorkspaceCreatesDirAndMetadata(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs, "/jobs")
	job, err := store.Create("https://example.com/repo.git", "default", nil)
	require.NoError(t, err)

	workspace, err := store.AllocateWorkspace(job.ID)
	require.NoError(t, err)

	exists, err := afero.DirExists(fs, workspace)
	require.NoError(t, err)
	assert.True(t, exists)

	loaded, err := store.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, workspace, loaded.Metadata["workspace"])
}
