package handlers_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"taskpad/internal/config"
	"taskpad/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The daily cron job only reaps tasks that have sat in the trash past
// the retention window.
func TestPurgeDeletedTasksRetention(t *testing.T) {
	app := CreateTestApp()
	token, _ := RegisterAndLogin(t, app)

	oldID := CreateTestTask(t, app, token, map[string]interface{}{"title": "Long forgotten"})
	freshID := CreateTestTask(t, app, token, map[string]interface{}{"title": "Just trashed"})
	activeID := CreateTestTask(t, app, token, map[string]interface{}{"title": "Still active"})

	for _, id := range []int{oldID, freshID} {
		resp := doJSON(t, app, "DELETE", fmt.Sprintf("/api/v1/tasks/%d", id), nil, token)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	// Backdate one deletion past the retention window
	_, err := config.DB.Exec(
		"UPDATE tasks SET deleted_at = $1 WHERE id = $2",
		time.Now().Add(-40*24*time.Hour), oldID,
	)
	require.NoError(t, err)

	purged, err := repository.PurgeDeletedTasks(config.DB, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	var count int
	require.NoError(t, config.DB.QueryRow("SELECT COUNT(*) FROM tasks WHERE id = $1", oldID).Scan(&count))
	assert.Equal(t, 0, count)

	for _, id := range []int{freshID, activeID} {
		require.NoError(t, config.DB.QueryRow("SELECT COUNT(*) FROM tasks WHERE id = $1", id).Scan(&count))
		assert.Equal(t, 1, count, "task %d should survive the purge", id)
	}
}
