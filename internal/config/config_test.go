package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("should use defaults when file is missing", func(t *testing.T) {
		// when
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

		// then
		require.NoError(t, err)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "none", cfg.Engagement.Rollover)
		assert.Equal(t, "schedule", cfg.Risk.Rule)
		assert.Equal(t, 8, cfg.Dashboard.UpcomingLimit)
	})

	t.Run("should override defaults from file and environment", func(t *testing.T) {
		// given
		path := filepath.Join(t.TempDir(), "application.yaml")
		content := "risk:\n  rule: strict\n  approvalmaxagedays: 3\nplanner:\n  anchorweekday: sunday\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		t.Setenv("AGENCYDESK_DB_HOST", "db.internal")

		// when
		cfg, err := Load(path)

		// then
		require.NoError(t, err)
		assert.Equal(t, "strict", cfg.Risk.Rule)
		assert.Equal(t, 3, cfg.Risk.ApprovalMaxAgeDays)
		assert.Equal(t, "sunday", cfg.Planner.AnchorWeekday)
		assert.Equal(t, "db.internal", cfg.Database.Host)
		assert.Equal(t, 70, cfg.Risk.WarningThreshold)
	})
}
