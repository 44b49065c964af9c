package lang

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTSubstitutesPlaceholders(t *testing.T) {
	assert.Equal(t, "Please wait 3s before using `/sync` again.", T("cooldown", "seconds", "3", "command", "sync"))
	assert.Equal(t, "{missing_key}", T("missing_key"))
}

func TestLoadOverlaysActiveLanguage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lang.yaml")
	require.NoError(t, os.WriteFile(path, []byte("active_language: de\nde:\n  no_permission: \"Keine Berechtigung.\"\n"), 0644))

	active, err := Load(path)
	require.NoError(t, err)
	t.Cleanup(func() {
		m, _, _ := parse(defaultCatalogue)
		mu.Lock()
		messages = m
		mu.Unlock()
	})

	assert.Equal(t, "de", active)
	assert.Equal(t, "Keine Berechtigung.", T("no_permission"))
	// Keys the overlay lacks fall back to English.
	assert.Equal(t, "This ticket is already closed.", T("ticket_already_closed"))
}
