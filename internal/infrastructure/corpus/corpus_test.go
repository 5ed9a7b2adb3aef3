package corpus

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/leave-policy-bot/internal/infrastructure/extractor"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadConcatenatesSupportedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b_holidays.md", "Diwali is mandatory")
	writeFile(t, dir, "a_leave.txt", "Earned leave: 15 days")
	writeFile(t, dir, "notes.docx", "ignored")
	writeFile(t, dir, ".hidden.md", "ignored")

	c := New(dir, extractor.Default())
	require.NoError(t, c.Load(context.Background()))

	assert.Equal(t, "\n--- a_leave.txt ---\nEarned leave: 15 days\n--- b_holidays.md ---\nDiwali is mandatory", c.Text())
	assert.Equal(t, []string{"a_leave.txt", "b_holidays.md"}, c.Files())
}

func TestLoadSkipsBrokenFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.pdf", "not a pdf")
	writeFile(t, dir, "ok.md", "Sick leave: 12 days")

	c := New(dir, extractor.Default())
	require.NoError(t, c.Load(context.Background()))

	assert.Equal(t, []string{"ok.md"}, c.Files())
	assert.Contains(t, c.Text(), "Sick leave: 12 days")
}

func TestLoadMissingDirIsEmpty(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "nope"), extractor.Default())
	require.NoError(t, c.Load(context.Background()))
	assert.Empty(t, c.Text())
}

func TestWatchReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "leave.md", "v1")

	c := New(dir, extractor.Default())
	require.NoError(t, c.Load(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Watch(ctx) }()
	time.Sleep(50 * time.Millisecond)

	writeFile(t, dir, "holidays.md", "Holi is optional")

	assert.Eventually(t, func() bool {
		return strings.Contains(c.Text(), "Holi is optional")
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
