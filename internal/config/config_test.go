package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stlalpha/shellview/internal/terminal"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "shellview.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	{
		wd, err := os.Getwd()
		require.NoError(t, err)
		require.NoError(t, os.Chdir(t.TempDir()))
		t.Cleanup(func() { _ = os.Chdir(wd) })
	}
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)

	assert.Equal(t, 22, cfg.SSH.Port)
	assert.True(t, cfg.SSH.UseAgent)
	assert.Equal(t, 10*time.Second, cfg.SSH.ConnectTimeout)
	assert.Equal(t, "@every 30s", cfg.SSH.Keepalive)
	assert.Equal(t, terminal.VariantLinux, cfg.Terminal.ParsedVariant())
	assert.Equal(t, terminal.CharsetUTF8, cfg.Terminal.ParsedCharset())
	assert.Equal(t, "xterm", cfg.Terminal.ParsedPalette().Name)
	assert.Equal(t, time.Millisecond, cfg.Terminal.PollInterval)
	assert.Equal(t, "127.0.0.1:2222", cfg.Server.Addr)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
ssh:
  host: bbs.example.org
  port: 2022
  user: sysop
  insecure_ignore_host_key: true
  connect_timeout: 3s
terminal:
  variant: dumb
  charset: cp437
  palette: vga
  poll_interval: 5ms
log:
  debug: true
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "bbs.example.org", cfg.SSH.Host)
	assert.Equal(t, 3*time.Second, cfg.SSH.ConnectTimeout)
	assert.Equal(t, terminal.VariantDumb, cfg.Terminal.ParsedVariant())
	assert.Equal(t, terminal.CharsetCP437, cfg.Terminal.ParsedCharset())
	assert.Equal(t, terminal.VGAPalette.Name, cfg.Terminal.ParsedPalette().Name)
	assert.Equal(t, 5*time.Millisecond, cfg.Terminal.PollInterval)
	assert.True(t, cfg.Log.Debug)

	target := cfg.SSH.Target()
	assert.Equal(t, "bbs.example.org:2022", target.Addr())
	assert.Equal(t, "sysop", target.User)
	assert.True(t, target.InsecureIgnoreHostKey)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "ssh:\n  user: fromfile\n")
	t.Setenv("SHELLVIEW_SSH_USER", "fromenv")
	t.Setenv("SHELLVIEW_TERMINAL_VARIANT", "null")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "fromenv", cfg.SSH.User)
	assert.Equal(t, terminal.VariantNull, cfg.Terminal.ParsedVariant())
}

func TestExplicitMissingFileIsAnError(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestInvalidValues(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
terminal:
  variant: vt220
  charset: ebcdic
  palette: solarized
`)

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, terminal.ErrUnknownVariant)
	assert.ErrorIs(t, err, terminal.ErrUnknownCharset)
	assert.ErrorIs(t, err, terminal.ErrUnknownPalette)
}

func TestMalformedYAML(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "ssh: [unterminated")
	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "terminal:\n  palette: xterm\n")

	got := make(chan *Config, 4)
	w, err := NewWatcher(path, 50*time.Millisecond, func(c *Config) { got <- c })
	require.NoError(t, err)
	defer w.Stop()

	// A broken edit is skipped, the next good one is delivered.
	require.NoError(t, os.WriteFile(path, []byte("terminal:\n  palette: nope\n"), 0o644))
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("terminal:\n  palette: vga\n"), 0o644))

	select {
	case cfg := <-got:
		assert.Equal(t, "vga", cfg.Terminal.Palette)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "")

	got := make(chan *Config, 1)
	w, err := NewWatcher(path, 20*time.Millisecond, func(c *Config) { got <- c })
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1"), 0o644))

	select {
	case <-got:
		t.Fatal("reload triggered by an unrelated file")
	case <-time.After(300 * time.Millisecond):
	}
	w.Stop()
	w.Stop()
}
