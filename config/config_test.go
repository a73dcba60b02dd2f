package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	fname := filepath.Join(dir, "config.json")

	want := Default()
	want.K = 21
	want.NThreads = 8
	want.DoTable = 2

	buf, err := json.Marshal(want)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(fname, buf, 0o644))

	got := ReadConfig(fname)
	assert.Equal(t, want.K, got.K)
	assert.Equal(t, want.NThreads, got.NThreads)
	assert.Equal(t, want.DoTable, got.DoTable)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.K = 3
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.DoTable = -1
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.NThreads = 0
	require.Error(t, cfg.Validate())
}

func TestResolveSortPath(t *testing.T) {
	cfg := Default()
	cfg.TempDir = t.TempDir()

	dir, err := cfg.ResolveSortPath()
	require.NoError(t, err)
	assert.DirExists(t, dir)
	assert.Equal(t, dir, cfg.SortPath)

	// Calling again is a no-op that reuses the resolved path.
	dir2, err := cfg.ResolveSortPath()
	require.NoError(t, err)
	assert.Equal(t, dir, dir2)
}

func TestLayout(t *testing.T) {
	cfg := Default()
	cfg.K = 40
	cfg.MaxSuper = 100
	cfg.DoProfile = false

	l := cfg.Layout()
	assert.Equal(t, 40, l.K)
	assert.Equal(t, 1+ceilDiv(40, 4), l.KmerBytes)
	assert.Equal(t, l.KmerBytes+2, l.KmerWord)
	assert.Equal(t, byte(0xff), l.KClip)

	cfg.K = 41
	l = cfg.Layout()
	assert.Equal(t, byte(0xc0), l.KClip)

	cfg.DoProfile = true
	l = cfg.Layout()
	assert.Equal(t, l.KmerBytes+2+l.KmaxBytes, l.KmerWord)
	assert.Equal(t, l.KmaxBytes+1, l.CmerWord)
}
