package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/story-arena/pkg/scenario"
)

const minimalScenario = `slug: tiny_tale
title: Tiny Tale
acts:
  - number: 1
    name: Only Act
    scenes:
      - id: hall
        name: Hall
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRun_BundledScenarios(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{filepath.Join("..", "..", "data", "scenarios")}, &stdout, &stderr)
	assert.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "scenario files are valid")
}

func TestValidateFile_Filenames(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		file    string
		wantErr string
	}{
		{"dash", "my-scenario.yml", "snake_case"},
		{"camel", "MyScenario.yml", "snake_case"},
		{"json", "tiny_tale.json", ".yml extension"},
		{"bad locale", "tiny_tale.POLISH.yml", "language code"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &ScenarioValidator{bases: map[string]*scenario.Scenario{}}
			err := v.validateFile(writeFile(t, dir, tt.file, minimalScenario), &bytes.Buffer{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateFile_UnknownFieldRejected(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "tiny_tale.yml", minimalScenario+"opening_music: lute\n")

	v := &ScenarioValidator{bases: map[string]*scenario.Scenario{}}
	err := v.validateFile(path, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strict YAML")
}

func TestValidateFile_SlugMismatch(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "other_tale.yml", minimalScenario)

	v := &ScenarioValidator{bases: map[string]*scenario.Scenario{}}
	err := v.validateFile(path, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `does not match file name "other_tale"`)
}

func TestRun_Overlays(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "tiny_tale.yml", minimalScenario)
	writeFile(t, dir, "tiny_tale.pl.yml", "title: Mała Opowieść\nacts:\n  - number: 1\n    name: Jedyny Akt\n")

	var stdout, stderr bytes.Buffer
	assert.Equal(t, 0, run([]string{dir}, &stdout, &stderr), stderr.String())

	writeFile(t, dir, "tiny_tale.de.yml", "acts:\n  - number: 7\n    name: Kein Akt\n")
	stderr.Reset()
	assert.Equal(t, 1, run([]string{dir}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "overlay act 7 does not exist")
}

func TestRun_OrphanOverlay(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "lost_tale.pl.yml", "title: Zagubiona\n")

	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, run([]string{path}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "no base scenario")
}

func TestRun_NoFiles(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, run([]string{t.TempDir()}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "No scenario files found")
}
