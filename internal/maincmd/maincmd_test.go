package maincmd_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/mna/mainer"
	"github.com/stretchr/testify/require"

	"github.com/lemonscript/lemon/internal/maincmd"
)

const addFile = "../../testdata/asmtext/add.lasm"

func TestRunFilesExecutesEntryFunction(t *testing.T) {
	var stdout, stderr bytes.Buffer
	stdio := mainer.Stdio{Stdout: &stdout, Stderr: &stderr}

	err := maincmd.RunFiles(context.Background(), stdio, "", "3,4", 0, addFile)
	require.NoError(t, err)
	require.Empty(t, stderr.String())
	require.Equal(t, "7\n", stdout.String())
}

func TestRunFilesUnknownEntryFails(t *testing.T) {
	var stdout, stderr bytes.Buffer
	stdio := mainer.Stdio{Stdout: &stdout, Stderr: &stderr}

	err := maincmd.RunFiles(context.Background(), stdio, "missing", "", 0, addFile)
	require.Error(t, err)
	require.Contains(t, stderr.String(), "missing")
}

func TestHashFilesIsStableAcrossCalls(t *testing.T) {
	var first, second bytes.Buffer
	require.NoError(t, maincmd.HashFiles(mainer.Stdio{Stdout: &first}, addFile))
	require.NoError(t, maincmd.HashFiles(mainer.Stdio{Stdout: &second}, addFile))
	require.Equal(t, first.String(), second.String())
	require.Contains(t, first.String(), addFile)
}

func TestOptimizeFilesProducesOpcodes(t *testing.T) {
	var stdout bytes.Buffer
	require.NoError(t, maincmd.OptimizeFiles(mainer.Stdio{Stdout: &stdout}, addFile))
	require.Contains(t, stdout.String(), "function: add")
	require.Contains(t, stdout.String(), "return")
}

func TestDisasmFilesPrintsFunctionHeader(t *testing.T) {
	var stdout bytes.Buffer
	require.NoError(t, maincmd.DisasmFiles(mainer.Stdio{Stdout: &stdout}, addFile))
	require.Contains(t, stdout.String(), "function: add")
}
