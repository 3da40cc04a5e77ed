package main

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_LeavesErrorReportingToMain(t *testing.T) {
	root := newRootCmd()
	assert.True(t, root.SilenceErrors)
	assert.True(t, root.SilenceUsage)
}

func TestApp_FailLogsAndMarksError(t *testing.T) {
	var buf bytes.Buffer
	a := &app{logger: slog.New(slog.NewJSONHandler(&buf, nil))}
	cause := errors.New("model file missing")

	err := a.fail("failed to load model", cause)

	var logged *loggedError
	require.ErrorAs(t, err, &logged)
	require.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to load model: model file missing", err.Error())
	assert.Contains(t, buf.String(), `"msg":"failed to load model"`)
}

func TestRootCmd_FlagErrorIsNotMarkedLogged(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"--no-such-flag"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	err := root.Execute()
	require.Error(t, err)
	var logged *loggedError
	assert.False(t, errors.As(err, &logged), "flag errors must be printed by main")
}
