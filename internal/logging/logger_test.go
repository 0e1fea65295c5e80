// MenuBridge - Multi-Platform Menu Synchronization Engine
// Copyright 2026 MenuBridge Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/menubridge/menubridge

package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewTestLoggerCapturesOutput(t *testing.T) {
	SetLevelString("info")

	var buf bytes.Buffer
	logger := NewTestLogger(&buf)
	logger.Info().Str("platform", "careem").Msg("sync started")

	out := buf.String()
	if !strings.Contains(out, `"platform":"careem"`) {
		t.Errorf("missing field in output: %s", out)
	}
	if !strings.Contains(out, "sync started") {
		t.Errorf("missing message in output: %s", out)
	}
}

func TestSetLevelStringFiltersBelowLevel(t *testing.T) {
	defer Init(DefaultConfig())

	var buf bytes.Buffer
	Init(Config{Level: "info", Output: &buf})
	SetLevelString("error")

	Info().Msg("below threshold")
	Error().Msg("at threshold")

	out := buf.String()
	if strings.Contains(out, "below threshold") {
		t.Error("info line logged past error level")
	}
	if !strings.Contains(out, "at threshold") {
		t.Error("error line missing")
	}
}
