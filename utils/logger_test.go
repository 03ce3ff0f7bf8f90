/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	cases := map[string]logrus.Level{
		"trace":   logrus.TraceLevel,
		"DEBUG":   logrus.DebugLevel,
		" warn ":  logrus.WarnLevel,
		"warning": logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"":        logrus.InfoLevel,
		"bogus":   logrus.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLogLevel(in), "input %q", in)
	}
}

func TestNewLoggerIsRegisteredOnce(t *testing.T) {
	a := NewLogger("REGISTRY_TEST")
	b := NewLogger("REGISTRY_TEST")
	assert.Same(t, a, b)

	assert.True(t, SetLoggerLevel("REGISTRY_TEST", "error"))
	assert.Equal(t, logrus.ErrorLevel, a.GetLevel())
	assert.False(t, SetLoggerLevel("NOT_REGISTERED", "debug"))
}

func TestLog4jFormatter(t *testing.T) {
	f := &Log4jFormatter{LoggerName: "DATABASE", NameWidth: 10}
	entry := &logrus.Entry{
		Time:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Level:   logrus.InfoLevel,
		Message: "connected",
		Data:    logrus.Fields{"type": "sqlite", "host": "local"},
	}
	out, err := f.Format(entry)
	require.NoError(t, err)

	line := string(out)
	assert.Contains(t, line, "2025-01-02 03:04:05.000")
	assert.Contains(t, line, "INFO")
	assert.Contains(t, line, "[  DATABASE] : connected host=local type=sqlite")
	assert.NotContains(t, line, "\x1b[")
}

func TestDailyFileHook(t *testing.T) {
	dir := t.TempDir()
	l := logrus.New()
	l.SetOutput(&bytes.Buffer{})
	require.NoError(t, addDailyFileHook(l, "FILETEST", dir))

	l.Info("hello file")

	path := filepath.Join(dir, time.Now().Format("2006-01-02"), "filetest.log")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello file")
}

func TestEnvDefaults(t *testing.T) {
	t.Setenv("UTILS_TEST_STR", "value")
	t.Setenv("UTILS_TEST_BOOL", "true")
	t.Setenv("UTILS_TEST_BAD_BOOL", "maybe")

	assert.Equal(t, "value", EnvDefaultString("UTILS_TEST_STR", "def"))
	assert.Equal(t, "def", EnvDefaultString("UTILS_TEST_MISSING", "def"))
	assert.True(t, EnvDefaultBool("UTILS_TEST_BOOL", false))
	assert.True(t, EnvDefaultBool("UTILS_TEST_BAD_BOOL", true))
	assert.False(t, EnvDefaultBool("UTILS_TEST_MISSING", false))
}
