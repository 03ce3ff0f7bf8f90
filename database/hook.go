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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/uptrace/bun"
)

var silentQueryLog atomic.Bool

// SetQueryLogSilent mutes the colored query log, e.g. during migrations.
func SetQueryLogSilent(b bool) {
	silentQueryLog.Store(b)
}

var operationColors = map[string]*color.Color{
	"SELECT": color.New(color.FgGreen),
	"INSERT": color.New(color.FgBlue),
	"UPDATE": color.New(color.FgYellow),
	"DELETE": color.New(color.FgMagenta),
}

var defaultOperationColor = color.New(color.FgRed)

func operationColor(op string) *color.Color {
	if c, ok := operationColors[op]; ok {
		return c
	}
	return defaultOperationColor
}

// QueryHook prints every query with its duration, colored by operation.
// The env variable named by EnvName overrides it at runtime: "" or "0"
// disables, "1" prints failures only, "2" prints everything.
type QueryHook struct {
	EnvName string
	Verbose bool
	Writer  io.Writer
}

var _ bun.QueryHook = (*QueryHook)(nil)

// NewQueryHook returns a verbose QueryHook writing to stdout and controlled
// by the BUNDEBUG variable.
func NewQueryHook() *QueryHook {
	return &QueryHook{EnvName: "BUNDEBUG", Verbose: true, Writer: os.Stdout}
}

func (h *QueryHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *QueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if silentQueryLog.Load() {
		return
	}
	verbose := h.Verbose
	if h.EnvName != "" {
		if env, ok := os.LookupEnv(h.EnvName); ok {
			if env == "" || env == "0" {
				return
			}
			verbose = env == "2"
		}
	}
	if !verbose {
		switch {
		case event.Err == nil, errors.Is(event.Err, sql.ErrNoRows), errors.Is(event.Err, sql.ErrTxDone):
			return
		}
	}

	now := time.Now()
	line := fmt.Sprintf("%s %s %12s  %s",
		now.Format("2006-01-02 15:04:05.000"),
		color.CyanString("[BUN]"),
		now.Sub(event.StartTime).Round(time.Microsecond),
		operationColor(event.Operation()).Sprint(event.Query),
	)
	if event.Err != nil {
		line += "\t" + color.New(color.BgRed, color.FgWhite).Sprintf(" %T: %v ", event.Err, event.Err)
	}
	_, _ = fmt.Fprintln(h.Writer, line)
}

// SlowQueryHook logs a warning for successful queries slower than SlowTime.
type SlowQueryHook struct {
	SlowTime time.Duration
	Logger   Logger
}

var _ bun.QueryHook = (*SlowQueryHook)(nil)

func (h *SlowQueryHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *SlowQueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if event.Err != nil || h.Logger == nil || h.SlowTime <= 0 {
		return
	}
	if duration := time.Since(event.StartTime); duration > h.SlowTime {
		h.Logger.Warn("Database slow query detected",
			"duration", duration,
			"slow_threshold", h.SlowTime,
			"operation", event.Operation(),
			"query", event.Query,
		)
	}
}
