// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"os"

	"github.com/emicklei/go-restful/v3"
	"github.com/juju/errors"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const timeLayout = "2006-01-02 15:04:05.999999"

// Sink is the console stream a binary logs to.
type Sink int

const (
	// Stdout is used by bookrec-server.
	Stdout Sink = iota
	// Stderr is used by bookrec-cli, which writes results to stdout.
	Stderr
)

func (s Sink) syncer() zapcore.WriteSyncer {
	if s == Stderr {
		return zapcore.Lock(os.Stderr)
	}
	return zapcore.Lock(os.Stdout)
}

var logger = zap.New(newConsoleCore(Stderr, zap.DebugLevel))

// Logger get current logger
func Logger() *zap.Logger {
	return logger
}

// ResponseLogger returns a logger tagged with the request id of a response.
func ResponseLogger(resp *restful.Response) *zap.Logger {
	return logger.With(zap.String("request_id", resp.Header().Get("X-Request-ID")))
}

// CloseLogger silences everything below fatal.
func CloseLogger() {
	logger = zap.New(newConsoleCore(Stderr, zap.FatalLevel))
}

func AddFlags(flagSet *pflag.FlagSet) {
	flagSet.String("log-level", "", "minimum log level (debug, info, warn, error); overrides --debug")
	flagSet.String("log-path", "", "path of log file")
	flagSet.Int("log-max-size", 100, "maximum size in megabytes of the log file")
	flagSet.Int("log-max-age", 0, "maximum number of days to retain old log files")
	flagSet.Int("log-max-backups", 0, "maximum number of old log files to retain")
}

// SetLogger replaces the global logger. Debug mode writes human-readable lines to the sink,
// otherwise JSON lines are written. A log file given by --log-path always receives JSON.
func SetLogger(flagSet *pflag.FlagSet, debug bool, sink Sink) error {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}
	if text, _ := flagSet.GetString("log-level"); text != "" {
		if err := level.Set(text); err != nil {
			return errors.NotValidf("log level %q", text)
		}
	}

	var cores []zapcore.Core
	if debug {
		cores = append(cores, newConsoleCore(sink, level))
	} else {
		cores = append(cores, zapcore.NewCore(newJSONEncoder(), sink.syncer(), level))
	}
	if flagSet.Changed("log-path") {
		path, _ := flagSet.GetString("log-path")
		maxSize, _ := flagSet.GetInt("log-max-size")
		maxAge, _ := flagSet.GetInt("log-max-age")
		maxBackups, _ := flagSet.GetInt("log-max-backups")
		cores = append(cores, zapcore.NewCore(newJSONEncoder(), zapcore.AddSync(&lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
			MaxAge:     maxAge,
		}), level))
	}
	logger = zap.New(zapcore.NewTee(cores...))
	return nil
}

func newConsoleCore(sink Sink, level zapcore.LevelEnabler) zapcore.Core {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout(timeLayout)
	return zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), sink.syncer(), level)
}

func newJSONEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout(timeLayout)
	return zapcore.NewJSONEncoder(cfg)
}
