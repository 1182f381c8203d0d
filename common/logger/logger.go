// Package logger wires the process-wide structured logger: a console core
// for interactive output and a size-rotated file core for durable debug logs.
package logger

import (
	"fmt"
	"path/filepath"
	"time"

	glog "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/Laisky/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the process-wide logger, set by Init before any handler runs.
var Logger glog.Logger

// levelsByName maps every glog level string this proxy accepts in
// PROXY_LOG_LEVEL to its glog and zapcore equivalents; entries not in this
// table fall back to info, matching glog's own default.
var levelsByName = map[string]struct {
	glevel   glog.Level
	zapLevel zapcore.Level
}{
	glog.LevelDebug.String(): {glog.LevelDebug, zapcore.DebugLevel},
	glog.LevelInfo.String():  {glog.LevelInfo, zapcore.InfoLevel},
	glog.LevelWarn.String():  {glog.LevelWarn, zapcore.WarnLevel},
	glog.LevelError.String(): {glog.LevelError, zapcore.ErrorLevel},
}

// Init builds Logger with a console sink plus a lumberjack-backed rotating
// file sink under dir, named proxy_debug_<YYYYMMDD_HHMMSS>.log. level is a
// glog level string ("debug", "info", "warn", "error").
func Init(dir, level string) (glog.Logger, error) {
	levels, ok := levelsByName[level]
	if !ok {
		levels = levelsByName[glog.LevelInfo.String()]
	}

	base, err := glog.NewConsoleWithName("gemini-proxy", levels.glevel)
	if err != nil {
		return nil, fmt.Errorf("build console logger: %w", err)
	}

	fileName := filepath.Join(dir, fmt.Sprintf("proxy_debug_%s.log", time.Now().Format("20060102_150405")))
	rotator := &lumberjack.Logger{
		Filename:   fileName,
		MaxSize:    1, // megabytes
		MaxBackups: 3,
		MaxAge:     0,
		Compress:   false,
	}

	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	fileCore := zapcore.NewCore(encoder, zapcore.AddSync(rotator), levels.zapLevel)

	Logger = base.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	}))
	return Logger, nil
}
