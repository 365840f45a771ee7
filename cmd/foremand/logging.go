package main

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// buildLoggers returns the main logger, the access logger, and a cleanup
// function. Stderr always gets a console view. With a log directory set,
// three JSON files are added: events.log gets everything, fatal.log only
// errors and above, ips.log the per-connection access entries.
func buildLoggers(cfg Config) (*zap.Logger, *zap.Logger, func(), error) {
	level := zap.InfoLevel
	if cfg.Debug {
		level = zap.DebugLevel
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	stderr := zapcore.Lock(os.Stderr)
	consoleCore := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), stderr, level)
	mainCores := []zapcore.Core{consoleCore}
	accessCores := []zapcore.Core{consoleCore}

	var files []*os.File
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
			return nil, nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		open := func(name string) (*os.File, error) {
			f, err := os.OpenFile(filepath.Join(cfg.LogDir, name),
				os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				closeAll()
				return nil, fmt.Errorf("open %s: %w", name, err)
			}
			files = append(files, f)
			return f, nil
		}
		events, err := open("events.log")
		if err != nil {
			return nil, nil, nil, err
		}
		fatal, err := open("fatal.log")
		if err != nil {
			return nil, nil, nil, err
		}
		ips, err := open("ips.log")
		if err != nil {
			return nil, nil, nil, err
		}

		jsonEnc := zapcore.NewJSONEncoder(encCfg)
		mainCores = append(mainCores,
			zapcore.NewCore(jsonEnc, zapcore.AddSync(events), level),
			zapcore.NewCore(jsonEnc, zapcore.AddSync(fatal), zap.ErrorLevel),
		)
		accessCores = append(accessCores,
			zapcore.NewCore(jsonEnc, zapcore.AddSync(ips), zap.InfoLevel),
		)
	}

	logger := zap.New(zapcore.NewTee(mainCores...))
	access := zap.New(zapcore.NewTee(accessCores...)).Named("access")
	cleanup := func() {
		_ = logger.Sync()
		_ = access.Sync()
		closeAll()
	}
	return logger, access, cleanup, nil
}
