package logger

import (
	"TradeTalent/internal/api/config"
	"io"
	log "log/slog"
	"net"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

var LogWriter io.Writer = os.Stdout

func InitLogger() {
	level := parseLevel(config.Cfg.Log.Level)

	hStdout := log.NewJSONHandler(os.Stdout, &log.HandlerOptions{Level: level})
	handlers := []log.Handler{hStdout}
	writers := []io.Writer{os.Stdout}

	// 本地滚动日志
	if fileCfg := config.Cfg.Log; fileCfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   fileCfg.File,
			MaxSize:    fileCfg.MaxSizeMB,
			MaxBackups: fileCfg.MaxBackups,
			MaxAge:     fileCfg.MaxAgeDays,
			Compress:   true,
		}
		handlers = append(handlers, log.NewJSONHandler(rotator, &log.HandlerOptions{Level: level}))
		writers = append(writers, rotator)
	}

	// 远程 Logstash，只上报带 trace_id 的日志
	cfg := config.Cfg.Logstash
	if cfg.Address != "" {
		conn, err := net.Dial("tcp", cfg.Address)
		if err == nil {
			hRemote := log.NewJSONHandler(conn, &log.HandlerOptions{Level: level}).
				WithAttrs([]log.Attr{
					log.String("target_index", cfg.Index),
					log.String("log_token", cfg.Token),
				})
			handlers = append(handlers, &RemoteFilterHandler{next: hRemote})
			writers = append(writers, conn)
		} else {
			log.Warn("Failed to connect to Logstash, skip remote logging", "err", err)
		}
	}

	var finalHandler log.Handler = hStdout
	if len(handlers) > 1 {
		finalHandler = &TeeHandler{handlers: handlers}
	}
	LogWriter = io.MultiWriter(writers...)

	logger := log.New(&ContextHandler{finalHandler})
	log.SetDefault(logger)
}

func parseLevel(level string) log.Level {
	switch strings.ToLower(level) {
	case "debug":
		return log.LevelDebug
	case "warn":
		return log.LevelWarn
	case "error":
		return log.LevelError
	default:
		return log.LevelInfo
	}
}
