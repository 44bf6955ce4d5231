package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var commitID string

func OrderID(orderID int64) zap.Field {
	return zap.Int64("order_id", orderID)
}

func SessionID(sessionID string) zap.Field {
	return zap.String("session_id", sessionID)
}

func RequestID(requestID string) zap.Field {
	return zap.String("request_id", requestID)
}

// NewLogger builds the JSON logger. An empty path writes to stderr.
func NewLogger(logPath string) *zap.SugaredLogger {
	if logPath == "" {
		logPath = "stderr"
	}

	zapConfig := zap.Config{
		Level:       zap.NewAtomicLevelAt(zap.InfoLevel),
		Development: false,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding: "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.999999Z07:00"),
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	}

	l, err := zapConfig.Build()
	if err != nil {
		panic(err)
	}
	return l.Sugar().With(zap.String("commit_id", commitID))
}
