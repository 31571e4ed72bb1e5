package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var InfoLogger, FatalLogger *zap.Logger

var (
	serviceName = "default"

	sinkMu   sync.Mutex
	fileSink *lumberjack.Logger

	hook atomic.Pointer[func(zapcore.Entry) error]
)

type Config struct {
	Level      string `mapstructure:"level"`
	Output     string `mapstructure:"output"` // console | file | both
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

func SetServiceName(newName string) string {
	oldName := serviceName
	serviceName = newName

	return oldName
}

// Init собирает zap-логгер по конфигу и выставляет глобальные InfoLogger/FatalLogger.
func Init(cfg Config, opts ...zap.Option) *zap.Logger {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level.SetLevel(zap.InfoLevel)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var cores []zapcore.Core
	output := strings.ToLower(cfg.Output)
	if (output == "file" || output == "both") && cfg.File != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		sinkMu.Lock()
		fileSink = lj
		sinkMu.Unlock()

		fileEnc := encCfg
		fileEnc.EncodeLevel = zapcore.CapitalLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(fileEnc), zapcore.AddSync(lj), level))
	}
	if output != "file" || len(cores) == 0 {
		consoleEnc := encCfg
		consoleEnc.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEnc), zapcore.AddSync(os.Stdout), level))
	}

	opts = append([]zap.Option{zap.AddCaller(), zap.Hooks(runHook)}, opts...)
	l := zap.New(zapcore.NewTee(cores...), opts...).With(zap.String("service", serviceName))

	InfoLogger = l
	FatalLogger = l
	return l
}

// SetHook подключает обработчик записей уже собранного логгера (пересылка в чат). nil отключает.
func SetHook(fn func(zapcore.Entry) error) {
	if fn == nil {
		hook.Store(nil)
		return
	}
	hook.Store(&fn)
}

func runHook(e zapcore.Entry) error {
	if fn := hook.Load(); fn != nil {
		return (*fn)(e)
	}
	return nil
}

// FilePath: путь файла логов или пустая строка, если пишем только в консоль.
func FilePath() string {
	sinkMu.Lock()
	defer sinkMu.Unlock()
	if fileSink == nil {
		return ""
	}
	return fileSink.Filename
}

// Rotate закрывает текущий файл логов и начинает новый.
func Rotate() error {
	sinkMu.Lock()
	defer sinkMu.Unlock()
	if fileSink == nil {
		return fmt.Errorf("file logging is disabled")
	}
	return fileSink.Rotate()
}

func Info(format string, args ...interface{}) {
	if InfoLogger == nil {
		panic("InfoLogger is not initialized")
	}

	InfoLogger.Info(fmt.Sprintf(format, args...))
}

func Debug(format string, args ...interface{}) {
	if InfoLogger == nil {
		panic("InfoLogger is not initialized")
	}

	InfoLogger.Debug(fmt.Sprintf(format, args...))
}

func Warn(format string, args ...interface{}) {
	if InfoLogger == nil {
		panic("InfoLogger is not initialized")
	}

	InfoLogger.Warn(fmt.Sprintf(format, args...))
}

func Error(format string, args ...interface{}) {
	if InfoLogger == nil {
		panic("InfoLogger is not initialized")
	}

	InfoLogger.Error(fmt.Sprintf(format, args...))
}

func Fatal(format string, args ...interface{}) {
	if FatalLogger == nil {
		panic("FatalLogger is not initialized")
	}

	FatalLogger.Fatal(fmt.Sprintf(format, args...))
}
