package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lingxian-next/internal/config"
	"github.com/lingxian-next/internal/logger"

	"go.uber.org/zap"
)

// 启动模式：all 同时运行接口与后台任务
const (
	ModeAll    = "all"
	ModeAPI    = "api"
	ModeWorker = "worker"
)

const defaultShutdownTimeout = 10 * time.Second

type Options struct {
	Config          *config.Config
	Logger          *zap.SugaredLogger
	Signals         []os.Signal
	ShutdownTimeout time.Duration
	Mode            string
}

// ParseMode 空值按 all 处理
func ParseMode(mode string) (string, error) {
	switch normalized := strings.ToLower(strings.TrimSpace(mode)); normalized {
	case "":
		return ModeAll, nil
	case ModeAll, ModeAPI, ModeWorker:
		return normalized, nil
	default:
		return "", fmt.Errorf("unknown run mode %q", mode)
	}
}

func (o Options) runsHTTP() bool {
	return o.Mode == ModeAll || o.Mode == ModeAPI
}

func (o Options) runsWorker() bool {
	return o.Mode == ModeAll || o.Mode == ModeWorker
}

func normalizeOptions(opts Options) Options {
	if opts.Logger == nil {
		opts.Logger = logger.S()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}
	if mode, err := ParseMode(opts.Mode); err == nil {
		opts.Mode = mode
	}
	return opts
}
