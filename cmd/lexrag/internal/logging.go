package internal

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"
)

// SetupLogging 将标准日志写入 ~/.lexrag/logs 下的日志文件。
// echo 为 true 时同时输出到 stderr；交互式会话传 false 以保持终端干净。
func SetupLogging(subcommand string, echo bool) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	logDir := filepath.Join(homeDir, ".lexrag", "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return err
	}

	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("lexrag-%s-%s-%d.log", subcommand, timestamp, os.Getpid())
	logPath := filepath.Join(logDir, filename)

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}

	if echo {
		log.SetOutput(io.MultiWriter(os.Stderr, logFile))
	} else {
		log.SetOutput(logFile)
	}
	log.Printf("Log file: %s", logPath)
	return nil
}
