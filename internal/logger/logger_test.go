package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestResolveLogFilePathDefaultDir(t *testing.T) {
	tmpDir := t.TempDir()
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("get wd failed: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(oldWD) })
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}

	got, err := resolveLogFilePath(Options{})
	if err != nil {
		t.Fatalf("resolve default log path failed: %v", err)
	}
	realTmpDir, err := filepath.EvalSymlinks(tmpDir)
	if err != nil {
		t.Fatalf("resolve tmp dir symlink failed: %v", err)
	}
	realGot, err := filepath.EvalSymlinks(filepath.Dir(got))
	if err != nil {
		t.Fatalf("resolve got dir symlink failed: %v", err)
	}
	if realGot != filepath.Join(realTmpDir, defaultLogDirName) || filepath.Base(got) != defaultLogFilename {
		t.Fatalf("unexpected log path: %s", got)
	}
}

func TestReleaseWritesJSONToFile(t *testing.T) {
	tmpDir := t.TempDir()
	log := New("release", Options{Dir: tmpDir, Filename: "release.log"})
	log.Sugar().Infow("order_created", "order_no", "202603101200001234")
	_ = log.Sync()

	content, err := os.ReadFile(filepath.Join(tmpDir, "release.log"))
	if err != nil {
		t.Fatalf("read release log failed: %v", err)
	}
	text := string(content)
	if !strings.Contains(text, `"message":"order_created"`) || !strings.Contains(text, `"order_no":"202603101200001234"`) {
		t.Fatalf("expected json log line, got=%s", text)
	}
}

func TestDebugDoesNotWriteFile(t *testing.T) {
	tmpDir := t.TempDir()
	log := New("debug", Options{Dir: tmpDir, Filename: "debug.log"})
	log.Info("debug-log-test")
	_ = log.Sync()

	if _, err := os.Stat(filepath.Join(tmpDir, "debug.log")); !os.IsNotExist(err) {
		t.Fatalf("debug mode should not create log file")
	}
}

func TestResolveLevel(t *testing.T) {
	if lvl := resolveLevel("", true).Level(); lvl != zapcore.DebugLevel {
		t.Fatalf("debug default want debug got %s", lvl)
	}
	if lvl := resolveLevel("", false).Level(); lvl != zapcore.InfoLevel {
		t.Fatalf("release default want info got %s", lvl)
	}
	if lvl := resolveLevel("warn", true).Level(); lvl != zapcore.WarnLevel {
		t.Fatalf("explicit level want warn got %s", lvl)
	}
	if lvl := resolveLevel("loud", false).Level(); lvl != zapcore.InfoLevel {
		t.Fatalf("unknown level falls back to info, got %s", lvl)
	}
}

func TestReleaseRespectsLevel(t *testing.T) {
	tmpDir := t.TempDir()
	log := New("release", Options{Dir: tmpDir, Filename: "warn.log", Level: "warn"})
	log.Info("quiet")
	log.Warn("loud")
	_ = log.Sync()

	content, err := os.ReadFile(filepath.Join(tmpDir, "warn.log"))
	if err != nil {
		t.Fatalf("read log failed: %v", err)
	}
	if strings.Contains(string(content), "quiet") || !strings.Contains(string(content), "loud") {
		t.Fatalf("level filter not applied: %s", string(content))
	}
}
