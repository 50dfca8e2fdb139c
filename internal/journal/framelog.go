package journal

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// FrameLog captures raw wire frames as hourly-rotated JSONL+zstd files,
// one line per frame. Decoded later with cmd/farmdecode.
type FrameLog struct {
	baseDir string
	prefix  string

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

type frameLine struct {
	TS    string          `json:"ts"`
	Dir   string          `json:"dir"`
	Frame json.RawMessage `json:"frame"`
}

func NewFrameLog(baseDir, prefix string) *FrameLog {
	return &FrameLog{baseDir: baseDir, prefix: prefix}
}

// RecordFrame implements session.FrameRecorder. Write errors are swallowed;
// capture is advisory.
func (l *FrameLog) RecordFrame(dir string, frame []byte) {
	line := frameLine{
		TS:    time.Now().UTC().Format(time.RFC3339Nano),
		Dir:   dir,
		Frame: append(json.RawMessage(nil), frame...),
	}
	b, err := json.Marshal(line)
	if err != nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	hour := time.Now().UTC().Format("2006-01-02-15")
	if hour != l.curHour {
		if err := l.rotateLocked(hour); err != nil {
			return
		}
	}
	if _, err := l.w.Write(b); err != nil {
		return
	}
	if err := l.w.WriteByte('\n'); err != nil {
		return
	}
	_ = l.w.Flush()
}

func (l *FrameLog) rotateLocked(hour string) error {
	if err := l.closeLocked(); err != nil {
		return err
	}
	path := filepath.Join(l.baseDir, l.prefix+"-"+hour+".jsonl.zst")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	l.f = f
	l.enc = enc
	l.w = bufio.NewWriterSize(enc, 64*1024)
	l.curHour = hour
	return nil
}

func (l *FrameLog) closeLocked() error {
	var err error
	if l.w != nil {
		_ = l.w.Flush()
		l.w = nil
	}
	if l.enc != nil {
		err = l.enc.Close()
		l.enc = nil
	}
	if l.f != nil {
		_ = l.f.Close()
		l.f = nil
	}
	l.curHour = ""
	return err
}

func (l *FrameLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeLocked()
}
