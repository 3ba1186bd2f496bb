package wal

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sync"
)

// 自己定義常用的權限常量
const (
	// rw-r--r-- (擁有者讀寫，其他人唯讀) - 適用於大多數檔案
	FileModeReadOnly fs.FileMode = 0644

	// rw------- (只有擁有者可讀寫) - 適用於私鑰、機密檔
	FileModePrivate fs.FileMode = 0600
)

// WAL 以 JSON Lines 格式追加寫入的 Write-Ahead Log
type WAL struct {
	file *os.File
	buf  *bufio.Writer
	mu   sync.Mutex
}

// NewWAL 開啟或建立一個 WAL 檔案
// O_RDWR讀寫模式
// O_APPEND 每次寫入時自動跳到文件末尾
// O_CREATE 如果文件不存在則建立
func NewWAL(path string) (*WAL, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, FileModeReadOnly)
	if err != nil {
		return nil, err
	}
	return &WAL{
		file: file,
		buf:  bufio.NewWriter(file),
	}, nil
}

// Write 寫入一筆資料到緩衝區，需呼叫 Flush 才會落地
func (w *WAL) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return json.NewEncoder(w.buf).Encode(v)
}

// Flush 將緩衝區寫入檔案並強制刷入硬碟 (關鍵！)
func (w *WAL) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.buf.Flush(); err != nil {
		return err
	}
	return w.file.Sync()
}

// Close 刷出剩餘資料並關閉檔案
func (w *WAL) Close() error {
	if err := w.Flush(); err != nil {
		_ = w.file.Close()
		return err
	}
	return w.file.Close()
}

// ReadAll 讀取所有資料
// callback 接收每一筆記錄的原始 JSON，避免一次將所有資料載入記憶體
//
// 寫入途中 crash 會留下不完整的最後一筆 (torn tail)，這筆從未 Flush 成功，
// 所以截掉它並從最後一筆完整記錄之後繼續追加。中間的損毀仍然回傳錯誤。
func (w *WAL) ReadAll(callback func(jsonRaw []byte) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	// 確保從頭讀取
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	decoder := json.NewDecoder(w.file)
	var lastGood int64
	for {
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return w.truncateTail(lastGood)
			}
			return err
		}
		if err := callback(raw); err != nil {
			return err
		}
		lastGood = decoder.InputOffset()
	}
	return nil
}

// truncateTail 把檔案截到 offset，並補回最後一筆記錄的換行
func (w *WAL) truncateTail(offset int64) error {
	info, err := w.file.Stat()
	if err != nil {
		return err
	}
	slog.Warn("wal: truncating incomplete tail record",
		"file", w.file.Name(),
		"offset", offset,
		"dropped_bytes", info.Size()-offset,
	)
	if err := w.file.Truncate(offset); err != nil {
		return err
	}
	if offset > 0 {
		// O_APPEND: 寫在截斷後的檔尾
		if _, err := w.file.Write([]byte{'\n'}); err != nil {
			return err
		}
	}
	return w.file.Sync()
}
