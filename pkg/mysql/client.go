package mysql

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Client 封裝 GORM DB 實例
type Client struct {
	db *gorm.DB
}

// retryPolicy 啟動時連線重試的次數與間隔 (MySQL container 可能比服務晚起來)
type retryPolicy struct {
	attempts int
	interval time.Duration
}

var defaultRetry = retryPolicy{attempts: 10, interval: 2 * time.Second}

// NewClient 建立並回傳一個新的 MySQL 客戶端實例 (GORM)
//
// 參數:
//
//	cfg: Config - MySQL 連線配置
//
// 回傳值:
//
//	*Client: 封裝後的 MySQL 客戶端
//	error: 連線失敗，或 session 的 innodb_lock_wait_timeout 與設定不符
func NewClient(cfg Config) (*Client, error) {
	cfg.SetDefaults()
	return connect(cfg, mysql.Open(cfg.DSN()), defaultRetry)
}

func connect(cfg Config, dialector gorm.Dialector, retry retryPolicy) (*Client, error) {
	db, err := openWithRetry(dialector, &gorm.Config{
		// 單筆寫入不包預設交易，錢包操作自己用 Transaction 包住
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
		Logger:                 newLogger(cfg.LogLevel),
	}, retry)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.db: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if cfg.LockWaitTimeoutSeconds > 0 {
		if err := verifyLockWaitTimeout(db, cfg.LockWaitTimeoutSeconds); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
	}
	return &Client{db: db}, nil
}

func openWithRetry(dialector gorm.Dialector, gormConfig *gorm.Config, retry retryPolicy) (*gorm.DB, error) {
	var lastErr error
	for attempt := 1; attempt <= retry.attempts; attempt++ {
		db, err := gorm.Open(dialector, gormConfig)
		if err == nil {
			sqlDB, dbErr := db.DB()
			if dbErr != nil {
				err = dbErr
			} else if err = sqlDB.Ping(); err == nil {
				return db, nil
			}
		}
		lastErr = err

		if attempt < retry.attempts {
			slog.Warn("mysql not ready, retrying",
				"attempt", attempt,
				"max_attempts", retry.attempts,
				"retry_in", retry.interval,
				"error", err,
			)
			time.Sleep(retry.interval)
		}
	}
	return nil, fmt.Errorf("failed to connect to mysql after %d attempts: %w", retry.attempts, lastErr)
}

// verifyLockWaitTimeout 確認 DSN 的 innodb_lock_wait_timeout 真的套用到 session
// 錢包鎖等待的上限靠這個值，設錯會讓請求卡到 server 預設的 50 秒
func verifyLockWaitTimeout(db *gorm.DB, want int) error {
	var got int
	if err := db.Raw("SELECT @@SESSION.innodb_lock_wait_timeout").Scan(&got).Error; err != nil {
		return fmt.Errorf("read innodb_lock_wait_timeout: %w", err)
	}
	if got != want {
		return fmt.Errorf("innodb_lock_wait_timeout is %ds, configured %ds", got, want)
	}
	slog.Debug("mysql session lock wait timeout verified", "seconds", got)
	return nil
}

// DB 回傳底層的 *gorm.DB 實例，供錢包 Store 使用
func (c *Client) DB() *gorm.DB {
	return c.db
}

// Close 關閉資料庫連線
func (c *Client) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// newLogger 將設定的等級轉成 GORM Logger，未知等級只記錄錯誤
func newLogger(level string) logger.Interface {
	levels := map[string]logger.LogLevel{
		"info":   logger.Info,
		"warn":   logger.Warn,
		"error":  logger.Error,
		"silent": logger.Silent,
	}
	logLevel, ok := levels[level]
	if !ok {
		logLevel = logger.Error
	}
	return logger.Default.LogMode(logLevel)
}
