package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/JoeShih716/go-wallet-ledger/pkg/logger"
	"github.com/JoeShih716/go-wallet-ledger/pkg/mysql"
)

// StoreType 設定使用哪種 Store
type StoreType string

const (
	// StoreTypeMySQL 每筆操作直接在 MySQL 內以 SELECT ... FOR UPDATE 完成
	StoreTypeMySQL StoreType = "mysql"
	// StoreTypeMemory 記憶體 + WAL，啟動時可從 MySQL 載入錢包
	StoreTypeMemory StoreType = "memory"
)

type Config struct {
	Store  StoreConfig   `yaml:"store"`
	MySQL  mysql.Config  `yaml:"mysql"`
	WAL    WALConfig     `yaml:"wal"`
	GRPC   ServerConfig  `yaml:"grpc"`
	HTTP   ServerConfig  `yaml:"http"`
	Wallet WalletConfig  `yaml:"wallet"`
	Log    logger.Config `yaml:"log"`
}

type StoreConfig struct {
	Type StoreType `yaml:"type"`
	// SeedFromMySQL memory 模式啟動時是否從 MySQL 載入錢包
	SeedFromMySQL bool `yaml:"seed_from_mysql"`
}

type WALConfig struct {
	Path string `yaml:"path"` // 空字串表示不啟用
}

type ServerConfig struct {
	Addr string `yaml:"addr"` // 空字串表示不啟動
}

type WalletConfig struct {
	// LockTimeout 單筆操作等待錢包鎖的上限
	LockTimeout time.Duration `yaml:"lock_timeout"`
}

// Load 讀取 YAML 設定檔並補全預設值
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse 解析 YAML 內容並補全預設值
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.Store.Type == "" {
		c.Store.Type = StoreTypeMySQL
	}
	c.Store.Type = StoreType(strings.ToLower(string(c.Store.Type)))
	c.MySQL.SetDefaults()
	if c.Wallet.LockTimeout == 0 {
		c.Wallet.LockTimeout = 5 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) validate() error {
	switch c.Store.Type {
	case StoreTypeMySQL, StoreTypeMemory:
	default:
		return fmt.Errorf("invalid store type: %q", c.Store.Type)
	}
	if c.GRPC.Addr == "" && c.HTTP.Addr == "" {
		return fmt.Errorf("at least one of grpc.addr or http.addr must be set")
	}
	return nil
}

// NeedsMySQL 是否需要建立 MySQL 連線
func (c *Config) NeedsMySQL() bool {
	return c.Store.Type == StoreTypeMySQL || c.Store.SeedFromMySQL
}
