package mysql

import (
	"context"
	"errors"
	"fmt"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/domain"
	"github.com/JoeShih716/go-wallet-ledger/internal/app/wallet/usecase"
)

// MySQL 錯誤碼
const (
	errCodeDuplicateEntry  = 1062
	errCodeLockWaitTimeout = 1205
)

// sqlWallet 對應資料庫的 wallets 表
type sqlWallet struct {
	ID        []byte          `gorm:"column:id;type:binary(16);primaryKey"`
	Balance   decimal.Decimal `gorm:"column:balance;type:decimal(19,2);not null;default:0"`
	UpdatedAt int64           `gorm:"autoUpdateTime:milli"` // 自動更新時間
}

func (*sqlWallet) TableName() string {
	return "wallets"
}

func (w *sqlWallet) toDomain() (*domain.Wallet, error) {
	id, err := uuid.FromBytes(w.ID)
	if err != nil {
		return nil, fmt.Errorf("decode wallet id: %w", err)
	}
	return domain.RestoreWallet(id, w.Balance), nil
}

// Store 以 MySQL (GORM) 實作 usecase.Store
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db: db,
	}
}

// Migrate 建立或更新 wallets 表
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&sqlWallet{})
}

// WithinTx 開啟資料庫交易執行 fn，fn 回傳錯誤時 rollback
func (s *Store) WithinTx(ctx context.Context, fn func(tx usecase.Tx) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&mysqlTx{db: tx})
	})
	return translateError(err)
}

// Get 不加鎖讀取錢包
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	var w sqlWallet
	err := s.db.WithContext(ctx).Where("id = ?", id[:]).Take(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFound(id)
	}
	if err != nil {
		return nil, translateError(err)
	}
	return w.toDomain()
}

// Create 新增錢包
func (s *Store) Create(ctx context.Context, wallet *domain.Wallet) error {
	row := sqlWallet{
		ID:      wallet.ID[:],
		Balance: wallet.Balance,
	}
	err := s.db.WithContext(ctx).Create(&row).Error
	var mysqlErr *mysqldriver.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == errCodeDuplicateEntry {
		return domain.ErrWalletAlreadyExists
	}
	return translateError(err)
}

// LoadAll 載入所有錢包
func (s *Store) LoadAll(ctx context.Context) (map[uuid.UUID]*domain.Wallet, error) {
	var rows []sqlWallet
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, translateError(err)
	}
	wallets := make(map[uuid.UUID]*domain.Wallet, len(rows))
	for i := range rows {
		w, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		wallets[w.ID] = w
	}
	return wallets, nil
}

// mysqlTx 綁定在單一 *gorm.DB 交易上
type mysqlTx struct {
	db *gorm.DB
}

// LockedGet 悲觀鎖: SELECT ... FOR UPDATE，同一 id 的其他交易會等到本交易結束
func (t *mysqlTx) LockedGet(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	var w sqlWallet
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id[:]).
		Take(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFound(id)
	}
	if err != nil {
		return nil, err
	}
	return w.toDomain()
}

// Save 更新餘額
func (t *mysqlTx) Save(ctx context.Context, wallet *domain.Wallet) error {
	return t.db.WithContext(ctx).
		Model(&sqlWallet{}).
		Where("id = ?", wallet.ID[:]).
		Update("balance", wallet.Balance).Error
}

// translateError 將等鎖逾時轉成 domain.ErrLockTimeout，其他錯誤原樣回傳
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrLockTimeout) {
		return err
	}
	var mysqlErr *mysqldriver.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == errCodeLockWaitTimeout {
		return fmt.Errorf("%w: %w", domain.ErrLockTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrLockTimeout, err)
	}
	return err
}

var _ usecase.Store = (*Store)(nil)
