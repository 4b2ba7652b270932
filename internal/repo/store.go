package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"pharma-backoffice/internal/domain"
)

// SchemaVersion 当前代码能建的 schema 版本
const SchemaVersion = 1

type schemaMeta struct {
	Name      string `gorm:"primaryKey;size:64"`
	Version   int    `gorm:"not null"`
	UpdatedAt time.Time
}

func (schemaMeta) TableName() string { return "schema_meta" }

const schemaName = "backoffice"

// Store 已迁移好的库句柄；由调用方负责关闭
type Store struct {
	db      *gorm.DB
	version int
}

// Open 把库迁移到 version；已是最新则什么都不做，比库里记录的版本低则报 ErrSchemaDowngrade
func Open(ctx context.Context, db *gorm.DB, version int) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: no database handle", domain.ErrStorageUnavailable)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	if version <= 0 {
		version = SchemaVersion
	}

	db = db.WithContext(ctx)
	if err := db.AutoMigrate(&schemaMeta{}); err != nil {
		return nil, fmt.Errorf("%w: migrate schema_meta: %v", domain.ErrStorageUnavailable, err)
	}

	var meta schemaMeta
	err = db.Where("name = ?", schemaName).Take(&meta).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		meta = schemaMeta{Name: schemaName}
	case err != nil:
		return nil, fmt.Errorf("%w: read schema version: %v", domain.ErrStorageUnavailable, err)
	}

	if version < meta.Version {
		return nil, fmt.Errorf("%w: requested %d, stored %d", domain.ErrSchemaDowngrade, version, meta.Version)
	}
	if version > meta.Version {
		if err := migrate(db); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
		}
		meta.Version = version
		if err := db.Save(&meta).Error; err != nil {
			return nil, fmt.Errorf("%w: write schema version: %v", domain.ErrStorageUnavailable, err)
		}
	}
	return &Store{db: db.WithContext(context.Background()), version: meta.Version}, nil
}

// migrate 可重入
func migrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.User{}, &domain.Transaction{}, &domain.Token{})
}

func (s *Store) Version() int { return s.version }

func (s *Store) Users() *UserRepo { return NewUserRepo(s.db) }

func (s *Store) Transactions() *TransactionRepo { return NewTransactionRepo(s.db) }

func (s *Store) Tokens() *TokenRepo { return NewTokenRepo(s.db) }

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// isDupKey 不依赖 gorm.ErrDuplicatedKey，各驱动的唯一冲突文案都认
func isDupKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation")
}

func storageErr(op string, err error) error {
	if isDupKey(err) {
		return fmt.Errorf("%s: %w", op, domain.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}
