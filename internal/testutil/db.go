// Package testutil 测试用的内存数据库与数据构造
package testutil

import (
	"KoraChat/internal/model"
	"KoraChat/internal/pkg/database"
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB 每个测试独立的内存 SQLite，单连接避免内存库在连接间不可见
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := database.Open(sqlite.Open(":memory:"))
	require.NoError(t, err)
	db.Logger = db.Logger.LogMode(logger.Silent)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// SeedUsers 写入用户投影
func SeedUsers(t testing.TB, db *gorm.DB, users ...*model.User) {
	t.Helper()
	for _, u := range users {
		require.NoError(t, db.WithContext(context.Background()).Create(u).Error)
	}
}

// SeedListing 写入房源投影
func SeedListing(t testing.TB, db *gorm.DB, listing *model.Listing) {
	t.Helper()
	require.NoError(t, db.Create(listing).Error)
}

// SeedInquiry 写入咨询投影
func SeedInquiry(t testing.TB, db *gorm.DB, inquiry *model.Inquiry) {
	t.Helper()
	require.NoError(t, db.Create(inquiry).Error)
}
