package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type slotRow struct {
	Bucket    string    `gorm:"primaryKey;size:191"`
	Payload   []byte    `gorm:"type:longblob;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (slotRow) TableName() string { return "state" }

// MySQL keeps slots in a state table managed through gorm.
type MySQL struct {
	db *gorm.DB
}

func NewMySQL(ctx context.Context, dsn string) (*MySQL, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := db.WithContext(ctx).AutoMigrate(&slotRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate state table: %w", err)
	}
	return &MySQL{db: db}, nil
}

func (m *MySQL) Driver() Driver { return DriverMySQL }

func (m *MySQL) Read(ctx context.Context, key string) ([]byte, error) {
	var row slotRow
	err := m.db.WithContext(ctx).Where("bucket = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select state: %w", err)
	}
	return row.Payload, nil
}

func (m *MySQL) Write(ctx context.Context, key string, data []byte) error {
	row := slotRow{Bucket: key, Payload: data, UpdatedAt: time.Now().UTC()}
	err := m.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "bucket"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert state: %w", err)
	}
	return nil
}

func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
