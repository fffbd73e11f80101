package gormstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"apex/internal/store"
	storemodel "apex/internal/store/model"
	"apex/internal/synthesis"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const defaultListLimit = 50

// GormStore keeps the synthesis audit log in SQLite.
type GormStore struct {
	db *gorm.DB
}

var _ store.AuditRepository = (*GormStore)(nil)

// NewGormStore opens (or creates) the database at path and migrates it.
func NewGormStore(path string) (*GormStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: 审计日志路径不能为空")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&storemodel.SynthesisLogModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL：少量并发读，写入串行
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &GormStore{db: db}, nil
}

func (s *GormStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// RecordSynthesis implements synthesis.Auditor.
func (s *GormStore) RecordSynthesis(ctx context.Context, e synthesis.AuditEntry) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("gorm store 未初始化")
	}
	var parsed datatypes.JSON
	if e.Parsed != nil {
		raw, err := json.Marshal(e.Parsed)
		if err != nil {
			return fmt.Errorf("marshal parsed result: %w", err)
		}
		parsed = datatypes.JSON(raw)
	}
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	row := storemodel.SynthesisLogModel{
		ID:            uuid.NewString(),
		SessionID:     strings.TrimSpace(e.SessionID),
		Purpose:       e.Purpose,
		Provider:      e.Provider,
		Prompt:        e.Prompt,
		Response:      e.Response,
		Error:         e.Error,
		Parsed:        parsed,
		DurationMS:    e.Duration.Milliseconds(),
		CreatedAtUnix: created.UnixMilli(),
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *GormStore) ListSynthesis(ctx context.Context, sessionID string, limit int) ([]storemodel.SynthesisLogModel, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store 未初始化")
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	q := s.db.WithContext(ctx).Model(&storemodel.SynthesisLogModel{})
	if id := strings.TrimSpace(sessionID); id != "" {
		q = q.Where("session_id = ?", id)
	}
	var rows []storemodel.SynthesisLogModel
	if err := q.Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
