package rules

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/contentsafety/internal/domain/safety"
	"github.com/yungbote/contentsafety/internal/platform/db"
	"github.com/yungbote/contentsafety/internal/platform/logger"
)

// BannedPhraseRuleRecord is the table-backed form of a banned-phrase rule.
type BannedPhraseRuleRecord struct {
	ID         uint   `gorm:"primaryKey"`
	Pattern    string `gorm:"not null"`
	Suggestion string
	Position   int  `gorm:"not null;default:0;index"`
	Enabled    bool `gorm:"not null;default:true"`
	UpdatedAt  time.Time
}

func (BannedPhraseRuleRecord) TableName() string { return "banned_phrase_rules" }

// DBSource reads enabled rules ordered by position. The connection is opened
// lazily so an unreachable database only costs the failed attempt.
type DBSource struct {
	dsn string
	log *logger.Logger

	mu sync.Mutex
	db *gorm.DB
}

func NewDBSource(dsn string, log *logger.Logger) *DBSource {
	return &DBSource{dsn: strings.TrimSpace(dsn), log: logger.OrNop(log).With("service", "DBRuleSource")}
}

// NewDBSourceWithDB wraps an already open connection.
func NewDBSourceWithDB(gdb *gorm.DB, log *logger.Logger) *DBSource {
	s := NewDBSource("", log)
	s.db = gdb
	return s
}

func (s *DBSource) Name() string {
	if i := strings.Index(s.dsn, "://"); i > 0 {
		return "db:" + s.dsn[:i]
	}
	return "db"
}

func (s *DBSource) Kind() string { return "db" }

func (s *DBSource) TryLoad(ctx context.Context) ([]safety.BannedPhraseRule, error) {
	gdb, err := s.conn()
	if err != nil {
		return nil, err
	}
	var rows []BannedPhraseRuleRecord
	err = gdb.WithContext(ctx).
		Where("enabled = ?", true).
		Order("position asc").
		Order("id asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query banned_phrase_rules: %w", err)
	}
	out := make([]safety.BannedPhraseRule, 0, len(rows))
	for _, r := range rows {
		if strings.TrimSpace(r.Pattern) == "" {
			s.log.Warn("skipped rule row with empty pattern", "id", r.ID)
			continue
		}
		out = append(out, safety.BannedPhraseRule{Pattern: r.Pattern, Suggestion: r.Suggestion})
	}
	if len(out) == 0 {
		return nil, ErrNoRules
	}
	return out, nil
}

// Migrate creates or updates the rules table.
func (s *DBSource) Migrate() error {
	gdb, err := s.conn()
	if err != nil {
		return err
	}
	return gdb.AutoMigrate(&BannedPhraseRuleRecord{})
}

func (s *DBSource) conn() (*gorm.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db, nil
	}
	gdb, err := db.Open(s.dsn, s.log)
	if err != nil {
		return nil, err
	}
	s.db = gdb
	return gdb, nil
}

func (s *DBSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	s.db = nil
	return sqlDB.Close()
}
