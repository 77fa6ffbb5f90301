// Package sqlstore keeps portfolio snapshots in a SQL database through gorm.
//
// Postgres is the production database; sqlite is handy for a local file and for tests.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/etnz/investool"
	"github.com/etnz/investool/date"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SqlitePrefix selects the sqlite driver in a DSN, e.g. "sqlite:portfolios.db".
const SqlitePrefix = "sqlite:"

type portfolioRow struct {
	Name      string          `gorm:"primaryKey;column:name"`
	Currency  string          `gorm:"column:currency"`
	On        string          `gorm:"column:on_date"`
	Total     decimal.Decimal `gorm:"column:total;type:varchar(64)"`
	Holdings  []holdingRow    `gorm:"foreignKey:Portfolio;references:Name"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (portfolioRow) TableName() string { return "portfolios" }

type holdingRow struct {
	ID        uint            `gorm:"primaryKey;column:id"`
	Portfolio string          `gorm:"column:portfolio;index"`
	Position  int             `gorm:"column:position"`
	Ticker    string          `gorm:"column:ticker"`
	Units     int64           `gorm:"column:units"`
	Target    decimal.Decimal `gorm:"column:target;type:varchar(64)"`
	Price     decimal.Decimal `gorm:"column:price;type:varchar(64)"`
	Currency  string          `gorm:"column:currency"`
}

func (holdingRow) TableName() string { return "holdings" }

// Store implements investool.Storage on a gorm database.
type Store struct {
	db *gorm.DB
}

// Open connects to dsn, a postgres DSN or a sqlite file prefixed by SqlitePrefix, and migrates the schema.
func Open(dsn string) (*Store, error) {
	var dialector gorm.Dialector
	if path, ok := strings.CutPrefix(dsn, SqlitePrefix); ok {
		dialector = sqlite.Open(path)
	} else {
		dialector = postgres.Open(dsn)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return New(db)
}

// New returns a Store on db, creating the tables if needed.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&portfolioRow{}, &holdingRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database connections.
func (s *Store) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

// Load implements investool.Storage.
func (s *Store) Load(ctx context.Context, name string) (*investool.Snapshot, error) {
	var row portfolioRow
	err := s.db.WithContext(ctx).
		Preload("Holdings", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		First(&row, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("portfolio %q: %w", name, investool.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	snap := &investool.Snapshot{
		Name:     row.Name,
		Currency: row.Currency,
		Total:    row.Total,
		Holdings: make([]investool.SnapshotHolding, 0, len(row.Holdings)),
	}
	if row.On != "" {
		if snap.On, err = date.Parse(row.On); err != nil {
			return nil, fmt.Errorf("portfolio %q: %w", name, err)
		}
	}
	for _, h := range row.Holdings {
		snap.Holdings = append(snap.Holdings, investool.SnapshotHolding{
			Ticker:   h.Ticker,
			Units:    h.Units,
			Target:   h.Target,
			Price:    h.Price,
			Currency: h.Currency,
		})
	}
	return snap, nil
}

// Save implements investool.Storage. The portfolio and its holdings are replaced in one transaction.
func (s *Store) Save(ctx context.Context, name string, snap *investool.Snapshot, overwrite bool) (bool, error) {
	saved := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&portfolioRow{}).Where("name = ?", name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 && !overwrite {
			return nil
		}
		if err := tx.Where("portfolio = ?", name).Delete(&holdingRow{}).Error; err != nil {
			return err
		}
		row := portfolioRow{
			Name:     name,
			Currency: snap.Currency,
			On:       snap.On.String(),
			Total:    snap.Total,
		}
		if err := tx.Save(&row).Error; err != nil {
			return err
		}
		if len(snap.Holdings) > 0 {
			rows := make([]holdingRow, 0, len(snap.Holdings))
			for i, h := range snap.Holdings {
				rows = append(rows, holdingRow{
					Portfolio: name,
					Position:  i,
					Ticker:    h.Ticker,
					Units:     h.Units,
					Target:    h.Target,
					Price:     h.Price,
					Currency:  h.Currency,
				})
			}
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
		saved = true
		return nil
	})
	return saved, err
}

// Delete removes a stored portfolio.
func (s *Store) Delete(ctx context.Context, name string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("portfolio = ?", name).Delete(&holdingRow{}).Error; err != nil {
			return err
		}
		res := tx.Where("name = ?", name).Delete(&portfolioRow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("portfolio %q: %w", name, investool.ErrNotFound)
		}
		return nil
	})
}

// List returns the names of all stored portfolios, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	names := []string{}
	if err := s.db.WithContext(ctx).Model(&portfolioRow{}).Order("name").Pluck("name", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}
