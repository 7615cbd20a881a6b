package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type serviceRow struct {
	ID       uint    `gorm:"primaryKey"`
	Position int     `gorm:"not null;uniqueIndex"`
	Name     string  `gorm:"not null"`
	Price    float64 `gorm:"not null"`
}

func (serviceRow) TableName() string { return "catalog_services" }

type projectRow struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"not null"`
}

func (projectRow) TableName() string { return "catalog_projects" }

// SQLStore persists the catalog in a relational database through gorm.
type SQLStore struct {
	db *gorm.DB
}

// OpenSQLite opens (or creates) an SQLite database at dsn and migrates the catalog tables.
func OpenSQLite(dsn string) (*SQLStore, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", dsn, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("access sql handle: %w", err)
	}
	// SQLite serialises writers anyway.
	sqlDB.SetMaxOpenConns(1)

	return NewSQLStore(db)
}

// NewSQLStore wraps an existing gorm handle and migrates the catalog tables.
func NewSQLStore(db *gorm.DB) (*SQLStore, error) {
	if err := db.AutoMigrate(&projectRow{}, &serviceRow{}); err != nil {
		return nil, fmt.Errorf("migrate catalog tables: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// Load reads the catalog. An empty database yields ErrNothingPersisted.
func (s *SQLStore) Load(ctx context.Context) (Catalog, error) {
	var project projectRow
	if err := s.db.WithContext(ctx).First(&project).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Catalog{}, ErrNothingPersisted
		}
		return Catalog{}, fmt.Errorf("load project: %w", err)
	}

	var rows []serviceRow
	if err := s.db.WithContext(ctx).Order("position").Find(&rows).Error; err != nil {
		return Catalog{}, fmt.Errorf("load services: %w", err)
	}

	c := Catalog{ProjectName: project.Name, Services: make([]Item, 0, len(rows))}
	for _, row := range rows {
		c.Services = append(c.Services, Item{Name: row.Name, Price: row.Price})
	}
	return c, nil
}

// Save replaces the stored catalog in a single transaction.
func (s *SQLStore) Save(ctx context.Context, c Catalog) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&serviceRow{}).Error; err != nil {
			return fmt.Errorf("clear services: %w", err)
		}
		if err := tx.Where("1 = 1").Delete(&projectRow{}).Error; err != nil {
			return fmt.Errorf("clear project: %w", err)
		}
		if err := tx.Create(&projectRow{ID: 1, Name: c.ProjectName}).Error; err != nil {
			return fmt.Errorf("store project: %w", err)
		}
		if len(c.Services) == 0 {
			return nil
		}

		rows := make([]serviceRow, len(c.Services))
		for i, item := range c.Services {
			rows[i] = serviceRow{Position: i, Name: item.Name, Price: item.Price}
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("store services: %w", err)
		}
		return nil
	})
}

// Close releases the underlying connection pool.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
