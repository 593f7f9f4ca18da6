package store

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/san-kum/fieldtrace/internal/fltrace"
	"github.com/san-kum/fieldtrace/internal/geometry"
)

// LineRecord is one traced field line in the database.
type LineRecord struct {
	ID        uint   `gorm:"primarykey"`
	RunID     string `gorm:"index"`
	Model     string
	Scheme    string
	LineIndex int
	Cause     string
	NumPoints int
	Length    float64
	CreatedAt time.Time

	Points []PointRecord `gorm:"foreignKey:LineRecordID"`
}

// PointRecord is one traced position of a line.
type PointRecord struct {
	ID           uint `gorm:"primarykey"`
	LineRecordID uint `gorm:"index"`
	PointIndex   int
	X            float64
	Y            float64
	Z            float64
}

// DB records traced sets into a sqlite database.
type DB struct {
	db *gorm.DB
}

// OpenDB opens (or creates) a sqlite database at the given path and
// migrates the schema.
func OpenDB(path string) (*DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:          logger.Default.LogMode(logger.Silent),
		CreateBatchSize: 500,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}
	if err := db.AutoMigrate(&LineRecord{}, &PointRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Close releases the underlying connection.
func (d *DB) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// RecordSet inserts every line of the set under the given run id.
func (d *DB) RecordSet(runID, model, scheme string, set *fltrace.FieldLineSet) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		for i, line := range set.Lines {
			record := LineRecord{
				RunID:     runID,
				Model:     model,
				Scheme:    scheme,
				LineIndex: i,
				Cause:     line.Cause.String(),
				NumPoints: line.NumPoints(),
				Length:    line.Length(),
				Points:    make([]PointRecord, len(line.Positions)),
			}
			for j, p := range line.Positions {
				record.Points[j] = PointRecord{
					PointIndex: j,
					X:          p[geometry.X],
					Y:          p[geometry.Y],
					Z:          p[geometry.Z],
				}
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Lines returns the line records of a run, without their points.
func (d *DB) Lines(runID string) ([]LineRecord, error) {
	var lines []LineRecord
	err := d.db.Where("run_id = ?", runID).Order("line_index").Find(&lines).Error
	return lines, err
}

// Points returns the point records of a line in trace order.
func (d *DB) Points(lineID uint) ([]PointRecord, error) {
	var points []PointRecord
	err := d.db.Where("line_record_id = ?", lineID).Order("point_index").Find(&points).Error
	return points, err
}
