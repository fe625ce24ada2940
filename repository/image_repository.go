package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gfurlani/fotocatalogo/models"
)

// ImageRepository handles database operations for ImageRecord entities.
type ImageRepository struct {
	DB *gorm.DB
}

// NewImageRepository creates a new instance of ImageRepository.
func NewImageRepository(db *gorm.DB) *ImageRepository {
	return &ImageRepository{DB: db}
}

// GetByFilename retrieves a record by its filename key. Returns
// gorm.ErrRecordNotFound when the file was never processed.
func (r *ImageRepository) GetByFilename(filename string) (*models.ImageRecord, error) {
	var record models.ImageRecord
	err := r.DB.Where("filename = ?", filename).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get record for %s: %w", filename, err)
	}
	return &record, nil
}

// Save upserts the full record. Reprocessing replaces every column, so a
// plain ON CONFLICT update of all fields is the correct merge here; the
// field-level preserve policy has already run inside the pipeline.
func (r *ImageRepository) Save(record *models.ImageRecord) error {
	err := r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "filename"}},
		UpdateAll: true,
	}).Create(record).Error
	if err != nil {
		return fmt.Errorf("failed to save record for %s: %w", record.Filename, err)
	}
	return nil
}

// ExistingFilenames returns the set of filenames already in the catalog,
// used by the new_only processing mode.
func (r *ImageRepository) ExistingFilenames() (map[string]bool, error) {
	var names []string
	if err := r.DB.Model(&models.ImageRecord{}).Pluck("filename", &names).Error; err != nil {
		return nil, fmt.Errorf("failed to list catalog filenames: %w", err)
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set, nil
}

// ErroredFilenames returns filenames whose last attempt ended in ERROR,
// used by the new_plus_errors processing mode.
func (r *ImageRepository) ErroredFilenames() (map[string]bool, error) {
	var names []string
	err := r.DB.Model(&models.ImageRecord{}).
		Where("sync_state = ?", models.SyncStateError).
		Pluck("filename", &names).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list errored filenames: %w", err)
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set, nil
}

// MarkError records a fatal processing failure for a file so that
// new_plus_errors can find it again.
func (r *ImageRepository) MarkError(filename, filepath string, procErr error) error {
	now := time.Now().Unix()
	msg := procErr.Error()
	record := models.ImageRecord{
		Filename:      filename,
		Filepath:      filepath,
		SyncState:     models.SyncStateError,
		ProcessError:  &msg,
		ProcessedDate: &now,
	}
	err := r.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "filename"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"filepath", "sync_state", "process_error", "processed_date",
		}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to mark error for %s: %w", filename, err)
	}
	return nil
}

// Count returns the number of catalog records.
func (r *ImageRepository) Count() (int64, error) {
	var n int64
	if err := r.DB.Model(&models.ImageRecord{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}
