package repository

import "github.com/gfurlani/fotocatalogo/models"

// ImageRecordRepository is the catalog persistence surface the pipeline
// consumes. The worker never touches gorm directly.
type ImageRecordRepository interface {
	GetByFilename(filename string) (*models.ImageRecord, error)
	Save(record *models.ImageRecord) error
	ExistingFilenames() (map[string]bool, error)
	ErroredFilenames() (map[string]bool, error)
	MarkError(filename, filepath string, procErr error) error
	Count() (int64, error)
}
