package services

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/isdelr/insight-board-be/internal/models"
)

// UploadServiceProvider defines the interface for the upload staging area.
type UploadServiceProvider interface {
	SaveUpload(userID int64, filename string, src io.Reader) (models.Upload, error)
	GetUploadByID(id string) (models.Upload, error)
	PruneOlderThan(cutoff time.Time) (int, error)
}

// UploadService stages uploaded data files on disk for the external analysis
// process and keeps a ledger of what is staged. The staging area is not
// durable storage: the janitor prunes entries past their retention.
type UploadService struct {
	db         *sql.DB
	events     EventServiceProvider
	uploadPath string
}

// NewUploadService creates a new UploadService.
func NewUploadService(db *sql.DB, events EventServiceProvider, uploadPath string) *UploadService {
	if err := os.MkdirAll(uploadPath, 0755); err != nil {
		log.Error().Err(err).Str("path", uploadPath).Msg("Failed to create upload staging directory")
	}
	return &UploadService{
		db:         db,
		events:     events,
		uploadPath: uploadPath,
	}
}

// SaveUpload persists an uploaded file to the staging area and records it in
// the ledger. The stored name is prefixed with a millisecond timestamp so
// repeated uploads of the same filename never collide.
func (s *UploadService) SaveUpload(userID int64, filename string, src io.Reader) (models.Upload, error) {
	// Strip any path components a hostile client put in the filename.
	base := filepath.Base(filename)
	if base == "." || base == string(os.PathSeparator) {
		base = "upload"
	}

	upload := models.Upload{
		ID:         uuid.New().String(),
		UserID:     userID,
		Filename:   base,
		StoredName: fmt.Sprintf("%d-%s", time.Now().UnixMilli(), base),
	}

	dstPath := filepath.Join(s.uploadPath, upload.StoredName)
	dst, err := os.Create(dstPath)
	if err != nil {
		return models.Upload{}, fmt.Errorf("could not create staged file: %w", err)
	}

	size, err := io.Copy(dst, src)
	dst.Close()
	if err != nil {
		os.Remove(dstPath) // Clean up partial file
		return models.Upload{}, fmt.Errorf("could not write staged file: %w", err)
	}
	upload.Size = size

	stmt, err := s.db.Prepare("INSERT INTO uploads (id, user_id, filename, stored_name, size, created_at) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		os.Remove(dstPath)
		return models.Upload{}, err
	}
	defer stmt.Close()

	if _, err := stmt.Exec(upload.ID, upload.UserID, upload.Filename, upload.StoredName, upload.Size, time.Now()); err != nil {
		os.Remove(dstPath)
		return models.Upload{}, err
	}

	s.events.CreateEvent("upload.received", "info", fmt.Sprintf("File '%s' staged for analysis.", upload.Filename), &userID)
	return upload, nil
}

// GetUploadByID retrieves a single ledger entry.
func (s *UploadService) GetUploadByID(id string) (models.Upload, error) {
	var upload models.Upload
	row := s.db.QueryRow("SELECT id, user_id, filename, stored_name, size, created_at FROM uploads WHERE id = ?", id)
	err := row.Scan(&upload.ID, &upload.UserID, &upload.Filename, &upload.StoredName, &upload.Size, &upload.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Upload{}, ErrUploadNotFound
		}
		return models.Upload{}, err
	}
	return upload, nil
}

// PruneOlderThan removes staged files and their ledger rows created before
// the cutoff. Returns how many entries were pruned.
func (s *UploadService) PruneOlderThan(cutoff time.Time) (int, error) {
	rows, err := s.db.Query("SELECT id, stored_name FROM uploads WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	type stale struct {
		id         string
		storedName string
	}
	var entries []stale
	for rows.Next() {
		var e stale
		if err := rows.Scan(&e.id, &e.storedName); err != nil {
			return 0, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	pruned := 0
	for _, e := range entries {
		path := filepath.Join(s.uploadPath, e.storedName)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", path).Msg("Could not delete staged file")
			continue
		}
		if _, err := s.db.Exec("DELETE FROM uploads WHERE id = ?", e.id); err != nil {
			return pruned, err
		}
		pruned++
	}

	if pruned > 0 {
		s.events.CreateEvent("upload.prune", "info", fmt.Sprintf("Pruned %d staged upload(s) past retention.", pruned), nil)
	}
	return pruned, nil
}
