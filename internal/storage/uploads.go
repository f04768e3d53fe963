package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"docchat/internal/models"
)

// UploadRecord is the persisted metadata row of an ingested file.
type UploadRecord struct {
	ID            string    `db:"id"`
	OwnerID       string    `db:"owner_id"`
	DisplayName   string    `db:"display_name"`
	StoredName    string    `db:"stored_name"`
	MimeType      string    `db:"mime_type"`
	SizeBytes     int64     `db:"size_bytes"`
	TokenCount    int       `db:"token_count"`
	Summary       string    `db:"summary"`
	ExtractedText string    `db:"extracted_text"`
	UploadedAt    time.Time `db:"uploaded_at"`
}

// UploadStore keeps uploaded bytes under baseDir and mirrors their metadata
// and text chunks into SQL so the registry can be restored after a restart.
// db may be nil, in which case only bytes are kept.
type UploadStore struct {
	db      *sqlx.DB
	baseDir string
}

func NewUploadStore(db *sqlx.DB, baseDir string) *UploadStore {
	return &UploadStore{db: db, baseDir: baseDir}
}

// Prepare reserves a unique destination for a new upload of originalName and
// creates the owner's directory.
func (s *UploadStore) Prepare(ownerID, originalName string) (storedName, path string, err error) {
	dir := filepath.Join(s.baseDir, ownerDir(ownerID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create upload directory: %w", err)
	}
	storedName = uuid.NewString() + strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	return storedName, filepath.Join(dir, storedName), nil
}

// Discard deletes bytes written for an upload that never became a record.
func (s *UploadStore) Discard(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Record inserts the metadata row and the file's chunks in one transaction.
func (s *UploadStore) Record(ctx context.Context, file models.IngestedFile, chunks []string) error {
	if s.db == nil {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upload tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, tx.Rebind(`INSERT INTO uploads
		(id, owner_id, display_name, stored_name, mime_type, size_bytes, token_count, summary, extracted_text, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		file.ID, file.OwnerID, file.DisplayName, file.StoredName, file.MimeType,
		file.SizeBytes, file.TokenCount, file.Summary, file.ExtractedText, file.UploadedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert upload: %w", err)
	}
	insertChunk := tx.Rebind(`INSERT INTO upload_chunks (upload_id, chunk_index, content) VALUES (?, ?, ?)`)
	for i, chunk := range chunks {
		if _, err := tx.ExecContext(ctx, insertChunk, file.ID, i, chunk); err != nil {
			return fmt.Errorf("insert chunk %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upload tx: %w", err)
	}
	return nil
}

// Remove deletes the stored bytes and the metadata rows of file. The owner's
// directory is pruned once empty.
func (s *UploadStore) Remove(ctx context.Context, file models.IngestedFile) error {
	var errs []error
	if file.Path != "" {
		if err := s.Discard(file.Path); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", file.StoredName, err))
		}
		dir := filepath.Dir(file.Path)
		if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
			_ = os.Remove(dir)
		}
	}
	if s.db != nil {
		if _, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM upload_chunks WHERE upload_id = ?`), file.ID); err != nil {
			errs = append(errs, fmt.Errorf("delete chunks: %w", err))
		}
		if _, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM uploads WHERE id = ?`), file.ID); err != nil {
			errs = append(errs, fmt.Errorf("delete upload: %w", err))
		}
	}
	return errors.Join(errs...)
}

const selectUploads = `SELECT id, owner_id, display_name, stored_name, mime_type,
	size_bytes, token_count, summary, extracted_text, uploaded_at FROM uploads`

// Load returns every recorded upload, oldest first, with Path pointing at the
// stored bytes. It returns nothing when the store has no database.
func (s *UploadStore) Load(ctx context.Context) ([]models.IngestedFile, error) {
	if s.db == nil {
		return nil, nil
	}
	var recs []UploadRecord
	if err := s.db.SelectContext(ctx, &recs, selectUploads+` ORDER BY uploaded_at, id`); err != nil {
		return nil, fmt.Errorf("select uploads: %w", err)
	}
	files := make([]models.IngestedFile, 0, len(recs))
	for _, rec := range recs {
		files = append(files, s.toFile(rec))
	}
	return files, nil
}

func (s *UploadStore) toFile(rec UploadRecord) models.IngestedFile {
	return models.IngestedFile{
		ID:            rec.ID,
		OwnerID:       rec.OwnerID,
		DisplayName:   rec.DisplayName,
		StoredName:    rec.StoredName,
		Path:          filepath.Join(s.baseDir, ownerDir(rec.OwnerID), rec.StoredName),
		MimeType:      rec.MimeType,
		ExtractedText: rec.ExtractedText,
		Summary:       rec.Summary,
		TokenCount:    rec.TokenCount,
		SizeBytes:     rec.SizeBytes,
		UploadedAt:    rec.UploadedAt,
	}
}

// Chunks returns the stored chunks of fileID in order.
func (s *UploadStore) Chunks(ctx context.Context, fileID string) ([]string, error) {
	if s.db == nil {
		return nil, errors.New("upload store has no database")
	}
	var chunks []string
	if err := s.db.SelectContext(ctx, &chunks, s.db.Rebind(`SELECT content FROM upload_chunks
		WHERE upload_id = ? ORDER BY chunk_index`), fileID); err != nil {
		return nil, fmt.Errorf("select chunks: %w", err)
	}
	return chunks, nil
}

// ownerDir maps an arbitrary user id onto a single safe path element.
func ownerDir(ownerID string) string {
	var sb strings.Builder
	for _, r := range ownerID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	if sb.Len() == 0 {
		return "_"
	}
	return sb.String()
}
