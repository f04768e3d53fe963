package ingest

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"docchat/internal/models"
	"docchat/internal/service/digest"
	"docchat/internal/service/extract"
)

// Upload describes one incoming file. Save writes its bytes to the given path.
type Upload struct {
	OriginalName string
	MimeType     string
	Size         int64
	Save         func(path string) error
}

type TextExtractor interface {
	Extract(ctx context.Context, path, mimeType string) (string, error)
}

type FileStore interface {
	Prepare(ownerID, originalName string) (storedName, path string, err error)
	Discard(path string) error
	Record(ctx context.Context, file models.IngestedFile, chunks []string) error
}

type FileRegistry interface {
	Store(ownerID string, file models.IngestedFile) models.IngestedFile
}

// Service runs the upload pipeline: save, extract, summarize, register.
type Service struct {
	extractor TextExtractor
	store     FileStore
	registry  FileRegistry
	chunkSize int
}

func NewService(extractor TextExtractor, store FileStore, registry FileRegistry) *Service {
	return &Service{
		extractor: extractor,
		store:     store,
		registry:  registry,
		chunkSize: digest.DefaultChunkSize,
	}
}

// Ingest stores one upload for userID. On any failure the saved bytes are
// removed and no record is created.
func (s *Service) Ingest(ctx context.Context, userID string, up Upload) (*models.IngestedFile, error) {
	displayName := filepath.Base(up.OriginalName)
	if _, err := extract.Detect(displayName, up.MimeType); err != nil {
		return nil, err
	}

	storedName, path, err := s.store.Prepare(userID, displayName)
	if err != nil {
		return nil, fmt.Errorf("prepare upload: %w", err)
	}
	if err := up.Save(path); err != nil {
		s.discard(path)
		return nil, fmt.Errorf("save upload: %w", err)
	}

	text, err := s.extractor.Extract(ctx, path, up.MimeType)
	if err != nil {
		s.discard(path)
		return nil, err
	}

	stored := s.registry.Store(userID, models.IngestedFile{
		DisplayName:   displayName,
		StoredName:    storedName,
		Path:          path,
		MimeType:      up.MimeType,
		ExtractedText: text,
		Summary:       digest.Summarize(text),
		TokenCount:    digest.EstimateTokens(text),
		SizeBytes:     up.Size,
	})

	if err := s.store.Record(ctx, stored, digest.Chunk(text, s.chunkSize)); err != nil {
		log.Printf("ingest: record metadata for %s: %v", stored.ID, err)
	}
	return &stored, nil
}

func (s *Service) discard(path string) {
	if err := s.store.Discard(path); err != nil {
		log.Printf("ingest: discard %s: %v", path, err)
	}
}
