package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"kapchat_back/storage"
	"kapchat_back/vectorstore"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrAlreadyProcessed marks input at or below the ingestion cursor.
var ErrAlreadyProcessed = errors.New("ingest: notification already processed")

// ErrArchiveDisabled marks filing-archive operations on a service whose
// MINIO_* configuration is absent.
var ErrArchiveDisabled = errors.New("ingest: filing archive is not configured")

const filingURLExpiry = 15 * time.Minute

// Index is the write-side slice of the vector store the ingester needs.
type Index interface {
	Add(ctx context.Context, collection string, docs []vectorstore.Document) error
	EnsureCollection(ctx context.Context, name string) error
}

// Service writes disclosures to the relational mirror and the vector
// index, keeping both in step, and archives raw table exports.
type Service struct {
	db      *gorm.DB
	index   Index
	filings *storage.FilingStorage
	chunker *chunker

	contentCollection string
	tableCollection   string
	contentCursor     cursor
	tableCursor       cursor
}

// NewServiceFromEnv constructs the ingestion service over an open
// database handle and the injected vector index.
func NewServiceFromEnv(db *gorm.DB, index Index) (*Service, error) {
	if db == nil {
		return nil, errors.New("ingest: database connection is required")
	}
	if index == nil {
		return nil, errors.New("ingest: vector index is required")
	}

	filings, err := storage.NewFilingStorageFromEnv()
	if err != nil {
		return nil, err
	}
	if filings == nil {
		log.Printf("ingest: filing archive disabled (MINIO_* not configured)")
	}

	minWords := 300
	if raw := strings.TrimSpace(os.Getenv("INGEST_CHUNK_MIN_WORDS")); raw != "" {
		if parsed, convErr := strconv.Atoi(raw); convErr == nil && parsed > 0 {
			minWords = parsed
		}
	}
	maxWords := 320
	if raw := strings.TrimSpace(os.Getenv("INGEST_CHUNK_MAX_WORDS")); raw != "" {
		if parsed, convErr := strconv.Atoi(raw); convErr == nil && parsed > minWords {
			maxWords = parsed
		}
	}

	return &Service{
		db:                db,
		index:             index,
		filings:           filings,
		chunker:           newChunker(minWords, maxWords),
		contentCollection: getEnvDefault("CHROMA_CONTENT_COLLECTION", "content"),
		tableCollection:   getEnvDefault("CHROMA_TABLE_COLLECTION", "table"),
		contentCursor:     cursor{path: getEnvDefault("LAST_PROCESSED_PATH", "data/last_processed_content.json")},
		tableCursor:       cursor{path: getEnvDefault("LAST_PROCESSED_TABLE_PATH", "data/last_processed_table.json")},
	}, nil
}

func getEnvDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value != "" {
		return value
	}
	return fallback
}

func (s *Service) AutoMigrate() error {
	if s.db == nil {
		return errors.New("ingest: database connection is not configured")
	}
	return s.db.AutoMigrate(&Notification{}, &ContentChunk{}, &TableChunk{})
}

// NotificationInput is one disclosure ready for indexing: translated,
// cleaned text plus the portal metadata.
type NotificationInput struct {
	NotificationID int64  `json:"notification_id" binding:"required"`
	Title          string `json:"title" binding:"required"`
	History        string `json:"history"`
	Period         string `json:"period"`
	Content        string `json:"content"`
}

// IngestNotification chunks the disclosure text and writes the title
// record plus body chunks to both stores. Ids at or below the content
// cursor return ErrAlreadyProcessed.
func (s *Service) IngestNotification(ctx context.Context, input NotificationInput) (*Notification, error) {
	if input.NotificationID <= 0 {
		return nil, errors.New("ingest: notification id must be positive")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, errors.New("ingest: title is required")
	}

	if lastID, ok, err := s.contentCursor.load(); err != nil {
		log.Printf("ingest: content cursor unreadable: %v", err)
	} else if ok && input.NotificationID <= lastID {
		return nil, ErrAlreadyProcessed
	}

	bodyChunks := s.chunker.split(input.Content)
	totalChunks := len(bodyChunks)

	if err := s.index.EnsureCollection(ctx, s.contentCollection); err != nil {
		return nil, err
	}

	history := strings.TrimSpace(input.History)
	period := strings.TrimSpace(input.Period)

	docs, records := buildContentDocs(input.NotificationID, title, history, period, bodyChunks)

	notification := Notification{
		ID:         input.NotificationID,
		Title:      title,
		History:    history,
		Period:     period,
		ChunkCount: totalChunks,
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&notification).Error; err != nil {
			return err
		}
		if err := tx.Create(&records).Error; err != nil {
			return err
		}
		return s.index.Add(ctx, s.contentCollection, docs)
	}); err != nil {
		return nil, err
	}

	if err := s.contentCursor.save(input.NotificationID); err != nil {
		log.Printf("ingest: save content cursor failed: %v", err)
	}

	log.Printf("ingest: indexed notification %d (%d chunks)", input.NotificationID, totalChunks)
	return &notification, nil
}

// buildContentDocs assembles the vector documents and mirror rows for one
// notification. The title record takes chunk index 0 with is_title set
// and id "<notification_id>_0"; body chunks run 1..n with ids
// "<notification_id>_<n>" and total_chunks equal to the body count.
func buildContentDocs(notificationID int64, title, history, period string, bodyChunks []string) ([]vectorstore.Document, []ContentChunk) {
	totalChunks := len(bodyChunks)

	metadata := func(chunkIndex int, isTitle bool, content string) map[string]interface{} {
		return map[string]interface{}{
			"title":           title,
			"content":         content,
			"is_title":        isTitle,
			"notification_id": notificationID,
			"history":         history,
			"period":          period,
			"chunk_index":     chunkIndex,
			"total_chunks":    totalChunks,
		}
	}

	docs := make([]vectorstore.Document, 0, totalChunks+1)
	records := make([]ContentChunk, 0, totalChunks+1)

	// The title record is the document itself; body chunks carry the text.
	titleID := fmt.Sprintf("%d_0", notificationID)
	docs = append(docs, vectorstore.Document{
		ID:       titleID,
		Text:     title,
		Metadata: metadata(0, true, ""),
	})
	records = append(records, ContentChunk{
		NotificationID: notificationID,
		ChunkIndex:     0,
		IsTitle:        true,
		TotalChunks:    totalChunks,
		Content:        title,
		VectorID:       titleID,
	})

	for i, chunk := range bodyChunks {
		chunkIndex := i + 1
		docID := fmt.Sprintf("%d_%d", notificationID, chunkIndex)
		docs = append(docs, vectorstore.Document{
			ID:       docID,
			Text:     chunk,
			Metadata: metadata(chunkIndex, false, chunk),
		})
		records = append(records, ContentChunk{
			NotificationID: notificationID,
			ChunkIndex:     chunkIndex,
			IsTitle:        false,
			TotalChunks:    totalChunks,
			Content:        chunk,
			VectorID:       docID,
		})
	}
	return docs, records
}

// FilingURL signs a time-limited download link for an archived filing
// object.
func (s *Service) FilingURL(ctx context.Context, objectName string) (string, error) {
	if s.filings == nil {
		return "", ErrArchiveDisabled
	}
	return s.filings.PresignedURL(ctx, objectName, filingURLExpiry)
}

// TableInput is one extracted financial table for a notification.
type TableInput struct {
	NotificationID int64         `json:"notification_id" binding:"required"`
	TableNum       int           `json:"table_num" binding:"required"`
	Rows           []TableRecord `json:"rows" binding:"required"`
}

// IngestTable windows the table rows, indexes each window as a serialized
// record list, and archives the raw table when the filing store is
// configured. Returns the number of windows written.
func (s *Service) IngestTable(ctx context.Context, input TableInput) (int, error) {
	if input.NotificationID <= 0 {
		return 0, errors.New("ingest: notification id must be positive")
	}
	if input.TableNum <= 0 {
		return 0, errors.New("ingest: table number must be positive")
	}
	if len(input.Rows) == 0 {
		return 0, errors.New("ingest: table rows are required")
	}

	if err := s.index.EnsureCollection(ctx, s.tableCollection); err != nil {
		return 0, err
	}

	archiveObject := ""
	if s.filings != nil {
		raw, err := encodeRecords(input.Rows)
		if err != nil {
			return 0, err
		}
		name := fmt.Sprintf("%d_table_%d.json", input.NotificationID, input.TableNum)
		archiveObject, err = s.filings.Archive(ctx, input.NotificationID, name, []byte(raw), "application/json")
		if err != nil {
			// Archival is best effort; indexing still proceeds.
			log.Printf("ingest: archive table %d/%d failed: %v", input.NotificationID, input.TableNum, err)
			archiveObject = ""
		}
	}

	windows := windowRows(input.Rows, tableHeaderRows, tableWindowRows)
	docs := make([]vectorstore.Document, 0, len(windows))
	records := make([]TableChunk, 0, len(windows))
	for i, window := range windows {
		chunkIndex := i + 1
		encoded, err := encodeRecords(window)
		if err != nil {
			return 0, err
		}
		docID := fmt.Sprintf("%d_table_%d_chunk_%d", input.NotificationID, input.TableNum, chunkIndex)
		docs = append(docs, vectorstore.Document{
			ID:   docID,
			Text: encoded,
			Metadata: map[string]interface{}{
				"notification_id": input.NotificationID,
				"table_num":       input.TableNum,
				"chunk_index":     chunkIndex,
				"content_type":    "table_json",
			},
		})
		records = append(records, TableChunk{
			NotificationID: input.NotificationID,
			TableNum:       input.TableNum,
			ChunkIndex:     chunkIndex,
			Rows:           datatypes.JSON([]byte(encoded)),
			VectorID:       docID,
			ArchiveObject:  archiveObject,
		})
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&records).Error; err != nil {
			return err
		}
		return s.index.Add(ctx, s.tableCollection, docs)
	}); err != nil {
		return 0, err
	}

	if err := s.tableCursor.save(input.NotificationID); err != nil {
		log.Printf("ingest: save table cursor failed: %v", err)
	}

	log.Printf("ingest: indexed table %d/%d (%d windows)", input.NotificationID, input.TableNum, len(windows))
	return len(windows), nil
}
