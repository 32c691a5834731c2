package ingest

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Module owns the ingestion HTTP surface.
type Module struct {
	service *Service
}

// RegisterRoutes opens the relational mirror, migrates it, and mounts the
// ingestion endpoints over the shared vector index.
func RegisterRoutes(router *gin.Engine, index Index) (*Module, error) {
	db, err := openDatabaseFromEnv()
	if err != nil {
		return nil, err
	}

	service, err := NewServiceFromEnv(db, index)
	if err != nil {
		return nil, err
	}
	if err := service.AutoMigrate(); err != nil {
		return nil, err
	}

	module := &Module{service: service}

	group := router.Group("/ingest")
	group.POST("/notifications", module.handleNotification)
	group.POST("/tables", module.handleTable)
	group.GET("/filings/*object", module.handleFilingURL)

	return module, nil
}

func (m *Module) handleNotification(c *gin.Context) {
	var input NotificationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	notification, err := m.service.IngestNotification(c.Request.Context(), input)
	if err != nil {
		if errors.Is(err, ErrAlreadyProcessed) {
			c.JSON(http.StatusOK, gin.H{"status": "skipped", "notification_id": input.NotificationID})
			return
		}
		log.Printf("ingest: notification %d failed: %v", input.NotificationID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ingestion failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":          "indexed",
		"notification_id": notification.ID,
		"chunk_count":     notification.ChunkCount,
	})
}

func (m *Module) handleTable(c *gin.Context) {
	var input TableInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	windows, err := m.service.IngestTable(c.Request.Context(), input)
	if err != nil {
		log.Printf("ingest: table %d/%d failed: %v", input.NotificationID, input.TableNum, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ingestion failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":          "indexed",
		"notification_id": input.NotificationID,
		"table_num":       input.TableNum,
		"window_count":    windows,
	})
}

// handleFilingURL signs a download link for an archived filing object.
func (m *Module) handleFilingURL(c *gin.Context) {
	object := strings.TrimPrefix(c.Param("object"), "/")
	if object == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "object name is required"})
		return
	}

	signed, err := m.service.FilingURL(c.Request.Context(), object)
	if err != nil {
		if errors.Is(err, ErrArchiveDisabled) {
			c.JSON(http.StatusNotFound, gin.H{"error": "filing archive is not configured"})
			return
		}
		log.Printf("ingest: sign filing url %q failed: %v", object, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not sign filing url"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"object": object, "url": signed})
}
