package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/mikey/mail-threat-analyzer/internal/core"
	"go.uber.org/zap"
)

const (
	uploadField        = "emailFile"
	defaultRecentLimit = 10
)

// multipartOverhead leaves room for boundaries and part headers
const multipartOverhead = 64 * 1024

func errorJSON(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"message": message})
}

func (s *Server) stats(c *gin.Context) {
	stats, err := s.service.Stats(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		errorJSON(c, http.StatusInternalServerError, "Failed to fetch statistics")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) recent(c *gin.Context) {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		limit = defaultRecentLimit
	}

	records, err := s.service.Recent(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		errorJSON(c, http.StatusInternalServerError, "Failed to fetch recent analyses")
		return
	}
	if records == nil {
		records = []*core.AnalysisRecord{}
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) analyze(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUploadBytes+multipartOverhead)

	header, err := c.FormFile(uploadField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			errorJSON(c, http.StatusRequestEntityTooLarge, s.tooLargeMessage())
			return
		}
		errorJSON(c, http.StatusBadRequest, "No file uploaded")
		return
	}

	if header.Size > s.opts.MaxUploadBytes {
		errorJSON(c, http.StatusRequestEntityTooLarge, s.tooLargeMessage())
		return
	}
	if !s.allowedExtension(header.Filename) {
		errorJSON(c, http.StatusBadRequest, fmt.Sprintf("Invalid file type. Only %s files are allowed.",
			strings.Join(s.opts.AllowedExtensions, ", ")))
		return
	}

	f, err := header.Open()
	if err != nil {
		_ = c.Error(err)
		errorJSON(c, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		_ = c.Error(err)
		errorJSON(c, http.StatusBadRequest, "Failed to read uploaded file")
		return
	}

	s.logger.Debug("Processing uploaded email",
		zap.String("file_name", header.Filename),
		zap.Int64("file_size", header.Size))

	record, err := s.service.Analyze(c.Request.Context(), core.Upload{
		FileName: header.Filename,
		FileSize: header.Size,
		Content:  content,
	})
	if err != nil {
		_ = c.Error(err)
		errorJSON(c, http.StatusInternalServerError, "Analysis failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":       record.ID,
		"analysis": record,
	})
}

func (s *Server) get(c *gin.Context) {
	record, ok := s.lookup(c, "Failed to fetch analysis")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, record)
}

func (s *Server) export(c *gin.Context) {
	record, ok := s.lookup(c, "Failed to export analysis")
	if !ok {
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="analysis-%d.json"`, record.ID))
	c.JSON(http.StatusOK, core.NewExport(record))
}

// lookup resolves the :id parameter, writing the error response itself
func (s *Server) lookup(c *gin.Context, failure string) (*core.AnalysisRecord, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		errorJSON(c, http.StatusNotFound, "Analysis not found")
		return nil, false
	}

	record, err := s.service.Get(c.Request.Context(), id)
	if errors.Is(err, core.ErrNotFound) {
		errorJSON(c, http.StatusNotFound, "Analysis not found")
		return nil, false
	}
	if err != nil {
		_ = c.Error(err)
		errorJSON(c, http.StatusInternalServerError, failure)
		return nil, false
	}
	return record, true
}

func (s *Server) allowedExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range s.opts.AllowedExtensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

func (s *Server) tooLargeMessage() string {
	return fmt.Sprintf("File too large. Maximum size is %s.", humanize.IBytes(uint64(s.opts.MaxUploadBytes)))
}
