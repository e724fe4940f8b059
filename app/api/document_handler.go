package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"docchunker/model"
	"docchunker/service"
	"docchunker/store"
	"docchunker/types"
)

const sniffLen = 512

type DocumentHandler struct {
	svc      *service.Service
	files    *store.FileStore
	defaults types.ChunkConfig
}

func NewDocumentHandler(svc *service.Service, files *store.FileStore, defaults types.ChunkConfig) *DocumentHandler {
	return &DocumentHandler{
		svc:      svc,
		files:    files,
		defaults: defaults,
	}
}

func (h *DocumentHandler) HandleUpload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("pdfFile")
	if err != nil {
		return ErrNoFile()
	}

	head, err := readHead(fileHeader)
	if err != nil {
		return err
	}
	if !model.IsPDF(fileHeader.Filename, fileHeader.Header.Get(fiber.HeaderContentType), head) {
		return ErrNotPDF()
	}

	cfg, errors := h.chunkConfig(c)
	if len(errors) > 0 {
		return NewValidationError(errors)
	}

	path := h.files.TempPath(fileHeader.Filename)
	if err := c.SaveFile(fileHeader, path); err != nil {
		return fmt.Errorf("save upload: %w", err)
	}

	doc, err := h.svc.Ingest(c.UserContext(), service.Upload{
		Filename: fileHeader.Filename,
		Path:     path,
		Config:   cfg,
	})
	if err != nil {
		return err
	}
	return c.JSON(types.NewIngestResponse(doc))
}

// chunkConfig reads the optional chunking fields of the upload form. Absent
// fields take the configured defaults.
func (h *DocumentHandler) chunkConfig(c *fiber.Ctx) (types.ChunkConfig, map[string]string) {
	cfg := h.defaults
	errors := make(map[string]string)

	parse := func(field string, dst *int) {
		raw := strings.TrimSpace(c.FormValue(field))
		if raw == "" {
			return
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			errors[field] = "must be an integer"
			return
		}
		*dst = v
	}
	parse("chunkSize", &cfg.ChunkSize)
	parse("overlapSize", &cfg.OverlapSize)
	if len(errors) > 0 {
		return cfg, errors
	}

	return cfg, types.Validate(&cfg)
}

func readHead(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return head[:n], nil
}

func (h *DocumentHandler) HandleGetChunks(c *fiber.Ctx) error {
	doc, err := h.svc.Get(c.UserContext(), c.Params("fileId"))
	if err != nil {
		return err
	}
	return c.JSON(doc)
}

func (h *DocumentHandler) HandleGetDocuments(c *fiber.Ctx) error {
	docs, err := h.svc.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(docs)
}

func (h *DocumentHandler) HandleDeleteDocument(c *fiber.Ctx) error {
	if err := h.svc.Delete(c.UserContext(), c.Params("fileId")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Document deleted"})
}

func (h *DocumentHandler) HandleExport(c *fiber.Ctx) error {
	doc, err := h.svc.Get(c.UserContext(), c.Params("fileId"))
	if err != nil {
		return err
	}
	c.Attachment(doc.Filename + "-chunks.json")
	return c.JSON(doc)
}
