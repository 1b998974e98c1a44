package handler

import (
	"context"
	"database/sql"
	"fmt"
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"casevault/internal/http/middleware"
	"casevault/internal/model"
	"casevault/internal/service"
)

// HealthCheck reports readiness by pinging the database.
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a plain liveness check.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// CreateDocument handles multipart document uploads.
//
// Form fields: title (required), documentType (case|standalone), caseId
// (required for case documents), clientId, description, tags
// (comma-separated), and one "file" part.
func CreateDocument(svc service.DocumentService, production bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		in := service.CreateInput{
			Title:        c.FormValue("title"),
			DocumentType: model.DocumentType(c.FormValue("documentType")),
			CaseID:       c.FormValue("caseId"),
			ClientID:     c.FormValue("clientId"),
			Description:  c.FormValue("description"),
			Tags:         parseTags(c.FormValue("tags")),
			File:         fileInput(fh, f),
		}

		doc, err := svc.Create(c.UserContext(), middleware.OwnerID(c), in)
		if err != nil {
			return respondError(c, err, production)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	}
}

// UpdateDocument applies a partial metadata update and/or replaces the
// stored file. All form fields are optional; absent fields stay unchanged.
func UpdateDocument(svc service.DocumentService, production bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "invalid id format")
		}

		form, err := c.MultipartForm()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "multipart form required")
		}

		in := service.UpdateInput{
			Title:       formString(form, "title"),
			CaseID:      formString(form, "caseId"),
			ClientID:    formString(form, "clientId"),
			Description: formString(form, "description"),
		}
		if v := formString(form, "documentType"); v != nil {
			dt := model.DocumentType(*v)
			in.DocumentType = &dt
		}
		if v := formString(form, "tags"); v != nil {
			in.Tags = parseTags(*v)
		}

		var file multipart.File
		if fhs := form.File["file"]; len(fhs) > 0 {
			file, err = fhs[0].Open()
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "cannot open uploaded file")
			}
			defer file.Close()
			fi := fileInput(fhs[0], file)
			in.File = &fi
		}

		doc, err := svc.Update(c.UserContext(), middleware.OwnerID(c), id, in)
		if err != nil {
			return respondError(c, err, production)
		}
		return c.JSON(doc)
	}
}

// DeleteDocument removes a document. Repeating a successful delete
// succeeds again.
func DeleteDocument(svc service.DocumentService, production bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "invalid id format")
		}
		if err := svc.Delete(c.UserContext(), middleware.OwnerID(c), id); err != nil {
			return respondError(c, err, production)
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "deleted"})
	}
}

// GetDocument returns document metadata by ID.
func GetDocument(svc service.DocumentService, production bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "invalid id format")
		}
		doc, err := svc.Get(c.UserContext(), middleware.OwnerID(c), id)
		if err != nil {
			return respondError(c, err, production)
		}
		return c.JSON(doc)
	}
}

// ListDocuments returns the caller's documents with limit/offset paging and
// an optional caseId filter.
func ListDocuments(svc service.DocumentService, production bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "invalid offset")
		}

		res, err := svc.List(c.UserContext(), middleware.OwnerID(c), limit, offset, c.Query("caseId"))
		if err != nil {
			return respondError(c, err, production)
		}
		return c.JSON(res)
	}
}

// DownloadDocument streams the document bytes with attachment headers. The
// body is never buffered whole; once headers are out a stream failure
// terminates the connection.
func DownloadDocument(svc service.DocumentService, production bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "invalid id format")
		}

		doc, rc, err := svc.Open(c.UserContext(), middleware.OwnerID(c), id)
		if err != nil {
			return respondError(c, err, production)
		}

		c.Set(fiber.HeaderContentType, doc.MimeType)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", doc.OriginalName))
		// SendStream takes ownership of rc and closes it after the copy.
		return c.SendStream(rc, int(doc.SizeBytes))
	}
}

// parseTags splits a comma-separated tag list, dropping empties.
func parseTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// formString returns the first value for key, or nil when absent.
func formString(form *multipart.Form, key string) *string {
	vals, ok := form.Value[key]
	if !ok || len(vals) == 0 {
		return nil
	}
	return &vals[0]
}

func fileInput(fh *multipart.FileHeader, f multipart.File) service.FileInput {
	ct := fh.Header.Get("Content-Type")
	return service.FileInput{
		OriginalName: fh.Filename,
		ContentType:  ct,
		Size:         fh.Size,
		Content:      f,
	}
}
