package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"casevault/internal/apperror"
	"casevault/internal/http/middleware"
	"casevault/internal/model"
	"casevault/internal/service"
	svcMocks "casevault/internal/service/mocks"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testOwner = "owner-1"

func newTestApp(t *testing.T, svc service.DocumentService) (*fiber.App, sqlmock.Sqlmock) {
	t.Helper()
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	app.Use(middleware.RequestID())
	RegisterRoutes(app, db, svc, false)
	return app, dbMock
}

func authedReq(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	req.Header.Set(middleware.OwnerIDHeader, testOwner)
	return req
}

func decodeErrorBody(t *testing.T, resp *http.Response) errorPayload {
	t.Helper()
	var payload errorPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return payload
}

func multipartBody(t *testing.T, fields map[string]string, fileName, fileContent string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := w.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = fw.Write([]byte(fileContent))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf, w.FormDataContentType()
}

func TestHealthEndpoints(t *testing.T) {
	app, dbMock := newTestApp(t, new(svcMocks.MockDocumentService))

	t.Run("readiness healthy", func(t *testing.T) {
		dbMock.ExpectPing()
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("readiness degraded", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db down"))
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("liveness", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestDocumentRoutes_RequireAuth(t *testing.T) {
	app, _ := newTestApp(t, new(svcMocks.MockDocumentService))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	payload := decodeErrorBody(t, resp)
	assert.Equal(t, "UNAUTHORIZED", payload.Error.Code)
	assert.NotEmpty(t, payload.RequestID)
}

func TestCreateDocument(t *testing.T) {
	validID := "6f1cbb19-0000-4000-8000-000000000001"

	t.Run("created", func(t *testing.T) {
		mSvc := new(svcMocks.MockDocumentService)
		mSvc.On("Create", mock.Anything, testOwner, mock.MatchedBy(func(in service.CreateInput) bool {
			return in.Title == "NDA Draft" &&
				in.DocumentType == model.DocumentTypeStandalone &&
				in.File.OriginalName == "contract.pdf" &&
				len(in.Tags) == 2
		})).Return(&model.Document{ID: validID, Title: "NDA Draft"}, nil)
		app, _ := newTestApp(t, mSvc)

		body, ct := multipartBody(t, map[string]string{
			"title":        "NDA Draft",
			"documentType": "standalone",
			"tags":         "legal, draft",
		}, "contract.pdf", "pdf bytes")
		req := authedReq(http.MethodPost, "/documents", body)
		req.Header.Set("Content-Type", ct)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var doc model.Document
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
		assert.Equal(t, validID, doc.ID)
		mSvc.AssertExpectations(t)
	})

	t.Run("missing file part", func(t *testing.T) {
		mSvc := new(svcMocks.MockDocumentService)
		app, _ := newTestApp(t, mSvc)

		body, ct := multipartBody(t, map[string]string{"title": "x"}, "", "")
		req := authedReq(http.MethodPost, "/documents", body)
		req.Header.Set("Content-Type", ct)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "VALIDATION_ERROR", decodeErrorBody(t, resp).Error.Code)
		mSvc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("validation error from the service", func(t *testing.T) {
		mSvc := new(svcMocks.MockDocumentService)
		mSvc.On("Create", mock.Anything, testOwner, mock.Anything).
			Return(nil, apperror.Validation("title is required"))
		app, _ := newTestApp(t, mSvc)

		body, ct := multipartBody(t, nil, "contract.pdf", "pdf bytes")
		req := authedReq(http.MethodPost, "/documents", body)
		req.Header.Set("Content-Type", ct)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		payload := decodeErrorBody(t, resp)
		assert.Equal(t, "VALIDATION_ERROR", payload.Error.Code)
		assert.Equal(t, "title is required", payload.Error.Message)
	})
}

func TestGetDocument(t *testing.T) {
	validID := "6f1cbb19-0000-4000-8000-000000000001"

	t.Run("found", func(t *testing.T) {
		mSvc := new(svcMocks.MockDocumentService)
		mSvc.On("Get", mock.Anything, testOwner, validID).
			Return(&model.Document{ID: validID, Title: "NDA Draft"}, nil)
		app, _ := newTestApp(t, mSvc)

		resp, err := app.Test(authedReq(http.MethodGet, "/documents/"+validID, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var doc model.Document
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
		assert.Equal(t, "NDA Draft", doc.Title)
	})

	t.Run("malformed id", func(t *testing.T) {
		mSvc := new(svcMocks.MockDocumentService)
		app, _ := newTestApp(t, mSvc)

		resp, err := app.Test(authedReq(http.MethodGet, "/documents/not-a-uuid", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		mSvc.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("not found", func(t *testing.T) {
		mSvc := new(svcMocks.MockDocumentService)
		mSvc.On("Get", mock.Anything, testOwner, validID).
			Return(nil, apperror.NotFound("document not found"))
		app, _ := newTestApp(t, mSvc)

		resp, err := app.Test(authedReq(http.MethodGet, "/documents/"+validID, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeErrorBody(t, resp).Error.Code)
	})
}

func TestListDocuments(t *testing.T) {
	t.Run("defaults and filter pass through", func(t *testing.T) {
		mSvc := new(svcMocks.MockDocumentService)
		mSvc.On("List", mock.Anything, testOwner, 5, 10, "case-7").
			Return(&service.DocumentListResult{
				Items: []model.Document{{ID: "a"}, {ID: "b"}},
				Total: 12,
			}, nil)
		app, _ := newTestApp(t, mSvc)

		resp, err := app.Test(authedReq(http.MethodGet, "/documents?limit=5&offset=10&caseId=case-7", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var res service.DocumentListResult
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
		assert.Equal(t, 12, res.Total)
		assert.Len(t, res.Items, 2)
	})

	t.Run("non-numeric limit rejected", func(t *testing.T) {
		mSvc := new(svcMocks.MockDocumentService)
		app, _ := newTestApp(t, mSvc)

		resp, err := app.Test(authedReq(http.MethodGet, "/documents?limit=lots", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestUpdateDocument(t *testing.T) {
	validID := "6f1cbb19-0000-4000-8000-000000000001"

	t.Run("partial metadata update", func(t *testing.T) {
		mSvc := new(svcMocks.MockDocumentService)
		mSvc.On("Update", mock.Anything, testOwner, validID, mock.MatchedBy(func(in service.UpdateInput) bool {
			return in.Title != nil && *in.Title == "Renamed" &&
				in.Description == nil && in.File == nil
		})).Return(&model.Document{ID: validID, Title: "Renamed"}, nil)
		app, _ := newTestApp(t, mSvc)

		body, ct := multipartBody(t, map[string]string{"title": "Renamed"}, "", "")
		req := authedReq(http.MethodPut, "/documents/"+validID, body)
		req.Header.Set("Content-Type", ct)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mSvc.AssertExpectations(t)
	})

	t.Run("file replacement", func(t *testing.T) {
		mSvc := new(svcMocks.MockDocumentService)
		mSvc.On("Update", mock.Anything, testOwner, validID, mock.MatchedBy(func(in service.UpdateInput) bool {
			return in.File != nil && in.File.OriginalName == "v2.pdf"
		})).Return(&model.Document{ID: validID}, nil)
		app, _ := newTestApp(t, mSvc)

		body, ct := multipartBody(t, nil, "v2.pdf", "new bytes")
		req := authedReq(http.MethodPut, "/documents/"+validID, body)
		req.Header.Set("Content-Type", ct)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("concurrent modification maps to conflict", func(t *testing.T) {
		mSvc := new(svcMocks.MockDocumentService)
		mSvc.On("Update", mock.Anything, testOwner, validID, mock.Anything).
			Return(nil, apperror.Conflict("document was modified concurrently"))
		app, _ := newTestApp(t, mSvc)

		body, ct := multipartBody(t, map[string]string{"title": "x"}, "", "")
		req := authedReq(http.MethodPut, "/documents/"+validID, body)
		req.Header.Set("Content-Type", ct)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "CONFLICT", decodeErrorBody(t, resp).Error.Code)
	})
}

func TestDeleteDocument(t *testing.T) {
	validID := "6f1cbb19-0000-4000-8000-000000000001"

	t.Run("deleted", func(t *testing.T) {
		mSvc := new(svcMocks.MockDocumentService)
		mSvc.On("Delete", mock.Anything, testOwner, validID).Return(nil)
		app, _ := newTestApp(t, mSvc)

		resp, err := app.Test(authedReq(http.MethodDelete, "/documents/"+validID, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "deleted", body["status"])
	})

	t.Run("storage failure hides internals", func(t *testing.T) {
		mSvc := new(svcMocks.MockDocumentService)
		mSvc.On("Delete", mock.Anything, testOwner, validID).
			Return(apperror.Storage("delete document file", errors.New("permission denied: /var/data")))
		app, _ := newTestApp(t, mSvc)

		resp, err := app.Test(authedReq(http.MethodDelete, "/documents/"+validID, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

		payload := decodeErrorBody(t, resp)
		assert.Equal(t, "STORAGE_ERROR", payload.Error.Code)
		assert.Equal(t, "storage failure", payload.Error.Message)
		assert.NotContains(t, payload.Error.Message, "/var/data")
	})
}

func TestDownloadDocument(t *testing.T) {
	validID := "6f1cbb19-0000-4000-8000-000000000001"

	t.Run("streams with attachment headers", func(t *testing.T) {
		content := "raw pdf bytes"
		mSvc := new(svcMocks.MockDocumentService)
		mSvc.On("Open", mock.Anything, testOwner, validID).
			Return(&model.Document{
				ID:           validID,
				OriginalName: "contract.pdf",
				MimeType:     "application/pdf",
				SizeBytes:    int64(len(content)),
			}, io.NopCloser(strings.NewReader(content)), nil)
		app, _ := newTestApp(t, mSvc)

		resp, err := app.Test(authedReq(http.MethodGet, "/documents/"+validID+"/download", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/pdf", resp.Header.Get(fiber.HeaderContentType))
		assert.Equal(t, `attachment; filename="contract.pdf"`, resp.Header.Get(fiber.HeaderContentDisposition))

		got, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, content, string(got))
	})

	t.Run("integrity fault reads as not found with diagnostic outside production", func(t *testing.T) {
		mSvc := new(svcMocks.MockDocumentService)
		mSvc.On("Open", mock.Anything, testOwner, validID).
			Return(nil, nil, apperror.Integrity("document file missing from storage", errors.New("no such file")))
		app, _ := newTestApp(t, mSvc)

		resp, err := app.Test(authedReq(http.MethodGet, "/documents/"+validID+"/download", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		payload := decodeErrorBody(t, resp)
		assert.Equal(t, "NOT_FOUND", payload.Error.Code)
		assert.Equal(t, "document not found", payload.Error.Message)
		assert.NotEmpty(t, payload.Error.Diagnostic)
	})
}

func TestUnknownRoute(t *testing.T) {
	app, _ := newTestApp(t, new(svcMocks.MockDocumentService))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", decodeErrorBody(t, resp).Error.Code)
}
