package handler

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sep-portal-api/internal/dto"
	"github.com/noah-isme/sep-portal-api/internal/models"
)

type categoryServiceMock struct {
	uploaded []byte
	active   *bool
}

func (m *categoryServiceMock) ListActive(ctx context.Context) ([]models.CategoryView, error) {
	return []models.CategoryView{}, nil
}

func (m *categoryServiceMock) ListAll(ctx context.Context) ([]models.CategoryView, error) {
	return []models.CategoryView{}, nil
}

func (m *categoryServiceMock) Get(ctx context.Context, id string) (*models.CategoryView, error) {
	return &models.CategoryView{Category: models.Category{ID: id}}, nil
}

func (m *categoryServiceMock) FindJobCard(ctx context.Context) (*models.CategoryView, error) {
	return &models.CategoryView{}, nil
}

func (m *categoryServiceMock) Create(ctx context.Context, req dto.CategoryRequest) (*models.CategoryView, error) {
	return &models.CategoryView{}, nil
}

func (m *categoryServiceMock) Update(ctx context.Context, id string, req dto.CategoryRequest) (*models.CategoryView, error) {
	return &models.CategoryView{}, nil
}

func (m *categoryServiceMock) SetActive(ctx context.Context, id string, active bool) (*models.CategoryView, error) {
	m.active = &active
	return &models.CategoryView{Category: models.Category{ID: id, IsActive: active}}, nil
}

func (m *categoryServiceMock) UploadQR(ctx context.Context, id string, data []byte) (*models.CategoryView, error) {
	if len(data) == 0 {
		return nil, errors.New("empty")
	}
	m.uploaded = data
	return &models.CategoryView{Category: models.Category{ID: id}}, nil
}

func multipartQR(t *testing.T, field string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, "qr.png")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestCategoryHandlerUploadQR(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &categoryServiceMock{}
	handler := NewCategoryHandler(mockSvc, 1024)

	png := []byte("\x89PNG\r\n\x1a\nfake")
	body, contentType := multipartQR(t, "file", png)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/admin/categories/5c2a9e7d-1f3b-4a6c-8d0e-2b4f6a8c0e11/qr", body)
	c.Request.Header.Set("Content-Type", contentType)
	c.Params = gin.Params{{Key: "id", Value: "5c2a9e7d-1f3b-4a6c-8d0e-2b4f6a8c0e11"}}

	handler.UploadQR(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, png, mockSvc.uploaded)
}

func TestCategoryHandlerUploadQRRejectsOversizedFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &categoryServiceMock{}
	handler := NewCategoryHandler(mockSvc, 8)

	body, contentType := multipartQR(t, "file", bytes.Repeat([]byte{0x1}, 64))
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/admin/categories/5c2a9e7d-1f3b-4a6c-8d0e-2b4f6a8c0e11/qr", body)
	c.Request.Header.Set("Content-Type", contentType)
	c.Params = gin.Params{{Key: "id", Value: "5c2a9e7d-1f3b-4a6c-8d0e-2b4f6a8c0e11"}}

	handler.UploadQR(c)
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Nil(t, mockSvc.uploaded)
}

func TestCategoryHandlerUploadQRRequiresFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewCategoryHandler(&categoryServiceMock{}, 1024)

	body, contentType := multipartQR(t, "image", []byte("x"))
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/admin/categories/5c2a9e7d-1f3b-4a6c-8d0e-2b4f6a8c0e11/qr", body)
	c.Request.Header.Set("Content-Type", contentType)

	handler.UploadQR(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCategoryHandlerSetActiveRequiresFlag(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &categoryServiceMock{}
	handler := NewCategoryHandler(mockSvc, 0)

	c, w := newGinContext(http.MethodPatch, "/admin/categories/5c2a9e7d-1f3b-4a6c-8d0e-2b4f6a8c0e11/active", []byte(`{}`))
	handler.SetActive(c)
	require.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newGinContext(http.MethodPatch, "/admin/categories/5c2a9e7d-1f3b-4a6c-8d0e-2b4f6a8c0e11/active", []byte(`{"is_active":false}`))
	c.Params = gin.Params{{Key: "id", Value: "5c2a9e7d-1f3b-4a6c-8d0e-2b4f6a8c0e11"}}
	handler.SetActive(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mockSvc.active)
	assert.False(t, *mockSvc.active)
}
