package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bucheron/internal/domain"
	"bucheron/internal/dto"
	apperrors "bucheron/internal/errors"
	"bucheron/internal/validation"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockPlace struct {
	PlaceFunc func(ctx context.Context, req dto.CreateOrderRequest, key string) (*domain.Order, bool, error)
}

func (m *mockPlace) Place(ctx context.Context, req dto.CreateOrderRequest, key string) (*domain.Order, bool, error) {
	return m.PlaceFunc(ctx, req, key)
}

type mockGet struct {
	GetFunc func(ctx context.Context, number string) (*domain.Order, error)
}

func (m *mockGet) Get(ctx context.Context, number string) (*domain.Order, error) {
	return m.GetFunc(ctx, number)
}

type mockUpload struct {
	UploadFunc func(ctx context.Context, number, filename string, r io.Reader) (*dto.UploadReceiptResponse, error)
}

func (m *mockUpload) Upload(ctx context.Context, number, filename string, r io.Reader) (*dto.UploadReceiptResponse, error) {
	return m.UploadFunc(ctx, number, filename, r)
}

func newRouter(place PlaceOrderUseCase, get GetOrderUseCase, upload UploadReceiptUseCase, maxUpload int64) http.Handler {
	r := chi.NewRouter()
	r.Route("/api", NewOrderController(place, get, upload, validation.New(), maxUpload, zap.NewNop()).Routes)
	return r
}

const validOrderJSON = `{
	"customer": {"firstName":"Jean","lastName":"Dupont","email":"jean@exemple.fr","phone":"06 12 34 56 78"},
	"shippingAddress": {"street":"1 rue des Chênes","postalCode":"75001","city":"Paris","region":"Île-de-France","country":"France"},
	"items": [{"productId": 1, "quantity": 2}],
	"shippingCost": 20
}`

func decode(t *testing.T, rec *httptest.ResponseRecorder) dto.RawResponse {
	t.Helper()
	var resp dto.RawResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestCreateOrder_Created(t *testing.T) {
	var gotKey string
	place := &mockPlace{PlaceFunc: func(_ context.Context, req dto.CreateOrderRequest, key string) (*domain.Order, bool, error) {
		gotKey = key
		assert.Equal(t, 2, req.Items[0].Quantity)
		return &domain.Order{OrderNumber: "CMD-20260314-ABC123", Total: 190, PaymentDueDate: time.Now()}, false, nil
	}}
	h := newRouter(place, nil, nil, 1024)

	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(validOrderJSON))
	req.Header.Set(IdempotencyHeader, "key-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "key-1", gotKey)

	resp := decode(t, rec)
	assert.True(t, resp.Success)
	var data dto.CreateOrderResponse
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, "CMD-20260314-ABC123", data.OrderNumber)
	assert.Equal(t, 190.0, data.Total)
}

func TestCreateOrder_ReplayIsOK(t *testing.T) {
	place := &mockPlace{PlaceFunc: func(context.Context, dto.CreateOrderRequest, string) (*domain.Order, bool, error) {
		return &domain.Order{OrderNumber: "CMD-20260314-ABC123"}, true, nil
	}}
	h := newRouter(place, nil, nil, 1024)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(validOrderJSON)))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateOrder_ValidationError(t *testing.T) {
	place := &mockPlace{PlaceFunc: func(context.Context, dto.CreateOrderRequest, string) (*domain.Order, bool, error) {
		t.Fatal("use case must not be called")
		return nil, false, nil
	}}
	h := newRouter(place, nil, nil, 1024)

	body := strings.Replace(validOrderJSON, `"jean@exemple.fr"`, `""`, 1)
	body = strings.Replace(body, `"quantity": 2`, `"quantity": 0`, 1)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, dto.TypeValidation, resp.Type)

	fields := map[string]bool{}
	for _, d := range resp.Details {
		fields[d.Field] = true
	}
	assert.True(t, fields["customer.email"])
	assert.True(t, fields["items[0].quantity"])
}

func TestCreateOrder_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		typ    string
		msg    string
	}{
		{"stock", apperrors.NewConflictError("Stock insuffisant"), http.StatusConflict, dto.TypeConflict, "Stock insuffisant"},
		{"missing product", apperrors.NewNotFoundError("Produit introuvable ou indisponible"), http.StatusNotFound, dto.TypeNotFound, ""},
		{"deadlock", apperrors.NewDeadlockError("max retries exceeded"), http.StatusConflict, dto.TypeDeadlock, ""},
		{"unexpected", io.ErrUnexpectedEOF, http.StatusInternalServerError, dto.TypeInternal, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			place := &mockPlace{PlaceFunc: func(context.Context, dto.CreateOrderRequest, string) (*domain.Order, bool, error) {
				return nil, false, tt.err
			}}
			h := newRouter(place, nil, nil, 1024)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(validOrderJSON)))

			assert.Equal(t, tt.status, rec.Code)
			resp := decode(t, rec)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.typ, resp.Type)
			if tt.msg != "" {
				assert.Equal(t, tt.msg, resp.Message)
			}
		})
	}
}

func TestGetOrder(t *testing.T) {
	get := &mockGet{GetFunc: func(_ context.Context, number string) (*domain.Order, error) {
		if number != "CMD-20260314-ABC123" {
			return nil, apperrors.NewNotFoundError("commande introuvable")
		}
		return &domain.Order{OrderNumber: number, BankDetails: &domain.BankDetails{IBAN: "FR76"}}, nil
	}}
	h := newRouter(nil, get, nil, 1024)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders/CMD-20260314-ABC123", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var order domain.Order
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &order))
	require.NotNil(t, order.BankDetails)
	assert.Equal(t, "FR76", order.BankDetails.IBAN)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders/CMD-0", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadReceipt_Created(t *testing.T) {
	upload := &mockUpload{UploadFunc: func(_ context.Context, number, filename string, r io.Reader) (*dto.UploadReceiptResponse, error) {
		data, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, "CMD-20260314-ABC123", number)
		return &dto.UploadReceiptResponse{OrderNumber: number, Filename: filename, Size: int64(len(data))}, nil
	}}
	h := newRouter(nil, nil, upload, 1024)

	body, contentType := multipartBody(t, "receipt", "virement.pdf", []byte("%PDF-1.4"))
	req := httptest.NewRequest(http.MethodPost, "/api/orders/CMD-20260314-ABC123/upload-receipt", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var data dto.UploadReceiptResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &data))
	assert.Equal(t, "virement.pdf", data.Filename)
	assert.Equal(t, int64(8), data.Size)
}

func TestUploadReceipt_MissingField(t *testing.T) {
	upload := &mockUpload{UploadFunc: func(context.Context, string, string, io.Reader) (*dto.UploadReceiptResponse, error) {
		t.Fatal("use case must not be called")
		return nil, nil
	}}
	h := newRouter(nil, nil, upload, 1024)

	body, contentType := multipartBody(t, "other", "a.pdf", []byte("%PDF-1.4"))
	req := httptest.NewRequest(http.MethodPost, "/api/orders/CMD-1/upload-receipt", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadReceipt_BodyTooLarge(t *testing.T) {
	upload := &mockUpload{UploadFunc: func(context.Context, string, string, io.Reader) (*dto.UploadReceiptResponse, error) {
		t.Fatal("use case must not be called")
		return nil, nil
	}}
	h := newRouter(nil, nil, upload, 16)

	body, contentType := multipartBody(t, "receipt", "big.pdf", bytes.Repeat([]byte("x"), multipartOverhead+64))
	req := httptest.NewRequest(http.MethodPost, "/api/orders/CMD-1/upload-receipt", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
