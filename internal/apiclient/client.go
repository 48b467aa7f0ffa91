package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bucheron/internal/domain"
	"bucheron/internal/dto"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxResponseBytes = 5 << 20

const (
	pathCategories = "/api/categories"
	pathProducts   = "/api/products"
	pathOrders     = "/api/orders"
	pathSettings   = "/api/settings"
)

// Client wraps the storefront API. Catalog and settings reads are cached for
// the configured TTL; order reads never are.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *ttlCache
	logger     *zap.Logger
}

func New(baseURL string, timeout, cacheTTL time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		cache:      newTTLCache(cacheTTL, defaultCacheEntries),
		logger:     logger,
	}
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	header      http.Header
	cacheable   bool
}

func (r request) cacheKey() string {
	if len(r.query) == 0 {
		return r.path
	}
	return r.path + "?" + r.query.Encode()
}

func (c *Client) do(ctx context.Context, req request, out interface{}) error {
	key := req.cacheKey()
	if req.cacheable {
		if data, ok := c.cache.get(key); ok {
			return decodeData(data, out)
		}
	}

	target := c.baseURL + key
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, req.body)
	if err != nil {
		return fmt.Errorf("building request %s %s: %w", req.method, req.path, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	for k, vs := range req.header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn("api request failed",
			zap.String("method", req.method),
			zap.String("path", req.path),
			zap.Error(err),
		)
		return networkError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return networkError(err)
	}

	c.logger.Debug("api request",
		zap.String("method", req.method),
		zap.String("path", req.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	var envelope dto.RawResponse
	decodeErr := json.Unmarshal(raw, &envelope)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr != nil {
			return serverError(resp.StatusCode, "", "")
		}
		return serverError(resp.StatusCode, envelope.Message, envelope.Type)
	}
	if decodeErr != nil {
		return invalidResponse(resp.StatusCode, decodeErr)
	}
	if !envelope.Success {
		return serverError(resp.StatusCode, envelope.Message, envelope.Type)
	}

	if err := decodeData(envelope.Data, out); err != nil {
		return err
	}
	if req.cacheable {
		c.cache.set(key, envelope.Data)
	}
	return nil
}

func decodeData(data []byte, out interface{}) error {
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return invalidResponse(http.StatusOK, err)
	}
	return nil
}

func jsonBody(v interface{}) (io.Reader, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}
	return bytes.NewReader(b), nil
}

// InvalidatePrefix drops cached responses whose path starts with prefix.
func (c *Client) InvalidatePrefix(prefix string) int {
	return c.cache.invalidatePrefix(prefix)
}

func (c *Client) Categories(ctx context.Context, filter dto.CategoryFilter) ([]domain.Category, error) {
	var out []domain.Category
	err := c.do(ctx, request{method: http.MethodGet, path: pathCategories, query: filter.Values(), cacheable: true}, &out)
	return out, err
}

func (c *Client) FeaturedCategories(ctx context.Context) ([]domain.Category, error) {
	var out []domain.Category
	err := c.do(ctx, request{method: http.MethodGet, path: pathCategories + "/featured", cacheable: true}, &out)
	return out, err
}

func (c *Client) Category(ctx context.Context, slug string) (*domain.Category, error) {
	var out domain.Category
	err := c.do(ctx, request{method: http.MethodGet, path: pathCategories + "/" + url.PathEscape(slug), cacheable: true}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SearchProducts(ctx context.Context, filter dto.ProductFilter) (*dto.ProductPage, error) {
	var out dto.ProductPage
	err := c.do(ctx, request{method: http.MethodGet, path: pathProducts + "/search", query: filter.Values(), cacheable: true}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) FeaturedProducts(ctx context.Context, filter dto.FeaturedFilter, limit int) ([]domain.Product, error) {
	q := url.Values{}
	q.Set("filter", string(filter))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []domain.Product
	err := c.do(ctx, request{method: http.MethodGet, path: pathProducts + "/featured", query: q, cacheable: true}, &out)
	return out, err
}

func (c *Client) Product(ctx context.Context, slug string) (*domain.Product, error) {
	var out domain.Product
	err := c.do(ctx, request{method: http.MethodGet, path: pathProducts + "/" + url.PathEscape(slug), cacheable: true}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SimilarProducts(ctx context.Context, productID, limit int) ([]domain.Product, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []domain.Product
	path := pathProducts + "/" + strconv.Itoa(productID) + "/similar"
	err := c.do(ctx, request{method: http.MethodGet, path: path, query: q, cacheable: true}, &out)
	return out, err
}

func (c *Client) Settings(ctx context.Context) (*domain.Settings, error) {
	var out domain.Settings
	if err := c.do(ctx, request{method: http.MethodGet, path: pathSettings, cacheable: true}, &out); err != nil {
		return nil, err
	}
	if out.Legal == nil {
		out.Legal = map[string]string{}
	}
	return &out, nil
}

func (c *Client) Subscribe(ctx context.Context, req dto.NewsletterRequest) error {
	body, err := jsonBody(req)
	if err != nil {
		return err
	}
	return c.do(ctx, request{method: http.MethodPost, path: "/api/newsletter/subscribe", body: body, contentType: "application/json"}, nil)
}

func (c *Client) Contact(ctx context.Context, req dto.ContactRequest) error {
	body, err := jsonBody(req)
	if err != nil {
		return err
	}
	return c.do(ctx, request{method: http.MethodPost, path: "/api/contact", body: body, contentType: "application/json"}, nil)
}

// CreateOrder places an order. A blank idempotencyKey gets a fresh one. Cached
// product reads are dropped on success since stock just changed.
func (c *Client) CreateOrder(ctx context.Context, req dto.CreateOrderRequest, idempotencyKey string) (*dto.CreateOrderResponse, error) {
	body, err := jsonBody(req)
	if err != nil {
		return nil, err
	}
	if idempotencyKey == "" {
		idempotencyKey = uuid.New().String()
	}
	header := http.Header{}
	header.Set("Idempotency-Key", idempotencyKey)

	var out dto.CreateOrderResponse
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        pathOrders,
		body:        body,
		contentType: "application/json",
		header:      header,
	}, &out)
	if err != nil {
		return nil, err
	}

	n := c.InvalidatePrefix(pathProducts)
	c.logger.Debug("product cache invalidated", zap.String("orderNumber", out.OrderNumber), zap.Int("entries", n))
	return &out, nil
}

func (c *Client) Order(ctx context.Context, orderNumber string) (*domain.Order, error) {
	var out domain.Order
	err := c.do(ctx, request{method: http.MethodGet, path: pathOrders + "/" + url.PathEscape(orderNumber)}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UploadReceipt(ctx context.Context, orderNumber, filename, contentType string, r io.Reader) (*dto.UploadReceiptResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="receipt"; filename=%q`, filename))
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("creating receipt part: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("copying receipt: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	var out dto.UploadReceiptResponse
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        pathOrders + "/" + url.PathEscape(orderNumber) + "/upload-receipt",
		body:        &buf,
		contentType: mw.FormDataContentType(),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// PingContext checks that the API answers its health endpoint.
func (c *Client) PingContext(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("building health request: %w", err)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return networkError(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	if resp.StatusCode != http.StatusOK {
		return serverError(resp.StatusCode, "", "")
	}
	return nil
}
