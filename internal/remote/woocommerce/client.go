package woocommerce

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// API определяет операции удаленного магазина, необходимые для синхронизации.
// Реализация по умолчанию - Client; в тестах подменяется фейком.
type API interface {
	// SystemStatus проверяет доступность магазина и валидность ключей
	SystemStatus(ctx context.Context) error

	// FindProductBySKU ищет товар по артикулу.
	// Возвращает nil, nil если найдено ноль или больше одного совпадения.
	FindProductBySKU(ctx context.Context, sku string) (*Product, error)

	// CreateProduct создает товар в удаленном магазине
	CreateProduct(ctx context.Context, data map[string]interface{}) (*Product, error)

	// UpdateProduct обновляет товар в удаленном магазине
	UpdateProduct(ctx context.Context, id int64, data map[string]interface{}) (*Product, error)

	// DeleteProduct окончательно удаляет товар (минуя корзину)
	DeleteProduct(ctx context.Context, id int64) error

	// ListAttributes возвращает все глобальные атрибуты магазина
	ListAttributes(ctx context.Context) ([]Attribute, error)

	// ListVariations возвращает страницу вариаций товара
	ListVariations(ctx context.Context, productID int64, page, perPage int) ([]Variation, error)

	// BatchUpdateVariations выполняет пакетную операцию над вариациями
	BatchUpdateVariations(ctx context.Context, productID int64, batch *VariationBatch) (*VariationBatchResult, error)
}

// APIError - ошибка удаленного API с HTTP-статусом и кодом из тела ответа
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("woocommerce: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Config содержит параметры подключения к удаленному магазину
type Config struct {
	StoreURL       string // например, https://shop.example.com
	ConsumerKey    string
	ConsumerSecret string
	Version        string        // версия API, по умолчанию "wc/v3"
	Timeout        time.Duration // таймаут HTTP-клиента, по умолчанию 30 секунд
}

// Client - HTTP-клиент удаленного магазина.
// По HTTPS ключи передаются параметрами запроса, по HTTP
// запрос подписывается OAuth 1.0a (HMAC-SHA256).
type Client struct {
	config     Config
	httpClient *http.Client
	useOAuth   bool
}

// NewClient создает клиент удаленного магазина
func NewClient(config Config) *Client {
	if config.Version == "" {
		config.Version = "wc/v3"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	config.StoreURL = strings.TrimRight(config.StoreURL, "/")

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		useOAuth:   !strings.HasPrefix(config.StoreURL, "https://"),
	}
}

func (c *Client) baseURL() string {
	return fmt.Sprintf("%s/wp-json/%s", c.config.StoreURL, c.config.Version)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	fullURL := c.baseURL() + path

	if c.useOAuth {
		fullURL = c.signOAuthRequest(method, fullURL)
	} else {
		if strings.Contains(fullURL, "?") {
			fullURL += "&"
		} else {
			fullURL += "?"
		}
		fullURL += fmt.Sprintf("consumer_key=%s&consumer_secret=%s",
			url.QueryEscape(c.config.ConsumerKey), url.QueryEscape(c.config.ConsumerSecret))
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call remote store: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var eb ErrorBody
		if json.Unmarshal(respBody, &eb) == nil && eb.Code != "" {
			apiErr.Code = eb.Code
			apiErr.Message = eb.Message
		} else {
			apiErr.Message = string(respBody)
		}
		return nil, apiErr
	}

	return respBody, nil
}

// signOAuthRequest подписывает запрос по OAuth 1.0a для магазинов без TLS
func (c *Client) signOAuthRequest(method, urlStr string) string {
	parsedURL, _ := url.Parse(urlStr)
	params := parsedURL.Query()

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	nonce := base64.StdEncoding.EncodeToString([]byte(timestamp))

	params.Set("oauth_consumer_key", c.config.ConsumerKey)
	params.Set("oauth_signature_method", "HMAC-SHA256")
	params.Set("oauth_timestamp", timestamp)
	params.Set("oauth_nonce", nonce)
	params.Set("oauth_version", "1.0")

	baseString := fmt.Sprintf("%s&%s&%s",
		strings.ToUpper(method),
		url.QueryEscape(parsedURL.Scheme+"://"+parsedURL.Host+parsedURL.Path),
		url.QueryEscape(params.Encode()),
	)

	key := []byte(c.config.ConsumerSecret + "&")
	h := hmac.New(sha256.New, key)
	h.Write([]byte(baseString))
	signature := base64.StdEncoding.EncodeToString(h.Sum(nil))

	params.Set("oauth_signature", signature)
	parsedURL.RawQuery = params.Encode()

	return parsedURL.String()
}

// SystemStatus проверяет доступность магазина и валидность ключей
func (c *Client) SystemStatus(ctx context.Context) error {
	if _, err := c.doRequest(ctx, http.MethodGet, "/system_status", nil); err != nil {
		return fmt.Errorf("failed to reach remote store: %w", err)
	}
	return nil
}

// FindProductBySKU ищет товар по артикулу.
// Возвращает nil, nil если найдено ноль или больше одного совпадения:
// неоднозначный артикул не дает права на обновление.
func (c *Client) FindProductBySKU(ctx context.Context, sku string) (*Product, error) {
	q := url.Values{}
	q.Set("sku", sku)
	q.Set("per_page", "2")

	respBody, err := c.doRequest(ctx, http.MethodGet, "/products?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var products []Product
	if err := json.Unmarshal(respBody, &products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}

	if len(products) != 1 {
		return nil, nil
	}
	return &products[0], nil
}

// CreateProduct создает товар в удаленном магазине
func (c *Client) CreateProduct(ctx context.Context, data map[string]interface{}) (*Product, error) {
	respBody, err := c.doRequest(ctx, http.MethodPost, "/products", data)
	if err != nil {
		return nil, err
	}

	var p Product
	if err := json.Unmarshal(respBody, &p); err != nil {
		return nil, fmt.Errorf("failed to decode created product: %w", err)
	}
	return &p, nil
}

// UpdateProduct обновляет товар в удаленном магазине
func (c *Client) UpdateProduct(ctx context.Context, id int64, data map[string]interface{}) (*Product, error) {
	respBody, err := c.doRequest(ctx, http.MethodPut, fmt.Sprintf("/products/%d", id), data)
	if err != nil {
		return nil, err
	}

	var p Product
	if err := json.Unmarshal(respBody, &p); err != nil {
		return nil, fmt.Errorf("failed to decode updated product: %w", err)
	}
	return &p, nil
}

// DeleteProduct окончательно удаляет товар (минуя корзину)
func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	_, err := c.doRequest(ctx, http.MethodDelete, fmt.Sprintf("/products/%d?force=true", id), nil)
	return err
}

// ListAttributes возвращает все глобальные атрибуты магазина
func (c *Client) ListAttributes(ctx context.Context) ([]Attribute, error) {
	respBody, err := c.doRequest(ctx, http.MethodGet, "/products/attributes", nil)
	if err != nil {
		return nil, err
	}

	var attrs []Attribute
	if err := json.Unmarshal(respBody, &attrs); err != nil {
		return nil, fmt.Errorf("failed to decode attributes: %w", err)
	}
	return attrs, nil
}

// ListVariations возвращает страницу вариаций товара
func (c *Client) ListVariations(ctx context.Context, productID int64, page, perPage int) ([]Variation, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))

	path := fmt.Sprintf("/products/%d/variations?%s", productID, q.Encode())
	respBody, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var variations []Variation
	if err := json.Unmarshal(respBody, &variations); err != nil {
		return nil, fmt.Errorf("failed to decode variations: %w", err)
	}
	return variations, nil
}

// BatchUpdateVariations выполняет пакетную операцию над вариациями
func (c *Client) BatchUpdateVariations(ctx context.Context, productID int64, batch *VariationBatch) (*VariationBatchResult, error) {
	path := fmt.Sprintf("/products/%d/variations/batch", productID)
	respBody, err := c.doRequest(ctx, http.MethodPost, path, batch)
	if err != nil {
		return nil, err
	}

	var result VariationBatchResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to decode batch result: %w", err)
	}
	return &result, nil
}
