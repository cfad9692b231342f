package florist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	apperrors "github.com/yourflorist/storefront/pkg/errors"
	"github.com/yourflorist/storefront/pkg/types"
)

// Client is a typed wrapper over the florist REST API. Calls that act on
// behalf of a logged-in shopper take the upstream bearer token explicitly;
// the client holds no per-shopper state.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New builds a client for the given base URL. The http.Client's timeout
// bounds every call; pass one configured from UpstreamConfig.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("florist base url is required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}, nil
}

// Products returns the full product catalog.
func (c *Client) Products(ctx context.Context) ([]Product, error) {
	var out []Product
	if err := c.do(ctx, http.MethodGet, "/products", "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Product returns one catalog entry by id.
func (c *Client) Product(ctx context.Context, id string) (*Product, error) {
	var out Product
	if err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProductsByCategory returns products filtered by category name.
func (c *Client) ProductsByCategory(ctx context.Context, category string) ([]Product, error) {
	var out []Product
	if err := c.do(ctx, http.MethodGet, "/products/category/"+url.PathEscape(category), "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ActiveBouquets returns the purchasable bouquet templates.
func (c *Client) ActiveBouquets(ctx context.Context) ([]Product, error) {
	var out []Product
	if err := c.do(ctx, http.MethodGet, "/bouquets/active", "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// BouquetByID returns one bouquet template with its compositions.
func (c *Client) BouquetByID(ctx context.Context, id string) (*Bouquet, error) {
	var out Bouquet
	if err := c.do(ctx, http.MethodGet, "/bouquets/"+url.PathEscape(id), "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FlowerByID returns one flower, used to price composition adjustments.
func (c *Client) FlowerByID(ctx context.Context, id string) (*Flower, error) {
	var out Flower
	if err := c.do(ctx, http.MethodGet, "/flowers/"+url.PathEscape(id), "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ActiveCategories returns the first page of active categories. The upstream
// pages this endpoint; fifty covers the whole florist taxonomy.
func (c *Client) ActiveCategories(ctx context.Context) ([]types.Category, error) {
	var page categoryPage
	if err := c.do(ctx, http.MethodGet, "/categories/active?page=0&size=50", "", nil, &page); err != nil {
		return nil, err
	}
	return page.Content, nil
}

// PromotionByCode looks a promotion up by its human-entered code.
func (c *Client) PromotionByCode(ctx context.Context, code string) (*Promotion, error) {
	var out Promotion
	if err := c.do(ctx, http.MethodGet, "/promotions/code/"+url.PathEscape(code), "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for an upstream bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	body := map[string]string{"email": email, "password": password}
	var token string
	if err := c.do(ctx, http.MethodPost, "/users/login", "", body, &token); err != nil {
		return "", err
	}
	if token == "" {
		return "", apperrors.New(apperrors.CodeUpstream, "login response missing token")
	}
	return token, nil
}

// Register creates a shopper account.
func (c *Client) Register(ctx context.Context, input RegisterInput) (*User, error) {
	var out User
	if err := c.do(ctx, http.MethodPost, "/users/signup", "", input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CurrentUser returns the profile for the bearer token's owner.
func (c *Client) CurrentUser(ctx context.Context, token string) (*User, error) {
	var out User
	if err := c.do(ctx, http.MethodGet, "/users/me", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile patches the mutable profile fields and returns the updated
// profile.
func (c *Client) UpdateProfile(ctx context.Context, token string, update ProfileUpdate) (*User, error) {
	var out User
	if err := c.do(ctx, http.MethodPut, "/users/me", token, update, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChangePassword rotates the shopper's password.
func (c *Client) ChangePassword(ctx context.Context, token, userID, currentPassword, newPassword string) error {
	body := map[string]string{
		"currentPassword": currentPassword,
		"newPassword":     newPassword,
	}
	return c.do(ctx, http.MethodPut, "/users/"+url.PathEscape(userID)+"/password", token, body, nil)
}

// RequestPasswordReset starts the email-based reset flow.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return c.do(ctx, http.MethodPost, "/users/reset-password/request", "", body, nil)
}

// ConfirmPasswordReset completes the reset flow with the emailed token.
func (c *Client) ConfirmPasswordReset(ctx context.Context, resetToken, newPassword string) error {
	body := map[string]string{
		"token":       resetToken,
		"newPassword": newPassword,
	}
	return c.do(ctx, http.MethodPost, "/users/reset-password/confirm", "", body, nil)
}

// PlaceOrder submits an order payload and returns the created order.
func (c *Client) PlaceOrder(ctx context.Context, token string, input OrderInput) (*Order, error) {
	var out Order
	if err := c.do(ctx, http.MethodPost, "/orders", token, input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Orders returns the shopper's order history.
func (c *Client) Orders(ctx context.Context, token string) ([]Order, error) {
	var out []Order
	if err := c.do(ctx, http.MethodGet, "/orders", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// OrderByID returns one order-history entry.
func (c *Client) OrderByID(ctx context.Context, token, id string) (*Order, error) {
	var out Order
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(id), token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StartPayment asks the payment service for the provider redirect URL for a
// freshly placed order.
func (c *Client) StartPayment(ctx context.Context, token, orderID string) (string, error) {
	var redirectURL string
	if err := c.do(ctx, http.MethodPost, "/payments/checkout/"+url.PathEscape(orderID), token, nil, &redirectURL); err != nil {
		return "", err
	}
	if redirectURL == "" {
		return "", apperrors.New(apperrors.CodeUpstream, "payment response missing redirect url")
	}
	return redirectURL, nil
}

// do performs one round trip against the florist API, unwraps the response
// envelope and maps failures to coded errors. out may be nil for calls whose
// payload is irrelevant.
func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "encoding request body")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "building request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return apperrors.Wrap(apperrors.CodeTimeout, err, "florist api timed out")
		}
		if errors.Is(err, context.Canceled) {
			return apperrors.Wrap(apperrors.CodeTimeout, err, "florist api call canceled")
		}
		return apperrors.Wrap(apperrors.CodeUpstream, err, "calling florist api")
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeUpstream, err, "reading florist response")
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return c.statusError(resp.StatusCode, payload)
	}
	if out == nil {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return apperrors.Wrap(apperrors.CodeUpstream, err, "decoding florist envelope")
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return apperrors.New(apperrors.CodeUpstream, "florist response missing data")
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return apperrors.Wrap(apperrors.CodeUpstream, err, "decoding florist payload")
	}
	return nil
}

// statusError maps an upstream HTTP failure onto a coded error, preferring
// the envelope's message when one is present.
func (c *Client) statusError(status int, payload []byte) error {
	message := upstreamMessage(payload)

	switch {
	case status == http.StatusUnauthorized:
		if message == "" {
			message = "authentication required"
		}
		return apperrors.New(apperrors.CodeUnauthorized, message)
	case status == http.StatusForbidden:
		if message == "" {
			message = "access denied"
		}
		return apperrors.New(apperrors.CodeForbidden, message)
	case status == http.StatusNotFound:
		if message == "" {
			message = "resource not found"
		}
		return apperrors.New(apperrors.CodeNotFound, message)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return apperrors.New(apperrors.CodeTimeout, "florist api timed out")
	case status >= http.StatusInternalServerError:
		return apperrors.New(apperrors.CodeUpstream, fmt.Sprintf("florist api returned %d", status))
	default:
		if message == "" {
			message = fmt.Sprintf("florist api rejected the request (%d)", status)
		}
		return apperrors.New(apperrors.CodeValidation, message)
	}
}

func upstreamMessage(payload []byte) string {
	var env envelope
	if err := json.Unmarshal(payload, &env); err == nil && env.Message != "" {
		return env.Message
	}
	var fallback struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(payload, &fallback); err == nil {
		if fallback.Message != "" {
			return fallback.Message
		}
		return fallback.Error
	}
	return ""
}
