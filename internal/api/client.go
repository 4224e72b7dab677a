package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/hammamikhairi/guidedcook/internal/domain"
	"github.com/hammamikhairi/guidedcook/internal/logger"
)

// Compile-time interface checks.
var (
	_ domain.RecipeService = (*Client)(nil)
	_ domain.PhotoService  = (*Client)(nil)
)

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPTimeout sets the HTTP client timeout.
func WithHTTPTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.http.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// Client talks to the recipe backend. Every request carries the bearer
// token from the AuthProvider.
type Client struct {
	base string
	auth domain.AuthProvider
	http *http.Client
	log  *logger.Logger
}

// NewClient creates a backend client rooted at baseURL.
func NewClient(baseURL string, auth domain.AuthProvider, log *logger.Logger, opts ...ClientOption) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		auth: auth,
		http: &http.Client{Timeout: 15 * time.Second},
		log:  log,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// GetRecipe fetches the snapshot of one recipe.
func (c *Client) GetRecipe(ctx context.Context, recipeID string) (*domain.RecipeSnapshot, error) {
	path, err := recipePath(recipeID, "")
	if err != nil {
		return nil, err
	}
	var r domain.RecipeSnapshot
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// MarkComplete records a repeat cook of a recipe already in the collection.
func (c *Client) MarkComplete(ctx context.Context, recipeID string, cookedAt time.Time) error {
	path, err := recipePath(recipeID, "/complete")
	if err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodPost, path, CookedRequest{CookedAt: cookedAt.UTC()}, nil)
}

// SavePublicRecipe copies a public recipe into the caller's collection.
func (c *Client) SavePublicRecipe(ctx context.Context, recipeID string, cookedAt time.Time) error {
	path, err := recipePath(recipeID, "/save-public")
	if err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodPost, path, CookedRequest{CookedAt: cookedAt.UTC()}, nil)
}

// SaveToCollection adds the recipe to the collection, with an optional
// dish photo.
func (c *Client) SaveToCollection(ctx context.Context, recipeID string, photo *domain.PhotoMetadata, cookedAt time.Time) error {
	if recipeID == "" {
		return domain.NewPreconditionError("save to collection", domain.ErrMissingRecipeID)
	}
	body := SaveRequest{RecipeID: recipeID, Photo: photo, CookedAt: cookedAt.UTC()}
	return c.doJSON(ctx, http.MethodPost, "/saved-recipes", body, nil)
}

// SavedRecipes lists the caller's collection.
func (c *Client) SavedRecipes(ctx context.Context) ([]domain.SavedRecipe, error) {
	var resp SavedRecipesResponse
	if err := c.doJSON(ctx, http.MethodGet, "/saved-recipes", nil, &resp); err != nil {
		return nil, err
	}
	return resp.SavedRecipes, nil
}

// UserRating returns the caller's rating, or nil when unrated.
func (c *Client) UserRating(ctx context.Context, recipeID string) (*domain.Rating, error) {
	path, err := recipePath(recipeID, "/rating")
	if err != nil {
		return nil, err
	}
	var resp RatingResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Rating, nil
}

// SubmitRating sends a 1..5 star rating.
func (c *Client) SubmitRating(ctx context.Context, recipeID string, stars int, comment string) error {
	path, err := recipePath(recipeID, "/ratings")
	if err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodPost, path, RatingRequest{Rating: stars, Comment: comment}, nil)
}

// UploadPhoto posts a JPEG as multipart form data.
func (c *Client) UploadPhoto(ctx context.Context, recipeID string, jpeg []byte) (*domain.PhotoMetadata, error) {
	path, err := recipePath(recipeID, "/photos")
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename="dish.jpg"`, PhotoField))
	h.Set("Content-Type", "image/jpeg")
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("api: create photo part: %w", err)
	}
	if _, err := part.Write(jpeg); err != nil {
		return nil, fmt.Errorf("api: write photo part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("api: close multipart: %w", err)
	}

	var meta domain.PhotoMetadata
	if err := c.do(ctx, http.MethodPost, path, &buf, mw.FormDataContentType(), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// PhotoCount returns how many dish photos the recipe holds.
func (c *Client) PhotoCount(ctx context.Context, recipeID string) (int, error) {
	path, err := recipePath(recipeID, "/photos/count")
	if err != nil {
		return 0, err
	}
	var resp CountResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func recipePath(recipeID, suffix string) (string, error) {
	if recipeID == "" {
		return "", domain.NewPreconditionError("build request", domain.ErrMissingRecipeID)
	}
	return "/recipes/" + url.PathEscape(recipeID) + suffix, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api: marshal %s body: %w", path, err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, body, contentType, out)
}

// do sends one request and maps the answer onto domain errors: 409 photo
// limit to *LimitExceededError, 401/403 to a precondition failure, 404 to
// ErrNotFound, 429/5xx and transport failures to *TransientError.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	if c.auth == nil {
		return domain.NewPreconditionError(method+" "+path, domain.ErrMissingCredential)
	}
	cred, err := c.auth.Credential(ctx)
	if err != nil {
		return domain.NewPreconditionError(method+" "+path, err)
	}
	if cred.Token == "" {
		return domain.NewPreconditionError(method+" "+path, domain.ErrMissingCredential)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("api: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.Token)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	c.log.Debug("%s %s", method, path)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("api: %s %s: %w", method, path, ctxErr)
		}
		return domain.NewTransientError(fmt.Errorf("api: %s %s: %w", method, path, err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.NewTransientError(fmt.Errorf("api: read response: %w", err))
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || len(respBody) == 0 {
			return nil
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("api: unmarshal %s response: %w", path, err)
		}
		return nil
	}

	var apiErr ErrorResponse
	_ = json.Unmarshal(respBody, &apiErr)
	statusErr := fmt.Errorf("api: %s %s: %s: %s", method, path, resp.Status, apiErr.Error)

	switch {
	case resp.StatusCode == http.StatusConflict && apiErr.Error == ErrPhotoLimitExceeded:
		return &domain.LimitExceededError{Current: apiErr.Current, Max: apiErr.Max}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.NewPreconditionError(method+" "+path, errors.Join(domain.ErrMissingCredential, statusErr))
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %w", domain.ErrNotFound, statusErr)
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%w: %w", domain.ErrAlreadyExists, statusErr)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return domain.NewTransientError(statusErr)
	default:
		return statusErr
	}
}
