// Package imagehost uploads listing images to Cloudinary and deletes them
// again. Only the serving URL and the storage key (public id) are kept by
// the application; the binary lives with the host.
package imagehost

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.cloudinary.com"
	uploadFolder   = "YelpCamp"
)

// Image is the stored outcome of an upload.
type Image struct {
	URL      string // secure serving URL
	Filename string // host-side public id, needed for deletion
}

// Client talks to the Cloudinary upload API using signed requests.
type Client struct {
	cloudName string
	apiKey    string
	apiSecret string
	httpc     *http.Client

	// Overridable for testing.
	baseURL string
	now     func() time.Time
}

// NewClient creates an image host client for the given account.
func NewClient(cloudName, apiKey, apiSecret string) (*Client, error) {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, fmt.Errorf("cloudinary credentials are required")
	}
	return &Client{
		cloudName: cloudName,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		httpc:     &http.Client{Timeout: 30 * time.Second},
		baseURL:   defaultBaseURL,
		now:       time.Now,
	}, nil
}

// Upload stores one image and returns its URL and public id.
func (c *Client) Upload(ctx context.Context, r io.Reader, filename string) (Image, error) {
	ts := strconv.FormatInt(c.now().Unix(), 10)
	params := map[string]string{
		"folder":    uploadFolder,
		"timestamp": ts,
	}

	var body strings.Builder
	mw := multipart.NewWriter(&body)
	for k, v := range params {
		if err := mw.WriteField(k, v); err != nil {
			return Image{}, err
		}
	}
	if err := mw.WriteField("api_key", c.apiKey); err != nil {
		return Image{}, err
	}
	if err := mw.WriteField("signature", c.sign(params)); err != nil {
		return Image{}, err
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return Image{}, err
	}
	if _, err := io.Copy(fw, r); err != nil {
		return Image{}, fmt.Errorf("reading upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return Image{}, err
	}

	u := fmt.Sprintf("%s/v1_1/%s/image/upload", c.baseURL, c.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(body.String()))
	if err != nil {
		return Image{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpc.Do(req)
	if err != nil {
		return Image{}, fmt.Errorf("upload request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Image{}, fmt.Errorf("upload status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out struct {
		SecureURL string `json:"secure_url"`
		PublicID  string `json:"public_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Image{}, fmt.Errorf("decoding upload response: %w", err)
	}
	if out.SecureURL == "" || out.PublicID == "" {
		return Image{}, fmt.Errorf("upload response missing url or public id")
	}
	return Image{URL: out.SecureURL, Filename: out.PublicID}, nil
}

// Destroy deletes an uploaded image by public id. A "not found" result
// counts as success, which makes retries from the cleanup consumer
// idempotent.
func (c *Client) Destroy(ctx context.Context, publicID string) error {
	ts := strconv.FormatInt(c.now().Unix(), 10)
	params := map[string]string{
		"public_id": publicID,
		"timestamp": ts,
	}

	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	form.Set("api_key", c.apiKey)
	form.Set("signature", c.sign(params))

	u := fmt.Sprintf("%s/v1_1/%s/image/destroy", c.baseURL, c.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("destroy request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("destroy status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out struct {
		Result string `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decoding destroy response: %w", err)
	}
	switch out.Result {
	case "ok", "not found":
		return nil
	default:
		return fmt.Errorf("destroy result %q", out.Result)
	}
}

// sign computes the Cloudinary request signature: the parameters sorted by
// name, joined as a query string, with the API secret appended, SHA-1
// hashed and hex encoded.
func (c *Client) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + c.apiSecret))
	return hex.EncodeToString(sum[:])
}
