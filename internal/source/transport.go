package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"promobot/internal/model"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// maxMediaBytes bounds a single media download.
const maxMediaBytes = 10 * 1024 * 1024

// Gateway is the production Transport: an HTTP JSON client for an MTProto
// gateway exposing connect, code-request, sign-in, channel search, and
// media endpoints.
type Gateway struct {
	baseURL string
	apiKey  string
	client  HTTPClient
}

// NewGateway creates a Gateway client for the given base URL.
func NewGateway(baseURL, apiKey string, client HTTPClient) *Gateway {
	return &Gateway{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  client,
	}
}

// Connect implements Transport.
func (g *Gateway) Connect(ctx context.Context, sessionString string) (bool, error) {
	var resp struct {
		Authorized bool `json:"authorized"`
	}
	err := g.postJSON(ctx, "/v1/connect", map[string]string{"session": sessionString}, &resp)
	if err != nil {
		return false, err
	}
	return resp.Authorized, nil
}

// RequestCode implements Transport.
func (g *Gateway) RequestCode(ctx context.Context, phone string) (string, error) {
	var resp struct {
		CodeHash string `json:"code_hash"`
	}
	err := g.postJSON(ctx, "/v1/auth/request-code", map[string]string{"phone": phone}, &resp)
	if err != nil {
		return "", err
	}
	if resp.CodeHash == "" {
		return "", fmt.Errorf("gateway returned empty code hash")
	}
	return resp.CodeHash, nil
}

// SignIn implements Transport.
func (g *Gateway) SignIn(ctx context.Context, phone, codeHash, code string) (string, error) {
	var resp struct {
		Session string `json:"session"`
	}
	err := g.postJSON(ctx, "/v1/auth/sign-in", map[string]string{
		"phone":     phone,
		"code_hash": codeHash,
		"code":      code,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Session == "" {
		return "", fmt.Errorf("gateway returned empty session")
	}
	return resp.Session, nil
}

// gatewayMessage is the wire shape of one channel message.
type gatewayMessage struct {
	ID      int64  `json:"id"`
	Channel string `json:"channel"`
	Text    string `json:"text"`
	Date    int64  `json:"date"`
	Media   *struct {
		Type string `json:"type"`
		Ref  string `json:"ref"`
	} `json:"media"`
}

// Search implements Transport.
func (g *Gateway) Search(ctx context.Context, channel string, limit int) ([]model.ContentItem, error) {
	path := fmt.Sprintf("/v1/channels/%s/messages?limit=%d", url.PathEscape(channel), limit)
	req, err := g.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", channel, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search %s: unexpected status %d", channel, resp.StatusCode)
	}

	var payload struct {
		Messages []gatewayMessage `json:"messages"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 5*1024*1024)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	items := make([]model.ContentItem, 0, len(payload.Messages))
	for _, m := range payload.Messages {
		items = append(items, toContentItem(m))
	}
	return items, nil
}

// DownloadMedia implements Transport.
func (g *Gateway) DownloadMedia(ctx context.Context, ref string) ([]byte, string, error) {
	req, err := g.newRequest(ctx, http.MethodGet, "/v1/media/"+url.PathEscape(ref), nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download media: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download media: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read media body: %w", err)
	}

	filename := resp.Header.Get("X-Filename")
	if filename == "" {
		filename = ref + ".jpg"
	}
	return data, filename, nil
}

// Disconnect implements Transport.
func (g *Gateway) Disconnect(ctx context.Context) error {
	return g.postJSON(ctx, "/v1/disconnect", map[string]string{}, nil)
}

func (g *Gateway) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}
	return req, nil
}

func (g *Gateway) postJSON(ctx context.Context, path string, body any, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := g.newRequest(ctx, http.MethodPost, path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("post %s: unexpected status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1024*1024)).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func toContentItem(m gatewayMessage) model.ContentItem {
	item := model.ContentItem{
		ID:          fmt.Sprintf("%s/%d", m.Channel, m.ID),
		Source:      m.Channel,
		Text:        m.Text,
		PublishedAt: time.Unix(m.Date, 0).UTC(),
	}
	if m.Media != nil {
		kind := model.MediaKind(m.Media.Type)
		switch kind {
		case model.MediaPhoto, model.MediaVideo, model.MediaDocument:
		default:
			kind = model.MediaOther
		}
		item.Media = &model.Media{Kind: kind, Ref: m.Media.Ref}
	}
	return item
}
