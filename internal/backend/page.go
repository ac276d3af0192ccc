package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"Skillnet/internal/core/feed"
)

// Page list keys used by the backend
const (
	PostsKey    = "Posts"
	CommentsKey = "Comments"
	ProjectsKey = "projects"
)

const (
	nextPageKey = "NextPageURL"
	hasMoreKey  = "HasMore"
)

// PageFetcher adapts a Client to feed.Fetcher for one list type
type PageFetcher struct {
	client    *Client
	validator *PageValidator
	itemsKey  string
}

var _ feed.Fetcher = (*PageFetcher)(nil)

// NewPageFetcher creates a fetcher that reads items from data[itemsKey]
func NewPageFetcher(client *Client, itemsKey string) (*PageFetcher, error) {
	if client == nil {
		return nil, fmt.Errorf("backend: client is required")
	}
	if itemsKey == "" {
		return nil, fmt.Errorf("backend: items key is required")
	}

	p := &PageFetcher{client: client, itemsKey: itemsKey}
	if client.validate {
		v, err := NewPageValidator(itemsKey)
		if err != nil {
			return nil, err
		}
		p.validator = v
	}
	return p, nil
}

// FetchPage implements feed.Fetcher. HasMore is the server's explicit
// HasMore field when present, otherwise true only for a non-empty page that
// names a next URL.
func (p *PageFetcher) FetchPage(ctx context.Context, pageURL string) (*feed.RawPage, error) {
	data, err := p.client.send(ctx, http.MethodGet, pageURL, nil, "")
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, fmt.Errorf("GET %s: %w: missing data", pageURL, ErrMalformedResponse)
	}

	if p.validator != nil {
		if err := p.validator.Validate(data); err != nil {
			return nil, err
		}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("GET %s: %w: %v", pageURL, ErrMalformedResponse, err)
	}

	page := &feed.RawPage{}
	if raw, ok := fields[p.itemsKey]; ok && !bytes.Equal(raw, []byte("null")) {
		if err := json.Unmarshal(raw, &page.Items); err != nil {
			return nil, fmt.Errorf("GET %s: %w: %s: %v", pageURL, ErrMalformedResponse, p.itemsKey, err)
		}
	}
	if raw, ok := fields[nextPageKey]; ok && !bytes.Equal(raw, []byte("null")) {
		if err := json.Unmarshal(raw, &page.NextPageURL); err != nil {
			return nil, fmt.Errorf("GET %s: %w: %s: %v", pageURL, ErrMalformedResponse, nextPageKey, err)
		}
	}
	if page.NextPageURL != "" {
		page.NextPageURL = p.client.URL(page.NextPageURL)
	}

	if raw, ok := fields[hasMoreKey]; ok {
		if err := json.Unmarshal(raw, &page.HasMore); err != nil {
			return nil, fmt.Errorf("GET %s: %w: %s: %v", pageURL, ErrMalformedResponse, hasMoreKey, err)
		}
	} else {
		page.HasMore = len(page.Items) > 0 && page.NextPageURL != ""
	}

	return page, nil
}
