package lookup

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// Provider turns a free-text query into candidate items.
type Provider interface {
	Search(ctx context.Context, query string) ([]Item, error)
}

// Error reports that the lookup provider was unreachable or answered with
// something unusable.
type Error struct {
	Query string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("lookup %q failed: %v", e.Query, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// YouTube searches videos through the YouTube Data API v3.
type YouTube struct {
	svc        *youtube.Service
	maxResults int64
	logger     hclog.Logger
}

// NewYouTube builds a client authenticated with an API key. endpoint may be
// empty to use the public API. Without a key the client is still built, so
// the rest of the service can run; searches then fail with *Error.
func NewYouTube(ctx context.Context, apiKey, endpoint string, maxResults int64, logger hclog.Logger) (*YouTube, error) {
	var opts []option.ClientOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	} else {
		opts = append(opts, option.WithoutAuthentication())
	}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}

	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("could not create youtube client: %w", err)
	}
	if maxResults <= 0 {
		maxResults = 10
	}
	return &YouTube{svc: svc, maxResults: maxResults, logger: logger}, nil
}

func (y *YouTube) Search(ctx context.Context, query string) ([]Item, error) {
	y.logger.Debug("searching", "query", query)

	resp, err := y.svc.Search.List([]string{"snippet"}).
		Q(query).
		Type("video").
		MaxResults(y.maxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, &Error{Query: query, Err: err}
	}

	items := make([]Item, 0, len(resp.Items))
	for _, r := range resp.Items {
		var it Item
		if r.Id != nil {
			it.RemoteID = r.Id.VideoId
		}
		if r.Snippet != nil {
			it.Title = r.Snippet.Title
		}
		items = append(items, it)
	}
	return items, nil
}
