package pagecache

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// NewHTTPFetcher returns a Fetcher that issues a single GET per call with
// no retries; any timeout must come from the client's own configuration.
// A nil client uses http.DefaultClient. Responses outside the 2xx range
// are reported as errors naming the status.
func NewHTTPFetcher(client *http.Client) Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context, url string) (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return "", err
		}
		resp, err := client.Do(req)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", err
		}
		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			return "", fmt.Errorf("unexpected status %s for %s", resp.Status, url)
		}
		return string(body), nil
	}
}
