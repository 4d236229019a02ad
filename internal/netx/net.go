// Package netx fetches remote objects over HTTP, typically S3 pre-signed
// GET URLs.
package netx

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/deadswitch/internal/filex"
)

// DefaultClient bounds the whole request.
var DefaultClient = &http.Client{Timeout: 60 * time.Second}

// Download GETs url and returns at most limit bytes of the body. Any status
// other than 200 is an error that includes a short excerpt of the body.
func Download(ctx context.Context, client *http.Client, url string, limit int64) ([]byte, error) {
	if client == nil {
		client = DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/octet-stream, text/plain, */*")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("download failed: %s; body: %s", resp.Status, string(b))
	}

	return filex.ReadLimited(resp.Body, limit)
}
