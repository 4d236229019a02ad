// Package payload loads the secret that is disclosed on activation. The
// payload is read exactly once at startup, from a local file, an
// s3://bucket/key object or an http(s) URL such as an S3 pre-signed link,
// and kept sealed in memory afterwards.
package payload

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/deadswitch/internal/common"
	"github.com/dmitrijs2005/deadswitch/internal/cryptox"
	"github.com/dmitrijs2005/deadswitch/internal/filex"
	"github.com/dmitrijs2005/deadswitch/internal/netx"
)

// MaxSize caps the payload; larger inputs do not fit in an email anyway.
const MaxSize = 10 << 20

// S3Options configures access to S3-compatible storage.
type S3Options struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// Load reads src and returns it sealed. Empty (or whitespace-only) content,
// an unreadable source and an oversized source are configuration errors.
func Load(ctx context.Context, src string, opts S3Options) (*cryptox.Sealed, error) {
	var (
		data []byte
		err  error
	)

	switch {
	case strings.HasPrefix(src, "s3://"):
		bucket, key, ok := parseS3URI(src)
		if !ok {
			return nil, fmt.Errorf("%w: malformed payload uri %q", common.ErrInvalidConfig, src)
		}
		data, err = readS3(ctx, bucket, key, opts)
	case strings.HasPrefix(src, "https://"), strings.HasPrefix(src, "http://"):
		data, err = readURL(ctx, src)
	default:
		data, err = readFile(src)
	}
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(data)

	if strings.TrimSpace(string(data)) == "" {
		return nil, fmt.Errorf("%w: %s", common.ErrEmptyPayload, src)
	}

	return cryptox.Seal(data)
}

func readFile(path string) ([]byte, error) {
	data, err := filex.ReadFile(path, MaxSize)
	if err != nil {
		return nil, fmt.Errorf("%w: payload file: %w", common.ErrInvalidConfig, err)
	}
	return data, nil
}

// readURL hides the query string in errors; pre-signed URLs carry credentials there.
func readURL(ctx context.Context, src string) ([]byte, error) {
	shown := src
	if u, err := url.Parse(src); err == nil {
		u.RawQuery = ""
		shown = u.String()
	}

	data, err := netx.Download(ctx, nil, src, MaxSize)
	if err != nil {
		return nil, fmt.Errorf("%w: payload %s: %s", common.ErrInvalidConfig, shown, strings.ReplaceAll(err.Error(), src, shown))
	}
	return data, nil
}

func readLimited(r io.Reader, src string) ([]byte, error) {
	data, err := filex.ReadLimited(r, MaxSize)
	if err != nil {
		return nil, fmt.Errorf("%w: read payload %s: %w", common.ErrInvalidConfig, src, err)
	}
	return data, nil
}

// parseS3URI splits "s3://bucket/key/with/slashes".
func parseS3URI(src string) (bucket, key string, ok bool) {
	if !strings.HasPrefix(src, "s3://") {
		return "", "", false
	}
	u, err := url.Parse(src)
	if err != nil || u.Host == "" {
		return "", "", false
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", false
	}
	return u.Host, key, true
}
