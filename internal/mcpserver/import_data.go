package mcpserver

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/devspace/internal/backup"
)

const (
	maxImportSize     = backup.MaxRestoreSize
	maxImportRedirect = 5
	importTimeout     = 30 * time.Second
)

var importMIME = map[string]bool{
	"application/json": true,
	"text/plain":       true,
	"":                 true,
}

var errTooLarge = fmt.Errorf("document too large (max %d bytes)", maxImportSize)

type importResult struct {
	Projects  int `json:"projects"`
	Tasks     int `json:"tasks"`
	Schedules int `json:"schedules"`
	Payments  int `json:"payments"`
}

func (s *Server) importData(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data, err := loadSource(ctx, source)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.store.ImportData(data); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	info, err := s.store.Info()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(importResult{
		Projects:  info.Projects,
		Tasks:     info.Tasks,
		Schedules: info.Schedules,
		Payments:  info.Payments,
	})
}

// loadSource returns the bytes of an export given as a base64 data URI or
// an http(s) URL.
func loadSource(ctx context.Context, source string) ([]byte, error) {
	if rest, ok := strings.CutPrefix(source, "data:"); ok {
		return decodeDataURI(rest)
	}
	return fetchHTTP(ctx, source)
}

// decodeDataURI decodes the part of a data URI after "data:", which must be
// "[<mediatype>];base64,<payload>".
func decodeDataURI(rest string) ([]byte, error) {
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, errors.New("invalid data URI: missing comma separator")
	}
	mediaType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return nil, errors.New("only base64 data URIs are supported")
	}
	mediaType, _, _ = strings.Cut(mediaType, ";")
	if !importMIME[mediaType] {
		return nil, fmt.Errorf("unsupported MIME type in data URI: %s", mediaType)
	}

	if base64.StdEncoding.DecodedLen(len(payload)) > maxImportSize+2 {
		return nil, errTooLarge
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(payload); err != nil {
			return nil, fmt.Errorf("invalid base64 data: %w", err)
		}
	}
	if len(data) > maxImportSize {
		return nil, errTooLarge
	}
	return data, nil
}

// fetchHTTP downloads an export, refusing hosts on this machine or the
// cloud metadata service, including via redirects.
func fetchHTTP(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme: %q (only data:, http and https)", u.Scheme)
	}
	if err := checkBlockedHost(u.Hostname()); err != nil {
		return nil, err
	}

	client := &http.Client{
		Timeout: importTimeout,
		CheckRedirect: func(next *http.Request, via []*http.Request) error {
			if len(via) >= maxImportRedirect {
				return fmt.Errorf("too many redirects (max %d)", maxImportRedirect)
			}
			return checkBlockedHost(next.URL.Hostname())
		},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImportSize+1))
	if err != nil {
		return nil, fmt.Errorf("read body failed: %w", err)
	}
	if len(data) > maxImportSize {
		return nil, errTooLarge
	}
	return data, nil
}

// checkBlockedHost rejects loopback, unspecified and link-local addresses,
// which covers the 169.254.169.254 metadata endpoint.
func checkBlockedHost(host string) error {
	if host == "" {
		return errors.New("URL has no host")
	}
	if strings.EqualFold(host, "localhost") || strings.EqualFold(host, "metadata.google.internal") {
		return fmt.Errorf("blocked host: %s", host)
	}

	ips := []net.IP{net.ParseIP(host)}
	if ips[0] == nil {
		resolved, err := net.LookupIP(host)
		if err != nil || len(resolved) == 0 {
			return nil //nolint:nilerr // the client reports DNS failures
		}
		ips = resolved
	}
	for _, ip := range ips {
		if ip.IsLoopback() || ip.IsUnspecified() || ip.IsLinkLocalUnicast() {
			return fmt.Errorf("blocked host: %s resolves to %s", host, ip)
		}
	}
	return nil
}
