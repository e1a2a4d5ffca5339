// Package canvas serves the reference documents (FAQ and theme canvases)
// that ground the AI assistant, caching their text with a freshness window.
package canvas

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// FileSource fetches canvas files from the messaging provider.
type FileSource interface {
	FileDownloadURL(ctx context.Context, fileID string) (string, error)
	DownloadFile(ctx context.Context, url string, w io.Writer) error
}

// Service resolves the FAQ and theme documents through the cache.
type Service struct {
	cache       *Cache
	faqFileID   string
	themeFileID string
}

// NewService builds the canvas service. The cache store decides where the
// documents live between refreshes.
func NewService(source FileSource, store Store, faqFileID, themeFileID string, ttl time.Duration) *Service {
	loader := func(ctx context.Context, fileID string) (string, error) {
		return fetchCanvasText(ctx, source, fileID)
	}
	return &Service{
		cache:       NewCache(store, loader, ttl),
		faqFileID:   faqFileID,
		themeFileID: themeFileID,
	}
}

// FAQ returns the FAQ document text.
func (s *Service) FAQ(ctx context.Context) (string, error) {
	return s.cache.Get(ctx, s.faqFileID)
}

// Theme returns the theme document text.
func (s *Service) Theme(ctx context.Context) (string, error) {
	return s.cache.Get(ctx, s.themeFileID)
}

func fetchCanvasText(ctx context.Context, source FileSource, fileID string) (string, error) {
	url, err := source.FileDownloadURL(ctx, fileID)
	if err != nil {
		return "", fmt.Errorf("resolve canvas %s: %w", fileID, err)
	}
	var buf bytes.Buffer
	if err := source.DownloadFile(ctx, url, &buf); err != nil {
		return "", fmt.Errorf("download canvas %s: %w", fileID, err)
	}
	return htmlToText(buf.Bytes())
}

// htmlToText strips markup from an exported canvas, keeping its text content.
func htmlToText(data []byte) (string, error) {
	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("parse canvas html: %w", err)
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return sb.String(), nil
}
