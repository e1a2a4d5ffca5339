// Package scrape looks up showcase project metadata for link previews,
// combining the public project API with the rendered project page.
package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/hackclub/stonepheus/internal/domain"
)

// Service fetches project metadata from the showcase site.
type Service struct {
	http    *http.Client
	baseURL string
	session string
	logger  *zap.Logger
}

// NewService builds the lookup service. session may be empty, in which case
// the page scrape (screenshot, elapsed time) is skipped. httpClient may be nil.
func NewService(httpClient *http.Client, baseURL, session string, logger *zap.Logger) *Service {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Service{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		session: session,
		logger:  logger,
	}
}

type apiProject struct {
	Error         string `json:"error"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	RepoURL       string `json:"repo_url"`
	DemoURL       string `json:"demo_url"`
	WeekBadgeText string `json:"week_badge_text"`
}

// GetProjectInfo returns metadata for the given project id, or nil when the
// id does not resolve to a project. Page-scrape data degrades gracefully; API
// data is required.
func (s *Service) GetProjectInfo(ctx context.Context, id int) (*domain.Project, error) {
	api, err := s.fetchAPI(ctx, id)
	if err != nil {
		return nil, err
	}
	if api == nil {
		return nil, nil
	}

	project := &domain.Project{
		Title:       api.Name,
		Week:        parseWeekBadge(api.WeekBadgeText),
		Description: strings.ReplaceAll(api.Description, "\r\n", " "),
		RepoURL:     api.RepoURL,
		DemoURL:     api.DemoURL,
		TimeText:    "0h 0m",
	}

	if s.session != "" {
		if page, err := s.fetchPage(ctx, id); err != nil {
			s.logger.Warn("project page scrape failed", zap.Int("id", id), zap.Error(err))
		} else if page != nil {
			project.ScreenshotURL = page.screenshotURL
			if page.timeText != "" {
				project.TimeText = page.timeText
			}
		}
	}

	return project, nil
}

func (s *Service) fetchAPI(ctx context.Context, id int) (*apiProject, error) {
	url := fmt.Sprintf("%s/api/public-beta/project/%d", s.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	res, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("project api http %d", res.StatusCode)
	}
	var out apiProject
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode project api: %w", err)
	}
	if out.Error != "" {
		return nil, nil
	}
	return &out, nil
}

type pageInfo struct {
	screenshotURL string
	timeText      string
}

func (s *Service) fetchPage(ctx context.Context, id int) (*pageInfo, error) {
	url := fmt.Sprintf("%s/projects/%d", s.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cookie", "_siege_session="+s.session)
	res, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("project page http %d", res.StatusCode)
	}
	root, err := html.Parse(res.Body)
	if err != nil {
		return nil, fmt.Errorf("parse project page: %w", err)
	}
	if findByClass(root, "h1", "projects-title") == nil {
		// Not a project page (deleted or access denied).
		return nil, nil
	}
	info := &pageInfo{}
	if container := findByClass(root, "", "project-screenshots"); container != nil {
		if img := findByClass(container, "img", ""); img != nil {
			info.screenshotURL = attr(img, "src")
		}
	}
	if node := findByClass(root, "", "project-week-time"); node != nil {
		text := strings.TrimSpace(textContent(node))
		if idx := strings.LastIndex(text, ": "); idx >= 0 {
			text = text[idx+2:]
		}
		info.timeText = text
	}
	return info, nil
}

func parseWeekBadge(badge string) int {
	week, _ := strconv.Atoi(strings.TrimPrefix(badge, "Week "))
	return week
}

// findByClass walks the tree for the first element matching tag (any when
// empty) and class (any when empty).
func findByClass(n *html.Node, tag, class string) *html.Node {
	if n.Type == html.ElementNode {
		if (tag == "" || n.Data == tag) && (class == "" || hasClass(n, class)) {
			return n
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByClass(c, tag, class); found != nil {
			return found
		}
	}
	return nil
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return sb.String()
}
