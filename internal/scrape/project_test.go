package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

const projectPage = `<html><body>
<h1 class="projects-title">Castle Sim</h1>
<div class="project-screenshots"><img src="https://cdn/shot.png"></div>
<div class="project-week-time">Time this week: 4h 20m</div>
</body></html>`

func showcaseServer(t *testing.T, apiStatus int, apiBody string, page string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/public-beta/project/42", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(apiStatus)
		fmt.Fprint(w, apiBody)
	})
	mux.HandleFunc("/projects/42", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Cookie") != "_siege_session=s3cret" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		fmt.Fprint(w, page)
	})
	return httptest.NewServer(mux)
}

const apiBody = `{"name":"Castle Sim","description":"a castle\r\nbuilder","repo_url":"https://git/x","demo_url":"https://demo/x","week_badge_text":"Week 3"}`

func TestGetProjectInfo(t *testing.T) {
	srv := showcaseServer(t, http.StatusOK, apiBody, projectPage)
	defer srv.Close()

	svc := NewService(srv.Client(), srv.URL, "s3cret", zap.NewNop())
	project, err := svc.GetProjectInfo(context.Background(), 42)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if project == nil {
		t.Fatal("project is nil")
	}
	if project.Title != "Castle Sim" || project.Week != 3 {
		t.Errorf("title/week = %q/%d", project.Title, project.Week)
	}
	if project.Description != "a castle builder" {
		t.Errorf("description crlf not flattened: %q", project.Description)
	}
	if project.ScreenshotURL != "https://cdn/shot.png" {
		t.Errorf("screenshot = %q", project.ScreenshotURL)
	}
	if project.TimeText != "4h 20m" {
		t.Errorf("time text = %q", project.TimeText)
	}
	if project.DemoURL != "https://demo/x" || project.RepoURL != "https://git/x" {
		t.Errorf("links = %q / %q", project.DemoURL, project.RepoURL)
	}
}

func TestGetProjectInfoWithoutSession(t *testing.T) {
	srv := showcaseServer(t, http.StatusOK, apiBody, projectPage)
	defer srv.Close()

	svc := NewService(srv.Client(), srv.URL, "", zap.NewNop())
	project, err := svc.GetProjectInfo(context.Background(), 42)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if project.ScreenshotURL != "" {
		t.Errorf("screenshot should be skipped without a session: %q", project.ScreenshotURL)
	}
	if project.TimeText != "0h 0m" {
		t.Errorf("time text = %q, want default", project.TimeText)
	}
}

func TestGetProjectInfoNotFound(t *testing.T) {
	t.Run("http 404", func(t *testing.T) {
		srv := showcaseServer(t, http.StatusNotFound, "not found", "")
		defer srv.Close()

		svc := NewService(srv.Client(), srv.URL, "", zap.NewNop())
		project, err := svc.GetProjectInfo(context.Background(), 42)
		if err != nil || project != nil {
			t.Errorf("got (%+v, %v), want (nil, nil)", project, err)
		}
	})

	t.Run("error payload", func(t *testing.T) {
		srv := showcaseServer(t, http.StatusOK, `{"error":"Project not found"}`, "")
		defer srv.Close()

		svc := NewService(srv.Client(), srv.URL, "", zap.NewNop())
		project, err := svc.GetProjectInfo(context.Background(), 42)
		if err != nil || project != nil {
			t.Errorf("got (%+v, %v), want (nil, nil)", project, err)
		}
	})
}

func TestGetProjectInfoPageFailureDegrades(t *testing.T) {
	srv := showcaseServer(t, http.StatusOK, apiBody, projectPage)
	defer srv.Close()

	// Wrong session cookie makes the page request fail while the API works.
	svc := NewService(srv.Client(), srv.URL, "wrong", zap.NewNop())
	project, err := svc.GetProjectInfo(context.Background(), 42)
	if err != nil {
		t.Fatalf("lookup should degrade, got %v", err)
	}
	if project == nil || project.Title != "Castle Sim" {
		t.Fatalf("api data lost: %+v", project)
	}
	if project.ScreenshotURL != "" {
		t.Errorf("screenshot should be empty on page failure: %q", project.ScreenshotURL)
	}
}

func TestParseWeekBadge(t *testing.T) {
	tests := []struct {
		badge string
		want  int
	}{
		{"Week 3", 3},
		{"Week 12", 12},
		{"", 0},
		{"garbage", 0},
	}
	for _, tt := range tests {
		if got := parseWeekBadge(tt.badge); got != tt.want {
			t.Errorf("parseWeekBadge(%q) = %d, want %d", tt.badge, got, tt.want)
		}
	}
}
