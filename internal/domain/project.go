package domain

// Project is showcase metadata used to build link previews.
type Project struct {
	Title         string
	Week          int
	Description   string
	DemoURL       string
	RepoURL       string
	ScreenshotURL string
	TimeText      string
}
