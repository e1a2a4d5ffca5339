// Package ai asks a chat-completions endpoint for structured support answers,
// grounded on the canvas reference documents. Responses must match a strict
// two-shape schema; anything else is a hard error.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const userAgent = "stonepheus; contact=slack=U08CJCZ2Z9S"

// DocumentSource supplies the reference context for prompts.
type DocumentSource interface {
	FAQ(ctx context.Context) (string, error)
	Theme(ctx context.Context) (string, error)
}

// Answer is the validated support response. OK false carries only Reason.
type Answer struct {
	OK          bool
	Answer      string
	Explanation string
	Reason      string
}

// FAQResult is the validated verbatim section lookup response.
type FAQResult struct {
	Found bool
	Text  string
}

// Client calls the chat-completions endpoint.
type Client struct {
	http    *http.Client
	baseURL string
	model   string
	docs    DocumentSource
}

// NewClient builds an AI client. httpClient may be nil.
func NewClient(httpClient *http.Client, baseURL, model string, docs DocumentSource) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		docs:    docs,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
}

type responseFormat struct {
	Type       string     `json:"type"`
	JSONSchema jsonSchema `json:"json_schema"`
}

type jsonSchema struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Ask answers a free-text support query using the theme and FAQ documents.
func (c *Client) Ask(ctx context.Context, query string) (Answer, error) {
	var faq, theme string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		faq, err = c.docs.FAQ(gctx)
		return err
	})
	g.Go(func() (err error) {
		theme, err = c.docs.Theme(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Answer{}, err
	}

	content, err := c.complete(ctx, chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: supportPrompt},
			{Role: "user", Content: "Theme info:\n\n" + theme},
			{Role: "user", Content: "FAQ knowledge base:\n\n" + faq},
			{Role: "user", Content: query},
		},
		ResponseFormat: responseFormat{
			Type:       "json_schema",
			JSONSchema: jsonSchema{Name: "query_result", Schema: answerSchema},
		},
	})
	if err != nil {
		return Answer{}, err
	}
	return parseAnswer(content)
}

// FAQSection looks up a verbatim FAQ section by name.
func (c *Client) FAQSection(ctx context.Context, query string) (FAQResult, error) {
	faq, err := c.docs.FAQ(ctx)
	if err != nil {
		return FAQResult{}, err
	}
	content, err := c.complete(ctx, chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: faqSectionPrompt},
			{Role: "user", Content: "FAQ knowledge base:\n\n" + faq},
			{Role: "user", Content: query},
		},
		ResponseFormat: responseFormat{
			Type:       "json_schema",
			JSONSchema: jsonSchema{Name: "faq_result", Schema: faqSchema},
		},
	})
	if err != nil {
		return FAQResult{}, err
	}
	return parseFAQResult(content)
}

func (c *Client) complete(ctx context.Context, payload chatRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	res, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", fmt.Errorf("ai completion http %d: %s", res.StatusCode, strings.TrimSpace(string(data)))
	}
	var out chatResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decode ai response: %w", err)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("no message returned by ai")
	}
	return out.Choices[0].Message.Content, nil
}

func parseAnswer(content string) (Answer, error) {
	var raw struct {
		OK          *bool  `json:"ok"`
		Answer      string `json:"answer"`
		Explanation string `json:"explanation"`
		Reason      string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return Answer{}, fmt.Errorf("malformed ai answer: %w", err)
	}
	if raw.OK == nil {
		return Answer{}, fmt.Errorf("ai answer missing ok field: %s", content)
	}
	if *raw.OK && (raw.Answer == "" || raw.Explanation == "") {
		return Answer{}, fmt.Errorf("ai answer missing answer/explanation: %s", content)
	}
	return Answer{OK: *raw.OK, Answer: raw.Answer, Explanation: raw.Explanation, Reason: raw.Reason}, nil
}

func parseFAQResult(content string) (FAQResult, error) {
	var raw struct {
		Found *bool  `json:"found"`
		Text  string `json:"text"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return FAQResult{}, fmt.Errorf("malformed faq result: %w", err)
	}
	if raw.Found == nil {
		return FAQResult{}, fmt.Errorf("faq result missing found field: %s", content)
	}
	if *raw.Found && raw.Text == "" {
		return FAQResult{}, fmt.Errorf("faq result missing text: %s", content)
	}
	return FAQResult{Found: *raw.Found, Text: raw.Text}, nil
}
