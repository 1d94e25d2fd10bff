package seatalk

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// Default OpenAPI endpoints. The paths are configurable because the
// messaging API has moved between versions before.
const (
	DefaultAPIBaseURL        = "https://openapi.seatalk.io"
	DefaultGroupMessagePath  = "/messaging/v2/group_chat"
	DefaultSingleMessagePath = "/messaging/v2/single_chat"
	DefaultGroupTypingPath   = "/messaging/v2/group_chat_typing"
)

// Client calls the SeaTalk messaging API. Every call fetches a bearer token
// from the TokenManager; failures surface as *AuthError or *TransportError.
type Client struct {
	Auth *TokenManager

	BaseURL           string
	GroupMessagePath  string
	SingleMessagePath string
	GroupTypingPath   string

	http *http.Client
}

// NewClient creates a Client against the given API base. Empty base/paths
// fall back to the defaults. httpClient may be nil.
func NewClient(auth *TokenManager, baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultAPIBaseURL
	}
	return &Client{
		Auth:              auth,
		BaseURL:           strings.TrimRight(baseURL, "/"),
		GroupMessagePath:  DefaultGroupMessagePath,
		SingleMessagePath: DefaultSingleMessagePath,
		GroupTypingPath:   DefaultGroupTypingPath,
		http:              httpClient,
	}
}

// SendGroupMessage posts an arbitrary tagged message to a group chat.
func (c *Client) SendGroupMessage(groupID string, message map[string]any) error {
	return c.post(c.GroupMessagePath, map[string]any{
		"group_id": groupID,
		"message":  message,
	})
}

// SendSingleMessage posts an arbitrary tagged message to a single chat.
func (c *Client) SendSingleMessage(employeeCode string, message map[string]any) error {
	return c.post(c.SingleMessagePath, map[string]any{
		"employee_code": employeeCode,
		"message":       message,
	})
}

func (c *Client) SendGroupText(groupID, content, threadID string) error {
	return c.SendGroupMessage(groupID, withThread(textMessage(content), threadID))
}

func (c *Client) SendSingleText(employeeCode, content, threadID string) error {
	return c.SendSingleMessage(employeeCode, withThread(textMessage(content), threadID))
}

func (c *Client) SendGroupImage(groupID, base64Content, threadID string) error {
	message := map[string]any{"tag": "image", "image": map[string]any{"content": base64Content}}
	return c.SendGroupMessage(groupID, withThread(message, threadID))
}

func (c *Client) SendSingleImage(employeeCode, base64Content, threadID string) error {
	message := map[string]any{"tag": "image", "image": map[string]any{"content": base64Content}}
	return c.SendSingleMessage(employeeCode, withThread(message, threadID))
}

func (c *Client) SendGroupFile(groupID, base64Content, filename, threadID string) error {
	message := map[string]any{
		"tag":  "file",
		"file": map[string]any{"content": base64Content, "filename": filename},
	}
	return c.SendGroupMessage(groupID, withThread(message, threadID))
}

func (c *Client) SendSingleFile(employeeCode, base64Content, filename, threadID string) error {
	message := map[string]any{
		"tag":  "file",
		"file": map[string]any{"content": base64Content, "filename": filename},
	}
	return c.SendSingleMessage(employeeCode, withThread(message, threadID))
}

func (c *Client) SendGroupMarkdown(groupID, content, threadID string) error {
	message := map[string]any{"tag": "markdown", "markdown": map[string]any{"content": content}}
	return c.SendGroupMessage(groupID, withThread(message, threadID))
}

func (c *Client) SendSingleMarkdown(employeeCode, content string) error {
	message := map[string]any{"tag": "markdown", "markdown": map[string]any{"content": content}}
	return c.SendSingleMessage(employeeCode, message)
}

func (c *Client) SendGroupInteractive(groupID string, elements []map[string]any, threadID string) error {
	message := map[string]any{
		"tag":                 "interactive_message",
		"interactive_message": map[string]any{"elements": elements},
	}
	return c.SendGroupMessage(groupID, withThread(message, threadID))
}

func (c *Client) SendSingleInteractive(employeeCode string, elements []map[string]any) error {
	message := map[string]any{
		"tag":                 "interactive_message",
		"interactive_message": map[string]any{"elements": elements},
	}
	return c.SendSingleMessage(employeeCode, message)
}

// SetGroupTypingStatus shows the bot as typing in a group chat.
func (c *Client) SetGroupTypingStatus(groupID, threadID string) error {
	payload := map[string]any{"group_id": groupID}
	if threadID != "" {
		payload["thread_id"] = threadID
	}
	return c.post(c.GroupTypingPath, payload)
}

func textMessage(content string) map[string]any {
	return map[string]any{
		"tag":  "text",
		"text": map[string]any{"format": 2, "content": content},
	}
}

func withThread(message map[string]any, threadID string) map[string]any {
	if threadID != "" {
		message["thread_id"] = threadID
	}
	return message
}

func (c *Client) post(path string, payload map[string]any) error {
	token, err := c.Auth.Get()
	if err != nil {
		return err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, c.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: "post " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{Op: "post " + path, Status: resp.StatusCode}
	}
	return nil
}
