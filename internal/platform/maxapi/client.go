package maxapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// APIError is returned when the platform answers with a non-2xx status.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("max api returned status: %d, body: %s", e.Status, e.Body)
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type sendMessageReq struct {
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments"`
	Notify      bool         `json:"notify"`
}

// SendMessage posts a plain text message to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	return c.send(ctx, chatID, text, nil)
}

// SendKeyboard posts a message with an inline keyboard; rows are rendered top
// to bottom.
func (c *Client) SendKeyboard(ctx context.Context, chatID int64, text string, rows [][]Button) error {
	return c.send(ctx, chatID, text, []Attachment{{
		Type:    "inline_keyboard",
		Payload: keyboardPayload{Buttons: rows},
	}})
}

func (c *Client) send(ctx context.Context, chatID int64, text string, attachments []Attachment) error {
	if attachments == nil {
		attachments = []Attachment{}
	}
	q := url.Values{"chat_id": {strconv.FormatInt(chatID, 10)}}
	body := sendMessageReq{Text: text, Attachments: attachments, Notify: true}
	if err := c.do(ctx, http.MethodPost, "/messages", q, body, nil); err != nil {
		return fmt.Errorf("failed to send max message: %w", err)
	}
	return nil
}

type answerReq struct {
	Notification string `json:"notification,omitempty"`
}

// AnswerCallback acknowledges a button press, optionally showing a short
// notification to the user.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, notification string) error {
	q := url.Values{"callback_id": {callbackID}}
	return c.do(ctx, http.MethodPost, "/answers", q, answerReq{Notification: notification}, nil)
}

type uploadURLResp struct {
	URL   string `json:"url"`
	Token string `json:"token,omitempty"`
}

type uploadResp struct {
	Token string `json:"token"`
}

// SendFile uploads data as a file attachment and posts it to the chat with a
// caption.
func (c *Client) SendFile(ctx context.Context, chatID int64, caption, fileName string, data []byte) error {
	var target uploadURLResp
	if err := c.do(ctx, http.MethodPost, "/uploads", url.Values{"type": {"file"}}, nil, &target); err != nil {
		return fmt.Errorf("failed to request upload url: %w", err)
	}
	if target.URL == "" {
		return fmt.Errorf("max api returned empty upload url")
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("data", fileName)
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.URL, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{Status: resp.StatusCode, Body: string(b)}
	}

	token := target.Token
	var uploaded uploadResp
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err == nil && uploaded.Token != "" {
		token = uploaded.Token
	}
	if token == "" {
		return fmt.Errorf("max api returned no file token")
	}

	return c.send(ctx, chatID, caption, []Attachment{{Type: "file", Payload: filePayload{Token: token}}})
}

type subscriptionReq struct {
	URL         string   `json:"url"`
	UpdateTypes []string `json:"update_types"`
	Secret      string   `json:"secret,omitempty"`
}

// SetWebhook subscribes the bot to updates delivered to webhookURL.
func (c *Client) SetWebhook(ctx context.Context, webhookURL, secret string) error {
	req := subscriptionReq{URL: webhookURL, UpdateTypes: SubscribedUpdates, Secret: secret}
	return c.do(ctx, http.MethodPost, "/subscriptions", nil, req, nil)
}

func (c *Client) DeleteWebhook(ctx context.Context, webhookURL string) error {
	return c.do(ctx, http.MethodDelete, "/subscriptions", url.Values{"url": {webhookURL}}, nil, nil)
}

// Me returns the bot's own account info.
func (c *Client) Me(ctx context.Context) (*BotInfo, error) {
	var info BotInfo
	if err := c.do(ctx, http.MethodGet, "/me", nil, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out interface{}) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("access_token", c.token)
	endpoint := c.baseURL + path + "?" + query.Encode()

	var reqBody io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{Status: resp.StatusCode, Body: string(b)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
