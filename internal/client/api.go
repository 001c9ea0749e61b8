// Package client is the subscriber half of a channel: it keeps a local view
// of one open channel in step with the server and the live broadcast.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"channel-service/internal/chat"
	"channel-service/internal/identity"
	"channel-service/internal/models"
)

// API is the part of the channel HTTP surface a Session needs.
type API interface {
	LoadPage(ctx context.Context, channelID uuid.UUID, cursor string) (chat.PageView, error)
	SendMessage(ctx context.Context, channelID uuid.UUID, content string, parentID *uuid.UUID) (models.MessageView, error)
	NotifyTyping(ctx context.Context, channelID uuid.UUID) error
}

// StatusError is a non-2xx answer from the server.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// HTTPAPI calls the channel endpoints with signed identity headers.
type HTTPAPI struct {
	base      *url.URL
	userID    string
	signature string
	http      *http.Client
}

// NewHTTPAPI builds an HTTPAPI rooted at baseURL.
func NewHTTPAPI(baseURL, userID, signature string) (*HTTPAPI, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	return &HTTPAPI{
		base:      base,
		userID:    userID,
		signature: signature,
		http:      &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (a *HTTPAPI) LoadPage(ctx context.Context, channelID uuid.UUID, cursor string) (chat.PageView, error) {
	query := url.Values{}
	if cursor != "" {
		query.Set("cursor", cursor)
	}
	var page chat.PageView
	err := a.do(ctx, http.MethodGet, "/channels/"+channelID.String()+"/messages", query, nil, &page)
	return page, err
}

func (a *HTTPAPI) SendMessage(ctx context.Context, channelID uuid.UUID, content string, parentID *uuid.UUID) (models.MessageView, error) {
	body := map[string]any{"content": content}
	if parentID != nil {
		body["parent_message_id"] = parentID
	}
	var resp struct {
		Message models.MessageView `json:"message"`
	}
	err := a.do(ctx, http.MethodPost, "/channels/"+channelID.String()+"/messages", nil, body, &resp)
	return resp.Message, err
}

func (a *HTTPAPI) NotifyTyping(ctx context.Context, channelID uuid.UUID) error {
	return a.do(ctx, http.MethodPost, "/channels/"+channelID.String()+"/typing", nil, nil, nil)
}

func (a *HTTPAPI) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := *a.base
	u.Path = a.base.Path + path
	u.RawQuery = query.Encode()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(identity.HeaderUserID, a.userID)
	req.Header.Set(identity.HeaderSignature, a.signature)

	resp, err := a.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return &StatusError{Code: resp.StatusCode, Message: apiErr.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode %s %s", method, path)
	}
	return nil
}
