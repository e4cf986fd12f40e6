package editor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cipherstudio/studio/internal/apierrors"
	"github.com/cipherstudio/studio/internal/entity"
	"github.com/cipherstudio/studio/internal/jsonldb"
)

// Client is the HTTP implementation of Remote against the studio server API.
type Client struct {
	base   string
	token  string
	client *http.Client
}

// NewClient creates a client for the server at base (e.g.
// "http://localhost:3001") authenticating with the given bearer token.
func NewClient(base, token string) *Client {
	return &Client{
		base:   strings.TrimRight(base, "/"),
		token:  token,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// projectPayload is the writable subset of a project sent on save. The id is
// included so a first save creates the project under the id the editor
// already uses locally.
type projectPayload struct {
	ID          jsonldb.ID             `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Tags        []string               `json:"tags"`
	IsPublic    bool                   `json:"isPublic"`
	Version     int64                  `json:"version"`
	Settings    entity.ProjectSettings `json:"settings"`
	Files       []entity.FileNode      `json:"files"`
}

func (c *Client) Get(ctx context.Context, id jsonldb.ID) (*entity.Project, error) {
	var p entity.Project
	if err := c.do(ctx, http.MethodGet, "/api/projects/"+id.String(), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) Put(ctx context.Context, p *entity.Project) (*entity.Project, error) {
	body := projectPayload{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Tags:        p.Tags,
		IsPublic:    p.IsPublic,
		Version:     p.Version,
		Settings:    p.Settings,
		Files:       p.Files,
	}
	var server entity.Project
	err := c.do(ctx, http.MethodPut, "/api/projects/"+p.ID.String(), body, &server)
	if errors.Is(err, ErrProjectNotFound) {
		// First save of a locally created project.
		err = c.do(ctx, http.MethodPost, "/api/projects", body, &server)
	}
	if err != nil {
		return nil, err
	}
	return &server, nil
}

func (c *Client) Delete(ctx context.Context, id jsonldb.ID) error {
	err := c.do(ctx, http.MethodDelete, "/api/projects/"+id.String(), nil, nil)
	if errors.Is(err, ErrProjectNotFound) {
		return nil
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrProjectNotFound
	case resp.StatusCode == http.StatusConflict:
		return ErrVersionConflict
	case resp.StatusCode >= 400:
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var er apierrors.ErrorResponse
	if err := json.Unmarshal(raw, &er); err == nil && er.Error.Message != "" {
		return fmt.Errorf("server: %s (%s)", er.Error.Message, er.Error.Code)
	}
	return fmt.Errorf("server: unexpected status %d", resp.StatusCode)
}
