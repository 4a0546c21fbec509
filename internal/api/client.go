// Package api is the REST client for the worship platform API. It covers the
// endpoints the live event console consumes: the event aggregate, event song
// mutations, manager assignment, live selection and band membership.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/liveworship/internal/worship"
)

// Error is a non-2xx response from the API.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api: %d: %s", e.Status, e.Message)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Token      func() string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client issues authenticated JSON requests.
type Client struct {
	base    *url.URL
	token   func() string
	timeout time.Duration
	http    *http.Client
	logger  *slog.Logger
}

// New validates opts and returns a Client.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("api: invalid base url %q", opts.BaseURL)
	}
	token := opts.Token
	if token == nil {
		token = func() string { return "" }
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		base:    base,
		token:   token,
		timeout: timeout,
		http:    httpClient,
		logger:  logger.With("component", "api"),
	}, nil
}

// EventDetails is the editable metadata of an event.
type EventDetails struct {
	Title string    `json:"title"`
	Date  time.Time `json:"date"`
}

// ManagerAssignment is the result of an event-manager reassignment.
type ManagerAssignment struct {
	BandID   string `json:"bandId"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

// GetEvent fetches the event aggregate with nested songs, lyrics and chords.
func (c *Client) GetEvent(ctx context.Context, bandID, eventID string) (worship.Event, error) {
	var event worship.Event
	err := c.do(ctx, http.MethodGet, path("bands", bandID, "events", eventID), nil, &event)
	return event, err
}

// AddSong appends a catalog song to the event.
func (c *Client) AddSong(ctx context.Context, eventID, songID string) (worship.Event, error) {
	var event worship.Event
	body := map[string]string{"songId": songID}
	err := c.do(ctx, http.MethodPost, path("events", eventID, "songs"), body, &event)
	return event, err
}

// RemoveSong deletes an event song.
func (c *Client) RemoveSong(ctx context.Context, eventID, eventSongID string) (worship.Event, error) {
	var event worship.Event
	err := c.do(ctx, http.MethodDelete, path("events", eventID, "songs", eventSongID), nil, &event)
	return event, err
}

// ReorderSongs stores a new song order given as event song ids.
func (c *Client) ReorderSongs(ctx context.Context, eventID string, eventSongIDs []string) (worship.Event, error) {
	var event worship.Event
	body := map[string][]string{"eventSongIds": eventSongIDs}
	err := c.do(ctx, http.MethodPut, path("events", eventID, "songs", "order"), body, &event)
	return event, err
}

// UpdateTranspose stores the transpose offset of an event song.
func (c *Client) UpdateTranspose(ctx context.Context, eventID, eventSongID string, transpose int) (worship.Event, error) {
	var event worship.Event
	body := map[string]int{"transpose": transpose}
	err := c.do(ctx, http.MethodPatch, path("events", eventID, "songs", eventSongID), body, &event)
	return event, err
}

// UpdateEvent stores event metadata.
func (c *Client) UpdateEvent(ctx context.Context, eventID string, details EventDetails) (worship.Event, error) {
	var event worship.Event
	err := c.do(ctx, http.MethodPatch, path("events", eventID), details, &event)
	return event, err
}

// SetEventManager assigns the band's single event manager.
func (c *Client) SetEventManager(ctx context.Context, bandID, userID string) (ManagerAssignment, error) {
	var assignment ManagerAssignment
	body := map[string]string{"userId": userID}
	err := c.do(ctx, http.MethodPut, path("bands", bandID, "event-manager"), body, &assignment)
	return assignment, err
}

// SelectLyric stores the live lyric selection; the server broadcasts it.
func (c *Client) SelectLyric(ctx context.Context, eventID string, selection worship.Selection) error {
	return c.do(ctx, http.MethodPut, path("events", eventID, "lyric-selection"), selection, nil)
}

// SelectSong stores the live song selection; the server broadcasts it.
func (c *Client) SelectSong(ctx context.Context, eventID, songID string) error {
	body := map[string]string{"songId": songID}
	return c.do(ctx, http.MethodPut, path("events", eventID, "selected-song"), body, nil)
}

// Members lists the memberships of a band.
func (c *Client) Members(ctx context.Context, bandID string) ([]worship.Membership, error) {
	var members []worship.Membership
	err := c.do(ctx, http.MethodGet, path("bands", bandID, "members"), nil, &members)
	return members, err
}

func path(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return "/" + strings.Join(escaped, "/")
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, p string, in, out any) (err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	started := time.Now()
	status := 0
	defer func() {
		c.logger.DebugContext(ctx, "api request completed",
			"method", method,
			"path", p,
			"status", status,
			"duration", time.Since(started),
			"error", err,
		)
	}()

	var body io.Reader
	if in != nil {
		payload, mErr := json.Marshal(in)
		if mErr != nil {
			return fmt.Errorf("api: encode %s %s: %w", method, p, mErr)
		}
		body = bytes.NewReader(payload)
	}

	target := *c.base
	target.Path = c.base.Path + p
	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return fmt.Errorf("api: build %s %s: %w", method, p, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", method, p, err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decode %s %s: %w", method, p, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &Error{Status: resp.StatusCode}

	var parsed errorBody
	if json.Unmarshal(raw, &parsed) == nil {
		apiErr.Code = parsed.Code
		apiErr.Message = parsed.Message
		if apiErr.Message == "" {
			apiErr.Message = parsed.Error
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
