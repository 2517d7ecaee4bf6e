// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package vatsim is an HTTP client for the VATSIM API, used to fetch
// per-controller ATC session history.
package vatsim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the production VATSIM API endpoint.
const DefaultBaseURL = "https://api.vatsim.net/api"

// timestampLayout matches VATSIM API timestamps, which carry optional
// fractional seconds and a trailing Z (e.g. "2024-03-02T16:20:37.0439318Z").
const timestampLayout = "2006-01-02T15:04:05.999999999Z"

// ParseTimestamp parses a VATSIM API timestamp into a UTC time.Time.
func ParseTimestamp(stamp string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, stamp)
	if err != nil {
		return time.Time{}, fmt.Errorf(
			"parsing VATSIM timestamp %q: %w",
			stamp,
			err,
		)
	}
	return t.UTC(), nil
}

// Session is a single ATC session for a controller.
type Session struct {
	ConnectionID uint64 `json:"connection_id"`
	CID          uint64 `json:"vatsim_id,string"`
	Callsign     string `json:"callsign"`
	Start        string `json:"start"`
	End          string `json:"end"`
	// MinutesOnCallsign is a decimal string (e.g. "125.333")
	MinutesOnCallsign string `json:"minutes_on_callsign"`
}

// StartTime parses the session start timestamp.
func (s *Session) StartTime() (time.Time, error) {
	return ParseTimestamp(s.Start)
}

// Minutes parses the decimal minutes-on-callsign value.
func (s *Session) Minutes() (float64, error) {
	minutes, err := strconv.ParseFloat(s.MinutesOnCallsign, 64)
	if err != nil {
		return 0, fmt.Errorf(
			"parsing Session.MinutesOnCallsign %q: %w",
			s.MinutesOnCallsign,
			err,
		)
	}
	return minutes, nil
}

// Client is an HTTP client for the VATSIM REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

// ClientOption is a functional option for configuring a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithUserAgent sets the User-Agent header sent with each request.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// NewClient creates a new VATSIM API client. An empty baseURL uses the
// production API.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		userAgent: "github.com/blinklabs-io/condor",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetATCSessions retrieves a controller's ATC sessions starting on or
// after the given date. The endpoint returns a single page; no
// pagination is performed. Corresponds to
// GET /ratings/{cid}/atcsessions/?start={YYYY-MM-DD}.
func (c *Client) GetATCSessions(
	ctx context.Context,
	cid uint64,
	since time.Time,
) ([]Session, error) {
	reqURL := fmt.Sprintf(
		"%s/ratings/%d/atcsessions/?start=%s",
		c.baseURL,
		cid,
		url.QueryEscape(since.Format("2006-01-02")),
	)
	body, err := c.doGet(ctx, reqURL)
	if err != nil {
		return nil, fmt.Errorf(
			"getting ATC sessions for %d: %w",
			cid,
			err,
		)
	}
	defer body.Close()

	var wrapper struct {
		Count   int       `json:"count"`
		Results []Session `json:"results"`
	}
	if err := json.NewDecoder(body).Decode(&wrapper); err != nil {
		return nil, fmt.Errorf(
			"decoding ATC sessions for %d: %w",
			cid,
			err,
		)
	}
	return wrapper.Results, nil
}

// doGet performs an HTTP GET request and returns the response body.
// The caller is responsible for closing the returned ReadCloser.
func (c *Client) doGet(
	ctx context.Context,
	reqURL string,
) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		reqURL,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf(
			"unexpected HTTP status %d from %s",
			resp.StatusCode,
			reqURL,
		)
	}
	return resp.Body, nil
}
