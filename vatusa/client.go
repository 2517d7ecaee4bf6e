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

// Package vatusa is an HTTP client for the VATUSA REST API, the
// authoritative source for facility rosters and role assignments.
package vatusa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the production VATUSA API endpoint.
const DefaultBaseURL = "https://api.vatusa.net"

// MembershipType selects which roster members are returned.
type MembershipType string

const (
	MembershipHome  MembershipType = "home"
	MembershipVisit MembershipType = "visit"
	MembershipBoth  MembershipType = "both"
)

// RosterMemberRole is a single role assignment at a facility.
type RosterMemberRole struct {
	ID        uint64 `json:"id"`
	CID       uint64 `json:"cid"`
	Facility  string `json:"facility"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

// RosterMember is a controller entry from a facility roster.
type RosterMember struct {
	CID          uint64             `json:"cid"`
	FirstName    string             `json:"fname"`
	LastName     string             `json:"lname"`
	Email        string             `json:"email"`
	Facility     string             `json:"facility"`
	Rating       int                `json:"rating"`
	FacilityJoin string             `json:"facility_join"`
	Roles        []RosterMemberRole `json:"roles"`
	RatingShort  string             `json:"rating_short"`
	IsMentor     bool               `json:"isMentor"`
	IsSupIns     bool               `json:"isSupIns"`
}

// FacilityJoinTime parses the FacilityJoin string into a time.Time
// value.
func (m *RosterMember) FacilityJoinTime() (time.Time, error) {
	t, err := time.Parse(time.RFC3339, m.FacilityJoin)
	if err != nil {
		return time.Time{}, fmt.Errorf(
			"parsing RosterMember.FacilityJoin: %w",
			err,
		)
	}
	return t, nil
}

// Client is an HTTP client for the VATUSA REST API.
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

// NewClient creates a new VATUSA API client. An empty baseURL uses the
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

// GetRoster retrieves the roster of a facility. Corresponds to
// GET /facility/{facility}/roster/{membership}.
func (c *Client) GetRoster(
	ctx context.Context,
	facilityCode string,
	membership MembershipType,
) ([]RosterMember, error) {
	reqURL := c.baseURL + "/facility/" +
		url.PathEscape(facilityCode) + "/roster/" +
		url.PathEscape(string(membership))
	body, err := c.doGet(ctx, reqURL)
	if err != nil {
		return nil, fmt.Errorf(
			"getting %s roster for %s: %w",
			membership,
			facilityCode,
			err,
		)
	}
	defer body.Close()

	var wrapper struct {
		Data []RosterMember `json:"data"`
	}
	if err := json.NewDecoder(body).Decode(&wrapper); err != nil {
		return nil, fmt.Errorf(
			"decoding roster for %s: %w",
			facilityCode,
			err,
		)
	}
	return wrapper.Data, nil
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
