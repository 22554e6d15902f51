package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

type client struct {
	baseURL string
	httpc   *http.Client
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: timeout},
	}
}

type leaderboardEntry struct {
	Rank     int     `json:"rank"`
	Username string  `json:"username"`
	Score    float64 `json:"score"`
	TeamName string  `json:"team_name,omitempty"`
}

type leaderboardPage struct {
	Entries []leaderboardEntry `json:"entries"`
	Stale   bool               `json:"stale,omitempty"`
}

type teamEntry struct {
	Rank      int     `json:"rank"`
	TeamName  string  `json:"team_name"`
	MeanScore float64 `json:"mean_score"`
	Members   int     `json:"members"`
}

type teamsPage struct {
	Teams []teamEntry `json:"teams"`
	Stale bool        `json:"stale,omitempty"`
}

func (c *client) health(ctx context.Context) error {
	return c.get(ctx, "/healthz", nil)
}

func (c *client) postProgress(ctx context.Context, ev Event) error {
	return c.post(ctx, "/progress", ev, nil)
}

func (c *client) postSync(ctx context.Context, username string) error {
	return c.post(ctx, "/progress/"+username+"/sync", nil, nil)
}

func (c *client) leaderboard(ctx context.Context, limit int) (leaderboardPage, error) {
	var page leaderboardPage
	err := c.get(ctx, "/leaderboard?limit="+strconv.Itoa(limit), &page)
	return page, err
}

func (c *client) teams(ctx context.Context) (teamsPage, error) {
	var page teamsPage
	err := c.get(ctx, "/teams", &page)
	return page, err
}

func (c *client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *client) post(ctx context.Context, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *client) do(req *http.Request, out any) error {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("%s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, msg)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
