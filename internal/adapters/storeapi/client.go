// Package storeapi is the typed, retrying client for the remote table
// service backing the leaderboard.
//
// The service is a plain key-value table API: it offers per-row reads and
// upserts plus token-based pagination, but no ranking, aggregation or
// cross-row transactions. Everything above row granularity is the engine's
// job. Transient failures (timeouts, 5xx) are absorbed by the retry policy;
// semantic failures surface immediately as typed errors.
package storeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/questline/scoreboard/internal/domain/model"
	"github.com/questline/scoreboard/pkg/logger"
	"github.com/questline/scoreboard/pkg/metrics"
)

// Default client configuration constants.
const (
	defaultRequestTimeout = 10 * time.Second
	defaultPageLimit      = 50
)

// Client is a typed HTTP client for the table service.
type Client struct {
	baseURL   string
	httpc     *http.Client
	timeout   time.Duration
	retry     RetryPolicy
	pageLimit int
	log       logger.Logger
}

// New creates a Client for the service rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		httpc:     &http.Client{},
		timeout:   defaultRequestTimeout,
		retry:     DefaultRetryPolicy(),
		pageLimit: defaultPageLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Health checks the service's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, "health", http.MethodGet, "/health", nil, nil, nil)
}

// CreateTable creates a new logical table. Fails with ErrAlreadyExists if
// the id is taken and ErrInvalidArgument if the id fails validation.
func (c *Client) CreateTable(ctx context.Context, tableID, displayName string) (model.TableMeta, error) {
	if err := model.ValidateTableID(tableID); err != nil {
		return model.TableMeta{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	body := tableWire{TableID: tableID, DisplayName: displayName}
	var out tableWire
	if err := c.do(ctx, "create_table", http.MethodPost, "/tables", nil, body, &out); err != nil {
		return model.TableMeta{}, err
	}
	if out.TableID == "" {
		out.TableID = tableID
		out.DisplayName = displayName
	}
	return out.toMeta(), nil
}

// GetTable fetches table metadata. Fails with ErrNotFound if absent.
func (c *Client) GetTable(ctx context.Context, tableID string) (model.TableMeta, error) {
	if err := model.ValidateTableID(tableID); err != nil {
		return model.TableMeta{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	var out tableWire
	if err := c.do(ctx, "get_table", http.MethodGet, "/tables/"+tableID, nil, nil, &out); err != nil {
		return model.TableMeta{}, err
	}
	return out.toMeta(), nil
}

// PatchTable applies only the supplied metadata fields.
func (c *Client) PatchTable(ctx context.Context, tableID string, patch model.TablePatch) error {
	if err := model.ValidateTableID(tableID); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if patch.Empty() {
		return nil
	}
	body := tablePatchWire{DisplayName: patch.DisplayName, IsArchived: patch.IsArchived}
	return c.do(ctx, "patch_table", http.MethodPatch, "/tables/"+tableID, nil, body, nil)
}

// EnsureTable creates the table if needed, treating AlreadyExists on the
// create path as success. This avoids the get-then-create race where two
// callers both miss the get and both attempt the create.
func (c *Client) EnsureTable(ctx context.Context, tableID, displayName string) (model.TableMeta, error) {
	meta, err := c.CreateTable(ctx, tableID, displayName)
	if err == nil {
		return meta, nil
	}
	if !errors.Is(err, ErrAlreadyExists) {
		return model.TableMeta{}, err
	}
	return c.GetTable(ctx, tableID)
}

// ListTables returns one page of table metadata and the continuation token
// for the next page, empty when exhausted.
func (c *Client) ListTables(ctx context.Context, lastKey string, limit int) ([]model.TableMeta, string, error) {
	q := pageQuery(lastKey, limit)
	var out tablePageWire
	if err := c.do(ctx, "list_tables", http.MethodGet, "/tables", q, nil, &out); err != nil {
		return nil, "", err
	}
	tables := make([]model.TableMeta, len(out.Tables))
	for i, w := range out.Tables {
		tables[i] = w.toMeta()
	}
	return tables, out.LastKey, nil
}

// IterateTables returns a lazy sequence over all tables.
func (c *Client) IterateTables() *Iterator[model.TableMeta] {
	return newIterator(c.ListTables, c.pageLimit)
}

// PutUser upserts a participant row. The service increments the owning
// table's userCount additively on first insert, so concurrent first writes
// do not lose increments.
func (c *Client) PutUser(ctx context.Context, tableID, username string, p model.Participant) (model.Participant, error) {
	if err := c.validateUserPath(tableID, username); err != nil {
		return model.Participant{}, err
	}
	if err := model.ValidateCounters(p.TasksCompleted, p.TotalTasks); err != nil {
		return model.Participant{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	body := toUserWire(p)
	body.Username = username
	var out userWire
	if err := c.do(ctx, "put_user", http.MethodPut, c.userPath(tableID, username), nil, body, &out); err != nil {
		return model.Participant{}, err
	}
	if out.Username == "" {
		out = body
	}
	return out.toParticipant(tableID), nil
}

// GetUser fetches a participant row. Fails with ErrNotFound if the table
// or the row is absent.
func (c *Client) GetUser(ctx context.Context, tableID, username string) (model.Participant, error) {
	if err := c.validateUserPath(tableID, username); err != nil {
		return model.Participant{}, err
	}
	var out userWire
	if err := c.do(ctx, "get_user", http.MethodGet, c.userPath(tableID, username), nil, nil, &out); err != nil {
		return model.Participant{}, err
	}
	return out.toParticipant(tableID), nil
}

// ListUsers returns one page of participant rows for a table.
func (c *Client) ListUsers(ctx context.Context, tableID, lastKey string, limit int) ([]model.Participant, string, error) {
	if err := model.ValidateTableID(tableID); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	q := pageQuery(lastKey, limit)
	var out userPageWire
	if err := c.do(ctx, "list_users", http.MethodGet, "/tables/"+tableID+"/users", q, nil, &out); err != nil {
		return nil, "", err
	}
	users := make([]model.Participant, len(out.Users))
	for i, w := range out.Users {
		users[i] = w.toParticipant(tableID)
	}
	return users, out.LastKey, nil
}

// IterateUsers returns a lazy sequence over all participant rows of a table.
func (c *Client) IterateUsers(tableID string) *Iterator[model.Participant] {
	fetch := func(ctx context.Context, lastKey string, limit int) ([]model.Participant, string, error) {
		return c.ListUsers(ctx, tableID, lastKey, limit)
	}
	return newIterator(fetch, c.pageLimit)
}

// AllUsers drains IterateUsers into a slice. Used by snapshot rebuilds.
func (c *Client) AllUsers(ctx context.Context, tableID string) ([]model.Participant, error) {
	return c.IterateUsers(tableID).Collect(ctx)
}

func (c *Client) userPath(tableID, username string) string {
	return "/tables/" + tableID + "/users/" + username
}

func (c *Client) validateUserPath(tableID, username string) error {
	if err := model.ValidateTableID(tableID); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if err := model.ValidateUsername(username); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return nil
}

func pageQuery(lastKey string, limit int) url.Values {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if lastKey != "" {
		q.Set("lastKey", lastKey)
	}
	return q
}

// do runs one logical call under the retry policy.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	return c.retry.Do(ctx, func(ctx context.Context) error {
		return c.once(ctx, op, method, path, query, body, out)
	})
}

// once performs a single attempt with a bounded timeout and classifies the
// outcome into the typed error taxonomy.
func (c *Client) once(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	start := time.Now()
	code := "transport_error"
	defer func() {
		metrics.RecordStoreRequest(op, code, float64(time.Since(start).Nanoseconds())/1e6)
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: encode request: %v", ErrInvalidArgument, err)
		}
		rdr = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrInvalidArgument, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.httpc.Do(req)
	if err != nil {
		if c.log != nil {
			c.log.Debug(ctx, "store request failed", logger.String("op", op), logger.Error(err))
		}
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	code = strconv.Itoa(resp.StatusCode)
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrAlreadyExists, path)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s %s: status %d", ErrUnavailable, method, path, resp.StatusCode)
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s %s: status %d: %s", ErrInvalidArgument, method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", ErrUnavailable, op, err)
	}
	return nil
}
