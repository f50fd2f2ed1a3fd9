package gerrit

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

	"github.com/ZertGraf/gerrit-automerge/internal/domain"
	"github.com/ZertGraf/gerrit-automerge/internal/pkg/logger"
)

const (
	// ReviewTag marks every review the merger posts so that Gerrit folds
	// them as robot comments.
	ReviewTag = "autogenerated:automerge"

	queryPageSize = 100
	maxErrorBody  = 1 << 10
)

var (
	ErrSubmitRejected = errors.New("submit rejected")

	errConflict = errors.New("conflict")

	// magic prefix Gerrit prepends to every JSON response
	xssiPrefix = []byte(")]}'")
)

// Client talks to the Gerrit REST API. It holds no state between calls.
type Client struct {
	base       string
	config     *Config
	httpClient *http.Client
	logger     *logger.Logger
}

func NewClient(cfg *Config, log *logger.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid gerrit config: %w", err)
	}

	base := strings.TrimRight(cfg.URL, "/") + "/"
	if cfg.Username != "" {
		base += "a/"
	}

	return &Client{
		base:       base,
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     log.Component("gerrit/client"),
	}, nil
}

func (c *Client) GetChange(ctx context.Context, ref domain.ChangeRef) (*domain.Change, error) {
	var info changeInfo
	q := url.Values{"o": {"CURRENT_REVISION"}}
	if err := c.get(ctx, changePath(ref), q, &info); err != nil {
		return nil, fmt.Errorf("get change %s: %w", ref, err)
	}
	return info.toDomain(), nil
}

// QueryOpenByTopic pages through the query until Gerrit stops reporting
// _more_changes, so that a large topic is never seen partially.
func (c *Client) QueryOpenByTopic(ctx context.Context, topic string) ([]*domain.Change, error) {
	var changes []*domain.Change
	for start := 0; ; {
		q := url.Values{
			"q": {"status:open topic:" + strconv.Quote(topic)},
			"o": {"CURRENT_REVISION"},
			"n": {strconv.Itoa(queryPageSize)},
			"S": {strconv.Itoa(start)},
		}

		var page []changeInfo
		if err := c.get(ctx, "changes/", q, &page); err != nil {
			return nil, fmt.Errorf("query topic %q: %w", topic, err)
		}
		for i := range page {
			changes = append(changes, page[i].toDomain())
		}

		if len(page) == 0 || !page[len(page)-1].MoreChanges {
			return changes, nil
		}
		start += len(page)
	}
}

func (c *Client) IsSubmittable(ctx context.Context, ref domain.ChangeRef) (bool, error) {
	var info changeInfo
	q := url.Values{"o": {"SUBMITTABLE"}}
	if err := c.get(ctx, changePath(ref), q, &info); err != nil {
		return false, fmt.Errorf("check submittable %s: %w", ref, err)
	}
	return info.Submittable, nil
}

func (c *Client) IsMergeable(ctx context.Context, ref domain.ChangeRef) (bool, error) {
	var info mergeableInfo
	if err := c.get(ctx, changePath(ref)+"/revisions/current/mergeable", nil, &info); err != nil {
		return false, fmt.Errorf("check mergeable %s: %w", ref, err)
	}
	return info.Mergeable, nil
}

// HasDependentReview reports whether the change sits on top of another open
// change. Gerrit lists related changes newest first, so the ancestors are the
// entries after the change itself; descendants are ignored.
func (c *Client) HasDependentReview(ctx context.Context, ref domain.ChangeRef) (bool, error) {
	var related relatedChangesInfo
	if err := c.get(ctx, changePath(ref)+"/revisions/current/related", nil, &related); err != nil {
		return false, fmt.Errorf("get related changes %s: %w", ref, err)
	}

	self := -1
	for i, rc := range related.Changes {
		if rc.ChangeNumber == ref.Number {
			self = i
			break
		}
	}
	if self < 0 {
		return false, nil
	}

	for _, rc := range related.Changes[self+1:] {
		if rc.Status == string(domain.ChangeStatusNew) {
			return true, nil
		}
	}
	return false, nil
}

func (c *Client) Merge(ctx context.Context, change *domain.Change) error {
	ref := change.Ref()

	current, err := c.GetChange(ctx, ref)
	if err != nil {
		return fmt.Errorf("merge %s: %w", ref, err)
	}
	if current.IsMerged() {
		c.logger.Debug("change already merged", "change", ref.String())
		return nil
	}

	err = c.do(ctx, http.MethodPost, changePath(ref)+"/submit", nil, struct{}{}, nil)
	if err == nil {
		return nil
	}
	if !errors.Is(err, errConflict) {
		return fmt.Errorf("submit %s: %w", ref, err)
	}

	// a concurrent submit of the same topic answers 409 once the change is in
	current, getErr := c.GetChange(ctx, ref)
	if getErr == nil && current.IsMerged() {
		return nil
	}
	return fmt.Errorf("submit %s: %w: %v", ref, ErrSubmitRejected, err)
}

func (c *Client) PostComment(ctx context.Context, ref domain.ChangeRef, message string) error {
	input := reviewInput{Message: message, Tag: ReviewTag}
	if err := c.post(ctx, changePath(ref)+"/revisions/current/review", input); err != nil {
		return fmt.Errorf("post comment on %s: %w", ref, err)
	}
	return nil
}

func (c *Client) SetBlockingLabel(ctx context.Context, ref domain.ChangeRef, message string) error {
	vote, err := strconv.Atoi(domain.HoldValue)
	if err != nil {
		return fmt.Errorf("parse hold value: %w", err)
	}

	input := reviewInput{
		Message: message,
		Tag:     ReviewTag,
		Labels:  map[string]int{domain.HoldLabel: vote},
	}
	if err := c.post(ctx, changePath(ref)+"/revisions/current/review", input); err != nil {
		return fmt.Errorf("set blocking label on %s: %w", ref, err)
	}
	return nil
}

// ServerVersion doubles as the reachability check for /health.
func (c *Client) ServerVersion(ctx context.Context) (string, error) {
	var version string
	if err := c.get(ctx, "config/server/version", nil, &version); err != nil {
		return "", fmt.Errorf("get server version: %w", err)
	}
	return version, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	target := c.base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	}
	if c.config.Username != "" {
		req.SetBasicAuth(c.config.Username, c.config.Password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", domain.ErrReviewUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrChangeNotFound
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%w: %s", errConflict, readErrorBody(resp.Body))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%w: %s %s: status %d: %s",
			domain.ErrReviewUnavailable, method, path, resp.StatusCode, readErrorBody(resp.Body))
	}

	if out == nil {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", domain.ErrReviewUnavailable, err)
	}
	data = bytes.TrimPrefix(data, xssiPrefix)
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrReviewUnavailable, err)
	}
	return nil
}

func changePath(ref domain.ChangeRef) string {
	return "changes/" + url.PathEscape(ref.Project) + "~" + strconv.Itoa(ref.Number)
}

func readErrorBody(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return strings.TrimSpace(string(data))
}
