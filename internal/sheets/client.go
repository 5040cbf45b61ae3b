package sheets

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/pulsedash/pulsedash/internal/metrics"
	"github.com/pulsedash/pulsedash/internal/models"
	"github.com/pulsedash/pulsedash/internal/utils"
)

// HTTPClient is the transport seam shared by every collaborator client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

func NewHTTPClient(timeout time.Duration) HTTPClient {
	return &http.Client{Timeout: timeout}
}

// Client reads a published spreadsheet through its CSV export endpoint and
// hands back the raw header/rows shape. An empty sheet is a valid zero-row
// table, not an error.
type Client struct {
	c       HTTPClient
	baseURL string
	log     *slog.Logger
	backoff utils.Backoff
}

func NewClient(c HTTPClient, baseURL string, log *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://docs.google.com"
	}
	return &Client{
		c:       c,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
		backoff: utils.NewBackoff(200*time.Millisecond, 2),
	}
}

var (
	pathIDRe  = regexp.MustCompile(`/d/([a-zA-Z0-9-_]+)`)
	queryIDRe = regexp.MustCompile(`[?&]id=([a-zA-Z0-9-_]+)`)
	bareIDRe  = regexp.MustCompile(`^[a-zA-Z0-9-_]{20,}$`)
)

// ExtractID pulls the spreadsheet id out of a locator: a full share URL, an
// id= query form, or a bare id.
func ExtractID(locator string) (string, bool) {
	locator = strings.TrimSpace(locator)
	if m := pathIDRe.FindStringSubmatch(locator); m != nil {
		return m[1], true
	}
	if m := queryIDRe.FindStringSubmatch(locator); m != nil {
		return m[1], true
	}
	if bareIDRe.MatchString(locator) {
		return locator, true
	}
	return "", false
}

// Fetch downloads and parses the sheet named by locator. Transient failures
// are retried with backoff; terminal statuses map onto stable reason codes.
func (c *Client) Fetch(ctx context.Context, locator string) (models.RawTable, error) {
	id, ok := ExtractID(locator)
	if !ok {
		return models.RawTable{}, models.NewError(models.ReasonInvalidLocator, "cannot determine sheet id from %q", locator)
	}

	url := c.baseURL + "/spreadsheets/d/" + id + "/export?format=csv"

	var table models.RawTable
	err := c.backoff.Do(func(attempt int) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return utils.Terminal(models.WrapError(models.ReasonSheetUnavailable, err))
		}
		resp, err := c.c.Do(req)
		if err != nil {
			c.log.Warn("sheet fetch failed", slog.Int("attempt", attempt), slog.String("err", err.Error()))
			return models.WrapError(models.ReasonSheetUnavailable, err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return utils.Terminal(models.NewError(models.ReasonSheetNotFound, "sheet %s not found", id))
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return utils.Terminal(models.NewError(models.ReasonSheetAccessDenied, "sheet %s is not shared for reading", id))
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return models.NewError(models.ReasonSheetUnavailable, "export returned %d: %s", resp.StatusCode, string(b))
		}

		table, err = parseCSV(resp.Body)
		if err != nil {
			return utils.Terminal(models.WrapError(models.ReasonSheetUnavailable, err))
		}
		return nil
	})
	if err != nil {
		metrics.CollaboratorRequests.WithLabelValues("sheets", "error").Inc()
		return models.RawTable{}, err
	}
	metrics.CollaboratorRequests.WithLabelValues("sheets", "ok").Inc()
	return table, nil
}

func parseCSV(r io.Reader) (models.RawTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return models.RawTable{}, err
	}
	if len(records) == 0 {
		return models.RawTable{Headers: []string{}, Rows: [][]string{}}, nil
	}
	return models.RawTable{Headers: records[0], Rows: records[1:]}, nil
}
