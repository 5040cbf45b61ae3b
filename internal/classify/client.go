package classify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/pulsedash/pulsedash/internal/metrics"
	"github.com/pulsedash/pulsedash/internal/models"
)

// SampleRows bounds how much of the table travels to the classifier. The
// model only needs a preview to recognize columns.
const SampleRows = 40

// Result is the validated classifier output: every metric key present, empty
// string for "not found", plus the model's free-text commentary passed through
// for diagnostics.
type Result struct {
	Mapping     models.ColumnMapping `json:"columnMap"`
	Explanation string               `json:"explanation,omitempty"`
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client asks an OpenAI-compatible chat endpoint which header carries which
// metric. The service is an oracle: its judgment is consumed, never second-
// guessed. Malformed replies fail the session as classification-unavailable
// rather than guessing a mapping. A circuit breaker shields the endpoint when
// it degrades.
type Client struct {
	c       httpDoer
	baseURL string
	apiKey  string
	model   string
	log     *slog.Logger
	cb      *gobreaker.CircuitBreaker[Result]
}

func NewClient(c httpDoer, baseURL, apiKey, model string, log *slog.Logger) *Client {
	cl := &Client{
		c:       c,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		log:     log,
	}
	cl.cb = gobreaker.NewCircuitBreaker[Result](gobreaker.Settings{
		Name:        "classifier",
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("classifier breaker state change",
				slog.String("from", from.String()), slog.String("to", to.String()))
			metrics.BreakerState.WithLabelValues(name).Set(breakerStateValue(to))
		},
	})
	return cl
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

const systemPrompt = "You are a marketing analytics expert. You identify which spreadsheet columns hold which advertising metrics."

func userPrompt(headers []string, rows [][]string) string {
	h, _ := json.Marshal(headers)
	r, _ := json.Marshal(rows)
	return fmt.Sprintf(`Given an advertising report table, decide which header holds each of these metrics:
impressions, clicks, ctr, spend, cost_per_click, leads, cpl, revenue, roas, date, campaign.
Header names may be in English, Russian, Ukrainian or nonstandard.
Respond strictly as JSON:
{"columnMap":{"impressions":"...","clicks":"...","ctr":"...","spend":"...","cost_per_click":"...","leads":"...","cpl":"...","revenue":"...","roas":"...","date":"...","campaign":"..."},"explanation":"..."}
Use null for any metric you cannot find. Map only what you actually see.
Headers: %s
Rows (preview): %s`, h, r)
}

type chatRequest struct {
	Model          string        `json:"model"`
	ResponseFormat respFormat    `json:"response_format"`
	Messages       []chatMessage `json:"messages"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Classify sends headers plus a bounded row preview and returns the validated
// mapping.
func (c *Client) Classify(ctx context.Context, table models.RawTable) (Result, error) {
	sample := table.Rows
	if len(sample) > SampleRows {
		sample = sample[:SampleRows]
	}

	res, err := c.cb.Execute(func() (Result, error) {
		return c.call(ctx, table.Headers, sample)
	})
	if err != nil {
		metrics.CollaboratorRequests.WithLabelValues("classify", "error").Inc()
		var me *models.Error
		if errors.As(err, &me) {
			return Result{}, me
		}
		return Result{}, models.WrapError(models.ReasonClassifierDown, err)
	}
	metrics.CollaboratorRequests.WithLabelValues("classify", "ok").Inc()
	return res, nil
}

func (c *Client) call(ctx context.Context, headers []string, sample [][]string) (Result, error) {
	body, err := json.Marshal(chatRequest{
		Model:          c.model,
		ResponseFormat: respFormat{Type: "json_object"},
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(headers, sample)},
		},
	})
	if err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.c.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, models.NewError(models.ReasonClassifierDown, "classifier returned %d: %s", resp.StatusCode, string(b))
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return Result{}, models.WrapError(models.ReasonClassifierDown, err)
	}
	if len(chat.Choices) == 0 {
		return Result{}, models.NewError(models.ReasonClassifierDown, "classifier returned no choices")
	}
	return parsePayload(chat.Choices[0].Message.Content)
}

// parsePayload validates the loosely-typed model output into a strict Result.
// Every metric key ends up present; null and unknown headers become "".
func parsePayload(content string) (Result, error) {
	var payload struct {
		ColumnMap   map[string]*string `json:"columnMap"`
		Explanation string             `json:"explanation"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return Result{}, models.NewError(models.ReasonClassifierDown, "unparseable classifier payload: %v", err)
	}
	if payload.ColumnMap == nil {
		return Result{}, models.NewError(models.ReasonClassifierDown, "classifier payload has no columnMap")
	}

	mapping := make(models.ColumnMapping, len(models.Metrics))
	for _, m := range models.Metrics {
		mapping[m] = ""
		if v, ok := payload.ColumnMap[string(m)]; ok && v != nil {
			mapping[m] = strings.TrimSpace(*v)
		}
	}
	return Result{Mapping: mapping, Explanation: payload.Explanation}, nil
}
