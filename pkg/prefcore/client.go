// Package prefcore provides a Go client for the prefcore server API. The
// types here mirror the server's JSON contract; consumers outside this module
// depend on this package, never on the server internals.
package prefcore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client talks to a running prefcore server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the given base URL, e.g.
// "http://localhost:8090".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// View is the per-symbol decision summary the server publishes.
type View struct {
	Symbol string `json:"symbol"`

	Live struct {
		Bid       float64   `json:"Bid"`
		Ask       float64   `json:"Ask"`
		Last      float64   `json:"Last"`
		Spread    float64   `json:"Spread"`
		PrevClose float64   `json:"PrevClose"`
		UpdatedAt time.Time `json:"UpdatedAt"`
	} `json:"live"`

	Rank struct {
		BuyPct  float64 `json:"BuyPct"`
		SellPct float64 `json:"SellPct"`
	} `json:"rank"`

	Concentration struct {
		Price            float64 `json:"Price"`
		ConcentrationPct float64 `json:"ConcentrationPct"`
		QualifyingCount  int     `json:"QualifyingCount"`
		Valid            bool    `json:"Valid"`
	} `json:"concentration"`

	Signal string `json:"signal"`

	State       string `json:"state"`
	StateReason string `json:"state_reason"`
	Transition  string `json:"transition,omitempty"`

	Intent struct {
		Kind   string `json:"Kind"`
		Reason string `json:"Reason"`
	} `json:"intent"`

	Plan struct {
		Actionable bool    `json:"Actionable"`
		Side       string  `json:"Side"`
		Price      float64 `json:"Price"`
		Size       int64   `json:"Size"`
		Reason     string  `json:"Reason"`
	} `json:"plan"`

	Gate struct {
		Allowed bool   `json:"Allowed"`
		Reason  string `json:"Reason"`
	} `json:"gate"`

	Mode      string    `json:"mode"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ViewsResponse is the full view listing.
type ViewsResponse struct {
	Count int    `json:"count"`
	Views []View `json:"views"`
}

// QueueEntry is one live queue slot.
type QueueEntry struct {
	Symbol string `json:"symbol"`
	Plan   struct {
		Side  string  `json:"Side"`
		Price float64 `json:"Price"`
		Size  int64   `json:"Size"`
	} `json:"plan"`
	Position   int     `json:"position"`
	AgeSeconds float64 `json:"ageSeconds"`
}

// QueueResponse is the live order queue.
type QueueResponse struct {
	Count   int          `json:"count"`
	Entries []QueueEntry `json:"entries"`
}

// SubmitResult reports what the server's execution router did.
type SubmitResult struct {
	Symbol  string `json:"symbol"`
	Mode    string `json:"mode"`
	Skipped bool   `json:"skipped"`
	OrderID string `json:"orderId"`
}

// Views retrieves every symbol's latest view.
func (c *Client) Views(ctx context.Context) (ViewsResponse, error) {
	var out ViewsResponse
	err := c.get(ctx, "/api/view", &out)
	return out, err
}

// View retrieves one symbol's latest view.
func (c *Client) View(ctx context.Context, symbol string) (View, error) {
	var out View
	err := c.get(ctx, "/api/view/"+symbol, &out)
	return out, err
}

// Queue retrieves the live order queue.
func (c *Client) Queue(ctx context.Context) (QueueResponse, error) {
	var out QueueResponse
	err := c.get(ctx, "/api/queue", &out)
	return out, err
}

// Submit approves the queued plan for a symbol and asks the server to route
// it. The approver identity is recorded on the server.
func (c *Client) Submit(ctx context.Context, symbol, approvedBy string) (SubmitResult, error) {
	body, err := json.Marshal(map[string]string{
		"symbol":     symbol,
		"approvedBy": approvedBy,
	})
	if err != nil {
		return SubmitResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/submit", bytes.NewReader(body))
	if err != nil {
		return SubmitResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var out SubmitResult
	if err := c.do(req, &out); err != nil {
		return SubmitResult{}, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s", req.Method, req.URL.Path, apiErr.Error)
		}
		return fmt.Errorf("%s %s: status %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
