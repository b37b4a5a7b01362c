package jobs

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/spigell/smartintern/internal/errs"
	"github.com/spigell/smartintern/internal/utils"
)

const contentEncoding = "gzip"

// ItemResponse is the JSearch response envelope.
type ItemResponse struct {
	Status    string `json:"status"`
	RequestID string `json:"request_id"`
	Data      []Item `json:"data"`
}

// Item is one raw posting as returned by the API.
type Item map[string]any

// GetItems makes a GET request to the API and returns the raw items.
func (c *Client) GetItems(ctx context.Context, url string, q url.Values) ([]Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req = c.setHeaders(req)
	req.URL.RawQuery = q.Encode()

	resp, err := c.request(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	response, err := c.parseItemResponse(resp)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("got response from job source",
		zap.String("status", response.Status),
		zap.String("request_id", response.RequestID),
		zap.Int("items", len(response.Data)),
	)

	return response.Data, nil
}

func (c *Client) parseItemResponse(resp *http.Response) (*ItemResponse, error) {
	var body io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: job source gzip body: %w", errs.ErrShape, err)
		}
		defer gz.Close()
		body = gz
	}

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(body, 512))
		return nil, fmt.Errorf("%w: job source bad status: %s: %s", errs.ErrTransport, resp.Status, utils.SingleLine(string(data)))
	}

	var response ItemResponse
	if err := json.NewDecoder(body).Decode(&response); err != nil {
		return nil, fmt.Errorf("%w: decode job source response: %w", errs.ErrShape, err)
	}

	return &response, nil
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	c.logger.Debug("make request", zap.String("url", req.URL.Redacted()))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: job source request: %w", errs.ErrTransport, err)
	}

	return resp, nil
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	req.Header.Set("x-rapidapi-key", c.token)
	req.Header.Set("x-rapidapi-host", c.host)
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", contentEncoding)

	return req
}
