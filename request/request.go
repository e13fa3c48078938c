////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Trade Bridge SEZC                                         //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package request defines the contract of the marketplace HTTP layer as the
// messaging core consumes it. The layer's own retry and timeout policy is its
// business; from here it either returns a decoded body or a typed error.
package request

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pkg/errors"

	"gitlab.com/tradebridge/client/creds"
)

// Requestor performs one authenticated request against the marketplace API.
type Requestor interface {
	// Do sends the given body (marshaled as JSON when non-nil) and returns
	// the raw response body. Non-2xx responses surface as an *APIError.
	Do(ctx context.Context, method, path string,
		body interface{}) (json.RawMessage, error)
}

// APIError is the typed failure for non-2xx responses, carrying the error
// message field from the response body.
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
}

// Error adheres to the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
}

// Client is the default Requestor over net/http with bearer injection from
// the credential store.
type Client struct {
	base  string
	http  *http.Client
	creds creds.Store
}

// NewClient returns a Client rooted at the given base URL.
func NewClient(base string, httpClient *http.Client, store creds.Store) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{base: base, http: httpClient, creds: store}
}

// Do implements Requestor.
func (c *Client) Do(ctx context.Context, method, path string,
	body interface{}) (json.RawMessage, error) {

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, errors.WithMessage(err,
				"failed to marshal request body")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.creds.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.WithMessagef(err, "%s %s failed", method, path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		if jsonErr := json.Unmarshal(data, apiErr); jsonErr != nil ||
			apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return nil, apiErr
	}

	return data, nil
}
