// Copyright (c) 2024 Neomantra Corp
//
// Shared REST plumbing for CEX adapters' bootstrap calls (instrument
// lists, precision metadata). Streaming stays on WebSocket; these are
// the infrequent calls where retrying beats failing fast.

package venue

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
	segjson "github.com/segmentio/encoding/json"
)

// NewRestClient builds a retrying HTTP client with its chatter silenced;
// retryablehttp logs every attempt by default, which is noise next to the
// adapter's own structured logs.
func NewRestClient() *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = 5
	client.Logger = log.New(io.Discard, "", log.LstdFlags)
	return client
}

// GetJSON fetches url and unmarshals the response body into out.
func GetJSON(ctx context.Context, client *retryablehttp.Client, url string, out any) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return segjson.Unmarshal(body, out)
}
