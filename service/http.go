package service

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
)

// HTTPPostWithAuth posts body with the given content type, authenticated with a Bearer token (if not empty)
// The caller must close the body of the response
func HTTPPostWithAuth(ctx context.Context, client *http.Client, url, contentType string, body []byte, authToken string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("HTTPPost: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	return doWithAuth(client, req, authToken)
}

func doWithAuth(client *http.Client, req *http.Request, authToken string) (*http.Response, error) {
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return client.Do(req)
}
