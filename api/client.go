package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

type Client struct {
	base *url.URL
	http *http.Client
}

func NewClient(base *url.URL, http *http.Client) *Client {
	return &Client{base: base, http: http}
}

// ClientFromHost returns a client for a host:port address.
func ClientFromHost(host string) *Client {
	return NewClient(&url.URL{Scheme: "http", Host: host}, http.DefaultClient)
}

const maxBufferSize = 512 * 1000

func (c *Client) do(ctx context.Context, method, path string, reqData any) (*http.Response, error) {
	var body io.Reader
	if reqData != nil {
		bts, err := json.Marshal(reqData)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(bts)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.base.JoinPath(path).String(), body)
	if err != nil {
		return nil, err
	}

	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/x-ndjson")

	response, err := c.http.Do(request)
	if err != nil {
		return nil, err
	}

	if response.StatusCode >= http.StatusBadRequest {
		defer response.Body.Close()
		apiError := StatusError{StatusCode: response.StatusCode, Status: response.Status}
		bts, _ := io.ReadAll(response.Body)
		if err := json.Unmarshal(bts, &apiError); err != nil {
			apiError.ErrorMessage = string(bytes.TrimSpace(bts))
		}
		return nil, apiError
	}

	return response, nil
}

func (c *Client) stream(ctx context.Context, method, path string, data any, fn func([]byte) error) error {
	response, err := c.do(ctx, method, path, data)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	scanner := bufio.NewScanner(response.Body)
	scanner.Buffer(make([]byte, 0, maxBufferSize), maxBufferSize)
	for scanner.Scan() {
		bts := scanner.Bytes()

		var errorResponse struct {
			Error string `json:"error,omitempty"`
		}
		if err := json.Unmarshal(bts, &errorResponse); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		if errorResponse.Error != "" {
			return StatusError{StatusCode: response.StatusCode, ErrorMessage: errorResponse.Error}
		}

		if err := fn(bts); err != nil {
			return err
		}
	}

	return scanner.Err()
}

type GenerateResponseFunc func(GenerateResponse) error

// Generate calls fn for every response. Streaming requests produce one
// response per character and a final response with Done set.
func (c *Client) Generate(ctx context.Context, req *GenerateRequest, fn GenerateResponseFunc) error {
	return c.stream(ctx, http.MethodPost, "/api/generate", req, func(bts []byte) error {
		var resp GenerateResponse
		if err := json.Unmarshal(bts, &resp); err != nil {
			return err
		}
		return fn(resp)
	})
}

func (c *Client) Prepare(ctx context.Context, req *PrepareRequest) (*PrepareResponse, error) {
	var resp PrepareResponse
	if err := c.stream(ctx, http.MethodPost, "/api/prepare", req, func(bts []byte) error {
		return json.Unmarshal(bts, &resp)
	}); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Version(ctx context.Context) (string, error) {
	var resp VersionResponse
	if err := c.stream(ctx, http.MethodGet, "/api/version", nil, func(bts []byte) error {
		return json.Unmarshal(bts, &resp)
	}); err != nil {
		return "", err
	}
	return resp.Version, nil
}
