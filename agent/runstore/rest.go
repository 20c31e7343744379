package runstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const maxRESTResponseBytes = 2 << 20

// restClient speaks the Upstash Redis REST dialect: a command is a JSON array
// POSTed to the base URL and the reply is {"result": ...} or {"error": ...}.
type restClient struct {
	baseURL string
	token   string
	http    *http.Client
}

type restReply struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

func newRESTClient(baseURL, token string, client *http.Client) *restClient {
	return &restClient{baseURL: baseURL, token: token, http: client}
}

func (c *restClient) command(ctx context.Context, args ...any) (json.RawMessage, error) {
	body, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("marshal redis command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build redis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("redis %v: %w", args[0], err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxRESTResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read redis response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("redis %v: http status=%d body=%s", args[0], resp.StatusCode, raw)
	}

	var reply restReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, fmt.Errorf("decode redis response: %w", err)
	}
	if reply.Error != "" {
		return nil, errors.New(reply.Error)
	}
	return bytes.TrimSpace(reply.Result), nil
}

// getString runs GET key. found is false when the key does not exist.
func (c *restClient) getString(ctx context.Context, key string) (value string, found bool, err error) {
	result, err := c.command(ctx, "GET", key)
	if err != nil {
		return "", false, err
	}
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return "", false, nil
	}
	if err := json.Unmarshal(result, &value); err != nil {
		return "", false, fmt.Errorf("decode redis GET %s: %w", key, err)
	}
	return value, true, nil
}
