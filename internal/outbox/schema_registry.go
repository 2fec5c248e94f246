package outbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SchemaRegistryClient talks to a Confluent Schema Registry. The dispatcher
// only ever needs the id of the latest schema under a subject, registering
// our JSON schema first when the subject does not exist yet.
type SchemaRegistryClient struct {
	baseURL string
	client  *http.Client
}

// NewSchemaRegistryClient constructs a client for the registry at baseURL.
func NewSchemaRegistryClient(baseURL string) *SchemaRegistryClient {
	return &SchemaRegistryClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// EnsureSchema returns the registry id for subject, registering schema
// under it when no version exists yet.
func (c *SchemaRegistryClient) EnsureSchema(ctx context.Context, subject, schema string) (int, error) {
	if id, err := c.latestID(ctx, subject); err == nil {
		return id, nil
	}
	return c.register(ctx, subject, schema)
}

func (c *SchemaRegistryClient) latestID(ctx context.Context, subject string) (int, error) {
	return c.schemaID(ctx, http.MethodGet, "/subjects/"+subject+"/versions/latest", nil)
}

func (c *SchemaRegistryClient) register(ctx context.Context, subject, schema string) (int, error) {
	body, err := json.Marshal(map[string]string{
		"schemaType": "JSON",
		"schema":     schema,
	})
	if err != nil {
		return 0, err
	}
	return c.schemaID(ctx, http.MethodPost, "/subjects/"+subject+"/versions", body)
}

func (c *SchemaRegistryClient) schemaID(ctx context.Context, method, path string, body []byte) (int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/vnd.schemaregistry.v1+json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return 0, fmt.Errorf("schema registry %s %s: status %d: %s", method, path, resp.StatusCode, detail)
	}

	var payload struct {
		ID int `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, err
	}
	return payload.ID, nil
}
