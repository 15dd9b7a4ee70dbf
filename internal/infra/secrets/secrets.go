// internal/infra/secrets/secrets.go
package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	secretmanagerpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

var ErrNotConfigured = errors.New("secrets: client is not configured")

// Client reads secret payloads from Secret Manager.
type Client struct {
	sm        *secretmanager.Client
	projectID string
}

func NewClient(ctx context.Context, projectID string) (*Client, error) {
	pid := strings.TrimSpace(projectID)
	if pid == "" {
		return nil, fmt.Errorf("%w: projectID is empty", ErrNotConfigured)
	}

	sm, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("secrets: secretmanager.NewClient failed: %w", err)
	}

	return &Client{sm: sm, projectID: pid}, nil
}

// AccessLatest returns the latest version of the given secret.
// secretID may be a bare secret id or a full resource name
// (projects/.../secrets/.../versions/...).
func (c *Client) AccessLatest(ctx context.Context, secretID string) ([]byte, error) {
	if c == nil || c.sm == nil {
		return nil, ErrNotConfigured
	}

	id := strings.TrimSpace(secretID)
	if id == "" {
		return nil, fmt.Errorf("%w: secretID is empty", ErrNotConfigured)
	}

	name := id
	if !strings.Contains(id, "/") {
		name = fmt.Sprintf("projects/%s/secrets/%s/versions/latest", c.projectID, id)
	}

	resp, err := c.sm.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return nil, fmt.Errorf("secrets: AccessSecretVersion %s failed: %w", name, err)
	}
	if resp == nil || resp.Payload == nil {
		return nil, fmt.Errorf("secrets: secret %s has empty payload", name)
	}

	return resp.Payload.Data, nil
}

func (c *Client) Close() error {
	if c == nil || c.sm == nil {
		return nil
	}
	return c.sm.Close()
}
