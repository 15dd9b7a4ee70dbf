// Package connector is a thin convenience layer over the official
// Firestore client: connect/get/set/update/stream wrapped with a fixed
// single-retry-after-sleep policy and integer status sentinels, history
// document upsert logic, and a bounded batched-write accumulator.
package connector

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"fsconnector/internal/infra/secrets"
)

type connectOptions struct {
	credentialsFile   string
	credentialsSecret string
}

// Option configures NewConnection.
type Option func(*connectOptions)

// WithCredentialsFile authenticates with a service-account JSON key
// file. Without it (and without a secret) Application Default
// Credentials are used.
func WithCredentialsFile(path string) Option {
	return func(o *connectOptions) { o.credentialsFile = path }
}

// WithCredentialsFromSecret fetches a service-account JSON key from
// Secret Manager. name may be a bare secret id or a full resource name.
func WithCredentialsFromSecret(name string) Option {
	return func(o *connectOptions) { o.credentialsSecret = name }
}

// NewConnection starts a new Firestore connection through the Firebase
// app bootstrap. Connection failure is retried once after RetrySleep;
// after that the client is nil and the sentinel is StatusError.
func NewConnection(ctx context.Context, projectID string, opts ...Option) (*firestore.Client, Status) {
	var o connectOptions
	for _, opt := range opts {
		opt(&o)
	}

	var client *firestore.Client
	st := withRetry(opConnect, projectID, func() error {
		c, err := connect(ctx, projectID, o)
		if err != nil {
			return err
		}
		client = c
		return nil
	})
	if !st.OK() {
		return nil, StatusError
	}
	return client, StatusSuccess
}

func connect(ctx context.Context, projectID string, o connectOptions) (*firestore.Client, error) {
	var clientOpts []option.ClientOption

	switch {
	case o.credentialsFile != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(o.credentialsFile))
	case o.credentialsSecret != "":
		sc, err := secrets.NewClient(ctx, projectID)
		if err != nil {
			return nil, err
		}
		defer sc.Close()

		key, err := sc.AccessLatest(ctx, o.credentialsSecret)
		if err != nil {
			return nil, err
		}
		clientOpts = append(clientOpts, option.WithCredentialsJSON(key))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("firebase.NewApp: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("app.Firestore: %w", err)
	}
	return client, nil
}
