// cmd/histexport/main.go
//
// Streams a history collection and exports it as NDJSON, either to a
// GCS object or to a local file / stdout.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"fsconnector/connector"
	"fsconnector/internal/infra/config"
	"fsconnector/internal/infra/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := logging.New(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	var (
		collection = flag.String("collection", cfg.HistoryCollection, "collection to export")
		bucket     = flag.String("bucket", cfg.ExportBucket, "GCS bucket for the export (empty writes locally)")
		object     = flag.String("object", "", "GCS object name (default: <collection>.ndjson)")
		outPath    = flag.String("out", "", "local output path when no bucket is set (default: stdout)")
	)
	flag.Parse()

	if *collection == "" {
		logger.Fatal("collection name is empty")
	}

	connector.SetLogger(logger)
	connector.RetrySleep = cfg.RetrySleep

	ctx := context.Background()

	var opts []connector.Option
	switch {
	case cfg.FirestoreCredentialsFile != "":
		opts = append(opts, connector.WithCredentialsFile(cfg.FirestoreCredentialsFile))
	case cfg.CredentialsSecret != "":
		opts = append(opts, connector.WithCredentialsFromSecret(cfg.CredentialsSecret))
	}

	client, st := connector.NewConnection(ctx, cfg.FirestoreProjectID, opts...)
	if !st.OK() {
		logger.Fatal("could not connect to firestore", zap.String("project", cfg.FirestoreProjectID))
	}
	defer client.Close()

	docs, st := connector.Stream(ctx, client.Collection(*collection))
	if !st.OK() {
		logger.Fatal("could not stream collection", zap.String("collection", *collection))
	}

	sink, closeSink, err := openSink(ctx, *bucket, *object, *collection, *outPath)
	if err != nil {
		logger.Fatal("could not open export sink", zap.Error(err))
	}

	n, err := writeNDJSON(sink, docs)
	if err != nil {
		_ = closeSink()
		logger.Fatal("export failed", zap.Int("written", n), zap.Error(err))
	}
	if err := closeSink(); err != nil {
		logger.Fatal("could not finalize export", zap.Error(err))
	}

	logger.Info("exported history documents",
		zap.String("collection", *collection),
		zap.Int("count", n),
	)
}

// openSink picks the export destination: GCS when a bucket is given,
// otherwise a local file or stdout.
func openSink(ctx context.Context, bucket, object, collection, outPath string) (io.Writer, func() error, error) {
	if bucket != "" {
		gcs, err := storage.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("storage.NewClient: %w", err)
		}
		if object == "" {
			object = collection + ".ndjson"
		}
		w := gcs.Bucket(bucket).Object(object).NewWriter(ctx)
		w.ContentType = "application/x-ndjson"
		closeFn := func() error {
			if err := w.Close(); err != nil {
				_ = gcs.Close()
				return err
			}
			return gcs.Close()
		}
		return w, closeFn, nil
	}

	if outPath == "" {
		return os.Stdout, func() error { return nil }, nil
	}

	f, err := os.Create(outPath)
	if err != nil {
		return nil, nil, fmt.Errorf("os.Create %s: %w", outPath, err)
	}
	return f, f.Close, nil
}

func writeNDJSON(w io.Writer, docs []*firestore.DocumentSnapshot) (int, error) {
	enc := json.NewEncoder(w)
	n := 0
	for _, doc := range docs {
		row := doc.Data()
		if row == nil {
			row = map[string]interface{}{}
		}
		row["_id"] = doc.Ref.ID
		if err := enc.Encode(row); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
