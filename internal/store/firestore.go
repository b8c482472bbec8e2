package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"

	"txgather/internal/domain"
)

// Compile-time interface check.
var _ BarSink = (*FirestoreSink)(nil)

// firestoreFlushEvery bounds the number of queued writes between flushes.
const firestoreFlushEvery = 500

// FirestoreSink writes 1-minute bars to a Firestore collection, one document
// per bar keyed by its Taipei-time bucket. Writes go through a BulkWriter
// flushed every 500 records.
type FirestoreSink struct {
	client     *firestore.Client
	collection string
	loc        *time.Location
	log        *slog.Logger
}

// NewFirestoreSink connects to Firestore using the given service-account
// credentials file. An empty credentialsFile falls back to application
// default credentials.
func NewFirestoreSink(ctx context.Context, projectID, credentialsFile, collection string) (*FirestoreSink, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &FirestoreSink{
		client:     client,
		collection: collection,
		loc:        taipei(),
		log:        slog.Default().With("component", "firestore"),
	}, nil
}

// Close releases the underlying client.
func (s *FirestoreSink) Close() error {
	return s.client.Close()
}

// writeJob is the per-document result handle returned by the BulkWriter.
// *firestore.BulkWriterJob satisfies it.
type writeJob interface {
	Results() (*firestore.WriteResult, error)
}

// firstWriteError blocks on every queued write and returns the first
// server-side failure. Enqueueing a document never commits it; the only
// place a rejected write surfaces is its job's Results.
func firstWriteError(jobs []writeJob) error {
	for _, j := range jobs {
		if _, err := j.Results(); err != nil {
			return err
		}
	}
	return nil
}

// WriteBars upserts the batch into the sink's collection. Document IDs are
// the bucket time, so rewriting a range overwrites the same documents.
// The output-unit name is informational only here; Firestore keys by time.
func (s *FirestoreSink) WriteBars(ctx context.Context, name string, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	bw := s.client.BulkWriter(ctx)
	coll := s.client.Collection(s.collection)

	jobs := make([]writeJob, 0, len(bars))
	for _, b := range bars {
		local := b.TS.In(s.loc)
		doc := coll.Doc(local.Format("2006-01-02 15:04:05"))
		data := map[string]interface{}{
			"datetime": local,
			"Open":     b.Open.InexactFloat64(),
			"High":     b.High.InexactFloat64(),
			"Low":      b.Low.InexactFloat64(),
			"Close":    b.Close.InexactFloat64(),
			"Volume":   b.Volume,
		}
		job, err := bw.Set(doc, data)
		if err != nil {
			return fmt.Errorf("queueing bar %s: %w", doc.ID, err)
		}
		jobs = append(jobs, job)
		if len(jobs)%firestoreFlushEvery == 0 {
			s.log.Info("committing batch", "unit", name, "queued", len(jobs))
			bw.Flush()
		}
	}

	bw.End()
	if err := firstWriteError(jobs); err != nil {
		return fmt.Errorf("writing bars %s: %w", name, err)
	}

	s.log.Info("bars written", "unit", name, "collection", s.collection, "count", len(jobs))
	return nil
}
