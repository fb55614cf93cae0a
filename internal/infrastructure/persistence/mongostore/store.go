// Package mongostore is the MongoDB-backed Artifact Store: the
// pending_batches, assembled_applications, and pdf_resumes collections that
// back the admission, consumer, dispatch, and publisher application
// packages.
package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	pendingBatchesCollection        = "pending_batches"
	assembledApplicationsCollection = "assembled_applications"
	pdfResumesCollection            = "pdf_resumes"
)

// Store holds the Mongo handles the pipeline's repositories are built from.
type Store struct {
	client                *mongo.Client
	database              *mongo.Database
	pendingBatches        *mongo.Collection
	assembledApplications *mongo.Collection
	pdfResumes            *mongo.Collection
}

// Connect dials uri and returns a Store bound to database. Callers must
// call Close when done.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	return &Store{
		client:                client,
		database:              db,
		pendingBatches:        db.Collection(pendingBatchesCollection),
		assembledApplications: db.Collection(assembledApplicationsCollection),
		pdfResumes:            db.Collection(pdfResumesCollection),
	}, nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
