package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/careerdocs/pipeline/internal/core"
)

// UpsertApplication writes app under content.<correlationID> of the user's
// assembled_applications document, creating the document if absent.
// Satisfies consumer.Repository.
func (s *Store) UpsertApplication(ctx context.Context, userID int64, correlationID string, app core.AssembledApplication) error {
	filter := bson.M{"user_id": userID}
	update := bson.M{"$set": bson.M{"content." + correlationID: app}}

	_, err := s.assembledApplications.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert assembled application %s for user %d: %w", correlationID, userID, err)
	}
	return nil
}

func (s *Store) userApplications(ctx context.Context, userID int64) (*core.UserApplications, error) {
	var doc core.UserApplications
	err := s.assembledApplications.FindOne(ctx, bson.M{"user_id": userID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return &core.UserApplications{UserID: userID, Content: map[string]core.AssembledApplication{}}, nil
		}
		return nil, fmt.Errorf("load assembled applications for user %d: %w", userID, err)
	}
	return &doc, nil
}

// GetUnsentApplications returns every assembled application for userID that
// has not yet been dispatched. Satisfies dispatch.Repository.
func (s *Store) GetUnsentApplications(ctx context.Context, userID int64) ([]core.AssembledApplication, error) {
	doc, err := s.userApplications(ctx, userID)
	if err != nil {
		return nil, err
	}

	var apps []core.AssembledApplication
	for _, app := range doc.Content {
		if !app.Sent {
			apps = append(apps, app)
		}
	}
	return apps, nil
}

// GetApplications returns the subset of userID's assembled applications
// named in ids, regardless of sent state. Satisfies dispatch.Repository.
func (s *Store) GetApplications(ctx context.Context, userID int64, ids []string) ([]core.AssembledApplication, error) {
	doc, err := s.userApplications(ctx, userID)
	if err != nil {
		return nil, err
	}

	apps := make([]core.AssembledApplication, 0, len(ids))
	for _, id := range ids {
		if app, ok := doc.Content[id]; ok {
			apps = append(apps, app)
		}
	}
	return apps, nil
}

// MarkSent flips sent=true and records the dispatch timestamp for
// correlationID within userID's document. Satisfies dispatch.Repository.
func (s *Store) MarkSent(ctx context.Context, userID int64, correlationID string, sentAt time.Time) error {
	filter := bson.M{"user_id": userID}
	update := bson.M{"$set": bson.M{
		"content." + correlationID + ".sent":      true,
		"content." + correlationID + ".timestamp": sentAt,
	}}

	_, err := s.assembledApplications.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("mark application %s sent for user %d: %w", correlationID, userID, err)
	}
	return nil
}
