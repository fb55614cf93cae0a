package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// AppendAppIDs pushes correlationIDs onto the app_ids list of the pdf_resumes
// document identified by cvID. Satisfies publisher.Repository. This is an
// auxiliary cross-reference, not source of truth: a missing cv_id document
// is not an error here, since the publisher calls this best-effort and logs
// any failure without aborting the publish.
func (s *Store) AppendAppIDs(ctx context.Context, cvID string, correlationIDs []string) error {
	filter := bson.M{"_id": cvID}
	update := bson.M{"$push": bson.M{"app_ids": bson.M{"$each": correlationIDs}}}

	_, err := s.pdfResumes.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("append app ids to pdf_resumes %s: %w", cvID, err)
	}
	return nil
}
