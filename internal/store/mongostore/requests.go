package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"hrleave/internal/domain/errs"
	"hrleave/internal/domain/leave"
)

var afterUpdate = options.FindOneAndUpdate().SetReturnDocument(options.After)

func (s *Store) CreateRequest(ctx context.Context, req leave.Request) (leave.Request, error) {
	if req.Comments == nil {
		req.Comments = []leave.Comment{}
	}
	if _, err := s.requests.InsertOne(ctx, req); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return leave.Request{}, errs.Conflict("leave request id already exists")
		}
		return leave.Request{}, fmt.Errorf("insert leave request: %w", err)
	}
	return req, nil
}

func (s *Store) GetRequest(ctx context.Context, id string) (leave.Request, error) {
	var req leave.Request
	if err := s.requests.FindOne(ctx, bson.M{"_id": id}).Decode(&req); err != nil {
		if isNoDocuments(err) {
			return leave.Request{}, errs.NotFound("leave request not found")
		}
		return leave.Request{}, fmt.Errorf("find leave request: %w", err)
	}
	return normalize(req), nil
}

func (s *Store) ListRequests(ctx context.Context, filter leave.Filter) (leave.ListResult, error) {
	query := bson.M{}
	if filter.EmployeeID != "" {
		query["employee_id"] = filter.EmployeeID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	span := bson.M{}
	if filter.FromStart != nil {
		span["$gte"] = *filter.FromStart
	}
	if filter.FromEnd != nil {
		span["$lt"] = *filter.FromEnd
	}
	if len(span) > 0 {
		query["from"] = span
	}

	total, err := s.requests.CountDocuments(ctx, query)
	if err != nil {
		return leave.ListResult{}, fmt.Errorf("count leave requests: %w", err)
	}
	direction := -1
	if filter.Ascending {
		direction = 1
	}
	cursor, err := s.requests.Find(ctx, query,
		findOptions(bson.D{{Key: "from", Value: direction}, {Key: "created_at", Value: 1}}, filter.Limit, filter.Offset))
	if err != nil {
		return leave.ListResult{}, fmt.Errorf("list leave requests: %w", err)
	}
	requests := []leave.Request{}
	if err := cursor.All(ctx, &requests); err != nil {
		return leave.ListResult{}, fmt.Errorf("decode leave requests: %w", err)
	}
	for i := range requests {
		requests[i] = normalize(requests[i])
	}
	return leave.ListResult{Requests: requests, Total: int(total)}, nil
}

func transitionSet(t leave.Transition) bson.M {
	set := bson.M{"status": t.Status, "updated_at": t.At}
	switch t.Status {
	case leave.StatusApproved:
		set["approved_by"], set["approved_by_name"], set["approved_at"] = t.ActorID, t.ActorName, t.At
	case leave.StatusRejected:
		set["rejected_by"], set["rejected_by_name"], set["rejected_at"] = t.ActorID, t.ActorName, t.At
	case leave.StatusCancelled:
		set["cancelled_at"] = t.At
	}
	return set
}

// TransitionRequest applies the status change and the debit inside one
// session transaction.
func (s *Store) TransitionRequest(ctx context.Context, id string, t leave.Transition) (leave.Request, error) {
	sess, err := s.client.StartSession()
	if err != nil {
		return leave.Request{}, fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	result, err := sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		update := bson.M{"$set": transitionSet(t)}
		if t.Comment != nil {
			update["$push"] = bson.M{"comments": *t.Comment}
		}
		var updated leave.Request
		err := s.requests.FindOneAndUpdate(ctx, bson.M{"_id": id, "status": leave.StatusPending}, update, afterUpdate).Decode(&updated)
		if err != nil {
			if isNoDocuments(err) {
				return nil, s.notPending(ctx, id)
			}
			return nil, fmt.Errorf("transition leave request: %w", err)
		}

		// updated is the document this transaction matched while pending.
		if debit, ok := t.DebitFor(updated); ok {
			res, err := s.employees.UpdateOne(ctx, bson.M{"_id": debit.EmployeeID}, bson.M{
				"$inc": bson.M{"balances." + string(debit.Key) + ".taken": debit.Days},
				"$set": bson.M{"updated_at": t.At},
			})
			if err != nil {
				return nil, fmt.Errorf("debit balance: %w", err)
			}
			if res.MatchedCount == 0 {
				return nil, errs.NotFound("employee not found")
			}
		}
		return normalize(updated), nil
	})
	if err != nil {
		return leave.Request{}, err
	}
	return result.(leave.Request), nil
}

func (s *Store) ReplacePending(ctx context.Context, req leave.Request) (leave.Request, error) {
	var updated leave.Request
	err := s.requests.FindOneAndUpdate(ctx, bson.M{"_id": req.ID, "status": leave.StatusPending}, bson.M{"$set": bson.M{
		"category":           req.Category,
		"from":               req.From,
		"to":                 req.To,
		"is_half_day":        req.IsHalfDay,
		"half_day_period":    req.HalfDayPeriod,
		"total_days":         req.TotalDays,
		"reason":             req.Reason,
		"replacement":        req.Replacement,
		"emergency_contact":  req.EmergencyContact,
		"attachment_url":     req.AttachmentURL,
		"doctor_certificate": req.DoctorCertificate,
		"priority":           req.Priority,
		"updated_at":         req.UpdatedAt,
	}}, afterUpdate).Decode(&updated)
	if err != nil {
		if isNoDocuments(err) {
			return leave.Request{}, s.notPending(ctx, req.ID)
		}
		return leave.Request{}, fmt.Errorf("replace leave request: %w", err)
	}
	return normalize(updated), nil
}

func (s *Store) DeletePending(ctx context.Context, id string) error {
	res, err := s.requests.DeleteOne(ctx, bson.M{"_id": id, "status": leave.StatusPending})
	if err != nil {
		return fmt.Errorf("delete leave request: %w", err)
	}
	if res.DeletedCount == 0 {
		return s.notPending(ctx, id)
	}
	return nil
}

func (s *Store) notPending(ctx context.Context, id string) error {
	current, err := s.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	return errs.Conflict("leave request is already %s", current.Status)
}

func (s *Store) AppendComment(ctx context.Context, id string, comment leave.Comment) (leave.Request, error) {
	var updated leave.Request
	err := s.requests.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{
		"$push": bson.M{"comments": comment},
		"$set":  bson.M{"updated_at": comment.CreatedAt},
	}, afterUpdate).Decode(&updated)
	if err != nil {
		if isNoDocuments(err) {
			return leave.Request{}, errs.NotFound("leave request not found")
		}
		return leave.Request{}, fmt.Errorf("append comment: %w", err)
	}
	return normalize(updated), nil
}

// normalize restores what BSON round-trips lose: UTC dates and a non-nil
// comment list.
func normalize(req leave.Request) leave.Request {
	req.From = leave.DateOnly(req.From.UTC())
	req.To = leave.DateOnly(req.To.UTC())
	if req.Comments == nil {
		req.Comments = []leave.Comment{}
	}
	return req
}
