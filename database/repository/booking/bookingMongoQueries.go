package bookingRepo

import (
	"context"
	"fmt"
	"time"

	"github.com/Rohit420bhainwal/book-my-event-api/database"
	"github.com/Rohit420bhainwal/book-my-event-api/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// List returns bookings matching the filter, newest first.
func (r *MongoBookingRepo) List(ctx context.Context, f models.BookingFilter) ([]models.Booking, error) {
	ctx, cancel := database.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{}
	if f.CustomerID != "" {
		filter["customerId"] = f.CustomerID
	}
	if f.ProviderID != "" {
		filter["providerId"] = f.ProviderID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.PayoutStatus != "" {
		filter["payoutStatus"] = f.PayoutStatus
	}

	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("error listing bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := []models.Booking{}
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("error decoding bookings: %w", err)
	}
	return bookings, nil
}

// ReleaseDuePayouts is idempotent: rows already moved no longer match.
func (r *MongoBookingRepo) ReleaseDuePayouts(ctx context.Context, now time.Time, moves []models.StateMove) (int64, error) {
	n, err := r.applyMoves(ctx, now, moves, bson.M{"payoutReleaseDate": bson.M{"$lte": now}})
	if err != nil {
		return n, fmt.Errorf("error releasing payouts: %w", err)
	}
	return n, nil
}

// MarkOverdue flags unpaid remainders whose deadline passed.
func (r *MongoBookingRepo) MarkOverdue(ctx context.Context, now time.Time, moves []models.StateMove) (int64, error) {
	n, err := r.applyMoves(ctx, now, moves, bson.M{"paymentDeadline": bson.M{"$lt": now}})
	if err != nil {
		return n, fmt.Errorf("error marking overdue bookings: %w", err)
	}
	return n, nil
}

// applyMoves runs one conditional UpdateMany per move and returns the total
// number of bookings changed.
func (r *MongoBookingRepo) applyMoves(ctx context.Context, now time.Time, moves []models.StateMove, due bson.M) (int64, error) {
	ctx, cancel := database.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var total int64
	for _, m := range moves {
		filter := stateFilter(m.From)
		for k, v := range due {
			filter[k] = v
		}
		if m.Type != "" {
			filter["bookingType"] = m.Type
		}
		update := bson.M{"$set": bson.M{
			"status":        m.To.Status,
			"paymentStatus": m.To.Payment,
			"payoutStatus":  m.To.Payout,
			"refundStatus":  m.To.Refund,
			"updatedAt":     now,
		}}
		res, err := r.coll.UpdateMany(ctx, filter, update)
		if err != nil {
			return total, err
		}
		total += res.ModifiedCount
	}
	return total, nil
}

// FindAutoCancelCandidates lists the oldest lapsed bookings first.
func (r *MongoBookingRepo) FindAutoCancelCandidates(ctx context.Context, now time.Time, limit int) ([]models.Booking, error) {
	ctx, cancel := database.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	filter := bson.M{
		"status":                   models.BookingPending,
		"providerResponseDeadline": bson.M{"$lt": now},
		"refundStatus":             models.RefundNone,
		"paymentStatus":            bson.M{"$in": bson.A{models.PaymentAdvancePaid, models.PaymentFullyPaid, models.PaymentOverdue}},
	}
	opts := options.Find().SetSort(bson.D{{Key: "providerResponseDeadline", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error finding expired bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("error decoding expired bookings: %w", err)
	}
	return bookings, nil
}

// ResetProcessingPayouts returns in-flight payouts to available.
func (r *MongoBookingRepo) ResetProcessingPayouts(ctx context.Context, providerID string, bookingIDs []string) (int64, error) {
	ctx, cancel := database.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{
		"providerId":   providerID,
		"payoutStatus": models.PayoutProcessing,
		"refundStatus": models.RefundNone,
	}
	if len(bookingIDs) > 0 {
		filter["id"] = bson.M{"$in": bookingIDs}
	}
	update := bson.M{"$set": bson.M{
		"payoutStatus": models.PayoutAvailable,
		"updatedAt":    time.Now().UTC(),
	}}
	res, err := r.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("error resetting payouts for provider %s: %w", providerID, err)
	}
	return res.ModifiedCount, nil
}

// EarningsByPayoutStatus groups non-refunded earnings by payout status.
func (r *MongoBookingRepo) EarningsByPayoutStatus(ctx context.Context, providerID string) (map[models.PayoutStatus]float64, int, error) {
	ctx, cancel := database.WithTimeout(ctx, opTimeout)
	defer cancel()

	pipeline := bson.A{
		bson.M{"$match": bson.M{
			"providerId":   providerID,
			"refundStatus": models.RefundNone,
			"status":       bson.M{"$ne": models.BookingCancelled},
		}},
		bson.M{"$group": bson.M{
			"_id":   "$payoutStatus",
			"total": bson.M{"$sum": "$providerEarning"},
			"count": bson.M{"$sum": 1},
		}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, 0, fmt.Errorf("error aggregating earnings: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status models.PayoutStatus `bson:"_id"`
		Total  float64             `bson:"total"`
		Count  int                 `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, 0, fmt.Errorf("error decoding earnings: %w", err)
	}

	totals := make(map[models.PayoutStatus]float64, len(rows))
	count := 0
	for _, row := range rows {
		totals[row.Status] = row.Total
		count += row.Count
	}
	return totals, count, nil
}
