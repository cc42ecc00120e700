package bookingRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Rohit420bhainwal/book-my-event-api/database"
	"github.com/Rohit420bhainwal/book-my-event-api/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const opTimeout = 5 * time.Second

// MongoBookingRepo implements BookingRepository using MongoDB.
type MongoBookingRepo struct {
	coll *mongo.Collection
}

// NewMongoBookingRepo constructs a booking repository and ensures its indexes.
func NewMongoBookingRepo() BookingRepository {
	repo := &MongoBookingRepo{coll: database.Database().Collection("bookings")}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create booking indexes: %v\n", err)
	}
	return repo
}

// Create inserts a new booking document.
func (r *MongoBookingRepo) Create(ctx context.Context, booking *models.Booking) error {
	ctx, cancel := database.WithTimeout(ctx, opTimeout)
	defer cancel()

	if booking.SlotKey == "" && booking.Status != models.BookingCancelled {
		booking.SlotKey = models.SlotKeyFor(booking.ServiceID, booking.Date, booking.Slot)
	}
	if _, err := r.coll.InsertOne(ctx, booking); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("booking %s: %w", booking.ID, database.ErrDuplicate)
		}
		return fmt.Errorf("error creating booking: %w", err)
	}
	return nil
}

// GetByID retrieves a booking by id.
func (r *MongoBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	return r.findOne(ctx, bson.M{"id": id})
}

// GetByAdvancePaymentID retrieves the booking created from a payment intent.
func (r *MongoBookingRepo) GetByAdvancePaymentID(ctx context.Context, intentID string) (*models.Booking, error) {
	return r.findOne(ctx, bson.M{"advancePaymentId": intentID})
}

func (r *MongoBookingRepo) findOne(ctx context.Context, filter bson.M) (*models.Booking, error) {
	ctx, cancel := database.WithTimeout(ctx, opTimeout)
	defer cancel()

	var booking models.Booking
	if err := r.coll.FindOne(ctx, filter).Decode(&booking); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, database.ErrNotFound
		}
		return nil, fmt.Errorf("error fetching booking: %w", err)
	}
	return &booking, nil
}

func (r *MongoBookingRepo) ListActiveBetween(ctx context.Context, serviceID string, from, to time.Time) ([]models.Booking, error) {
	ctx, cancel := database.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{
		"serviceId": serviceID,
		"date":      bson.M{"$gte": dayOf(from), "$lt": dayOf(to)},
		"status":    bson.M{"$ne": models.BookingCancelled},
	}
	opts := options.Find().SetProjection(bson.M{"id": 1, "date": 1, "slot": 1, "status": 1})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing bookings for service %s: %w", serviceID, err)
	}
	defer cursor.Close(ctx)

	bookings := []models.Booking{}
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("error decoding bookings: %w", err)
	}
	return bookings, nil
}

// SlotTaken counts active bookings on the exact service, day and slot.
func (r *MongoBookingRepo) SlotTaken(ctx context.Context, serviceID string, date time.Time, slot string) (bool, error) {
	ctx, cancel := database.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := bson.M{
		"serviceId": serviceID,
		"date":      dayOf(date),
		"slot":      slot,
		"status":    bson.M{"$ne": models.BookingCancelled},
	}
	n, err := r.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("error checking slot: %w", err)
	}
	return n > 0, nil
}

// Transition applies a guarded state change.
// stateFilter matches bookings whose joint state equals s.
func stateFilter(s models.BookingState) bson.M {
	return bson.M{
		"status":        s.Status,
		"paymentStatus": s.Payment,
		"payoutStatus":  s.Payout,
		"refundStatus":  s.Refund,
	}
}

func (r *MongoBookingRepo) Transition(ctx context.Context, id string, from, to models.BookingState, changes models.BookingChanges) error {
	ctx, cancel := database.WithTimeout(ctx, opTimeout)
	defer cancel()

	filter := stateFilter(from)
	filter["id"] = id
	set := changesToBSON(changes)
	set["status"] = to.Status
	set["paymentStatus"] = to.Payment
	set["payoutStatus"] = to.Payout
	set["refundStatus"] = to.Refund
	set["updatedAt"] = time.Now().UTC()

	update := bson.M{"$set": set}
	if to.Status == models.BookingCancelled {
		update["$unset"] = bson.M{"slotKey": ""}
	}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("error updating booking %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("booking %s: %w", id, database.ErrStale)
	}
	return nil
}

func changesToBSON(c models.BookingChanges) bson.M {
	set := bson.M{}
	if c.PaidAmount != nil {
		set["paidAmount"] = *c.PaidAmount
	}
	if c.RemainingAmount != nil {
		set["remainingAmount"] = *c.RemainingAmount
	}
	if c.RemainingPaymentID != nil {
		set["remainingPaymentId"] = *c.RemainingPaymentID
	}
	if c.PayoutID != nil {
		set["payoutId"] = *c.PayoutID
	}
	if c.WithdrawnAt != nil {
		set["withdrawnAt"] = *c.WithdrawnAt
	}
	if c.RefundID != nil {
		set["refundId"] = *c.RefundID
	}
	if c.CancelReason != nil {
		set["cancelReason"] = *c.CancelReason
	}
	if c.CompletedAt != nil {
		set["completedAt"] = *c.CompletedAt
	}
	if c.ReviewStatus != nil {
		set["reviewStatus"] = *c.ReviewStatus
	}
	if c.ReviewID != nil {
		set["reviewId"] = *c.ReviewID
	}
	return set
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
