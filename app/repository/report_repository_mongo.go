package repository

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/bantaydalan/bantaydalan-api/app/models"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/reportquery"
)

// mongoReportRepository stores reports as documents in a single collection
type mongoReportRepository struct {
	col *mongo.Collection
}

// NewMongoReportRepository creates a report repository backed by MongoDB
func NewMongoReportRepository(col *mongo.Collection) ReportRepository {
	return &mongoReportRepository{col: col}
}

func (r *mongoReportRepository) Create(ctx context.Context, report *models.Report) error {
	now := time.Now().UTC()
	if report.CreatedAt.IsZero() {
		report.CreatedAt = now
	}
	if report.UpdatedAt.IsZero() {
		report.UpdatedAt = report.CreatedAt
	}
	_, err := r.col.InsertOne(ctx, report)
	return err
}

func (r *mongoReportRepository) GetByID(ctx context.Context, id string) (*models.Report, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoReportRepository) GetByTrackingCode(ctx context.Context, code string) (*models.Report, error) {
	return r.findOne(ctx, bson.M{"tracking_code": code})
}

func (r *mongoReportRepository) TrackingCodeExists(ctx context.Context, code string) (bool, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"tracking_code": code})
	return n > 0, err
}

func (r *mongoReportRepository) CountVerifiedBy(ctx context.Context, adminID uint) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{"verified_by": adminID})
}

func (r *mongoReportRepository) List(ctx context.Context, f reportquery.Filter) ([]models.Report, int64, error) {
	if f.NeedsPostFilter() {
		all, err := r.ListAll(ctx, f)
		if err != nil {
			return nil, 0, err
		}
		return f.Paginate(all), int64(len(all)), nil
	}

	filter := reportFilterBSON(f)
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(reportSortBSON(f.Sort)).
		SetSkip(int64(f.Offset())).
		SetLimit(int64(f.PageSize()))
	reports, err := r.find(ctx, filter, opts)
	return reports, total, err
}

func (r *mongoReportRepository) ListAll(ctx context.Context, f reportquery.Filter) ([]models.Report, error) {
	reports, err := r.find(ctx, reportFilterBSON(f), options.Find().SetSort(reportSortBSON(f.Sort)))
	if err != nil {
		return nil, err
	}
	if f.NeedsPostFilter() {
		reports = f.Apply(reports)
	}
	return reports, nil
}

func (r *mongoReportRepository) CompareAndSwapStatus(ctx context.Context, id string, from models.ReportStatus, change StatusChange) (bool, error) {
	set := bson.M{
		"status":     string(change.To),
		"updated_at": change.At,
	}
	if change.VerifiedAt != nil {
		set["verified_at"] = *change.VerifiedAt
		set["verified_by"] = change.VerifiedBy
	}
	if change.ResolvedAt != nil {
		set["resolved_at"] = *change.ResolvedAt
	}
	if change.AdminNotes != nil {
		set["admin_notes"] = *change.AdminNotes
	}

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id, "status": string(from)}, bson.M{"$set": set})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *mongoReportRepository) Update(ctx context.Context, id string, patch ReportPatch) error {
	set := bson.M{}
	if patch.Severity != nil {
		set["severity"] = string(*patch.Severity)
	}
	if patch.Priority != nil {
		set["priority"] = string(*patch.Priority)
	}
	if patch.AdminNotes != nil {
		set["admin_notes"] = *patch.AdminNotes
	}
	if len(set) == 0 {
		return nil
	}
	set["updated_at"] = time.Now().UTC()
	return r.updateByID(ctx, id, set)
}

func (r *mongoReportRepository) UpdateImages(ctx context.Context, id string, images datatypes.JSON) error {
	return r.updateByID(ctx, id, bson.M{"images": images, "updated_at": time.Now().UTC()})
}

func (r *mongoReportRepository) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *mongoReportRepository) updateByID(ctx context.Context, id string, set bson.M) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *mongoReportRepository) findOne(ctx context.Context, filter bson.M) (*models.Report, error) {
	var report models.Report
	err := r.col.FindOne(ctx, filter).Decode(&report)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, gorm.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *mongoReportRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Report, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	reports := make([]models.Report, 0)
	if err := cur.All(ctx, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

// reportFilterBSON translates f into a document filter. Radius filters are narrowed to their
// bounding box and checked exactly afterwards.
func reportFilterBSON(f reportquery.Filter) bson.M {
	filter := bson.M{}
	if len(f.Statuses) > 0 {
		filter["status"] = bson.M{"$in": stringsOf(f.Statuses)}
	}
	if len(f.Types) > 0 {
		filter["type"] = bson.M{"$in": stringsOf(f.Types)}
	}
	if len(f.Severities) > 0 {
		filter["severity"] = bson.M{"$in": stringsOf(f.Severities)}
	}
	if len(f.Priorities) > 0 {
		filter["priority"] = bson.M{"$in": stringsOf(f.Priorities)}
	}
	if f.Province != "" {
		filter["location.province"] = exactFold(f.Province)
	}
	if f.City != "" {
		filter["location.city"] = exactFold(f.City)
	}
	if f.Barangay != "" {
		filter["location.barangay"] = exactFold(f.Barangay)
	}
	if f.From != nil || f.To != nil {
		rng := bson.M{}
		if f.From != nil {
			rng["$gte"] = *f.From
		}
		if f.To != nil {
			rng["$lte"] = *f.To
		}
		filter["created_at"] = rng
	}
	if f.ReporterID != nil {
		filter["reported_by.id"] = *f.ReporterID
	}
	if box := f.StorageBox(); box != nil {
		filter["location.latitude"] = bson.M{"$gte": box.MinLat, "$lte": box.MaxLat}
		filter["location.longitude"] = bson.M{"$gte": box.MinLng, "$lte": box.MaxLng}
	}
	if f.Search != "" {
		needle := bson.M{"$regex": regexp.QuoteMeta(f.Search), "$options": "i"}
		filter["$or"] = []bson.M{
			{"type": needle},
			{"location.address": needle},
			{"description": needle},
		}
	}
	return filter
}

func reportSortBSON(s reportquery.Sort) bson.D {
	dir := -1
	if s == reportquery.SortOldest {
		dir = 1
	}
	return bson.D{{Key: "created_at", Value: dir}, {Key: "_id", Value: dir}}
}

func exactFold(v string) bson.M {
	return bson.M{"$regex": "^" + regexp.QuoteMeta(strings.TrimSpace(v)) + "$", "$options": "i"}
}
