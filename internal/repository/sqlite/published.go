package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/rs/xid"
	"github.com/sakif/brewlog/internal/apperror"
	"github.com/sakif/brewlog/internal/model"
	"github.com/sakif/brewlog/internal/repository"
)

// compile-time check that *DB implements repository.PublishedRecordRepository
var _ repository.PublishedRecordRepository = (*DB)(nil)

const publishedTable = "published_records"

var publishedColumns = []string{
	"id", "bean_id", "user_id", "user_name", "user_avatar",
	"bean_name", "brand", "type", "roast_level", "origin", "altitude",
	"process_method", "roast_date", "price_per_100g", "flavor_notes", "rating",
	"remarks", "brew_params", "extract_params", "flavor_scores", "equipment",
	"create_time", "publish_time",
}

// publishedWriteColumns adds the search columns, which are written but
// never read back.
var publishedWriteColumns = slices.Concat(publishedColumns, []string{"bean_name_fold", "brand_fold"})

// foldSearch is the case folding applied to both the search columns and
// the keyword.
func foldSearch(s string) string {
	return strings.ToLower(s)
}

// FindByNaturalKey looks up the feed entry for (beanID, userID).
func (db *DB) FindByNaturalKey(ctx context.Context, beanID, userID string) (*model.PublishedRecord, error) {
	query, args, err := builder.Select(publishedColumns...).
		From(publishedTable).
		Where(squirrel.Eq{"bean_id": beanID, "user_id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: building natural key query: %w", err)
	}

	rec, err := scanPublished(db.conn.QueryRowContext(ctx, query, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("published record", beanID+"/"+userID)
		}
		return nil, fmt.Errorf("sqlite: finding published record %s/%s: %w", beanID, userID, err)
	}
	return rec, nil
}

// CreatePublished inserts rec and sets rec.ID.
func (db *DB) CreatePublished(ctx context.Context, rec *model.PublishedRecord) error {
	rec.ID = xid.New().String()

	values, err := publishedValues(rec)
	if err != nil {
		return err
	}

	query, args, err := builder.Insert(publishedTable).
		Columns(publishedWriteColumns...).
		Values(values...).
		ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: building insert: %w", err)
	}

	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			rec.ID = ""
			return apperror.Conflict("published record", rec.BeanID+"/"+rec.UserID)
		}
		return fmt.Errorf("sqlite: inserting published record %s: %w", rec.BeanID, err)
	}
	return nil
}

// UpdatePublished overwrites the stored copy of rec, matched by rec.ID.
func (db *DB) UpdatePublished(ctx context.Context, rec *model.PublishedRecord) error {
	values, err := publishedValues(rec)
	if err != nil {
		return err
	}

	// Skip the id column; it is the row selector.
	set := make(map[string]any, len(publishedWriteColumns)-1)
	for i, col := range publishedWriteColumns[1:] {
		set[col] = values[i+1]
	}

	query, args, err := builder.Update(publishedTable).
		SetMap(set).
		Where(squirrel.Eq{"id": rec.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("sqlite: building update: %w", err)
	}

	result, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("published record", rec.BeanID+"/"+rec.UserID)
		}
		return fmt.Errorf("sqlite: updating published record %s: %w", rec.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("published record", rec.ID)
	}
	return nil
}

// ListFeed returns one page of the feed, newest publish first.
func (db *DB) ListFeed(ctx context.Context, q repository.FeedQuery) ([]model.PublishedRecord, error) {
	sel := builder.Select(publishedColumns...).
		From(publishedTable).
		OrderBy("publish_time DESC", "id DESC")

	if q.Type != "" {
		sel = sel.Where(squirrel.Eq{"type": string(q.Type)})
	}
	if q.Rating != nil {
		if q.Rating.Min != nil {
			sel = sel.Where(squirrel.GtOrEq{"rating": *q.Rating.Min})
		}
		if q.Rating.Max != nil {
			sel = sel.Where(squirrel.LtOrEq{"rating": *q.Rating.Max})
		}
	}
	if kw := foldSearch(strings.TrimSpace(q.Keyword)); kw != "" {
		sel = sel.Where(squirrel.Or{
			squirrel.Expr("instr(bean_name_fold, ?) > 0", kw),
			squirrel.Expr("instr(brand_fold, ?) > 0", kw),
		})
	}
	if q.Limit > 0 {
		sel = sel.Limit(uint64(q.Limit))
	}
	if q.Offset > 0 {
		if q.Limit <= 0 {
			// SQLite requires a LIMIT before OFFSET.
			sel = sel.Limit(uint64(1<<62))
		}
		sel = sel.Offset(uint64(q.Offset))
	}

	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: building feed query: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing feed: %w", err)
	}
	defer rows.Close()

	records := make([]model.PublishedRecord, 0)
	for rows.Next() {
		rec, err := scanPublished(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning feed row: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating feed rows: %w", err)
	}
	return records, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPublished(row rowScanner) (*model.PublishedRecord, error) {
	var rec model.PublishedRecord
	var recType, flavorNotes string
	var brewParams, extractParams, flavorScores, equip string
	var price sql.NullFloat64
	var createMs, publishMs int64
	err := row.Scan(
		&rec.ID, &rec.BeanID, &rec.UserID, &rec.UserName, &rec.UserAvatar,
		&rec.BeanName, &rec.Brand, &recType, &rec.RoastLevel, &rec.Origin, &rec.Altitude,
		&rec.ProcessMethod, &rec.RoastDate, &price, &flavorNotes, &rec.Rating,
		&rec.Remarks, &brewParams, &extractParams, &flavorScores, &equip,
		&createMs, &publishMs,
	)
	if err != nil {
		return nil, err
	}

	rec.Type = model.FeedType(recType)
	if price.Valid {
		rec.PricePer100g = model.Float(price.Float64)
	}
	rec.FlavorNotes = []string{}
	if err := json.Unmarshal([]byte(flavorNotes), &rec.FlavorNotes); err != nil || rec.FlavorNotes == nil {
		rec.FlavorNotes = []string{}
	}
	rec.BrewParams = model.ObjectOrEmpty(json.RawMessage(brewParams))
	rec.ExtractParams = model.ObjectOrEmpty(json.RawMessage(extractParams))
	rec.FlavorScores = model.ObjectOrEmpty(json.RawMessage(flavorScores))
	rec.Equipment = model.ObjectOrEmpty(json.RawMessage(equip))
	rec.CreateTime = time.UnixMilli(createMs).UTC()
	rec.PublishTime = time.UnixMilli(publishMs).UTC()
	return &rec, nil
}

// publishedValues lists rec's column values in publishedWriteColumns order.
func publishedValues(rec *model.PublishedRecord) ([]any, error) {
	notes := rec.FlavorNotes
	if notes == nil {
		notes = []string{}
	}
	notesJSON, err := json.Marshal(notes)
	if err != nil {
		return nil, fmt.Errorf("sqlite: encoding flavor notes: %w", err)
	}

	var price any
	if rec.PricePer100g != nil {
		price = *rec.PricePer100g
	}

	return []any{
		rec.ID, rec.BeanID, rec.UserID, rec.UserName, rec.UserAvatar,
		rec.BeanName, rec.Brand, string(rec.Type), rec.RoastLevel, rec.Origin, rec.Altitude,
		rec.ProcessMethod, rec.RoastDate, price, string(notesJSON), rec.Rating,
		rec.Remarks,
		string(model.ObjectOrEmpty(rec.BrewParams)),
		string(model.ObjectOrEmpty(rec.ExtractParams)),
		string(model.ObjectOrEmpty(rec.FlavorScores)),
		string(model.ObjectOrEmpty(rec.Equipment)),
		rec.CreateTime.UnixMilli(), rec.PublishTime.UnixMilli(),
		foldSearch(rec.BeanName), foldSearch(rec.Brand),
	}, nil
}
