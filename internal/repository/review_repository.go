package repository

import (
	"context"
	"database/sql"
	"time"
)

// Review mirrors the 'reviews' table. AuthorUsername is populated on reads
// that join the users table.
type Review struct {
	ID             uint64
	CampgroundID   uint64
	AuthorID       uint64
	AuthorUsername string
	Body           string
	Rating         int
	CreatedAt      time.Time
}

type ReviewRepo struct{ DB *sql.DB }

func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{DB: db} }

// Create attaches a review to its campground. The parent row is locked and
// verified inside the same transaction as the insert, so the review either
// lands on an existing campground or not at all: there is no window where
// a review references a missing listing.
func (r *ReviewRepo) Create(ctx context.Context, rv *Review) (err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	if err = lockCampground(ctx, tx, rv.CampgroundID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		"INSERT INTO reviews (campground_id, author_id, body, rating) VALUES (?,?,?,?)",
		rv.CampgroundID, rv.AuthorID, rv.Body, rv.Rating)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rv.ID = uint64(id)
	return nil
}

// GetByID fetches a review scoped to its campground, so a review id from
// another listing cannot be deleted through the wrong URL.
func (r *ReviewRepo) GetByID(ctx context.Context, campgroundID, reviewID uint64) (Review, error) {
	var rv Review
	err := r.DB.QueryRowContext(ctx,
		`SELECT r.id, r.campground_id, r.author_id, u.username, r.body, r.rating, r.created_at
		 FROM reviews r JOIN users u ON u.id = r.author_id
		 WHERE r.id = ? AND r.campground_id = ? LIMIT 1`, reviewID, campgroundID).
		Scan(&rv.ID, &rv.CampgroundID, &rv.AuthorID, &rv.AuthorUsername, &rv.Body, &rv.Rating, &rv.CreatedAt)
	if err == sql.ErrNoRows {
		return Review{}, ErrNotFound
	}
	return rv, err
}

// Delete detaches and removes exactly one review under its parent's row
// lock. Deleting an already-deleted review reports ErrNotFound.
func (r *ReviewRepo) Delete(ctx context.Context, campgroundID, reviewID uint64) (err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	if err = lockCampground(ctx, tx, campgroundID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		"DELETE FROM reviews WHERE id=? AND campground_id=?", reviewID, campgroundID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
