package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// Image is one hosted image attached to a campground. URL is the remote
// serving address and Filename the host-side storage key used for deletion.
type Image struct {
	ID       uint64
	URL      string
	Filename string
	Position int
}

// Campground mirrors the 'campgrounds' table plus its image rows. Reviews
// and author usernames are populated only by GetDetail.
type Campground struct {
	ID             uint64
	Title          string
	Description    string
	Price          float64
	Location       string
	GeometryType   string
	Longitude      float64
	Latitude       float64
	AuthorID       uint64 // zero when the row predates authorship
	AuthorUsername string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Images         []Image
	Reviews        []Review
}

type CampgroundRepo struct{ DB *sql.DB }

func NewCampgroundRepo(db *sql.DB) *CampgroundRepo { return &CampgroundRepo{DB: db} }

// Create inserts a campground and its image rows in one transaction. On
// success the ID field is populated.
func (r *CampgroundRepo) Create(ctx context.Context, c *Campground) (err error) {
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

	res, err := tx.ExecContext(ctx,
		`INSERT INTO campgrounds (title, description, price, location, geometry_type, longitude, latitude, author_id)
		 VALUES (?,?,?,?,?,?,?,?)`,
		c.Title, c.Description, c.Price, c.Location, c.GeometryType, c.Longitude, c.Latitude, nullableID(c.AuthorID))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)

	for i := range c.Images {
		c.Images[i].Position = i
		if _, err = tx.ExecContext(ctx,
			"INSERT INTO campground_images (campground_id, url, filename, position) VALUES (?,?,?,?)",
			c.ID, c.Images[i].URL, c.Images[i].Filename, i); err != nil {
			return err
		}
	}
	return nil
}

// ListAll returns every campground with its images, newest first.
func (r *CampgroundRepo) ListAll(ctx context.Context) ([]Campground, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, title, description, price, location, geometry_type, longitude, latitude,
		        COALESCE(author_id, 0), created_at, updated_at
		 FROM campgrounds ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Campground
	index := map[uint64]int{}
	for rows.Next() {
		var c Campground
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.Price, &c.Location,
			&c.GeometryType, &c.Longitude, &c.Latitude, &c.AuthorID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		index[c.ID] = len(items)
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	imgRows, err := r.DB.QueryContext(ctx,
		"SELECT id, campground_id, url, filename, position FROM campground_images ORDER BY campground_id, position")
	if err != nil {
		return nil, err
	}
	defer imgRows.Close()
	for imgRows.Next() {
		var img Image
		var cid uint64
		if err := imgRows.Scan(&img.ID, &cid, &img.URL, &img.Filename, &img.Position); err != nil {
			return nil, err
		}
		if i, ok := index[cid]; ok {
			items[i].Images = append(items[i].Images, img)
		}
	}
	return items, imgRows.Err()
}

// GetByID fetches a campground with its images but without reviews.
func (r *CampgroundRepo) GetByID(ctx context.Context, id uint64) (Campground, error) {
	var c Campground
	err := r.DB.QueryRowContext(ctx,
		`SELECT c.id, c.title, c.description, c.price, c.location, c.geometry_type, c.longitude, c.latitude,
		        COALESCE(c.author_id, 0), COALESCE(u.username, ''), c.created_at, c.updated_at
		 FROM campgrounds c LEFT JOIN users u ON u.id = c.author_id
		 WHERE c.id = ? LIMIT 1`, id).
		Scan(&c.ID, &c.Title, &c.Description, &c.Price, &c.Location, &c.GeometryType,
			&c.Longitude, &c.Latitude, &c.AuthorID, &c.AuthorUsername, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return Campground{}, ErrNotFound
	}
	if err != nil {
		return Campground{}, err
	}

	imgs, err := r.imagesFor(ctx, id)
	if err != nil {
		return Campground{}, err
	}
	c.Images = imgs
	return c, nil
}

// GetDetail fetches a campground with images, reviews and the username of
// every review author populated, for the detail page.
func (r *CampgroundRepo) GetDetail(ctx context.Context, id uint64) (Campground, error) {
	c, err := r.GetByID(ctx, id)
	if err != nil {
		return Campground{}, err
	}

	rows, err := r.DB.QueryContext(ctx,
		`SELECT r.id, r.campground_id, r.author_id, u.username, r.body, r.rating, r.created_at
		 FROM reviews r JOIN users u ON u.id = r.author_id
		 WHERE r.campground_id = ? ORDER BY r.id`, id)
	if err != nil {
		return Campground{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var rv Review
		if err := rows.Scan(&rv.ID, &rv.CampgroundID, &rv.AuthorID, &rv.AuthorUsername,
			&rv.Body, &rv.Rating, &rv.CreatedAt); err != nil {
			return Campground{}, err
		}
		c.Reviews = append(c.Reviews, rv)
	}
	return c, rows.Err()
}

// Update rewrites the scalar fields, appends newImages and removes the
// image rows whose filenames appear in removeFilenames, all in one
// transaction. The parent row is locked first so concurrent writers to the
// same campground serialize instead of interleaving. It returns the
// filenames actually removed so the caller can schedule host-side cleanup.
func (r *CampgroundRepo) Update(ctx context.Context, id uint64, c *Campground, newImages []Image, removeFilenames []string) (removed []string, err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	if err = lockCampground(ctx, tx, id); err != nil {
		return nil, err
	}

	if _, err = tx.ExecContext(ctx,
		"UPDATE campgrounds SET title=?, description=?, price=?, location=? WHERE id=?",
		c.Title, c.Description, c.Price, c.Location, id); err != nil {
		return nil, err
	}

	var next int
	if err = tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(position), -1) + 1 FROM campground_images WHERE campground_id=?", id).
		Scan(&next); err != nil {
		return nil, err
	}
	for i, img := range newImages {
		if _, err = tx.ExecContext(ctx,
			"INSERT INTO campground_images (campground_id, url, filename, position) VALUES (?,?,?,?)",
			id, img.URL, img.Filename, next+i); err != nil {
			return nil, err
		}
	}

	if len(removeFilenames) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(removeFilenames)), ",")
		args := make([]any, 0, len(removeFilenames)+1)
		args = append(args, id)
		for _, f := range removeFilenames {
			args = append(args, f)
		}

		rows, qerr := tx.QueryContext(ctx,
			"SELECT filename FROM campground_images WHERE campground_id=? AND filename IN ("+placeholders+")",
			args...)
		if qerr != nil {
			err = qerr
			return nil, err
		}
		for rows.Next() {
			var f string
			if err = rows.Scan(&f); err != nil {
				rows.Close()
				return nil, err
			}
			removed = append(removed, f)
		}
		if err = rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()

		if len(removed) > 0 {
			if _, err = tx.ExecContext(ctx,
				"DELETE FROM campground_images WHERE campground_id=? AND filename IN ("+placeholders+")",
				args...); err != nil {
				return nil, err
			}
		}
	}
	return removed, nil
}

// Delete removes the campground, all of its reviews and all of its image
// rows in one transaction, so no review can survive its parent. It returns
// the filenames of the deleted images for host-side cleanup.
func (r *CampgroundRepo) Delete(ctx context.Context, id uint64) (filenames []string, err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	if err = lockCampground(ctx, tx, id); err != nil {
		return nil, err
	}

	rows, qerr := tx.QueryContext(ctx,
		"SELECT filename FROM campground_images WHERE campground_id=?", id)
	if qerr != nil {
		err = qerr
		return nil, err
	}
	for rows.Next() {
		var f string
		if err = rows.Scan(&f); err != nil {
			rows.Close()
			return nil, err
		}
		filenames = append(filenames, f)
	}
	if err = rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if _, err = tx.ExecContext(ctx, "DELETE FROM reviews WHERE campground_id=?", id); err != nil {
		return nil, err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM campground_images WHERE campground_id=?", id); err != nil {
		return nil, err
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM campgrounds WHERE id=?", id); err != nil {
		return nil, err
	}
	return filenames, nil
}

func (r *CampgroundRepo) imagesFor(ctx context.Context, id uint64) ([]Image, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, url, filename, position FROM campground_images WHERE campground_id=? ORDER BY position", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var imgs []Image
	for rows.Next() {
		var img Image
		if err := rows.Scan(&img.ID, &img.URL, &img.Filename, &img.Position); err != nil {
			return nil, err
		}
		imgs = append(imgs, img)
	}
	return imgs, rows.Err()
}

// lockCampground takes a row lock on the campground, serializing every
// mutating transaction that touches the same listing.
func lockCampground(ctx context.Context, tx *sql.Tx, id uint64) error {
	var got uint64
	err := tx.QueryRowContext(ctx, "SELECT id FROM campgrounds WHERE id=? FOR UPDATE", id).Scan(&got)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	return err
}

func nullableID(id uint64) any {
	if id == 0 {
		return nil
	}
	return id
}
