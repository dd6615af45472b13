package database

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are executed in order at startup. Statements must be
// idempotent (CREATE TABLE IF NOT EXISTS) so repeated boots are safe.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		email         VARCHAR(255) NOT NULL,
		username      VARCHAR(64)  NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_users_email (email),
		UNIQUE KEY uq_users_username (username)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS campgrounds (
		id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		title         VARCHAR(255) NOT NULL,
		description   TEXT NOT NULL,
		price         DECIMAL(10,2) NOT NULL DEFAULT 0,
		location      VARCHAR(255) NOT NULL,
		geometry_type VARCHAR(16)  NOT NULL DEFAULT 'Point',
		longitude     DOUBLE NOT NULL DEFAULT 0,
		latitude      DOUBLE NOT NULL DEFAULT 0,
		author_id     BIGINT UNSIGNED NULL,
		created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_campgrounds_author (author_id),
		CONSTRAINT fk_campgrounds_author FOREIGN KEY (author_id) REFERENCES users (id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS campground_images (
		id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		campground_id BIGINT UNSIGNED NOT NULL,
		url           TEXT NOT NULL,
		filename      VARCHAR(255) NOT NULL,
		position      INT NOT NULL DEFAULT 0,
		KEY idx_images_campground (campground_id),
		CONSTRAINT fk_images_campground FOREIGN KEY (campground_id) REFERENCES campgrounds (id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS reviews (
		id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		campground_id BIGINT UNSIGNED NOT NULL,
		author_id     BIGINT UNSIGNED NOT NULL,
		body          TEXT NOT NULL,
		rating        INT NOT NULL,
		created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_reviews_campground (campground_id),
		KEY idx_reviews_author (author_id),
		CONSTRAINT fk_reviews_campground FOREIGN KEY (campground_id) REFERENCES campgrounds (id),
		CONSTRAINT fk_reviews_author FOREIGN KEY (author_id) REFERENCES users (id)
	) ENGINE=InnoDB`,
}

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
