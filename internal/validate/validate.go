// Package validate holds the form schemas and their server-side rules.
// Each Validate returns an ordered list of human-readable violations;
// handlers join them into a single 400 response before touching the
// database or any external service.
package validate

import (
	"strconv"
	"strings"
)

const (
	RatingMin = 1
	RatingMax = 5
)

// CampgroundForm is the untyped field set of the new/edit listing forms.
// Price and the parsed rating stay strings at the edge; Validate reports
// parse failures as violations instead of surfacing a bind error.
type CampgroundForm struct {
	Title       string
	Location    string
	Description string
	Price       string

	price float64
}

// Validate checks the listing rules: title, location and description
// present, price a number >= 0.
func (f *CampgroundForm) Validate() []string {
	var violations []string
	f.Title = strings.TrimSpace(f.Title)
	f.Location = strings.TrimSpace(f.Location)
	f.Description = strings.TrimSpace(f.Description)

	if f.Title == "" {
		violations = append(violations, "title is required")
	}
	if f.Price == "" {
		violations = append(violations, "price is required")
	} else {
		p, err := strconv.ParseFloat(strings.TrimSpace(f.Price), 64)
		switch {
		case err != nil:
			violations = append(violations, "price must be a number")
		case p < 0:
			violations = append(violations, "price must be greater than or equal to 0")
		default:
			f.price = p
		}
	}
	if f.Description == "" {
		violations = append(violations, "description is required")
	}
	if f.Location == "" {
		violations = append(violations, "location is required")
	}
	return violations
}

// PriceValue returns the parsed price. Only meaningful after a successful
// Validate.
func (f *CampgroundForm) PriceValue() float64 { return f.price }

// ReviewForm is the untyped field set of the review form.
type ReviewForm struct {
	Body   string
	Rating string

	rating int
}

// Validate checks the review rules: body present, rating an integer in
// [RatingMin, RatingMax].
func (f *ReviewForm) Validate() []string {
	var violations []string
	f.Body = strings.TrimSpace(f.Body)

	if f.Body == "" {
		violations = append(violations, "review body is required")
	}
	n, err := strconv.Atoi(strings.TrimSpace(f.Rating))
	switch {
	case f.Rating == "" || err != nil:
		violations = append(violations, "rating must be an integer")
	case n < RatingMin || n > RatingMax:
		violations = append(violations, "rating must be between 1 and 5")
	default:
		f.rating = n
	}
	return violations
}

// RatingValue returns the parsed rating. Only meaningful after a
// successful Validate.
func (f *ReviewForm) RatingValue() int { return f.rating }

// RegisterForm is the untyped field set of the registration form.
type RegisterForm struct {
	Email    string
	Username string
	Password string
}

// Validate checks the registration rules.
func (f *RegisterForm) Validate() []string {
	var violations []string
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
	f.Username = strings.TrimSpace(f.Username)

	if f.Email == "" {
		violations = append(violations, "email is required")
	} else if !strings.Contains(f.Email, "@") {
		violations = append(violations, "email must be a valid address")
	}
	if f.Username == "" {
		violations = append(violations, "username is required")
	}
	if f.Password == "" {
		violations = append(violations, "password is required")
	}
	return violations
}
