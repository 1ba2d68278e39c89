package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// ErrProfileNotFound signals a missing profile record.
var ErrProfileNotFound = errors.New("profile not found")

// Profile carries the social identity attached to a user account.
type Profile struct {
	ID                int64    `json:"id"`
	UserID            int64    `json:"user_id"`
	Username          string   `json:"username"`
	Bio               string   `json:"bio,omitempty"`
	DisplayPictureURL string   `json:"display_picture_url,omitempty"`
	FavoriteGenres    []string `json:"favorite_genres"`
}

// DisplayTitle implements subject.Displayable.
func (p Profile) DisplayTitle() string { return p.Username }

// DisplayImage implements subject.Displayable.
func (p Profile) DisplayImage() string { return p.DisplayPictureURL }

// DisplayDescription implements subject.Displayable.
func (p Profile) DisplayDescription() string { return p.Bio }

const profileColumns = `p.id, p.user_id, u.username, COALESCE(p.bio, ''), COALESCE(p.display_picture_url, ''), p.favorite_genres`

// ProfileByID returns a profile by its identifier.
func (s *Store) ProfileByID(ctx context.Context, id int64) (Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+profileColumns+`
		FROM profiles p
		JOIN users u ON u.id = p.user_id
		WHERE p.id = $1
	`, id)

	profile, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, ErrProfileNotFound
		}
		return Profile{}, err
	}
	return profile, nil
}

// ProfileByUser returns the profile owned by a user account.
func (s *Store) ProfileByUser(ctx context.Context, userID int64) (Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+profileColumns+`
		FROM profiles p
		JOIN users u ON u.id = p.user_id
		WHERE p.user_id = $1
	`, userID)

	profile, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, ErrProfileNotFound
		}
		return Profile{}, err
	}
	return profile, nil
}

// UpdateProfile replaces the mutable fields of the user's profile.
func (s *Store) UpdateProfile(ctx context.Context, userID int64, bio, pictureURL string, genres []string) error {
	if genres == nil {
		genres = []string{}
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE profiles
		SET bio = $2, display_picture_url = $3, favorite_genres = $4
		WHERE user_id = $1
	`, userID, nullIfEmpty(bio), nullIfEmpty(pictureURL), pq.Array(genres))
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// SearchProfiles matches profiles by username fragment.
func (s *Store) SearchProfiles(ctx context.Context, query string, limit int) ([]Profile, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+profileColumns+`
		FROM profiles p
		JOIN users u ON u.id = p.user_id
		WHERE u.username ILIKE $1
		ORDER BY u.username ASC
		LIMIT $2
	`, "%"+query+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("select profiles: %w", err)
	}
	defer rows.Close()

	var profiles []Profile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return profiles, nil
}

func scanProfile(scanner rowScanner) (Profile, error) {
	var p Profile
	if err := scanner.Scan(&p.ID, &p.UserID, &p.Username, &p.Bio, &p.DisplayPictureURL, pq.Array(&p.FavoriteGenres)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, err
		}
		return Profile{}, fmt.Errorf("scan profile: %w", err)
	}
	return p, nil
}
