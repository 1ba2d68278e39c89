// Package subject defines the typed reference used to point reviews,
// favorites, and recent searches at a catalog entity or profile.
package subject

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies which catalog table a subject reference points into.
type Kind string

const (
	KindArtist  Kind = "artist"
	KindAlbum   Kind = "album"
	KindSong    Kind = "song"
	KindProfile Kind = "profile"
)

// ErrInvalidKind indicates an unrecognized subject kind.
var ErrInvalidKind = errors.New("invalid subject kind")

// ParseKind converts a wire value into a Kind.
func ParseKind(raw string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(raw))) {
	case KindArtist:
		return KindArtist, nil
	case KindAlbum:
		return KindAlbum, nil
	case KindSong:
		return KindSong, nil
	case KindProfile:
		return KindProfile, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, raw)
	}
}

// Ref is a tagged reference to the entity an engagement record is about.
// Equality is by (Kind, ID), so Ref is usable as a map key.
type Ref struct {
	Kind Kind  `json:"kind"`
	ID   int64 `json:"id"`
}

// Valid reports whether the reference carries a known kind and a positive id.
func (r Ref) Valid() bool {
	switch r.Kind {
	case KindArtist, KindAlbum, KindSong, KindProfile:
		return r.ID > 0
	}
	return false
}

// Reviewable reports whether the reference may carry a review or favorite.
// Profiles are searchable but not reviewable.
func (r Ref) Reviewable() bool {
	switch r.Kind {
	case KindArtist, KindAlbum, KindSong:
		return r.ID > 0
	}
	return false
}

func (r Ref) String() string {
	return fmt.Sprintf("%s:%d", r.Kind, r.ID)
}

// Displayable is the capability every subject variant exposes for search and
// listing surfaces. Each entity type implements it once; callers dispatch on
// the Ref kind instead of probing fields.
type Displayable interface {
	DisplayTitle() string
	DisplayImage() string
	DisplayDescription() string
}
