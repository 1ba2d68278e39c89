package subject

import (
	"errors"
	"testing"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Kind
		wantErr bool
	}{
		{name: "artist", raw: "artist", want: KindArtist},
		{name: "album", raw: "album", want: KindAlbum},
		{name: "song", raw: "song", want: KindSong},
		{name: "profile", raw: "profile", want: KindProfile},
		{name: "mixed case", raw: "Artist", want: KindArtist},
		{name: "surrounding whitespace", raw: " song ", want: KindSong},
		{name: "unknown", raw: "playlist", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseKind(tc.raw)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidKind) {
					t.Fatalf("expected ErrInvalidKind, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseKind(%q): %v", tc.raw, err)
			}
			if got != tc.want {
				t.Fatalf("ParseKind(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestRefValid(t *testing.T) {
	tests := []struct {
		name string
		ref  Ref
		want bool
	}{
		{name: "artist", ref: Ref{Kind: KindArtist, ID: 1}, want: true},
		{name: "profile", ref: Ref{Kind: KindProfile, ID: 3}, want: true},
		{name: "zero id", ref: Ref{Kind: KindAlbum}, want: false},
		{name: "negative id", ref: Ref{Kind: KindSong, ID: -1}, want: false},
		{name: "unknown kind", ref: Ref{Kind: "playlist", ID: 1}, want: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.ref.Valid(); got != tc.want {
				t.Fatalf("Valid() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRefReviewable(t *testing.T) {
	if !(Ref{Kind: KindSong, ID: 7}).Reviewable() {
		t.Fatal("song should be reviewable")
	}
	if (Ref{Kind: KindProfile, ID: 7}).Reviewable() {
		t.Fatal("profile must not be reviewable")
	}
	if (Ref{Kind: KindArtist}).Reviewable() {
		t.Fatal("zero id must not be reviewable")
	}
}

func TestRefString(t *testing.T) {
	got := Ref{Kind: KindAlbum, ID: 42}.String()
	if got != "album:42" {
		t.Fatalf("String() = %q", got)
	}
}
