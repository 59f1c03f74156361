package domain

import (
	"strings"
	"time"
)

// Details is a tagged variant: exactly one field is set, matching the
// source that produced the result.
type Details struct {
	Movie *MovieDetails `json:"movie,omitempty"`
	Book  *BookDetails  `json:"book,omitempty"`
	Track *TrackDetails `json:"track,omitempty"`
	User  *UserDetails  `json:"user,omitempty"`
	Post  *PostDetails  `json:"post,omitempty"`
}

// MovieDetails comes from the movie/series catalog.
type MovieDetails struct {
	Kind   string   `json:"kind"` // "movie" | "series"
	Year   int      `json:"year,omitempty"`
	Rating float64  `json:"rating,omitempty"`
	Genres []string `json:"genres,omitempty"`
	Votes  int      `json:"votes,omitempty"`
	Link   string   `json:"link,omitempty"`
}

// BookDetails comes from the retail catalog.
type BookDetails struct {
	Author  string  `json:"author,omitempty"`
	Year    int     `json:"year,omitempty"`
	Rating  float64 `json:"rating,omitempty"`
	Reviews int     `json:"reviews,omitempty"`
	Genre   string  `json:"genre,omitempty"`
	Link    string  `json:"link,omitempty"`
}

// TrackDetails comes from the music catalog.
type TrackDetails struct {
	Kind       string   `json:"kind"` // "track" | "album" | "artist"
	Artist     string   `json:"artist,omitempty"`
	Album      string   `json:"album,omitempty"`
	Year       int      `json:"year,omitempty"`
	Popularity int      `json:"popularity,omitempty"`
	Genres     []string `json:"genres,omitempty"`
	Link       string   `json:"link,omitempty"`
}

// UserDetails comes from the local index.
type UserDetails struct {
	Username  string    `json:"username"`
	Followers int       `json:"followers,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// PostDetails comes from the local index.
type PostDetails struct {
	AuthorID  string    `json:"authorId,omitempty"`
	Likes     int       `json:"likes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Year returns the release/publication year when the variant carries one.
func (d Details) Year() (int, bool) {
	switch {
	case d.Movie != nil && d.Movie.Year > 0:
		return d.Movie.Year, true
	case d.Book != nil && d.Book.Year > 0:
		return d.Book.Year, true
	case d.Track != nil && d.Track.Year > 0:
		return d.Track.Year, true
	case d.User != nil && !d.User.CreatedAt.IsZero():
		return d.User.CreatedAt.Year(), true
	case d.Post != nil && !d.Post.CreatedAt.IsZero():
		return d.Post.CreatedAt.Year(), true
	}
	return 0, false
}

// Rating returns the rating on a 0-10 scale when the variant carries one.
// Retail ratings (0-5 stars) are doubled.
func (d Details) Rating() (float64, bool) {
	switch {
	case d.Movie != nil && d.Movie.Rating > 0:
		return d.Movie.Rating, true
	case d.Book != nil && d.Book.Rating > 0:
		return d.Book.Rating * 2, true
	}
	return 0, false
}

// HasGenre reports whether the variant lists genre. Variants without genre
// data never match a genre filter.
func (d Details) HasGenre(genre string) bool {
	var genres []string
	switch {
	case d.Movie != nil:
		genres = d.Movie.Genres
	case d.Book != nil && d.Book.Genre != "":
		genres = []string{d.Book.Genre}
	case d.Track != nil:
		genres = d.Track.Genres
	}
	for _, g := range genres {
		if NormalizeText(g) == genre {
			return true
		}
	}
	return false
}

// Recency orders results for SortRecent: newest first.
func (d Details) Recency() time.Time {
	switch {
	case d.User != nil:
		return d.User.CreatedAt
	case d.Post != nil:
		return d.Post.CreatedAt
	}
	if y, ok := d.Year(); ok {
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Time{}
}

// Popularity orders results for SortPopular.
func (d Details) Popularity() float64 {
	switch {
	case d.Movie != nil:
		return float64(d.Movie.Votes) + d.Movie.Rating
	case d.Book != nil:
		return float64(d.Book.Reviews) + d.Book.Rating
	case d.Track != nil:
		return float64(d.Track.Popularity)
	case d.User != nil:
		return float64(d.User.Followers)
	case d.Post != nil:
		return float64(d.Post.Likes)
	}
	return 0
}

// Matches applies the filters to one result.
func (f Filters) Matches(d Details) bool {
	if f.MinRating != nil {
		r, ok := d.Rating()
		if !ok || r < *f.MinRating {
			return false
		}
	}
	if f.Year != nil {
		y, ok := d.Year()
		if !ok || y != *f.Year {
			return false
		}
	}
	if f.Genre != "" && !d.HasGenre(strings.TrimSpace(f.Genre)) {
		return false
	}
	return true
}
