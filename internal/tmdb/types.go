package tmdb

import "strings"

// Image sizes requested from the image CDN.
const (
	PosterSize   = "w500"
	BackdropSize = "w1280"
	ProfileSize  = "w185"
)

// Page is one page of a paginated listing.
type Page[T any] struct {
	Page         int `json:"page"`
	Results      []T `json:"results"`
	TotalPages   int `json:"total_pages"`
	TotalResults int `json:"total_results"`
}

// Genre is a movie genre.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type genreList struct {
	Genres []Genre `json:"genres"`
}

// Movie is the summary shape shared by listings, search results and credits.
type Movie struct {
	ID            int     `json:"id"`
	Title         string  `json:"title"`
	OriginalTitle string  `json:"original_title,omitempty"`
	Name          string  `json:"name,omitempty"`
	Overview      string  `json:"overview"`
	ReleaseDate   string  `json:"release_date,omitempty"`
	PosterPath    string  `json:"poster_path,omitempty"`
	BackdropPath  string  `json:"backdrop_path,omitempty"`
	PosterURL     string  `json:"poster_url,omitempty"`
	BackdropURL   string  `json:"backdrop_url,omitempty"`
	VoteAverage   float64 `json:"vote_average"`
	VoteCount     int     `json:"vote_count"`
	Popularity    float64 `json:"popularity"`
	GenreIDs      []int   `json:"genre_ids,omitempty"`
	MediaType     string  `json:"media_type,omitempty"`
	Adult         bool    `json:"adult"`
	Character     string  `json:"character,omitempty"`
}

// Video is a trailer, teaser or clip attached to a movie.
type Video struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Site     string `json:"site"`
	Type     string `json:"type"`
	Official bool   `json:"official"`
}

// CastMember is one billed actor.
type CastMember struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character"`
	Order       int    `json:"order"`
	ProfilePath string `json:"profile_path,omitempty"`
	ProfileURL  string `json:"profile_url,omitempty"`
}

// CrewMember is one credited crew member.
type CrewMember struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Job        string `json:"job"`
	Department string `json:"department"`
}

// CollectionRef is the short collection reference embedded in movie details.
type CollectionRef struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	PosterPath   string `json:"poster_path,omitempty"`
	BackdropPath string `json:"backdrop_path,omitempty"`
	PosterURL    string `json:"poster_url,omitempty"`
}

// MovieDetails is a single movie with videos and credits appended.
type MovieDetails struct {
	Movie
	Runtime             int            `json:"runtime"`
	Tagline             string         `json:"tagline,omitempty"`
	Status              string         `json:"status,omitempty"`
	Homepage            string         `json:"homepage,omitempty"`
	Genres              []Genre        `json:"genres"`
	BelongsToCollection *CollectionRef `json:"belongs_to_collection,omitempty"`
	Videos              struct {
		Results []Video `json:"results"`
	} `json:"videos"`
	Credits struct {
		Cast []CastMember `json:"cast"`
		Crew []CrewMember `json:"crew"`
	} `json:"credits"`
	TrailerURL string `json:"trailer_url,omitempty"`
}

// Person is an actor or crew member.
type Person struct {
	ID                 int     `json:"id"`
	Name               string  `json:"name"`
	Biography          string  `json:"biography,omitempty"`
	Birthday           string  `json:"birthday,omitempty"`
	PlaceOfBirth       string  `json:"place_of_birth,omitempty"`
	KnownForDepartment string  `json:"known_for_department,omitempty"`
	ProfilePath        string  `json:"profile_path,omitempty"`
	ProfileURL         string  `json:"profile_url,omitempty"`
	Popularity         float64 `json:"popularity"`
	KnownFor           []Movie `json:"known_for,omitempty"`
	MovieCredits       *struct {
		Cast []Movie `json:"cast"`
	} `json:"movie_credits,omitempty"`
}

// Collection is a franchise grouping of movies.
type Collection struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview,omitempty"`
	PosterPath   string  `json:"poster_path,omitempty"`
	BackdropPath string  `json:"backdrop_path,omitempty"`
	PosterURL    string  `json:"poster_url,omitempty"`
	BackdropURL  string  `json:"backdrop_url,omitempty"`
	Parts        []Movie `json:"parts,omitempty"`
}

// imageURL joins base, size and path. Empty paths stay empty.
func imageURL(base, size, path string) string {
	if path == "" || base == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + "/" + size + path
}

func (m *Movie) normalize(base string) {
	if m.Title == "" {
		m.Title = m.Name
	}
	if m.Title == "" {
		m.Title = m.OriginalTitle
	}
	m.PosterURL = imageURL(base, PosterSize, m.PosterPath)
	m.BackdropURL = imageURL(base, BackdropSize, m.BackdropPath)
}

func normalizeMovies(ms []Movie, base string) {
	for i := range ms {
		ms[i].normalize(base)
	}
}

func (d *MovieDetails) normalize(base string) {
	d.Movie.normalize(base)
	if d.BelongsToCollection != nil {
		d.BelongsToCollection.PosterURL = imageURL(base, PosterSize, d.BelongsToCollection.PosterPath)
	}
	for i := range d.Credits.Cast {
		d.Credits.Cast[i].ProfileURL = imageURL(base, ProfileSize, d.Credits.Cast[i].ProfilePath)
	}
	d.TrailerURL = trailerURL(d.Videos.Results)
}

// trailerURL picks the first YouTube trailer, preferring official uploads.
func trailerURL(videos []Video) string {
	var fallback string
	for _, v := range videos {
		if v.Site != "YouTube" || v.Type != "Trailer" || v.Key == "" {
			continue
		}
		u := "https://www.youtube.com/watch?v=" + v.Key
		if v.Official {
			return u
		}
		if fallback == "" {
			fallback = u
		}
	}
	return fallback
}

func (p *Person) normalize(base string) {
	p.ProfileURL = imageURL(base, ProfileSize, p.ProfilePath)
	normalizeMovies(p.KnownFor, base)
	if p.MovieCredits != nil {
		normalizeMovies(p.MovieCredits.Cast, base)
	}
}

func (c *Collection) normalize(base string) {
	c.PosterURL = imageURL(base, PosterSize, c.PosterPath)
	c.BackdropURL = imageURL(base, BackdropSize, c.BackdropPath)
	normalizeMovies(c.Parts, base)
}
