// Package omdb looks up movie metadata in the Open Movie Database.
package omdb

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/sipeed/cinebot/pkg/logger"
	"github.com/sipeed/cinebot/pkg/movies"
)

// DefaultAPIRoot is the public OMDb endpoint.
const DefaultAPIRoot = "https://www.omdbapi.com"

type OMDbError string

func (e OMDbError) Error() string { return string(e) }

const (
	ErrNotConfigured OMDbError = "OMDb API is not configured"
	ErrNotFound      OMDbError = "movie not found"
	ErrEmptyQuery    OMDbError = "an IMDb id or a title is required"
)

// Client queries OMDb by IMDb id or title.
type Client struct {
	apiKey string
	http   *resty.Client
}

var _ movies.MetadataSource = (*Client)(nil)

// NewClient creates a client. An empty apiRoot uses DefaultAPIRoot.
func NewClient(apiKey, apiRoot string) *Client {
	if apiRoot == "" {
		apiRoot = DefaultAPIRoot
	}
	return &Client{
		apiKey: apiKey,
		http: resty.New().
			SetBaseURL(strings.TrimRight(apiRoot, "/")).
			SetTimeout(10*time.Second).
			SetHeader("Accept", "application/json"),
	}
}

func (c *Client) Name() string { return "omdb" }

// Health reports whether the client can be used.
func (c *Client) Health(context.Context) error {
	if c.apiKey == "" {
		return ErrNotConfigured
	}
	return nil
}

type rating struct {
	Source string `json:"Source"`
	Value  string `json:"Value"`
}

type response struct {
	Title      string   `json:"Title"`
	Year       string   `json:"Year"`
	Rated      string   `json:"Rated"`
	Runtime    string   `json:"Runtime"`
	Genre      string   `json:"Genre"`
	Director   string   `json:"Director"`
	Actors     string   `json:"Actors"`
	Language   string   `json:"Language"`
	Ratings    []rating `json:"Ratings"`
	Metascore  string   `json:"Metascore"`
	IMDbRating string   `json:"imdbRating"`
	IMDbID     string   `json:"imdbID"`
	Response   string   `json:"Response"`
	Error      string   `json:"Error"`
}

// Lookup fetches metadata, by IMDb id when q has one and by title
// otherwise.
func (c *Client) Lookup(ctx context.Context, q movies.Query) (*movies.Metadata, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}
	params := map[string]string{"apikey": c.apiKey}
	switch {
	case strings.TrimSpace(q.IMDbID) != "":
		params["i"] = strings.TrimSpace(q.IMDbID)
	case strings.TrimSpace(q.Title) != "":
		params["t"] = strings.TrimSpace(q.Title)
	default:
		return nil, ErrEmptyQuery
	}

	var out response
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&out).
		Get("/")
	if err != nil {
		return nil, fmt.Errorf("omdb request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("omdb request: unexpected status %d", resp.StatusCode())
	}
	if out.Response != "True" {
		logger.DebugCF("omdb", "Lookup missed", map[string]interface{}{
			"imdb_id": params["i"],
			"title":   params["t"],
			"error":   out.Error,
		})
		if out.Error == "" {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %s", ErrNotFound, out.Error)
	}
	return out.metadata(), nil
}

func (r *response) metadata() *movies.Metadata {
	md := &movies.Metadata{
		Title:            text(r.Title),
		Year:             leadingInt(r.Year),
		Length:           digits(r.Runtime),
		Genre:            text(r.Genre),
		Director:         text(r.Director),
		Actors:           text(r.Actors),
		IMDbID:           text(r.IMDbID),
		IMDbRating:       tenths(r.IMDbRating),
		MetacriticRating: digits(r.Metascore),
		Rated:            text(r.Rated),
		Language:         text(r.Language),
	}
	for _, rt := range r.Ratings {
		if rt.Source == "Rotten Tomatoes" {
			md.RottenTomatoesRating = digits(rt.Value)
		}
	}
	return md
}

// text maps OMDb's "N/A" placeholder to "".
func text(s string) string {
	s = strings.TrimSpace(s)
	if s == "N/A" {
		return ""
	}
	return s
}

// digits keeps only the digits of s ("116 min" -> 116, "94%" -> 94).
func digits(s string) *int {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return nil
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return nil
	}
	return &n
}

// leadingInt parses the digits at the start of s ("2013–2015" -> 2013).
func leadingInt(s string) *int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return nil
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return nil
	}
	return &n
}

// tenths converts a 0-10 rating to the 0-100 scale ("7.9" -> 79).
func tenths(s string) *int {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	n := int(math.Round(f * 10))
	return &n
}
