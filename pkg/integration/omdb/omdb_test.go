package omdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sipeed/cinebot/pkg/movies"
)

const arrivalJSON = `{
	"Title": "Arrival", "Year": "2016", "Rated": "PG-13", "Runtime": "116 min",
	"Genre": "Drama, Mystery, Sci-Fi", "Director": "Denis Villeneuve",
	"Actors": "Amy Adams, Jeremy Renner, Forest Whitaker", "Language": "English, Russian, Mandarin",
	"Ratings": [
		{"Source": "Internet Movie Database", "Value": "7.9/10"},
		{"Source": "Rotten Tomatoes", "Value": "94%"},
		{"Source": "Metacritic", "Value": "81/100"}
	],
	"Metascore": "81", "imdbRating": "7.9", "imdbID": "tt2543164", "Type": "movie", "Response": "True"
}`

func newServer(t *testing.T, body string, status int, seen *map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			q := map[string]string{}
			for k := range r.URL.Query() {
				q[k] = r.URL.Query().Get(k)
			}
			*seen = q
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLookupByIMDbID(t *testing.T) {
	var seen map[string]string
	srv := newServer(t, arrivalJSON, http.StatusOK, &seen)
	c := NewClient("key", srv.URL)

	md, err := c.Lookup(context.Background(), movies.Query{IMDbID: "tt2543164", Title: "arrival"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"apikey": "key", "i": "tt2543164"}, seen)

	assert.Equal(t, "Arrival", md.Title)
	assert.Equal(t, 2016, *md.Year)
	assert.Equal(t, 116, *md.Length)
	assert.Equal(t, 79, *md.IMDbRating)
	assert.Equal(t, 81, *md.MetacriticRating)
	assert.Equal(t, 94, *md.RottenTomatoesRating)
	assert.Equal(t, "PG-13", md.Rated)
	assert.Equal(t, "tt2543164", md.IMDbID)
}

func TestLookupByTitle(t *testing.T) {
	var seen map[string]string
	srv := newServer(t, arrivalJSON, http.StatusOK, &seen)

	_, err := NewClient("key", srv.URL).Lookup(context.Background(), movies.Query{Title: " Arrival "})
	require.NoError(t, err)
	assert.Equal(t, "Arrival", seen["t"])
	assert.NotContains(t, seen, "i")
}

func TestLookupNotAvailableValues(t *testing.T) {
	body := `{"Title":"Batman v Superman","Year":"2013","Rated":"N/A","Runtime":"N/A","Genre":"Short, Comedy",
		"Director":"Flober","Actors":"Nicolas Berno","Language":"French",
		"Ratings":[{"Source":"Internet Movie Database","Value":"8.1/10"}],
		"Metascore":"N/A","imdbRating":"8.1","imdbID":"tt6130880","Response":"True"}`
	srv := newServer(t, body, http.StatusOK, nil)

	md, err := NewClient("key", srv.URL).Lookup(context.Background(), movies.Query{Title: "Batman v Superman"})
	require.NoError(t, err)
	assert.Nil(t, md.Length)
	assert.Nil(t, md.MetacriticRating)
	assert.Nil(t, md.RottenTomatoesRating)
	assert.Equal(t, "", md.Rated)
	assert.Equal(t, 81, *md.IMDbRating)
}

func TestLookupMiss(t *testing.T) {
	srv := newServer(t, `{"Response":"False","Error":"Movie not found!"}`, http.StatusOK, nil)

	_, err := NewClient("key", srv.URL).Lookup(context.Background(), movies.Query{Title: "zzzz"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "Movie not found!")
}

func TestLookupErrors(t *testing.T) {
	srv := newServer(t, `{"Response":"False","Error":"Invalid API key!"}`, http.StatusUnauthorized, nil)

	_, err := NewClient("bad", srv.URL).Lookup(context.Background(), movies.Query{Title: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")

	_, err = NewClient("", srv.URL).Lookup(context.Background(), movies.Query{Title: "x"})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewClient("key", srv.URL).Lookup(context.Background(), movies.Query{})
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestHealth(t *testing.T) {
	assert.ErrorIs(t, NewClient("", "").Health(context.Background()), ErrNotConfigured)
	assert.NoError(t, NewClient("k", "").Health(context.Background()))
	assert.Equal(t, "omdb", NewClient("k", "").Name())
}

func TestParsers(t *testing.T) {
	assert.Equal(t, 2013, *leadingInt("2013–2015"))
	assert.Nil(t, leadingInt("N/A"))
	assert.Nil(t, digits("N/A"))
	assert.Equal(t, 142, *digits("142 min"))
	assert.Nil(t, tenths("N/A"))
	assert.Equal(t, 65, *tenths("6.5"))
}
