package movies

type MovieError string

func (e MovieError) Error() string { return string(e) }

const (
	ErrTitleOrIMDbRequired MovieError = "You must provide IMDb code or title"
	ErrNotCreated          MovieError = "Movie not created. Title was not provided and the movie data could not be fetched."
	ErrMovieNotFound       MovieError = "movie not found"
	ErrNoMatches           MovieError = "No movies match those filters."
	ErrGuildRequired       MovieError = "movies belong to a guild"
	ErrTitleRequired       MovieError = "movie title cannot be empty"
	ErrInvalidRating       MovieError = "ratings must be between 0 and 100"
	ErrInvalidLength       MovieError = "movie length cannot be negative"
)
