package consts

const (
	// DefaultDBName is the default database name.
	DefaultDBName = "cinerag"

	// TableNameMovies is the table/collection name holding indexed chunks.
	TableNameMovies = "movies"

	// Column names
	ColID          = "id"
	ColOrdinal     = "ordinal"
	ColMovieID     = "movie_id"
	ColTitle       = "title"
	ColOverview    = "overview"
	ColGenres      = "genres"
	ColReleaseDate = "release_date"
	ColRuntime     = "runtime"
	ColCredits     = "credits"
	ColText        = "text"
	ColEmbedding   = "embedding"

	// Neo4j specific
	LabelMovie = "Movie"

	// Redis specific
	KeyPrefix = "movies:"
	KeyIDs    = "movies:ids"
)
