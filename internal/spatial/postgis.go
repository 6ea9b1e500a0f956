package spatial

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgisCounter answers neighborhood queries with ST_DWithin over the
// geography column. It is the only code that looks at parcel geometry;
// everything else treats the geom as an opaque handle.
type PostgisCounter struct {
	db *pgxpool.Pool
}

func NewPostgisCounter(db *pgxpool.Pool) *PostgisCounter {
	return &PostgisCounter{db: db}
}

// CountOwnedWithin counts owned parcels within radiusMeters of the
// given parcel, excluding the parcel itself.
func (c *PostgisCounter) CountOwnedWithin(ctx context.Context, landID int64, radiusMeters float64) (int, error) {
	var n int
	err := c.db.QueryRow(ctx, `
		SELECT COUNT(1)
		FROM game.lands other
		JOIN game.lands target ON target.id = $1
		WHERE other.id <> target.id
		  AND other.status = 'owned'
		  AND ST_DWithin(other.geom, target.geom, $2)
	`, landID, radiusMeters).Scan(&n)
	return n, err
}
