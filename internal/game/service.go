package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	mathrand "math/rand"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var usernameRE = regexp.MustCompile(`^[a-zA-Z0-9_]{3,24}$`)

// SpatialCounter is the external spatial collaborator: it answers
// "how many owned parcels lie within radiusMeters of this parcel,
// excluding itself". The core never inspects geometry directly.
type SpatialCounter interface {
	CountOwnedWithin(ctx context.Context, landID int64, radiusMeters float64) (int, error)
}

type Service struct {
	db      *pgxpool.Pool
	spatial SpatialCounter
	log     *slog.Logger
	mu      sync.Mutex
	rand    *mathrand.Rand
}

func NewService(db *pgxpool.Pool, spatial SpatialCounter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:      db,
		spatial: spatial,
		log:     logger,
		rand:    mathrand.New(mathrand.NewSource(time.Now().UnixNano())),
	}
}

// withTx runs fn inside a read-committed transaction and retries a
// bounded number of times on serialization or deadlock failures. Domain
// errors abort immediately and roll back with no partial effect.
func (s *Service) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	const maxAttempts = 5
	retryDelay := 75 * time.Millisecond
	for attempt := 0; attempt < maxAttempts; attempt++ {
		tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
		if err != nil {
			return err
		}
		err = func() error {
			defer tx.Rollback(ctx)
			if err := fn(tx); err != nil {
				return err
			}
			return tx.Commit(ctx)
		}()
		if err == nil {
			return nil
		}
		if !isTransientError(err) {
			return err
		}
		if attempt == maxAttempts-1 {
			return ErrTxConflict
		}
		if err := sleepWithContext(ctx, retryDelay); err != nil {
			return err
		}
		if retryDelay < 1200*time.Millisecond {
			retryDelay *= 2
		}
	}
	return ErrTxConflict
}

func isTransientError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	// serialization_failure, deadlock_detected
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// EnsurePlayer creates the player row for an identity-provider subject
// if it does not exist yet and returns the numeric player id either
// way. New players start with StarterMoney.
func (s *Service) EnsurePlayer(ctx context.Context, externalID, email, username string) (int64, error) {
	if strings.TrimSpace(username) == "" {
		username = usernameFromEmail(email)
	}
	username = strings.TrimSpace(username)
	if !usernameRE.MatchString(username) {
		username = sanitizeUsername(usernameFromEmail(email))
	}

	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO game.players (external_id, username, money, diamonds)
		VALUES ($1, $2, $3, 0)
		ON CONFLICT (external_id) DO UPDATE SET external_id = EXCLUDED.external_id
		RETURNING id
	`, externalID, username, StarterMoney).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Service) PlayerByExternal(ctx context.Context, externalID string) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		SELECT id FROM game.players WHERE external_id = $1
	`, externalID).Scan(&id)
	if err == pgx.ErrNoRows {
		return 0, ErrUserNotFound
	}
	return id, err
}

func (s *Service) Profile(ctx context.Context, userID int64) (Profile, error) {
	var out Profile
	out.UserID = userID
	err := s.db.QueryRow(ctx, `
		SELECT p.username, p.money, p.diamonds,
		       (SELECT COUNT(*) FROM game.lands l WHERE l.owner_id = p.id)
		FROM game.players p
		WHERE p.id = $1
	`, userID).Scan(&out.Username, &out.Money, &out.Diamonds, &out.Lands)
	if err == pgx.ErrNoRows {
		return out, ErrUserNotFound
	}
	return out, err
}

// DynamicPrice quotes the current purchase price for a parcel. Quotes
// are advisory: BuyLand always reprices under its own locks.
func (s *Service) DynamicPrice(ctx context.Context, landID int64) (PriceQuote, error) {
	var out PriceQuote
	out.LandID = landID
	err := s.db.QueryRow(ctx, `
		SELECT price FROM game.lands WHERE id = $1
	`, landID).Scan(&out.BasePrice)
	if err == pgx.ErrNoRows {
		return out, ErrLandNotFound
	}
	if err != nil {
		return out, err
	}
	neighbors, err := s.spatial.CountOwnedWithin(ctx, landID, DemandRadiusMeters)
	if err != nil {
		return out, err
	}
	out.SoldNeighbors = neighbors
	out.DemandMultiplier = DemandMultiplier(neighbors)
	out.FinalPrice = DynamicLandPrice(out.BasePrice, neighbors)
	return out, nil
}

// BuyLand transfers an available parcel to the buyer at the freshly
// recomputed dynamic price. Lock order: player row, then land row.
func (s *Service) BuyLand(ctx context.Context, userID, landID int64) (PurchaseResult, error) {
	var out PurchaseResult
	out.LandID = landID

	neighbors, err := s.spatial.CountOwnedWithin(ctx, landID, DemandRadiusMeters)
	if err != nil {
		return out, err
	}

	err = s.withTx(ctx, func(tx pgx.Tx) error {
		money, err := lockPlayer(ctx, tx, userID)
		if err != nil {
			return err
		}

		var status string
		var basePrice decimal.Decimal
		err = tx.QueryRow(ctx, `
			SELECT status, price FROM game.lands WHERE id = $1 FOR UPDATE
		`, landID).Scan(&status, &basePrice)
		if err == pgx.ErrNoRows {
			return ErrLandNotFound
		}
		if err != nil {
			return err
		}
		if status != StatusAvailable {
			return ErrAlreadyOwned
		}

		price := DynamicLandPrice(basePrice, neighbors)
		if money.LessThan(price) {
			return fmt.Errorf("%w: land costs %s, balance %s", ErrInsufficientFunds, price, money)
		}

		newBalance := money.Sub(price)
		if _, err := tx.Exec(ctx, `
			UPDATE game.players SET money = $1 WHERE id = $2
		`, newBalance, userID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE game.lands
			SET owner_id = $1, status = $2, price = $3
			WHERE id = $4
		`, userID, StatusOwned, price, landID); err != nil {
			return err
		}
		if err := appendLedgerEntries(ctx, tx, userID, "buy_land", price.Neg()); err != nil {
			return err
		}

		out.PricePaid = price
		out.NewBalance = newBalance
		return nil
	})
	if err != nil {
		return out, err
	}
	s.log.Info("land purchased", "user_id", userID, "land_id", landID, "price", out.PricePaid.String())
	return out, nil
}

func (s *Service) MyLands(ctx context.Context, userID int64) ([]LandView, error) {
	return s.queryLands(ctx, `
		SELECT id, owner_id, area_sqm, condition, price, status,
		       operation_type, operation_end, current_crop_id
		FROM game.lands
		WHERE owner_id = $1
		ORDER BY id
	`, userID)
}

func (s *Service) AvailableLands(ctx context.Context, limit int) ([]LandView, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.queryLands(ctx, `
		SELECT id, owner_id, area_sqm, condition, price, status,
		       operation_type, operation_end, current_crop_id
		FROM game.lands
		WHERE status = 'available'
		ORDER BY id
		LIMIT $1
	`, limit)
}

func (s *Service) queryLands(ctx context.Context, query string, args ...any) ([]LandView, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LandView
	for rows.Next() {
		var l LandView
		if err := rows.Scan(&l.ID, &l.OwnerID, &l.AreaSqm, &l.Condition, &l.Price,
			&l.Status, &l.OperationType, &l.OperationEnd, &l.CurrentCropID); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// lockPlayer takes the exclusive row lock on the player and returns the
// current balance. The player row is always the first lock acquired by
// any multi-entity operation.
func lockPlayer(ctx context.Context, tx pgx.Tx, userID int64) (decimal.Decimal, error) {
	var money decimal.Decimal
	err := tx.QueryRow(ctx, `
		SELECT money FROM game.players WHERE id = $1 FOR UPDATE
	`, userID).Scan(&money)
	if err == pgx.ErrNoRows {
		return money, ErrUserNotFound
	}
	return money, err
}

// appendLedgerEntries records the wallet delta and its counterparty
// mirror so money stays conserved across every economic operation.
func appendLedgerEntries(ctx context.Context, tx pgx.Tx, userID int64, action string, walletDelta decimal.Decimal) error {
	meta, _ := json.Marshal(map[string]any{"action": action})
	_, err := tx.Exec(ctx, `
		INSERT INTO game.ledger_entries (tx_group_id, user_id, account, delta, metadata)
		VALUES
		($1, $2, 'wallet', $3, $5::jsonb),
		($1, $2, 'counterparty', $4, $5::jsonb)
	`, uuid.NewString(), userID, walletDelta, walletDelta.Neg(), string(meta))
	return err
}

func (s *Service) yieldRoll() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return YieldRollMin + (YieldRollMax-YieldRollMin)*s.rand.Float64()
}

func (s *Service) fluctuationRoll() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (s.rand.Float64()*2 - 1) * MarketMaxFluctuation
}

func (s *Service) nextFloat() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rand.Float64()
}

func usernameFromEmail(email string) string {
	email = strings.TrimSpace(strings.ToLower(email))
	parts := strings.Split(email, "@")
	if len(parts) == 0 || parts[0] == "" {
		return "farmer"
	}
	return sanitizeUsername(parts[0])
}

func sanitizeUsername(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "farmer"
	}
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			out = append(out, r)
		} else {
			out = append(out, '_')
		}
	}
	res := strings.Trim(string(out), "_")
	if len(res) < 3 {
		res = "farmer_" + res
	}
	if len(res) > 24 {
		res = res[:24]
	}
	return res
}
