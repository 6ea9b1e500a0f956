package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"agraria/internal/auth"
	"agraria/internal/config"
	"agraria/internal/game"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type contextKey string

const userContextKey contextKey = "user"

type UserContext struct {
	PlayerID int64
	Subject  string
	Email    string
	Token    string
}

type Server struct {
	cfg     config.APIConfig
	log     *slog.Logger
	auth    *auth.ProviderClient
	game    *game.Service
	limiter *ipLimiter
	mux     *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, authClient *auth.ProviderClient, gameSvc *game.Service) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:     cfg,
		log:     logger,
		auth:    authClient,
		game:    gameSvc,
		limiter: newIPLimiter(cfg.RateLimitPerSec, cfg.RateLimitBurst),
		mux:     chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(s.rateLimitMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/signup", s.handleSignup)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/profile", s.handleProfile)

			r.Get("/lands", s.handleAvailableLands)
			r.Get("/lands/mine", s.handleMyLands)
			r.Get("/lands/{id}/price", s.handleLandPrice)
			r.Post("/lands/{id}/buy", s.handleBuyLand)

			r.Post("/farm/start", s.handleFarmStart)
			r.Post("/farm/finish", s.handleFarmFinish)
			r.Post("/farm/check-maturation", s.handleCheckMaturation)

			r.Get("/shop", s.handleShop)
			r.Post("/shop/buy", s.handleBuyItem)

			r.Get("/inventory", s.handleInventory)
			r.Post("/inventory/equip", s.handleEquip)
			r.Post("/inventory/unequip", s.handleUnequip)
			r.Post("/inventory/{id}/repair", s.handleRepair)

			r.Get("/silo", s.handleSilo)
			r.Post("/silo/deposit", s.handleSiloDeposit)
			r.Post("/silo/withdraw", s.handleSiloWithdraw)

			r.Get("/market", s.handleMarket)
			r.Post("/market/sell", s.handleMarketSell)
		})
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		identity, err := s.auth.VerifyAccessToken(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, fmt.Sprintf("invalid token: %v", err))
			return
		}
		playerID, err := s.game.PlayerByExternal(r.Context(), identity.ID)
		if errors.Is(err, game.ErrUserNotFound) {
			playerID, err = s.game.EnsurePlayer(r.Context(), identity.ID, identity.Email, "")
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, UserContext{
			PlayerID: playerID,
			Subject:  identity.ID,
			Email:    identity.Email,
			Token:    token,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFromContext(ctx context.Context) (UserContext, error) {
	v := ctx.Value(userContextKey)
	user, ok := v.(UserContext)
	if !ok || user.PlayerID == 0 {
		return UserContext{}, errors.New("missing auth context")
	}
	return user, nil
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Username string `json:"username"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, err := s.auth.SignUp(r.Context(), strings.TrimSpace(in.Email), strings.TrimSpace(in.Password))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if session.User.ID != "" {
		if _, err := s.game.EnsurePlayer(r.Context(), session.User.ID, session.User.Email, in.Username); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, err := s.auth.Login(r.Context(), strings.TrimSpace(in.Email), strings.TrimSpace(in.Password))
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if _, err := s.game.EnsurePlayer(r.Context(), session.User.ID, session.User.Email, ""); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	out, err := s.game.Profile(r.Context(), user.PlayerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAvailableLands(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	out, err := s.game.AvailableLands(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"lands": out})
}

func (s *Server) handleMyLands(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	out, err := s.game.MyLands(r.Context(), user.PlayerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"lands": out})
}

func (s *Server) handleLandPrice(w http.ResponseWriter, r *http.Request) {
	landID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid land id")
		return
	}
	out, err := s.game.DynamicPrice(r.Context(), landID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBuyLand(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	landID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid land id")
		return
	}
	out, err := s.game.BuyLand(r.Context(), user.PlayerID, landID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleFarmStart(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		LandID     int64  `json:"land_id"`
		Action     string `json:"action"`
		ToolInvID  int64  `json:"tool_inv_id"`
		SeedItemID int64  `json:"seed_item_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.StartAction(r.Context(), game.StartActionInput{
		UserID:     user.PlayerID,
		LandID:     in.LandID,
		Action:     in.Action,
		ToolInvID:  in.ToolInvID,
		SeedItemID: in.SeedItemID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleFarmFinish(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		LandID int64 `json:"land_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.FinishOperation(r.Context(), user.PlayerID, in.LandID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCheckMaturation(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.CheckMaturation(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleShop(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.Shop(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (s *Server) handleBuyItem(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		ItemID   int64 `json:"item_id"`
		Quantity int64 `json:"quantity"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	out, err := s.game.BuyItem(r.Context(), user.PlayerID, in.ItemID, in.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	out, err := s.game.GetInventory(r.Context(), user.PlayerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"inventory": out})
}

func (s *Server) handleEquip(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		ImplementInvID int64 `json:"implement_inv_id"`
		TractorInvID   int64 `json:"tractor_inv_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.game.EquipImplement(r.Context(), user.PlayerID, in.ImplementInvID, in.TractorInvID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleUnequip(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		ImplementInvID int64 `json:"implement_inv_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.game.UnequipImplement(r.Context(), user.PlayerID, in.ImplementInvID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleRepair(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	invID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid inventory id")
		return
	}
	out, err := s.game.RepairEquipment(r.Context(), user.PlayerID, invID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSilo(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	out, err := s.game.GetSilo(r.Context(), user.PlayerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSiloDeposit(w http.ResponseWriter, r *http.Request) {
	s.handleSiloMove(w, r, s.game.AddToSilo)
}

func (s *Server) handleSiloWithdraw(w http.ResponseWriter, r *http.Request) {
	s.handleSiloMove(w, r, s.game.RemoveFromSilo)
}

func (s *Server) handleSiloMove(w http.ResponseWriter, r *http.Request, move func(context.Context, int64, string, int64, int64) error) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		Bucket     string `json:"bucket"`
		ItemID     int64  `json:"item_id"`
		QuantityKg int64  `json:"quantity_kg"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := move(r.Context(), user.PlayerID, in.Bucket, in.ItemID, in.QuantityKg); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	out, err := s.game.MarketPrices(r.Context(), user.PlayerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"prices": out})
}

func (s *Server) handleMarketSell(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		ItemID     int64 `json:"item_id"`
		QuantityKg int64 `json:"quantity_kg"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.SellProduce(r.Context(), user.PlayerID, in.ItemID, in.QuantityKg)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrUserNotFound),
		errors.Is(err, game.ErrLandNotFound),
		errors.Is(err, game.ErrItemNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrNotOwner):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, game.ErrAlreadyOwned),
		errors.Is(err, game.ErrOperationInProgress),
		errors.Is(err, game.ErrAlreadyAttached),
		errors.Is(err, game.ErrTxConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrInvalidCondition),
		errors.Is(err, game.ErrWrongEquipment),
		errors.Is(err, game.ErrInsufficientPower),
		errors.Is(err, game.ErrInsufficientFunds),
		errors.Is(err, game.ErrInsufficientSeeds),
		errors.Is(err, game.ErrInsufficientStock),
		errors.Is(err, game.ErrNoRepairNeeded):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
