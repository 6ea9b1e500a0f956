package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"agraria/internal/game"

	"github.com/stretchr/testify/assert"
)

func TestWriteDomainErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{game.ErrLandNotFound, http.StatusNotFound},
		{game.ErrUserNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: item 9", game.ErrItemNotFound), http.StatusNotFound},
		{game.ErrNotOwner, http.StatusForbidden},
		{game.ErrAlreadyOwned, http.StatusConflict},
		{game.ErrOperationInProgress, http.StatusConflict},
		{game.ErrAlreadyAttached, http.StatusConflict},
		{game.ErrTxConflict, http.StatusConflict},
		{game.ErrInvalidCondition, http.StatusBadRequest},
		{game.ErrWrongEquipment, http.StatusBadRequest},
		{game.ErrInsufficientPower, http.StatusBadRequest},
		{fmt.Errorf("%w: need 5", game.ErrInsufficientFunds), http.StatusBadRequest},
		{game.ErrInsufficientSeeds, http.StatusBadRequest},
		{game.ErrInsufficientStock, http.StatusBadRequest},
		{game.ErrNoRepairNeeded, http.StatusBadRequest},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeDomainError(rec, tc.err)
		assert.Equal(t, tc.want, rec.Code, "error %v", tc.err)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	}
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc123", bearerToken("Bearer abc123"))
	assert.Equal(t, "abc123", bearerToken("bearer abc123"))
	assert.Equal(t, "", bearerToken(""))
	assert.Equal(t, "", bearerToken("Basic abc123"))
	assert.Equal(t, "", bearerToken("abc123"))
}

func TestIPLimiterBurst(t *testing.T) {
	l := newIPLimiter(1, 3)
	for i := 0; i < 3; i++ {
		assert.True(t, l.allow("10.0.0.1"), "request %d within burst", i)
	}
	assert.False(t, l.allow("10.0.0.1"), "request beyond burst")
	// A different client has its own bucket.
	assert.True(t, l.allow("10.0.0.2"))
}
