package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"agraria/internal/auth"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) Signup(ctx context.Context, email, password, username string) (auth.Session, error) {
	var out auth.Session
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/signup", "", map[string]any{
		"email":    email,
		"password": password,
		"username": username,
	}, &out)
	return out, err
}

func (c *Client) Login(ctx context.Context, email, password string) (auth.Session, error) {
	var out auth.Session
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"email":    email,
		"password": password,
	}, &out)
	return out, err
}

func (c *Client) Profile(ctx context.Context, accessToken string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/profile", accessToken, nil, &out)
	return out, err
}

func (c *Client) AvailableLands(ctx context.Context, accessToken string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/lands", accessToken, nil, &out)
	return out, err
}

func (c *Client) MyLands(ctx context.Context, accessToken string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/lands/mine", accessToken, nil, &out)
	return out, err
}

func (c *Client) LandPrice(ctx context.Context, accessToken string, landID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, fmt.Sprintf("/v1/lands/%d/price", landID), accessToken, nil, &out)
	return out, err
}

func (c *Client) BuyLand(ctx context.Context, accessToken string, landID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/lands/%d/buy", landID), accessToken, map[string]any{}, &out)
	return out, err
}

func (c *Client) FarmStart(ctx context.Context, accessToken string, landID int64, action string, toolInvID, seedItemID int64) (map[string]any, error) {
	body := map[string]any{
		"land_id":     landID,
		"action":      action,
		"tool_inv_id": toolInvID,
	}
	if seedItemID > 0 {
		body["seed_item_id"] = seedItemID
	}
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/farm/start", accessToken, body, &out)
	return out, err
}

func (c *Client) FarmFinish(ctx context.Context, accessToken string, landID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/farm/finish", accessToken, map[string]any{
		"land_id": landID,
	}, &out)
	return out, err
}

func (c *Client) Shop(ctx context.Context, accessToken string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/shop", accessToken, nil, &out)
	return out, err
}

func (c *Client) BuyItem(ctx context.Context, accessToken string, itemID, quantity int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/shop/buy", accessToken, map[string]any{
		"item_id":  itemID,
		"quantity": quantity,
	}, &out)
	return out, err
}

func (c *Client) Inventory(ctx context.Context, accessToken string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/inventory", accessToken, nil, &out)
	return out, err
}

func (c *Client) Equip(ctx context.Context, accessToken string, implementInvID, tractorInvID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/inventory/equip", accessToken, map[string]any{
		"implement_inv_id": implementInvID,
		"tractor_inv_id":   tractorInvID,
	}, &out)
	return out, err
}

func (c *Client) Unequip(ctx context.Context, accessToken string, implementInvID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/inventory/unequip", accessToken, map[string]any{
		"implement_inv_id": implementInvID,
	}, &out)
	return out, err
}

func (c *Client) Repair(ctx context.Context, accessToken string, invID int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/inventory/%d/repair", invID), accessToken, map[string]any{}, &out)
	return out, err
}

func (c *Client) Silo(ctx context.Context, accessToken string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/silo", accessToken, nil, &out)
	return out, err
}

func (c *Client) Market(ctx context.Context, accessToken string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/market", accessToken, nil, &out)
	return out, err
}

func (c *Client) SellProduce(ctx context.Context, accessToken string, itemID, quantityKg int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/market/sell", accessToken, map[string]any{
		"item_id":     itemID,
		"quantity_kg": quantityKg,
	}, &out)
	return out, err
}

// Do issues an arbitrary API call. The offline queue replays commands
// through this entry point.
func (c *Client) Do(ctx context.Context, method, path, accessToken string, body map[string]any) (map[string]any, error) {
	var out map[string]any
	var in any
	if body != nil {
		in = body
	}
	err := c.jsonRequest(ctx, method, path, accessToken, in, &out)
	return out, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path, accessToken string, in any, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
