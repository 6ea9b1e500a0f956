package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	cl "agraria/internal/cli"
	"agraria/internal/config"
	"agraria/internal/syncq"

	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "agc",
		Short:        "Agraria CLI game client",
		SilenceUsage: true,
	}

	root.AddCommand(
		newSignupCmd(&apiBase),
		newLoginCmd(&apiBase),
		newLogoutCmd(),
		newProfileCmd(&apiBase),
		newLandsCmd(&apiBase),
		newFarmCmd(&apiBase),
		newShopCmd(&apiBase),
		newInvCmd(&apiBase),
		newSiloCmd(&apiBase),
		newMarketCmd(&apiBase),
		newSyncCmd(&apiBase),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func requireSession() (cl.Session, error) {
	sess, err := cl.LoadSession()
	if err != nil {
		return cl.Session{}, fmt.Errorf("login required: %w", err)
	}
	return sess, nil
}

// queueIfOffline stashes a mutating command in the local queue when the
// API is unreachable. Server-side rejections are returned as-is.
func queueIfOffline(err error, cmd syncq.Command) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}
	if pushErr := syncq.Push(cmd); pushErr != nil {
		return pushErr
	}
	printWarn(fmt.Sprintf("API unreachable, queued %s %s for later sync.", cmd.Method, cmd.Path))
	return nil
}

func newSignupCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "signup",
		Short: "Create an Agraria account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := promptRequired("Email")
			if err != nil {
				return err
			}
			password, err := promptRequired("Password")
			if err != nil {
				return err
			}
			username, err := promptOptional("Username (optional)")
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			session, err := client.Signup(ctx, email, password, username)
			if err != nil {
				return err
			}
			if strings.TrimSpace(session.AccessToken) == "" {
				printWarn("Signup created. Verify email, then run `agc login`.")
				return nil
			}
			if err := cl.SaveSession(cl.Session{
				AccessToken:  session.AccessToken,
				RefreshToken: session.RefreshToken,
				Email:        session.User.Email,
				UserID:       session.User.ID,
			}); err != nil {
				return err
			}
			printSuccess("Signup complete. Session saved.")
			return nil
		},
	}
}

func newLoginCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Login to Agraria",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := promptRequired("Email")
			if err != nil {
				return err
			}
			password, err := promptRequired("Password")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			session, err := client.Login(ctx, email, password)
			if err != nil {
				return err
			}
			if err := cl.SaveSession(cl.Session{
				AccessToken:  session.AccessToken,
				RefreshToken: session.RefreshToken,
				Email:        session.User.Email,
				UserID:       session.User.ID,
			}); err != nil {
				return err
			}
			printSuccess("Login successful.")
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear local session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.ClearSession(); err != nil {
				return err
			}
			printSuccess("Logged out.")
			return nil
		},
	}
}

func newProfileCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show your farm profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Profile(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			return renderProfile(out)
		},
	}
}

func newLandsCmd(apiBase *string) *cobra.Command {
	lands := &cobra.Command{
		Use:   "lands",
		Short: "Land registry commands",
	}

	lands.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List parcels for sale",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).AvailableLands(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			return renderLands(out, "LANDS FOR SALE")
		},
	})

	lands.AddCommand(&cobra.Command{
		Use:   "mine",
		Short: "List your parcels",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).MyLands(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			return renderLands(out, "MY LANDS")
		},
	})

	lands.AddCommand(&cobra.Command{
		Use:   "price <land-id>",
		Short: "Quote the current purchase price for a parcel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			landID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid land id %q", args[0])
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).LandPrice(ctx, sess.AccessToken, landID)
			if err != nil {
				return err
			}
			return renderPriceQuote(out)
		},
	})

	lands.AddCommand(&cobra.Command{
		Use:   "buy <land-id>",
		Short: "Buy a parcel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			landID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid land id %q", args[0])
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).BuyLand(ctx, sess.AccessToken, landID)
			if err != nil {
				return err
			}
			return renderPurchase(out)
		},
	})

	return lands
}

func newFarmCmd(apiBase *string) *cobra.Command {
	farm := &cobra.Command{
		Use:   "farm",
		Short: "Field operation commands",
	}

	start := &cobra.Command{
		Use:   "start <land-id> <clean|plow|sow|harvest>",
		Short: "Start a timed field operation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			landID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid land id %q", args[0])
			}
			action := strings.ToLower(strings.TrimSpace(args[1]))

			toolInvID, err := promptInt64("Tool inventory id", 1)
			if err != nil {
				return err
			}
			var seedItemID int64
			if action == "sow" {
				seedItemID, err = promptInt64("Seed item id", 1)
				if err != nil {
					return err
				}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).FarmStart(ctx, sess.AccessToken, landID, action, toolInvID, seedItemID)
			if err != nil {
				return err
			}
			return renderStartAction(out)
		},
	}

	finish := &cobra.Command{
		Use:   "finish <land-id>",
		Short: "Settle a finished operation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			landID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid land id %q", args[0])
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).FarmFinish(ctx, sess.AccessToken, landID)
			if err != nil {
				return queueIfOffline(err, syncq.Command{
					Method: "POST",
					Path:   "/v1/farm/finish",
					Body:   map[string]any{"land_id": landID},
				})
			}
			return renderFinish(out)
		},
	}

	farm.AddCommand(start, finish)
	return farm
}

func newShopCmd(apiBase *string) *cobra.Command {
	shop := &cobra.Command{
		Use:   "shop",
		Short: "Equipment and seed shop",
	}

	shop.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Shop(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			return renderShop(out)
		},
	})

	shop.AddCommand(&cobra.Command{
		Use:   "buy <item-id> [quantity]",
		Short: "Buy equipment or seeds",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			itemID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid item id %q", args[0])
			}
			quantity := int64(1)
			if len(args) == 2 {
				quantity, err = strconv.ParseInt(args[1], 10, 64)
				if err != nil || quantity <= 0 {
					return fmt.Errorf("invalid quantity %q", args[1])
				}
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).BuyItem(ctx, sess.AccessToken, itemID, quantity)
			if err != nil {
				return err
			}
			return renderBuyItem(out)
		},
	})

	return shop
}

func newInvCmd(apiBase *string) *cobra.Command {
	inv := &cobra.Command{
		Use:     "inv",
		Short:   "Inventory commands",
		Aliases: []string{"inventory"},
	}

	inv.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List your machinery",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Inventory(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			return renderInventory(out)
		},
	})

	inv.AddCommand(&cobra.Command{
		Use:   "equip <implement-inv-id> <tractor-inv-id>",
		Short: "Attach an implement to a tractor",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			impID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid implement inventory id %q", args[0])
			}
			trID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid tractor inventory id %q", args[1])
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if _, err := newClient(apiBase).Equip(ctx, sess.AccessToken, impID, trID); err != nil {
				return err
			}
			printSuccess("Implement attached.")
			return nil
		},
	})

	inv.AddCommand(&cobra.Command{
		Use:   "unequip <implement-inv-id>",
		Short: "Detach an implement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			impID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid implement inventory id %q", args[0])
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if _, err := newClient(apiBase).Unequip(ctx, sess.AccessToken, impID); err != nil {
				return err
			}
			printSuccess("Implement detached.")
			return nil
		},
	})

	inv.AddCommand(&cobra.Command{
		Use:   "repair <inv-id>",
		Short: "Repair a worn machine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			invID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid inventory id %q", args[0])
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Repair(ctx, sess.AccessToken, invID)
			if err != nil {
				return err
			}
			return renderRepair(out)
		},
	})

	return inv
}

func newSiloCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "silo",
		Short: "Show silo contents",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Silo(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			return renderSilo(out)
		},
	}
}

func newMarketCmd(apiBase *string) *cobra.Command {
	market := &cobra.Command{
		Use:   "market",
		Short: "Produce market commands",
	}

	market.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Show the price board",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Market(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			return renderMarket(out)
		},
	})

	market.AddCommand(&cobra.Command{
		Use:   "sell <item-id> <kg>",
		Short: "Sell produce from the silo",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			itemID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid item id %q", args[0])
			}
			kg, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || kg <= 0 {
				return fmt.Errorf("invalid quantity %q", args[1])
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).SellProduce(ctx, sess.AccessToken, itemID, kg)
			if err != nil {
				return queueIfOffline(err, syncq.Command{
					Method: "POST",
					Path:   "/v1/market/sell",
					Body:   map[string]any{"item_id": itemID, "quantity_kg": kg},
				})
			}
			return renderSell(out)
		},
	})

	return market
}

func newSyncCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay locally queued offline writes",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			queue, err := syncq.Load()
			if err != nil {
				return err
			}
			if len(queue) == 0 {
				printInfo("Sync queue is empty.")
				return nil
			}
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			remaining := make([]syncq.Command, 0, len(queue))
			success := 0
			for _, q := range queue {
				_, err := client.Do(ctx, q.Method, q.Path, sess.AccessToken, q.Body)
				if err != nil {
					remaining = append(remaining, q)
					printError(fmt.Sprintf("Sync failed for %s %s: %v", q.Method, q.Path, err))
					continue
				}
				success++
			}
			if err := syncq.Save(remaining); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Sync complete: replayed=%d remaining=%d", success, len(remaining)))
			return nil
		},
	}
}
