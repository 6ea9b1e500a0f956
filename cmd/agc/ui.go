package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"agraria/internal/game"

	"github.com/fatih/color"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgGreen, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

type landsPayload struct {
	Lands []game.LandView `json:"lands"`
}

type shopPayload struct {
	Items []game.CatalogItem `json:"items"`
}

type inventoryPayload struct {
	Inventory []game.InventoryItemView `json:"inventory"`
}

type marketPayload struct {
	Prices []game.MarketPriceView `json:"prices"`
}

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func promptOptional(label string) (string, error) {
	fmt.Printf("%s: ", label)
	text, err := stdinReader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func promptInt64(label string, min int64) (int64, error) {
	for {
		text, err := promptRequired(label)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			printWarn("Enter a whole number.")
			continue
		}
		if v < min {
			printWarn(fmt.Sprintf("Value must be >= %d", min))
			continue
		}
		return v, nil
	}
}

func renderProfile(raw map[string]any) error {
	p, err := decodeInto[game.Profile](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== %s ==\n", strings.ToUpper(p.Username))
	fmt.Printf("Money:    %s\n", p.Money.StringFixed(2))
	fmt.Printf("Diamonds: %d\n", p.Diamonds)
	fmt.Printf("Lands:    %d\n", p.Lands)
	fmt.Println()
	return nil
}

func renderLands(raw map[string]any, title string) error {
	payload, err := decodeInto[landsPayload](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== %s ==\n", title)
	if len(payload.Lands) == 0 {
		printInfo("No parcels found.")
		return nil
	}
	fmt.Printf("%-6s %10s %-10s %12s %-10s %-10s %-20s\n", "ID", "AREA(ha)", "CONDITION", "PRICE", "STATUS", "OP", "OP ENDS")
	for _, l := range payload.Lands {
		op := "-"
		if l.OperationType != nil {
			op = *l.OperationType
		}
		opEnd := "-"
		if l.OperationEnd != nil {
			opEnd = l.OperationEnd.Local().Format("2006-01-02 15:04:05")
		}
		fmt.Printf("%-6d %10.2f %-10s %12s %-10s %-10s %-20s\n",
			l.ID,
			game.AreaHa(l.AreaSqm),
			l.Condition,
			l.Price.StringFixed(2),
			l.Status,
			op,
			opEnd,
		)
	}
	fmt.Println()
	return nil
}

func renderPriceQuote(raw map[string]any) error {
	q, err := decodeInto[game.PriceQuote](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== LAND #%d QUOTE ==\n", q.LandID)
	fmt.Printf("Base price:   %s\n", q.BasePrice.StringFixed(2))
	fmt.Printf("Neighbors:    %d owned within range\n", q.SoldNeighbors)
	fmt.Printf("Demand:       x%.2f\n", q.DemandMultiplier)
	fmt.Printf("Final price:  %s\n", q.FinalPrice.StringFixed(2))
	fmt.Println()
	return nil
}

func renderPurchase(raw map[string]any) error {
	p, err := decodeInto[game.PurchaseResult](raw)
	if err != nil {
		return err
	}
	printSuccess(fmt.Sprintf("Bought land #%d for %s. Balance: %s",
		p.LandID, p.PricePaid.StringFixed(2), p.NewBalance.StringFixed(2)))
	return nil
}

func renderStartAction(raw map[string]any) error {
	r, err := decodeInto[game.StartActionResult](raw)
	if err != nil {
		return err
	}
	printSuccess(fmt.Sprintf("Started %s on land #%d: %s, done at %s",
		r.Action, r.LandID,
		(time.Duration(r.DurationSeconds) * time.Second).String(),
		r.EndsAt.Local().Format("15:04:05")))
	return nil
}

func renderFinish(raw map[string]any) error {
	r, err := decodeInto[game.FinishResult](raw)
	if err != nil {
		return err
	}
	if !r.Completed {
		printWarn("Operation still running. Try again later.")
		return nil
	}
	if r.YieldKg > 0 {
		printSuccess(fmt.Sprintf("Harvested %d kg into the silo. Land is now %s.", r.YieldKg, r.NewCondition))
		return nil
	}
	if r.GrowthEndsAt != nil {
		printSuccess(fmt.Sprintf("Land is now %s. Mature at %s.",
			r.NewCondition, r.GrowthEndsAt.Local().Format("2006-01-02 15:04:05")))
		return nil
	}
	printSuccess(fmt.Sprintf("Land is now %s.", r.NewCondition))
	return nil
}

func renderShop(raw map[string]any) error {
	payload, err := decodeInto[shopPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== SHOP ==")
	if len(payload.Items) == 0 {
		printInfo("Catalog is empty.")
		return nil
	}
	fmt.Printf("%-5s %-24s %-10s %-10s %12s %-30s\n", "ID", "NAME", "TYPE", "CATEGORY", "PRICE", "STATS")
	for _, it := range payload.Items {
		fmt.Printf("%-5d %-24s %-10s %-10s %12s %-30s\n",
			it.ID,
			truncate(it.Name, 24),
			it.Type,
			it.Category,
			it.Price.StringFixed(2),
			statSummary(it.Stats),
		)
	}
	fmt.Println()
	return nil
}

func statSummary(s game.StatBlock) string {
	var parts []string
	if s.HP > 0 {
		parts = append(parts, fmt.Sprintf("%.0fhp", s.HP))
	}
	if s.SpeedMultiplier > 0 {
		parts = append(parts, fmt.Sprintf("x%.1f speed", s.SpeedMultiplier))
	}
	if s.ReqHP > 0 {
		parts = append(parts, fmt.Sprintf("needs %.0fhp", s.ReqHP))
	}
	if s.Efficiency > 0 {
		parts = append(parts, fmt.Sprintf("eff %.1f", s.Efficiency))
	}
	if s.GrowthTime > 0 {
		parts = append(parts, fmt.Sprintf("grows %ds", s.GrowthTime))
	}
	if s.YieldKgHa > 0 {
		parts = append(parts, fmt.Sprintf("%.0fkg/ha", s.YieldKgHa))
	}
	return strings.Join(parts, ", ")
}

func renderBuyItem(raw map[string]any) error {
	r, err := decodeInto[game.BuyItemResult](raw)
	if err != nil {
		return err
	}
	printSuccess(fmt.Sprintf("Bought %d x item #%d for %s. Balance: %s",
		r.Quantity, r.ItemID, r.TotalCost.StringFixed(2), r.NewBalance.StringFixed(2)))
	return nil
}

func renderInventory(raw map[string]any) error {
	payload, err := decodeInto[inventoryPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== INVENTORY ==")
	if len(payload.Inventory) == 0 {
		printInfo("Inventory is empty.")
		return nil
	}
	fmt.Printf("%-5s %-24s %-10s %-10s %8s %-10s\n", "ID", "NAME", "TYPE", "CATEGORY", "WEAR", "ATTACHED")
	for _, v := range payload.Inventory {
		attached := "-"
		if v.AttachedTo != nil {
			attached = "yes"
		}
		wear := fmt.Sprintf("%.0f%%", v.Wear*100)
		if v.Wear >= 0.8 {
			wear = danger.Sprint(wear)
		}
		fmt.Printf("%-5d %-24s %-10s %-10s %8s %-10s\n",
			v.ID,
			truncate(v.Name, 24),
			v.Type,
			v.Category,
			wear,
			attached,
		)
	}
	fmt.Println()
	return nil
}

func renderRepair(raw map[string]any) error {
	r, err := decodeInto[game.RepairResult](raw)
	if err != nil {
		return err
	}
	printSuccess(fmt.Sprintf("Repaired #%d for %s. Balance: %s",
		r.InventoryID, r.Cost.StringFixed(2), r.NewBalance.StringFixed(2)))
	return nil
}

func renderSilo(raw map[string]any) error {
	v, err := decodeInto[game.SiloView](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== SILO ==")
	renderSiloBucket("Seeds", v.Seeds)
	renderSiloBucket("Produce", v.Produce)
	fmt.Println()
	return nil
}

func renderSiloBucket(title string, entries []game.SiloEntry) {
	accent.Println(title)
	if len(entries) == 0 {
		printInfo("  (empty)")
		return
	}
	for _, e := range entries {
		fmt.Printf("  %-24s %10d kg\n", truncate(e.Name, 24), e.QuantityKg)
	}
}

func renderMarket(raw map[string]any) error {
	payload, err := decodeInto[marketPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== MARKET ==")
	if len(payload.Prices) == 0 {
		printInfo("No traded items.")
		return nil
	}
	fmt.Printf("%-5s %-20s %12s %12s %-8s %12s\n", "ID", "NAME", "BASE", "CURRENT", "TREND", "IN SILO")
	for _, p := range payload.Prices {
		trend := p.Trend
		switch p.Trend {
		case game.TrendUp:
			trend = success.Sprint("up")
		case game.TrendDown:
			trend = danger.Sprint("down")
		}
		fmt.Printf("%-5d %-20s %12s %12s %-8s %10d kg\n",
			p.ItemID,
			truncate(p.Name, 20),
			p.BasePrice.StringFixed(2),
			p.CurrentPrice.StringFixed(2),
			trend,
			p.AvailableKg,
		)
	}
	fmt.Println()
	return nil
}

func renderSell(raw map[string]any) error {
	r, err := decodeInto[game.SellResult](raw)
	if err != nil {
		return err
	}
	printSuccess(fmt.Sprintf("Sold %d kg at %s each for %s. Balance: %s",
		r.QuantityKg, r.UnitPrice.StringFixed(2), r.TotalValue.StringFixed(2), r.NewBalance.StringFixed(2)))
	return nil
}

func decodeInto[T any](in any) (T, error) {
	var out T
	raw, err := json.Marshal(in)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
