package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/vantorre/pokertable/internal/domain"
	"github.com/vantorre/pokertable/internal/engine"
	"github.com/vantorre/pokertable/internal/engine/holdem"
	"github.com/vantorre/pokertable/internal/obslog"
	"github.com/vantorre/pokertable/internal/store"
	"github.com/vantorre/pokertable/internal/tablelock"
	"github.com/vantorre/pokertable/internal/tablerun"
	"github.com/vantorre/pokertable/internal/tabletmpl"
	"github.com/vantorre/pokertable/pkg/tabledto"
)

// tablesim plays scripted hands against an in-memory stack: embedded
// redis for the table locks and a memory gateway instead of Postgres.
// Useful for exercising the runtime end to end without infrastructure.
func main() {
	var (
		template = flag.String("template", "micro", "table template name")
		players  = flag.Int("players", 4, "number of seated players")
		hands    = flag.Int("hands", 20, "hands to play before stopping")
		seed     = flag.Int64("seed", time.Now().UnixNano(), "rng seed")
	)
	flag.Parse()

	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}

	mr, err := miniredis.Run()
	if err != nil {
		log.Fatalf("embedded redis error: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	catalog, err := tabletmpl.New("")
	if err != nil {
		log.Fatalf("template catalog error: %v", err)
	}
	tmpl, err := catalog.Get(*template)
	if err != nil {
		log.Fatalf("template error: %v", err)
	}
	if *players > tmpl.MaxPlayers {
		*players = tmpl.MaxPlayers
	}

	rng := rand.New(rand.NewSource(*seed))
	locks := tablelock.New(rdb, 10*time.Second, 5*time.Millisecond)
	factory := &holdem.Factory{Rand: rng}
	mgr := tablerun.NewManager(locks, factory, catalog, time.Second)
	gw := store.NewMemGateway()
	run := store.NewMemRunner(gw)

	ctx := context.Background()
	table := &domain.Table{
		Status:     domain.TableWaiting,
		Template:   tmpl.Name,
		Persistent: true,
		CreatorID:  1,
	}
	if err := gw.CreateTable(ctx, table); err != nil {
		log.Fatalf("create table: %v", err)
	}
	for i := 0; i < *players; i++ {
		seat := &domain.Seat{TableID: table.ID, UserID: int64(i + 1), Position: i, Stack: tmpl.Stack}
		if err := gw.AddSeat(ctx, seat); err != nil {
			log.Fatalf("seat %d: %v", i+1, err)
		}
	}
	bankroll := *players * tmpl.Stack

	for handNo := 1; handNo <= *hands; handNo++ {
		view, err := mgr.StartGame(ctx, run, table.ID)
		if err != nil {
			if errors.Is(err, tablerun.ErrNotEnoughPlayers) {
				fmt.Printf("stopping after %d hands: table is down to one stack\n", handNo-1)
				break
			}
			log.Fatalf("hand %d start: %v", handNo, err)
		}

		for !view.Complete {
			view, err = mgr.HandleAction(ctx, run, table.ID,
				view.ActorUserID, pickAction(rng, view), pickAmount(rng, view))
			if err != nil {
				log.Fatalf("hand %d action: %v", handNo, err)
			}
		}
		report(ctx, gw, table.ID, view, bankroll)
	}
}

// pickAction chooses among the actor's allowed actions, weighted
// toward passive play so hands usually reach showdown.
func pickAction(rng *rand.Rand, view *tabledto.StateView) engine.ActionType {
	var passive, aggressive []engine.ActionType
	for _, a := range view.AllowedActions {
		switch t := engine.ActionType(a); t {
		case engine.ActionCheck, engine.ActionCall:
			passive = append(passive, t)
		case engine.ActionBet, engine.ActionRaise:
			aggressive = append(aggressive, t)
		}
	}
	r := rng.Intn(10)
	switch {
	case r == 0:
		return engine.ActionFold
	case r <= 2 && len(aggressive) > 0:
		return aggressive[rng.Intn(len(aggressive))]
	case len(passive) > 0:
		return passive[0]
	default:
		return engine.ActionFold
	}
}

func pickAmount(rng *rand.Rand, view *tabledto.StateView) int {
	if view.BettingRange == nil {
		return 0
	}
	span := view.BettingRange.Max - view.BettingRange.Min
	if span <= 0 {
		return view.BettingRange.Min
	}
	return view.BettingRange.Min + rng.Intn(span+1)
}

func report(ctx context.Context, gw store.Gateway, tableID int64, view *tabledto.StateView, bankroll int) {
	seats, err := gw.ActiveSeats(ctx, tableID)
	if err != nil {
		log.Fatalf("seats: %v", err)
	}
	total := 0
	for _, s := range seats {
		total += s.Stack
	}
	fmt.Printf("hand %d: board=%v winners=%v stacks=", view.HandNo, view.Board, view.Winners)
	for _, s := range seats {
		fmt.Printf("%d:%d ", s.UserID, s.Stack)
	}
	fmt.Println()
	if total != bankroll {
		log.Fatalf("chip leak after hand %d: have %d, want %d", view.HandNo, total, bankroll)
	}
}
