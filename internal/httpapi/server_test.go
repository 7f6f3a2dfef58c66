package httpapi

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp"

	"github.com/vantorre/pokertable/internal/engine/holdem"
	"github.com/vantorre/pokertable/internal/store"
	"github.com/vantorre/pokertable/internal/tablelock"
	"github.com/vantorre/pokertable/internal/tablerun"
	"github.com/vantorre/pokertable/internal/tabletmpl"
	"github.com/vantorre/pokertable/pkg/tabledto"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil { t.Fatalf("miniredis: %v", err) }
	t.Cleanup(func() { mr.Close() })
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	catalog, err := tabletmpl.New("")
	if err != nil { t.Fatalf("catalog: %v", err) }
	locks := tablelock.New(rdb, time.Second, 5*time.Millisecond)
	factory := &holdem.Factory{Rand: rand.New(rand.NewSource(11))}
	mgr := tablerun.NewManager(locks, factory, catalog, 200*time.Millisecond)
	runner := store.NewMemRunner(store.NewMemGateway())
	return New(mgr, runner, catalog)
}

func doRequest(t *testing.T, s *Server, method, uri string, body any) *fasthttp.RequestCtx {
	t.Helper()
	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(uri)
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil { t.Fatalf("marshal body: %v", err) }
		req.SetBody(raw)
	}
	ctx := &fasthttp.RequestCtx{}
	ctx.Init(&req, nil, nil)
	s.Handler()(ctx)
	return ctx
}

func decode[T any](t *testing.T, ctx *fasthttp.RequestCtx) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(ctx.Response.Body(), &out); err != nil {
		t.Fatalf("decode response %q: %v", ctx.Response.Body(), err)
	}
	return out
}

func TestCreateJoinStartFlow(t *testing.T) {
	s := newTestServer(t)

	ctx := doRequest(t, s, fasthttp.MethodPost, "/tables", tabledto.CreateTableRequest{
		Template: "micro", Public: true, CreatorID: 101,
	})
	if ctx.Response.StatusCode() != fasthttp.StatusCreated {
		t.Fatalf("create status = %d body=%s", ctx.Response.StatusCode(), ctx.Response.Body())
	}
	created := decode[tabledto.CreateTableResponse](t, ctx)
	if created.TableID == 0 { t.Fatalf("no table id") }

	for _, uid := range []int64{101, 102, 103} {
		ctx = doRequest(t, s, fasthttp.MethodPost,
			fmt.Sprintf("/tables/%d/join", created.TableID), tabledto.SeatRequest{UserID: uid})
		if ctx.Response.StatusCode() != fasthttp.StatusOK {
			t.Fatalf("join %d status = %d body=%s", uid, ctx.Response.StatusCode(), ctx.Response.Body())
		}
	}

	ctx = doRequest(t, s, fasthttp.MethodPost, fmt.Sprintf("/tables/%d/start", created.TableID), nil)
	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("start status = %d body=%s", ctx.Response.StatusCode(), ctx.Response.Body())
	}
	view := decode[tabledto.StateView](t, ctx)
	if view.HandNo != 1 || len(view.Players) != 3 {
		t.Fatalf("view = %+v", view)
	}
	for _, p := range view.Players {
		if len(p.HoleCards) != 0 { t.Fatalf("broadcast start leaked hole cards") }
	}

	ctx = doRequest(t, s, fasthttp.MethodGet,
		fmt.Sprintf("/tables/%d/state?viewer=102", created.TableID), nil)
	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("state status = %d", ctx.Response.StatusCode())
	}
	view = decode[tabledto.StateView](t, ctx)
	for _, p := range view.Players {
		if p.UserID == 102 && len(p.HoleCards) != 2 {
			t.Fatalf("viewer 102 hole cards = %v", p.HoleCards)
		}
	}
}

func TestActionEndpointPlaysHand(t *testing.T) {
	s := newTestServer(t)

	ctx := doRequest(t, s, fasthttp.MethodPost, "/tables", tabledto.CreateTableRequest{Template: "headsup", CreatorID: 201})
	created := decode[tabledto.CreateTableResponse](t, ctx)
	for _, uid := range []int64{201, 202} {
		doRequest(t, s, fasthttp.MethodPost,
			fmt.Sprintf("/tables/%d/join", created.TableID), tabledto.SeatRequest{UserID: uid})
	}
	ctx = doRequest(t, s, fasthttp.MethodPost, fmt.Sprintf("/tables/%d/start", created.TableID), nil)
	view := decode[tabledto.StateView](t, ctx)

	ctx = doRequest(t, s, fasthttp.MethodPost,
		fmt.Sprintf("/tables/%d/action", created.TableID),
		tabledto.ActionRequest{UserID: view.ActorUserID, Action: "fold"})
	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("action status = %d body=%s", ctx.Response.StatusCode(), ctx.Response.Body())
	}
	end := decode[tabledto.StateView](t, ctx)
	if !end.Complete { t.Fatalf("hand not complete after fold-out") }
}

func TestActionEndpointRejections(t *testing.T) {
	s := newTestServer(t)

	ctx := doRequest(t, s, fasthttp.MethodPost, "/tables", tabledto.CreateTableRequest{Template: "micro", CreatorID: 1})
	created := decode[tabledto.CreateTableResponse](t, ctx)
	for _, uid := range []int64{1, 2} {
		doRequest(t, s, fasthttp.MethodPost,
			fmt.Sprintf("/tables/%d/join", created.TableID), tabledto.SeatRequest{UserID: uid})
	}

	// Action with no hand running.
	ctx = doRequest(t, s, fasthttp.MethodPost,
		fmt.Sprintf("/tables/%d/action", created.TableID),
		tabledto.ActionRequest{UserID: 1, Action: "fold"})
	if ctx.Response.StatusCode() != fasthttp.StatusConflict {
		t.Fatalf("no-hand status = %d", ctx.Response.StatusCode())
	}

	doRequest(t, s, fasthttp.MethodPost, fmt.Sprintf("/tables/%d/start", created.TableID), nil)

	// Unknown action verb.
	ctx = doRequest(t, s, fasthttp.MethodPost,
		fmt.Sprintf("/tables/%d/action", created.TableID),
		tabledto.ActionRequest{UserID: 1, Action: "shove"})
	if ctx.Response.StatusCode() != fasthttp.StatusUnprocessableEntity {
		t.Fatalf("bad-verb status = %d body=%s", ctx.Response.StatusCode(), ctx.Response.Body())
	}
}

func TestCreateTableUnknownTemplate(t *testing.T) {
	s := newTestServer(t)
	ctx := doRequest(t, s, fasthttp.MethodPost, "/tables", tabledto.CreateTableRequest{Template: "nosuch"})
	if ctx.Response.StatusCode() != fasthttp.StatusBadRequest {
		t.Fatalf("status = %d", ctx.Response.StatusCode())
	}
}

func TestMissingTableIs404(t *testing.T) {
	s := newTestServer(t)
	ctx := doRequest(t, s, fasthttp.MethodGet, "/tables/999/state", nil)
	if ctx.Response.StatusCode() != fasthttp.StatusNotFound {
		t.Fatalf("status = %d", ctx.Response.StatusCode())
	}
	ctx = doRequest(t, s, fasthttp.MethodGet, "/nope", nil)
	if ctx.Response.StatusCode() != fasthttp.StatusNotFound {
		t.Fatalf("status = %d", ctx.Response.StatusCode())
	}
}

func TestJoinFullTableRejected(t *testing.T) {
	s := newTestServer(t)
	ctx := doRequest(t, s, fasthttp.MethodPost, "/tables", tabledto.CreateTableRequest{Template: "headsup", CreatorID: 1})
	created := decode[tabledto.CreateTableResponse](t, ctx)
	for _, uid := range []int64{1, 2} {
		doRequest(t, s, fasthttp.MethodPost,
			fmt.Sprintf("/tables/%d/join", created.TableID), tabledto.SeatRequest{UserID: uid})
	}
	ctx = doRequest(t, s, fasthttp.MethodPost,
		fmt.Sprintf("/tables/%d/join", created.TableID), tabledto.SeatRequest{UserID: 3})
	if ctx.Response.StatusCode() != fasthttp.StatusUnprocessableEntity {
		t.Fatalf("full-table status = %d", ctx.Response.StatusCode())
	}
}
