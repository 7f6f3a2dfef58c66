package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/vantorre/pokertable/internal/domain"
	"github.com/vantorre/pokertable/internal/engine"
	"github.com/vantorre/pokertable/internal/obslog"
	"github.com/vantorre/pokertable/internal/store"
	"github.com/vantorre/pokertable/internal/tablerun"
	"github.com/vantorre/pokertable/internal/tabletmpl"
	"github.com/vantorre/pokertable/pkg/tabledto"
)

// Server exposes table operations over JSON/HTTP. Table and seat
// writes run inside one TxRunner transaction here; hand operations
// hand the runner to the Manager instead, which commits while it
// still holds the table's distributed lock.
type Server struct {
	mgr     *tablerun.Manager
	runner  store.TxRunner
	catalog *tabletmpl.Catalog

	srv *fasthttp.Server
}

func New(mgr *tablerun.Manager, runner store.TxRunner, catalog *tabletmpl.Catalog) *Server {
	s := &Server{mgr: mgr, runner: runner, catalog: catalog}
	s.srv = &fasthttp.Server{
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		Name:         "pokertable",
	}
	return s
}

func (s *Server) ListenAndServe(addr string) error { return s.srv.ListenAndServe(addr) }

func (s *Server) Shutdown() error { return s.srv.Shutdown() }

// Handler routes requests. Paths:
//
//	POST /tables                   create a table
//	POST /tables/{id}/join         take a seat
//	POST /tables/{id}/leave        give up a seat
//	POST /tables/{id}/start        start (or resume) a hand
//	POST /tables/{id}/action       apply a player action
//	GET  /tables/{id}/state        render the table for ?viewer=
func (s *Server) Handler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		path := string(ctx.Path())
		method := string(ctx.Method())

		if path == "/tables" && method == fasthttp.MethodPost {
			s.handleCreateTable(ctx)
			return
		}

		parts := strings.Split(strings.Trim(path, "/"), "/")
		if len(parts) == 3 && parts[0] == "tables" {
			tableID, err := strconv.ParseInt(parts[1], 10, 64)
			if err != nil {
				writeError(ctx, fasthttp.StatusBadRequest, "bad table id", "bad_request")
				return
			}
			switch {
			case parts[2] == "join" && method == fasthttp.MethodPost:
				s.handleJoin(ctx, tableID)
				return
			case parts[2] == "leave" && method == fasthttp.MethodPost:
				s.handleLeave(ctx, tableID)
				return
			case parts[2] == "start" && method == fasthttp.MethodPost:
				s.handleStart(ctx, tableID)
				return
			case parts[2] == "action" && method == fasthttp.MethodPost:
				s.handleAction(ctx, tableID)
				return
			case parts[2] == "state" && method == fasthttp.MethodGet:
				s.handleState(ctx, tableID)
				return
			}
		}
		writeError(ctx, fasthttp.StatusNotFound, "no such route", "not_found")
	}
}

func (s *Server) handleCreateTable(ctx *fasthttp.RequestCtx) {
	var req tabledto.CreateTableRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "bad json: "+err.Error(), "bad_request")
		return
	}
	if _, err := s.catalog.Get(req.Template); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, err.Error(), "bad_template")
		return
	}

	table := &domain.Table{
		Status:     domain.TableWaiting,
		Template:   req.Template,
		Public:     req.Public,
		Persistent: req.Persistent,
		CreatorID:  req.CreatorID,
	}
	err := s.runner.InTx(ctx, func(gw store.Gateway) error {
		return gw.CreateTable(ctx, table)
	})
	if err != nil {
		s.writeFailure(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusCreated, tabledto.CreateTableResponse{TableID: table.ID})
}

func (s *Server) handleJoin(ctx *fasthttp.RequestCtx, tableID int64) {
	var req tabledto.SeatRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "bad json: "+err.Error(), "bad_request")
		return
	}
	err := s.runner.InTx(ctx, func(gw store.Gateway) error {
		table, err := gw.Table(ctx, tableID)
		if err != nil {
			return err
		}
		tmpl, err := s.catalog.Get(table.Template)
		if err != nil {
			return err
		}
		seats, err := gw.ActiveSeats(ctx, tableID)
		if err != nil {
			return err
		}
		if len(seats) >= tmpl.MaxPlayers {
			return engine.Validationf("table %d is full", tableID)
		}
		position := 0
		for _, seat := range seats {
			if seat.UserID == req.UserID {
				return engine.Validationf("user %d is already seated", req.UserID)
			}
			if seat.Position >= position {
				position = seat.Position + 1
			}
		}
		return gw.AddSeat(ctx, &domain.Seat{
			TableID:  tableID,
			UserID:   req.UserID,
			Position: position,
			Stack:    tmpl.Stack,
		})
	})
	if err != nil {
		s.writeFailure(ctx, err)
		return
	}
	s.handleState(ctx, tableID)
}

func (s *Server) handleLeave(ctx *fasthttp.RequestCtx, tableID int64) {
	var req tabledto.SeatRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "bad json: "+err.Error(), "bad_request")
		return
	}
	err := s.runner.InTx(ctx, func(gw store.Gateway) error {
		return gw.RemoveSeat(ctx, tableID, req.UserID)
	})
	if err != nil {
		s.writeFailure(ctx, err)
		return
	}
	s.handleState(ctx, tableID)
}

func (s *Server) handleStart(ctx *fasthttp.RequestCtx, tableID int64) {
	view, err := s.mgr.StartGame(ctx, s.runner, tableID)
	if err != nil {
		s.writeFailure(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, view)
}

func (s *Server) handleAction(ctx *fasthttp.RequestCtx, tableID int64) {
	var req tabledto.ActionRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "bad json: "+err.Error(), "bad_request")
		return
	}
	action := engine.ActionType(strings.ToUpper(strings.TrimSpace(req.Action)))

	view, err := s.mgr.HandleAction(ctx, s.runner, tableID, req.UserID, action, req.Amount)
	if err != nil {
		s.writeFailure(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, view)
}

func (s *Server) handleState(ctx *fasthttp.RequestCtx, tableID int64) {
	viewer := tablerun.BroadcastViewer
	if v := ctx.QueryArgs().Peek("viewer"); len(v) > 0 {
		id, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			writeError(ctx, fasthttp.StatusBadRequest, "bad viewer id", "bad_request")
			return
		}
		viewer = id
	}
	view, err := s.mgr.GetState(ctx, s.runner.Reader(), tableID, viewer)
	if err != nil {
		s.writeFailure(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, view)
}

// writeFailure maps runtime errors onto HTTP statuses.
func (s *Server) writeFailure(ctx *fasthttp.RequestCtx, err error) {
	switch {
	case engine.IsValidation(err):
		writeError(ctx, fasthttp.StatusUnprocessableEntity, err.Error(), "invalid_action")
	case errors.Is(err, tablerun.ErrNoHand), errors.Is(err, tablerun.ErrNotEnoughPlayers):
		writeError(ctx, fasthttp.StatusConflict, err.Error(), "conflict")
	case errors.Is(err, tablerun.ErrLockTimeout):
		writeError(ctx, fasthttp.StatusServiceUnavailable, err.Error(), "lock_timeout")
	case errors.Is(err, store.ErrNotFound):
		writeError(ctx, fasthttp.StatusNotFound, err.Error(), "not_found")
	default:
		obslog.L().Error("request_failed",
			zap.ByteString("path", ctx.Path()), zap.Error(err))
		writeError(ctx, fasthttp.StatusInternalServerError, "internal error", "internal")
	}
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, body any) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json; charset=utf-8")
	if err := json.NewEncoder(ctx).Encode(body); err != nil {
		obslog.L().Error("encode_response", zap.Error(err))
	}
}

func writeError(ctx *fasthttp.RequestCtx, status int, msg, code string) {
	writeJSON(ctx, status, tabledto.ErrorResponse{Error: msg, Code: code})
}

var _ context.Context = (*fasthttp.RequestCtx)(nil)
