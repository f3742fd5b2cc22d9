package web

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/jaminalder/hyperxo/internal/app"
	"github.com/jaminalder/hyperxo/internal/domain"
)

type moveView struct {
	Board int `json:"board"`
	Cell  int `json:"cell"`
}

type moveLogView struct {
	Player     string `json:"player"`
	BoardIndex int    `json:"boardIndex"`
	CellIndex  int    `json:"cellIndex"`
}

type boardView struct {
	Index  int      `json:"index"`
	Cells  []string `json:"cells"`
	Winner *string  `json:"winner"`
	Drawn  bool     `json:"drawn"`
}

type stateView struct {
	ID              string        `json:"id"`
	Depth           int           `json:"depth"`
	CurrentPlayer   string        `json:"currentPlayer"`
	NextBoardIndex  *int          `json:"nextBoardIndex"`
	Winner          *string       `json:"winner"`
	Drawn           bool          `json:"drawn"`
	Boards          []boardView   `json:"boards"`
	AvailableMoves  []moveView    `json:"availableMoves"`
	AvailableBoards []int         `json:"availableBoards"`
	MoveLog         []moveLogView `json:"moveLog"`
	AIPending       bool          `json:"aiPending"`
	LastMove        *moveLogView  `json:"lastMove,omitempty"`
}

func playerPtr(c domain.Cell) *string {
	if c == domain.Empty {
		return nil
	}
	s := c.String()
	return &s
}

func cellText(c domain.Cell, _ int) string {
	if c == domain.Empty {
		return ""
	}
	return c.String()
}

func toMoveLogView(m app.MoveRecord, _ int) moveLogView {
	return moveLogView{Player: m.Player.String(), BoardIndex: m.Board, CellIndex: m.Cell}
}

func newStateView(snap *app.Snapshot) stateView {
	g := snap.Game
	moves := g.AvailableMoves()
	v := stateView{
		ID:            snap.ID,
		Depth:         snap.Depth,
		CurrentPlayer: g.CurrentPlayer().String(),
		Winner:        playerPtr(g.Winner()),
		Drawn:         g.Drawn(),
		Boards: lo.Times(9, func(i int) boardView {
			b := g.Board(i)
			return boardView{
				Index:  i,
				Cells:  lo.Map(b.Cells[:], cellText),
				Winner: playerPtr(b.Winner),
				Drawn:  b.Drawn,
			}
		}),
		AvailableMoves: lo.Map(moves, func(m domain.Move, _ int) moveView {
			return moveView{Board: m.Board, Cell: m.Cell}
		}),
		AvailableBoards: lo.Uniq(lo.Map(moves, func(m domain.Move, _ int) int { return m.Board })),
		MoveLog:         lo.Map(snap.Moves, toMoveLogView),
		AIPending:       snap.AIPending,
	}
	if forced, ok := g.ForcedBoard(); ok {
		v.NextBoardIndex = &forced
	}
	if last, ok := snap.LastMove(); ok {
		lv := toMoveLogView(last, 0)
		v.LastMove = &lv
	}
	return v
}

// renderState is the broadcast renderer for SSE and WebSocket subscribers.
func renderState(snap app.Snapshot) []byte {
	return mustMarshal(newStateView(&snap))
}

func mustMarshal(v any) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

type errorBody struct {
	Detail string `json:"detail"`
}

var errInvalidPayload = errors.New("invalid payload")

// statusFor maps service and rule errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, app.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, app.ErrUnsupportedDepth), errors.Is(err, errInvalidPayload):
		return http.StatusUnprocessableEntity
	case errors.Is(err, app.ErrAIPending),
		errors.Is(err, app.ErrNotYourTurn),
		errors.Is(err, domain.ErrGameFinished),
		errors.Is(err, domain.ErrIllegalMove),
		errors.Is(err, domain.ErrOutOfRange),
		errors.Is(err, domain.ErrCellOccupied),
		errors.Is(err, domain.ErrAlreadyResolved):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *handlers) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, errorBody{Detail: err.Error()})
}

type createRequest struct {
	Depth *int `json:"depth"`
}

type moveRequest struct {
	BoardIndex *int `json:"boardIndex"`
	CellIndex  *int `json:"cellIndex"`
}

// decodeBody decodes JSON into dst; an empty body leaves dst untouched.
func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return errors.Wrap(errInvalidPayload, err.Error())
	}
	return nil
}

func (h *handlers) apiCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	depth := h.defaultDepth
	if req.Depth != nil {
		depth = *req.Depth
	}
	snap, err := h.svc.CreateGame(depth)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newStateView(snap))
}

func (h *handlers) apiGet(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.svc.Get(chi.URLParam(r, "id"))
	if !ok {
		h.writeError(w, app.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, newStateView(snap))
}

func (h *handlers) apiMove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req moveRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.BoardIndex == nil || req.CellIndex == nil {
		h.writeError(w, errors.Wrap(errInvalidPayload, "boardIndex and cellIndex are required"))
		return
	}
	board, cell := *req.BoardIndex, *req.CellIndex
	if board < 0 || board > 8 || cell < 0 || cell > 8 {
		h.writeError(w, errors.Wrapf(errInvalidPayload, "indices must be within 0..8, got (%d, %d)", board, cell))
		return
	}
	snap, err := h.svc.Play(id, board, cell)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newStateView(snap))
}
