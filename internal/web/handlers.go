package web

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jaminalder/hyperxo/internal/app"
	"github.com/jaminalder/hyperxo/internal/domain"
)

type handlers struct {
	svc          *app.Service
	tpl          *templates
	log          zerolog.Logger
	defaultDepth int
}

type cellData struct {
	Board    int
	Cell     int
	Symbol   string
	Playable bool
}

type subBoardData struct {
	Index  int
	Cells  [9]cellData
	Won    string
	Drawn  bool
	Forced bool
}

type boardData struct {
	ID     string
	Status string
	Error  string
	Boards [9]subBoardData
}

func statusLine(snap *app.Snapshot) string {
	g := snap.Game
	switch {
	case g.Winner() == snap.Human:
		return "You win!"
	case g.Winner() != domain.Empty:
		return "Computer wins."
	case g.Drawn():
		return "Draw."
	case snap.AIPending:
		return "Computer is thinking..."
	}
	if forced, ok := g.ForcedBoard(); ok {
		return "Your move on board " + strconv.Itoa(forced) + "."
	}
	return "Your move, any live board."
}

func newBoardData(snap *app.Snapshot, errMsg string) boardData {
	g := snap.Game
	data := boardData{ID: snap.ID, Status: statusLine(snap), Error: errMsg}
	forced, hasForced := g.ForcedBoard()
	humanToMove := !snap.AIPending && !g.Resolved() && g.CurrentPlayer() == snap.Human
	for b := 0; b < 9; b++ {
		sb := g.Board(b)
		sd := subBoardData{Index: b, Drawn: sb.Drawn, Forced: hasForced && forced == b}
		if sb.Winner != domain.Empty {
			sd.Won = sb.Winner.String()
		}
		live := humanToMove && g.IsBoardLive(b) && (!hasForced || forced == b)
		for c := 0; c < 9; c++ {
			cd := cellData{Board: b, Cell: c}
			if sb.Cells[c] != domain.Empty {
				cd.Symbol = sb.Cells[c].String()
			} else {
				cd.Playable = live
			}
			sd.Cells[c] = cd
		}
		data.Boards[b] = sd
	}
	return data
}

func (h *handlers) renderBoard(snap *app.Snapshot, errMsg string) []byte {
	return renderTemplate(h.tpl.board, "", newBoardData(snap, errMsg))
}

func writeHTML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (h *handlers) index(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Depths  []int
		Default int
	}{Depths: h.svc.Depths(), Default: h.defaultDepth}
	writeHTML(w, http.StatusOK, renderTemplate(h.tpl.index, "", data))
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	depth := h.defaultDepth
	if v := r.Form.Get("depth"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "invalid depth", http.StatusUnprocessableEntity)
			return
		}
		depth = d
	}
	snap, err := h.svc.CreateGame(depth)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	http.Redirect(w, r, "/game/"+snap.ID, http.StatusSeeOther)
}

func (h *handlers) view(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.svc.Get(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeHTML(w, http.StatusOK, renderTemplate(h.tpl.game, "", newBoardData(snap, "")))
}

func (h *handlers) board(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.svc.Get(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeHTML(w, http.StatusOK, h.renderBoard(snap, ""))
}

func (h *handlers) play(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	_ = r.ParseForm()
	bi, errB := strconv.Atoi(r.Form.Get("board"))
	ci, errC := strconv.Atoi(r.Form.Get("cell"))
	var (
		snap *app.Snapshot
		err  error
	)
	if errB != nil || errC != nil {
		err = domain.ErrOutOfRange
	} else {
		snap, err = h.svc.Play(id, bi, ci)
	}
	var errMsg string
	if err != nil {
		if g, ok := h.svc.Get(id); ok {
			snap = g
		}
		switch {
		case errors.Is(err, app.ErrAIPending):
			errMsg = "The computer is still thinking"
		case errors.Is(err, app.ErrNotYourTurn):
			errMsg = "Not your turn"
		case errors.Is(err, domain.ErrGameFinished):
			errMsg = "Game is over"
		case errors.Is(err, domain.ErrOutOfRange):
			errMsg = "Out of bounds"
		default:
			errMsg = "Move is not allowed on this turn"
		}
	}
	if snap == nil {
		http.NotFound(w, r)
		return
	}
	writeHTML(w, http.StatusOK, h.renderBoard(snap, errMsg))
}
