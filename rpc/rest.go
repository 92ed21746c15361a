package rpc

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/tolelom/headstats/node"
)

func (s *Server) getHeads(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.handler.heads.Heads())
}

func (s *Server) getHead(w http.ResponseWriter, r *http.Request) {
	v, err := s.handler.heads.Head(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, v)
}

func (s *Server) getGlobal(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.handler.heads.Global())
}

func (s *Server) postNewGame(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := s.handler.startGame(r.Context(), q.Get("pkh"), q.Get("address"), q.Get("head"))
	if err != nil {
		s.logger.WithError(err).Warn("New game failed")
		writeError(w, err)
		return
	}
	writeJSON(w, res)
}

func (s *Server) getPlayerHistory(w http.ResponseWriter, r *http.Request) {
	records, err := s.handler.playerHistory(mux.Vars(r)["pkh"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, records)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errBadPlayer):
		status = http.StatusBadRequest
	case errors.Is(err, node.ErrNoNode), errors.Is(err, errNoHistory):
		status = http.StatusNotFound
	case errors.Is(err, node.ErrNodeFull), errors.Is(err, node.ErrDuplicatePlayer):
		status = http.StatusConflict
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	writeJSON(w, map[string]string{"error": err.Error()})
}
