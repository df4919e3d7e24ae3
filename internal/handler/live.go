package handler

import (
	"net/http"

	"github.com/pkordes/tabinico/internal/store"
)

// Live handles GET /trip/live. The connection receives the current trip,
// then every later snapshot. The caller's store is kept alive while the
// socket is open.
func (s *Server) Live(w http.ResponseWriter, r *http.Request, st *store.Store) {
	trip, err := st.Current()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	st.Retain()
	if err := s.live.Serve(w, r, trip, st.Release); err != nil {
		// The upgrader has already answered the request.
		s.log.WarnContext(r.Context(), "live connection failed", "trip_id", trip.ID, "error", err)
	}
}
