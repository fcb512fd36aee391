package handlers

import (
	"net/http"

	"github.com/xelth-com/centerhub/internal/websocket"
)

// serveActivityFeed upgrades to a websocket that receives every new global
// activity. ?center= narrows the feed.
func (r *Router) serveActivityFeed(w http.ResponseWriter, req *http.Request) {
	if r.Hub == nil {
		respondError(w, http.StatusServiceUnavailable, "Live feed disabled")
		return
	}
	websocket.ServeWs(r.Hub, w, req, req.URL.Query().Get("center"))
}
