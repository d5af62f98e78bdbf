// Package dashboard serves a live view of schedule runs over HTTP:
// a JSON API, an SSE event stream and a small embedded frontend.
package dashboard

// Dashboard bundles the store, event hub, emitter and HTTP server so
// callers wire one value instead of four.
type Dashboard struct {
	Server  *Server
	Store   *Store
	Hub     *Hub
	Emitter *Emitter
}

// New builds a dashboard ready to Start. A nil config uses defaults.
func New(config *Config) *Dashboard {
	store := NewStore()
	hub := NewHub()
	return &Dashboard{
		Server:  NewServer(config, store, hub),
		Store:   store,
		Hub:     hub,
		Emitter: NewEmitter(store, hub),
	}
}
