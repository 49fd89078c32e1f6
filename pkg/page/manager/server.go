package manager

// Server manages the page of a single HTTP request. Server pages are
// rendered once and never activated. Manage is promoted from Manager.
type Server struct {
	*Manager
}

// NewServer creates a server page manager.
func NewServer(cfg Config) *Server {
	return &Server{Manager: New(cfg)}
}

