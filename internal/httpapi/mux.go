package httpapi

import (
	"database/sql"
	"net/http"
)

// NewMux returns a mux with the health routes registered. mqtt may be nil
// when no broker is configured.
func NewMux(db *sql.DB, mqtt ConnectionStatus) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db, mqtt)
	return mux
}
