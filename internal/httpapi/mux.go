package httpapi

import (
	"net/http"

	"github.com/jmoiron/sqlx"
)

// NewMux returns a mux serving the healthcheck and, when staticDir is set,
// the files under it at /static/.
func NewMux(db *sqlx.DB, staticDir string) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db)
	if staticDir != "" {
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	}
	return mux
}
