package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/agencydesk/agencydesk/internal/utils"
	"github.com/gorilla/mux"
)

// PathInt reads an integer route variable, writing a 400 response when it is malformed.
func PathInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	value, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil {
		WriteBadRequest(w, "Invalid "+name, err.Error())
		return 0, false
	}
	return value, true
}

// QueryDate reads an optional YYYY-MM-DD query parameter. Missing parameters yield fallback.
func QueryDate(w http.ResponseWriter, r *http.Request, name string, fallback time.Time) (time.Time, bool) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return fallback, true
	}
	date, err := utils.ParseDate(value)
	if err != nil {
		WriteBadRequest(w, "Invalid date format", name+" must be in YYYY-MM-DD format")
		return time.Time{}, false
	}
	return date, true
}
