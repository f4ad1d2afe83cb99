package handler

import (
	"net/http"
	"strconv"

	"github.com/stockflow/stockflow-backend/pkg/errors"
	"github.com/stockflow/stockflow-backend/pkg/httputil"
)

// pageParams reads page/per_page query params with sane defaults.
func pageParams(r *http.Request) (page, perPage int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	perPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 50
	}
	return page, perPage
}

func errInvalidTime(param string) error {
	return errors.BadRequest(param + " must be an RFC3339 timestamp")
}

func listMeta(total, page, perPage int) *httputil.Meta {
	totalPages := total / perPage
	if total%perPage > 0 {
		totalPages++
	}
	return &httputil.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      int64(total),
		TotalPages: totalPages,
	}
}
