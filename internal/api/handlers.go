// internal/api/handlers.go
//
// REST handlers for the network resource.
//
// Workflow
// --------
//  1. Decode and validate input (path ids, query filters, JSON bodies).
//  2. Call the network.Manager.  Handlers never touch the store.
//  3. Wrap the result in the envelope, or map the error kind to a status.

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/stuttter/wp-multi-network-sub000/internal/directory"
	"github.com/stuttter/wp-multi-network-sub000/internal/network"
)

const (
	defaultPerPage = 10
	maxPerPage     = 100
)

var validate = validator.New()

// UpdateBody is the body of PUT /networks/{id}.
type UpdateBody struct {
	Domain string `json:"domain" validate:"required,max=200"`
	Path   string `json:"path"   validate:"omitempty,max=100"`
}

// MoveBody is the body of POST /sites/{id}/move.
type MoveBody struct {
	NetworkID *int64 `json:"network_id" validate:"required,gte=0"`
}

type handlers struct {
	mgr *network.Manager
}

//
// Collection
//

func (h *handlers) listNetworks(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	rows, total, err := h.mgr.List(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	w.Header().Set("X-Total-Pages", strconv.FormatInt(totalPages(total, q.PerPage), 10))
	if rows == nil {
		rows = []directory.Network{}
	}
	ok(w, rows)
}

func (h *handlers) createNetwork(w http.ResponseWriter, r *http.Request) {
	var in network.CreateInput
	if !decode(w, r, &in) {
		return
	}
	id, err := h.mgr.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	n, err := h.mgr.Network(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/networks/"+strconv.FormatInt(id, 10))
	created(w, n)
}

//
// Item
//

func (h *handlers) getNetwork(w http.ResponseWriter, r *http.Request) {
	id, good := pathID(w, r)
	if !good {
		return
	}
	n, err := h.mgr.Network(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, n)
}

func (h *handlers) updateNetwork(w http.ResponseWriter, r *http.Request) {
	id, good := pathID(w, r)
	if !good {
		return
	}
	var body UpdateBody
	if !decode(w, r, &body) {
		return
	}
	if err := h.mgr.Update(r.Context(), id, body.Domain, body.Path); err != nil {
		writeError(w, r, err)
		return
	}
	n, err := h.mgr.Network(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, n)
}

func (h *handlers) deleteNetwork(w http.ResponseWriter, r *http.Request) {
	id, good := pathID(w, r)
	if !good {
		return
	}
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))
	if err := h.mgr.Delete(r.Context(), id, force); err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, map[string]any{"deleted": true, "id": id})
}

func (h *handlers) listSites(w http.ResponseWriter, r *http.Request) {
	id, good := pathID(w, r)
	if !good {
		return
	}
	sites, err := h.mgr.Sites(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if sites == nil {
		sites = []directory.Site{}
	}
	ok(w, sites)
}

func (h *handlers) moveSite(w http.ResponseWriter, r *http.Request) {
	id, good := pathID(w, r)
	if !good {
		return
	}
	var body MoveBody
	if !decode(w, r, &body) {
		return
	}
	res, err := h.mgr.MoveSite(r.Context(), id, *body.NetworkID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, res)
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	if _, err := h.mgr.MainNetworkID(r.Context()); err != nil && network.KindOf(err) == network.KindPersistence {
		fail(w, http.StatusServiceUnavailable, Problem{Code: "unavailable", Message: "store unreachable"})
		return
	}
	ok(w, map[string]string{"status": "ok"})
}

//
// Input helpers
//

// pathID parses the {id} URL parameter.  Zero is allowed; it names the
// orphan holding pen for site listings.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 0 {
		badRequest(w, "id must be a non-negative integer")
		return 0, false
	}
	return id, true
}

// decode reads a JSON body into dst and validates it.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		badRequest(w, "invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, e := range verrs {
				fields[e.Field()] = "failed " + e.Tag()
			}
			fail(w, http.StatusBadRequest, Problem{
				Code:    network.KindValidation.String(),
				Message: "invalid request body",
				Fields:  fields,
			})
			return false
		}
		badRequest(w, err.Error())
		return false
	}
	return true
}

// parseQuery reads the collection filters.
func parseQuery(r *http.Request) (directory.Query, error) {
	v := r.URL.Query()
	q := directory.Query{
		Search:  strings.TrimSpace(v.Get("search")),
		Domain:  strings.TrimSpace(v.Get("domain")),
		Path:    strings.TrimSpace(v.Get("path")),
		OrderBy: v.Get("orderby"),
		Order:   strings.ToLower(v.Get("order")),
		Page:    1,
		PerPage: defaultPerPage,
	}

	var err error
	if q.Include, err = idList(v.Get("include")); err != nil {
		return q, errors.New("include must be a comma-separated id list")
	}
	if q.Exclude, err = idList(v.Get("exclude")); err != nil {
		return q, errors.New("exclude must be a comma-separated id list")
	}
	if s := v.Get("page"); s != "" {
		if q.Page, err = strconv.Atoi(s); err != nil || q.Page < 1 {
			return q, errors.New("page must be a positive integer")
		}
	}
	if s := v.Get("per_page"); s != "" {
		if q.PerPage, err = strconv.Atoi(s); err != nil || q.PerPage < 1 || q.PerPage > maxPerPage {
			return q, errors.New("per_page must be between 1 and 100")
		}
	}
	if q.OrderBy != "" && q.OrderBy != "id" && q.OrderBy != "domain" && q.OrderBy != "path" {
		return q, errors.New("orderby must be id, domain, or path")
	}
	if q.Order != "" && q.Order != "asc" && q.Order != "desc" {
		return q, errors.New("order must be asc or desc")
	}
	return q, nil
}

func idList(s string) ([]int64, error) {
	if s == "" {
		return nil, nil
	}
	var out []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func totalPages(total int64, perPage int) int64 {
	if perPage <= 0 || total == 0 {
		return 1
	}
	return (total + int64(perPage) - 1) / int64(perPage)
}
