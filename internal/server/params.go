package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"painelpib/internal/query"
)

// selection is the parsed query string of a view request.
type selection struct {
	Variable string
	Year     int
	HasYear  bool
	TopN     int
	Codes    []string
	ShowMean bool
	Search   string
}

func (s *Server) parseSelection(r *http.Request, snap *query.Snapshot) (selection, error) {
	q := r.URL.Query()
	sel := selection{
		Variable: snap.Resolve(strings.TrimSpace(q.Get("variable"))),
		Search:   q.Get("q"),
	}

	if raw := strings.TrimSpace(q.Get("year")); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil {
			return sel, fmt.Errorf("invalid year %q", raw)
		}
		sel.Year, sel.HasYear = y, true
	} else if last, ok := snap.LastYear(sel.Variable); ok {
		sel.Year, sel.HasYear = last, true
	}

	top := 0
	if raw := strings.TrimSpace(q.Get("top")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return sel, fmt.Errorf("invalid top %q", raw)
		}
		top = n
	}
	sel.TopN = s.opts.Limits.ClampTopN(top)

	for _, v := range q["code"] {
		for _, c := range strings.Split(v, ",") {
			if c = strings.TrimSpace(c); c != "" {
				sel.Codes = append(sel.Codes, c)
			}
		}
	}

	if raw := strings.TrimSpace(q.Get("mean")); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return sel, fmt.Errorf("invalid mean %q", raw)
		}
		sel.ShowMean = b
	}
	return sel, nil
}

// snapshot fetches the published dataset and parses the request, writing the error response itself.
func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) (*query.Snapshot, selection, bool) {
	snap, err := s.sess.Snapshot()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return nil, selection{}, false
	}
	sel, err := s.parseSelection(r, snap)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return nil, selection{}, false
	}
	return snap, sel, true
}
