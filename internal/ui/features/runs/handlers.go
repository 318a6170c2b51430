// Package runs exposes the ETL run ledger over HTTP.
package runs

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/leapstack-labs/healthdw/pkg/core"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Handlers provides HTTP handlers for the runs feature.
type Handlers struct {
	store core.Store
	now   func() time.Time
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(store core.Store) *Handlers {
	return &Handlers{store: store, now: time.Now}
}

// List returns the most recent runs, newest first. ?limit= caps the count.
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, ErrorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxLimit)
	}

	runs, err := h.store.ListRuns(limit)
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: err.Error()})
		return
	}

	now := h.now()
	items := make([]RunItem, len(runs))
	for i, run := range runs {
		items[i] = newRunItem(run, now)
	}
	render.JSON(w, r, ListResponse{Runs: items})
}

// Detail returns one run with its steps.
func (h *Handlers) Detail(w http.ResponseWriter, r *http.Request) {
	run, err := h.lookup(chi.URLParam(r, "id"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, core.ErrRunNotFound) {
			status = http.StatusNotFound
		}
		render.Status(r, status)
		render.JSON(w, r, ErrorResponse{Error: err.Error()})
		return
	}

	steps, err := h.store.GetStepsForRun(run.ID)
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: err.Error()})
		return
	}

	detail := RunDetail{
		RunItem: newRunItem(run, h.now()),
		Steps:   make([]StepItem, len(steps)),
	}
	for i, step := range steps {
		detail.Steps[i] = StepItem{RunStep: step, Duration: formatDurationMS(step.ExecutionMS)}
	}
	render.JSON(w, r, detail)
}

// lookup resolves a run id, where "latest" selects the newest run.
func (h *Handlers) lookup(id string) (*core.Run, error) {
	if id != "latest" {
		return h.store.GetRun(id)
	}
	run, err := h.store.GetLatestRun()
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("%w: latest", core.ErrRunNotFound)
	}
	return run, nil
}
