// Package dashboard holds the per-viewer state of the validator dashboard.
//
// State is a value. Every transition returns a new State, so handlers can keep
// the previous one until the new one is fully built.
package dashboard

import (
	"github.com/vadiminshakov/stakeview/internal/dataset"
	"github.com/vadiminshakov/stakeview/internal/domain"
	"github.com/vadiminshakov/stakeview/internal/export"
	"github.com/vadiminshakov/stakeview/internal/pager"
)

// State is everything one viewer of a validator sees.
type State struct {
	Address   string
	Dataset   dataset.Dataset
	PageSize  int
	PageIndex int
	Loading   bool
	Err       error
	Gate      export.Gate

	lastRequest uint64
}

// New returns the initial state for address. The dataset is empty until the first fetch completes.
func New(address string, pageSize int) State {
	if pageSize <= 0 {
		pageSize = pager.DefaultPageSize
	}
	return State{
		Address:   address,
		PageSize:  pageSize,
		PageIndex: 1,
	}
}

// BeginFetch issues the next request id and marks the state as loading.
func (s State) BeginFetch() (State, uint64) {
	s.lastRequest++
	s.Loading = true
	s.Err = nil
	return s, s.lastRequest
}

// LatestRequest returns the id of the most recently issued fetch.
func (s State) LatestRequest() uint64 {
	return s.lastRequest
}

// IsCurrent reports whether id is the latest issued fetch.
func (s State) IsCurrent(id uint64) bool {
	return id == s.lastRequest
}

// CompleteFetch applies the outcome of fetch id. Responses of superseded fetches
// are dropped. On failure the previous dataset is kept and only Err is set.
func (s State) CompleteFetch(id uint64, raw []domain.RawBalanceRecord, fetchErr error) State {
	if !s.IsCurrent(id) {
		return s
	}
	s.Loading = false

	if fetchErr != nil {
		s.Err = fetchErr
		return s
	}

	ds, err := dataset.Build(raw)
	if err != nil {
		s.Err = err
		return s
	}

	s.Dataset = ds
	s.Err = nil
	s.PageIndex = 1
	return s
}

// WithPageSize changes the page size and goes back to the first page.
func (s State) WithPageSize(size int) State {
	if size <= 0 {
		size = pager.DefaultPageSize
	}
	s.PageSize = size
	s.PageIndex = 1
	return s
}

// WithPage moves to pageIndex, clamped to the available pages.
func (s State) WithPage(pageIndex int) State {
	s.PageIndex = pager.Clamp(pageIndex, pager.Count(s.Dataset.Len(), s.PageSize))
	return s
}

// Page returns the visible page of the current dataset.
func (s State) Page() pager.Page {
	return pager.Paginate(s.Dataset, s.PageSize, s.PageIndex)
}

// RequestExport opens an export session unless one is already open.
func (s State) RequestExport(sessionID string) State {
	s.Gate = s.Gate.Request(sessionID)
	return s
}

// CompleteExport handles the completion signal of sessionID.
// The dataset exported is the one current at the time of the signal.
func (s State) CompleteExport(sessionID string) (State, *export.Artifact) {
	var artifact *export.Artifact
	s.Gate, artifact = s.Gate.Complete(sessionID, s.Address, s.Dataset.Records())
	return s, artifact
}

// CancelExport closes the open export session, if any.
func (s State) CancelExport() State {
	s.Gate = s.Gate.Cancel()
	return s
}
