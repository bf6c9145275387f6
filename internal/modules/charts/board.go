package charts

import (
	"errors"
	"sync"
)

var (
	// ErrEmptyView is returned when a view has nothing to draw.
	ErrEmptyView = errors.New("chart view has no data")
	// ErrHandleDestroyed is returned when rendering a handle that was replaced.
	ErrHandleDestroyed = errors.New("chart handle destroyed")
	// ErrUnknownKind is returned for chart kinds outside Kinds.
	ErrUnknownKind = errors.New("unknown chart kind")
)

// Handle owns the drawing surfaces of one chart for one run. Surfaces are
// rendered on first use and cached per format until the handle is destroyed.
type Handle struct {
	kind   Kind
	runID  string
	view   View
	width  int
	height int

	mu        sync.Mutex
	surfaces  map[Format][]byte
	destroyed bool
}

// NewHandle creates a handle for a view produced by the given run.
func NewHandle(runID string, view View, width, height int) *Handle {
	return &Handle{
		kind:     view.Kind,
		runID:    runID,
		view:     view,
		width:    width,
		height:   height,
		surfaces: make(map[Format][]byte),
	}
}

// Kind returns the chart kind.
func (h *Handle) Kind() Kind { return h.kind }

// RunID returns the run the handle was drawn for.
func (h *Handle) RunID() string { return h.runID }

// View returns the data behind the chart.
func (h *Handle) View() View { return h.view }

// Render returns the encoded chart, drawing it on first request.
func (h *Handle) Render(format Format) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.destroyed {
		return nil, ErrHandleDestroyed
	}
	if data, ok := h.surfaces[format]; ok {
		return data, nil
	}

	data, err := Render(h.view, format, h.width, h.height)
	if err != nil {
		return nil, err
	}
	h.surfaces[format] = data
	return data, nil
}

// Destroy releases the rendered surfaces. Further Render calls fail.
func (h *Handle) Destroy() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.destroyed = true
	h.surfaces = nil
}

// Destroyed reports whether Destroy has been called.
func (h *Handle) Destroyed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.destroyed
}

// Board keeps at most one live handle per chart kind.
type Board struct {
	mu      sync.RWMutex
	handles map[Kind]*Handle
}

// NewBoard creates an empty board.
func NewBoard() *Board {
	return &Board{handles: make(map[Kind]*Handle)}
}

// Replace installs h as the live handle for its kind and destroys the
// handle it replaces, if any.
func (b *Board) Replace(h *Handle) {
	b.mu.Lock()
	previous := b.handles[h.kind]
	b.handles[h.kind] = h
	b.mu.Unlock()

	if previous != nil && previous != h {
		previous.Destroy()
	}
}

// Get returns the live handle for a kind.
func (b *Board) Get(kind Kind) (*Handle, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	h, ok := b.handles[kind]
	return h, ok
}

// Clear destroys every live handle.
func (b *Board) Clear() {
	b.mu.Lock()
	handles := b.handles
	b.handles = make(map[Kind]*Handle)
	b.mu.Unlock()

	for _, h := range handles {
		h.Destroy()
	}
}
