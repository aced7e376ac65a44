package explorer

import (
	"slices"

	"github.com/gyaneshwarpardhi/paperatlas/internal/source"
	"github.com/gyaneshwarpardhi/paperatlas/internal/viewport"
)

// State is a point-in-time view of a session for API callers.
type State struct {
	ID          string             `json:"id"`
	Nodes       int                `json:"nodes"`
	Links       int                `json:"links"`
	Epoch       uint64             `json:"epoch"`
	Loading     bool               `json:"loading"`
	Expanding   []string           `json:"expanding,omitempty"`
	Transform   viewport.Transform `json:"transform"`
	Size        viewport.Size      `json:"size"`
	Interacting bool               `json:"interacting"`
	Alpha       float64            `json:"alpha"`
	Running     bool               `json:"running"`
	Cooled      bool               `json:"cooled"`
	Hovered     string             `json:"hovered,omitempty"`
	Selected    string             `json:"selected,omitempty"`
	Detail      *source.Detail     `json:"detail,omitempty"`
	Insight     string             `json:"insight,omitempty"`
	Frame       uint64             `json:"frame"`
}

// State captures the session. It must run on the loop.
func (s *Session) State() State {
	st := State{
		ID:          s.id,
		Nodes:       s.graph.NodeCount(),
		Links:       s.graph.LinkCount(),
		Epoch:       s.epoch,
		Loading:     s.loading,
		Transform:   s.view.Transform(),
		Size:        s.view.Size(),
		Interacting: s.view.Interacting(),
		Alpha:       s.sim.Alpha(),
		Running:     s.sim.Running(),
		Cooled:      s.sim.Cooled(),
		Selected:    s.selected,
		Detail:      s.detail,
		Insight:     s.reveal.Text(),
		Frame:       s.frameSeq,
	}
	if h := s.hover.Current(); h != nil {
		st.Hovered = h.ID
	}
	for id := range s.inFlight {
		st.Expanding = append(st.Expanding, id)
	}
	slices.Sort(st.Expanding)
	return st
}
