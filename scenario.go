package glide

import (
	"bytes"
	"fmt"
	"io"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// scenarioStep is a single action in a scenario script.
type scenarioStep struct {
	Action string  `json:"action"`
	Y      float64 `json:"y,omitempty"`
	Height float64 `json:"height,omitempty"`
	Frames int     `json:"frames,omitempty"`
	Ms     int     `json:"ms,omitempty"`
}

// scenarioScript is the top-level JSON structure for a scenario.
type scenarioScript struct {
	Content    float64        `json:"content"`
	Viewport   float64        `json:"viewport"`
	Loading    bool           `json:"loading,omitempty"`
	NoObserver bool           `json:"noObserver,omitempty"`
	Steps      []scenarioStep `json:"steps"`
}

var scenarioActions = map[string]bool{
	"ready": true, "load": true, "resize": true, "content": true,
	"scroll": true, "scrollBy": true, "scrollTo": true,
	"frames": true, "wait": true,
}

// scenarioEpoch is the virtual start time of every scenario run.
var scenarioEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Scenario is a scripted sequence of page events and frames, replayed
// against a MemoryPage on a virtual clock. Runs are deterministic.
type Scenario struct {
	script scenarioScript
}

// TraceFrame is the engine state after one frame.
type TraceFrame struct {
	Frame   int
	Elapsed time.Duration
	Target  float64
	Current float64
	Height  float64
}

// Trace is the outcome of a scenario run.
type Trace struct {
	Frames []TraceFrame
	Stats  Stats
	Page   PageSnapshot
}

// LoadScenario parses a JSON scenario script.
func LoadScenario(jsonData []byte) (*Scenario, error) {
	var script scenarioScript
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(jsonData, &script); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if len(script.Steps) == 0 {
		return nil, fmt.Errorf("parse scenario: no steps")
	}
	if script.Viewport <= 0 {
		return nil, fmt.Errorf("parse scenario: viewport must be positive")
	}
	for i, st := range script.Steps {
		if !scenarioActions[st.Action] {
			return nil, fmt.Errorf("parse scenario: step %d: unknown action %q", i, st.Action)
		}
	}
	return &Scenario{script: script}, nil
}

// Run replays the scenario with the given engine configuration.
func (s *Scenario) Run(cfg Config, opts ...Option) (*Trace, error) {
	page := NewMemoryPage(s.script.Content, s.script.Viewport)
	if s.script.Loading {
		page.SetReadyState(ReadyLoading)
	}
	page.SetObservable(!s.script.NoObserver)

	opts = append([]Option{WithTriggers(page)}, opts...)
	eng, err := New(page, page, cfg, opts...)
	if err != nil {
		return nil, err
	}

	now := scenarioEpoch
	if err := eng.Start(now); err != nil {
		return nil, err
	}

	tr := &Trace{}
	for i, st := range s.script.Steps {
		if err := s.step(eng, page, st, &now, tr); err != nil {
			eng.Stop()
			return nil, fmt.Errorf("scenario step %d (%s): %w", i, st.Action, err)
		}
	}
	eng.Stop()

	tr.Stats = eng.Stats()
	tr.Page = page.Snapshot()
	return tr, nil
}

func (s *Scenario) step(eng *Engine, page *MemoryPage, st scenarioStep, now *time.Time, tr *Trace) error {
	switch st.Action {
	case "ready":
		page.SetReadyState(ReadyInteractive)
		eng.Post(SignalReady)
		return eng.Pump(*now)
	case "load":
		page.SetReadyState(ReadyComplete)
		eng.Post(SignalLoad)
		return eng.Pump(*now)
	case "resize":
		if st.Height > 0 {
			page.SetViewportHeight(st.Height)
		}
		eng.Post(SignalResize)
		return eng.Pump(*now)
	case "content":
		page.SetContentHeight(st.Height)
		return eng.Pump(*now)
	case "scroll":
		return page.SetScrollY(st.Y)
	case "scrollBy":
		page.ScrollBy(st.Y)
	case "scrollTo":
		return eng.ScrollTo(st.Y, time.Duration(st.Ms)*time.Millisecond, nil)
	case "frames":
		interval := eng.cfg.FrameInterval
		for i := 0; i < st.Frames; i++ {
			*now = now.Add(interval)
			if err := eng.Pump(*now); err != nil {
				return err
			}
			eng.Frame(*now)
			tr.Frames = append(tr.Frames, TraceFrame{
				Frame:   eng.stats.Frames,
				Elapsed: now.Sub(scenarioEpoch),
				Target:  eng.Target(),
				Current: eng.Offset(),
				Height:  eng.Height(),
			})
		}
	case "wait":
		*now = now.Add(time.Duration(st.Ms) * time.Millisecond)
		return eng.Pump(*now)
	}
	return nil
}

// Last returns the final frame of the trace, or the zero frame when no
// frames ran.
func (t *Trace) Last() TraceFrame {
	if len(t.Frames) == 0 {
		return TraceFrame{}
	}
	return t.Frames[len(t.Frames)-1]
}

// WriteTo writes the trace as a fixed-width table followed by the engine
// counters.
func (t *Trace) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%6s %8s %10s %10s %10s\n", "frame", "ms", "target", "current", "height")
	for _, f := range t.Frames {
		fmt.Fprintf(&buf, "%6d %8d %10.2f %10.2f %10.2f\n",
			f.Frame, f.Elapsed.Milliseconds(), f.Target, f.Current, f.Height)
	}
	fmt.Fprintln(&buf, t.Stats)
	return buf.WriteTo(w)
}
