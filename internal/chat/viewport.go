package chat

// NearBottomThreshold is how close to the bottom, in pixels, the
// viewport must be for new messages to pull it down.
const NearBottomThreshold = 100

// ScrollAction tells the client what to do with the chat viewport.
type ScrollAction int

const (
	// ScrollNone leaves the viewport alone.
	ScrollNone ScrollAction = iota
	// ScrollSmooth scrolls to the bottom with animation.
	ScrollSmooth
	// ScrollInstant jumps to the bottom without animation, used on the
	// thread's first load after layout settles.
	ScrollInstant
)

// Viewport decides when the chat viewport auto-scrolls. New messages
// pull the view down only when the reader is already near the bottom or
// the thread just opened; a reader scrolled up into history is never
// yanked away. Owned by the session loop, not goroutine-safe.
type Viewport struct {
	nearBottom       bool
	firstLoad        bool
	lastCount        int
	showScrollButton bool
}

// NewViewport builds a viewport controller in the pre-open state.
func NewViewport() *Viewport {
	return &Viewport{nearBottom: true}
}

// OnOpen resets the controller for a freshly opened thread and returns
// the instant jump to the bottom.
func (v *Viewport) OnOpen(messageCount int) ScrollAction {
	v.nearBottom = true
	v.firstLoad = true
	v.lastCount = messageCount
	v.showScrollButton = false
	return ScrollInstant
}

// ObserveScroll records the viewport position, reported as the distance
// in pixels from the bottom. Recomputed on every scroll event.
func (v *Viewport) ObserveScroll(offsetFromBottom float64) {
	v.nearBottom = offsetFromBottom <= NearBottomThreshold
	if v.nearBottom {
		v.showScrollButton = false
	}
}

// OnMessages runs on every thread mutation and decides whether to
// auto-scroll: only when the count grew and the reader was near the
// bottom, or on the first merge after open.
func (v *Viewport) OnMessages(count int) ScrollAction {
	grew := count > v.lastCount
	v.lastCount = count
	first := v.firstLoad
	v.firstLoad = false

	if !grew {
		return ScrollNone
	}

	if first || v.nearBottom {
		return ScrollSmooth
	}

	// Reader is up in history: track that newer messages exist instead
	// of forcing a scroll.
	v.showScrollButton = true
	return ScrollNone
}

// NearBottom reports whether the viewport is within the threshold.
func (v *Viewport) NearBottom() bool {
	return v.nearBottom
}

// ShowScrollButton reports whether a "new messages" affordance should be
// visible.
func (v *Viewport) ShowScrollButton() bool {
	return v.showScrollButton
}
