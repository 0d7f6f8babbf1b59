package surface

// SwapMode defines HTMX swap strategies for how a response replaces its
// target. Interaction responses use SwapInner: the host element stays in
// the page and only its rendered subtree is replaced.
//
// See https://htmx.org/attributes/hx-swap/ for visual examples.
type SwapMode string

const (
	// SwapOuter replaces the entire element including its tag (outerHTML).
	SwapOuter SwapMode = "outerHTML"

	// SwapInner replaces only the element's contents, preserving the outer tag (innerHTML).
	SwapInner SwapMode = "innerHTML"

	// SwapNone performs no swap - response is discarded.
	SwapNone SwapMode = "none"
)
