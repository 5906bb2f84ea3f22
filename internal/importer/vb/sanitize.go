package vb

import (
	"io"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

// exportPolicy strips scripts, styles, event handlers and executable URLs
// while keeping the class and data-* attributes the parser selects on.
func exportPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		p := bluemonday.UGCPolicy()
		p.AllowStyling()
		p.AllowDataAttributes()
		p.AllowElements("div", "span", "a", "section", "ul", "li", "p", "time")
		p.AllowNoAttrs().OnElements("a")

		policy = p
	})

	return policy
}

func sanitize(r io.Reader) io.Reader {
	return exportPolicy().SanitizeReader(r)
}
