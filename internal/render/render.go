// Package render turns a finished HTML slide into a PNG preview using a
// headless browser.
package render

import (
	"context"

	"github.com/mohammad-safakhou/slidegen/internal/job"
)

// Renderer is the pure-function contract C6 invokes after a successful
// generate-validate cycle.
type Renderer interface {
	Render(ctx context.Context, html string, aspect job.Aspect) ([]byte, error)
}
