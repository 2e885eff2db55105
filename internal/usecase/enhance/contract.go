package enhance

import "context"

// Augmenter writes a short hypothetical answer for a query (HyDE).
type Augmenter interface {
	Augment(ctx context.Context, query string) (string, error)
}
