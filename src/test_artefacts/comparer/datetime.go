package comparer

import (
	"time"

	"github.com/google/go-cmp/cmp"
)

// TimeWithinTolerance trata como iguais instantes a até toleranceMs de distância,
// independente do fuso (o Postgres devolve em UTC, o teste pode usar Local).
func TimeWithinTolerance(toleranceMs int) cmp.Option {
	tolerance := time.Duration(toleranceMs) * time.Millisecond

	return cmp.Comparer(func(x, y time.Time) bool {
		return x.Sub(y).Abs() <= tolerance
	})
}
