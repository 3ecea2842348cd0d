package comparer

import (
	"freightapi/src/domain/entities"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func IgnoreFieldsFor[T any](fields ...string) cmp.Option {
	var t T
	return cmpopts.IgnoreFields(t, fields...)
}

// IgnoreFreightIdentity drops the store-assigned fields, for comparing a stub with
// what came back from Create.
func IgnoreFreightIdentity() cmp.Option {
	return IgnoreFieldsFor[entities.Freight]("ID", "CreatedAt", "UpdatedAt")
}
