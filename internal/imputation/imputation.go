// Package imputation defines the capability every imputation model exposes
// and the concrete imputers shipped with the harness: a neural imputer built
// on the training loop and the LOCF heuristic.
package imputation

import (
	"errors"

	"seriesfill/internal/dataset"
)

// ErrNotFitted is returned when Impute is called before any successful
// training epoch produced a model state.
var ErrNotFitted = errors.New("imputation: model is not fitted yet")

// Imputer is the contract all imputation models satisfy. Fit trains in place
// on time-series data that may contain missing entries; val may be nil.
// Impute returns data of identical shape with missing entries filled in,
// leaving the imputer untouched.
type Imputer interface {
	Fit(train, val *dataset.Series) error
	Impute(x *dataset.Series) (*dataset.Series, error)
}
