// Copyright 2026 PingCAP, Inc. Licensed under Apache-2.0.

package errors

import (
	"github.com/pingcap/errors"
)

// Is tests whether the specificated error causes the error `err`.
func Is(err error, is *errors.Error) bool {
	errorFound := errors.Find(err, func(e error) bool {
		//nolint:errorlint
		normalizedErr, ok := e.(*errors.Error)
		return ok && normalizedErr.ID() == is.ID()
	})
	return errorFound != nil
}

// AggSplit errors.
var (
	ErrUnknown         = errors.Normalize("internal error", errors.RFCCodeText("AggSplit:Common:ErrUnknown"))
	ErrInvalidArgument = errors.Normalize("invalid argument", errors.RFCCodeText("AggSplit:Common:ErrInvalidArgument"))

	ErrIncompatiblePartitionSet = errors.Normalize("scan ranges target more than one partition set",
		errors.RFCCodeText("AggSplit:Plan:ErrIncompatiblePartitionSet"))
	ErrGroupKeyLenMismatch = errors.Normalize("scan ranges disagree on the grouping key length",
		errors.RFCCodeText("AggSplit:Plan:ErrGroupKeyLenMismatch"))
	ErrPlanningIO        = errors.Normalize("failed to fetch planning metadata", errors.RFCCodeText("AggSplit:Plan:ErrPlanningIO"))
	ErrInvalidBoundaries = errors.Normalize("invalid partition boundaries", errors.RFCCodeText("AggSplit:Plan:ErrInvalidBoundaries"))

	ErrUnknownPartitionSet = errors.Normalize("unknown partition set", errors.RFCCodeText("AggSplit:Meta:ErrUnknownPartitionSet"))

	ErrMissingPartitionID = errors.Normalize("split has no partition set identifier, the plan is corrupted",
		errors.RFCCodeText("AggSplit:Exec:ErrMissingPartitionID"))
	ErrExecute = errors.Normalize("failed to execute split", errors.RFCCodeText("AggSplit:Exec:ErrExecute"))

	ErrConfigInvalid = errors.Normalize("invalid job config", errors.RFCCodeText("AggSplit:Config:ErrConfigInvalid"))
)
