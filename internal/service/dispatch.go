package service

import (
	"context"
	"errors"

	"github.com/sakif/recordkeeper/internal/apperror"
	"github.com/sakif/recordkeeper/internal/jsonbody"
)

// ErrEmptyRequest is the message for a mutating request that carries nothing.
const ErrEmptyRequest = "empty request not allowed"

// DISPATCH:
// Every endpoint follows the same three steps. The body classifier says
// whether a body was Absent, Valid, or Invalid; the dispatcher decides
// whether the operation may run; the operation's own error is mapped onto the
// response categories. The functions here are generic over the payload slice
// type so one implementation serves every entity kind and every operation.

// QuerySome dispatches a create, update, or delete. The operation only runs
// with a non-empty payload: an absent body or an empty array is a
// BadRequest.
func QuerySome[S ~[]E, E any, Out any](ctx context.Context, res jsonbody.Result[S], run func(context.Context, S) (Out, error)) (Out, error) {
	var zero Out

	switch res.Kind {
	case jsonbody.Absent:
		return zero, apperror.BadRequest(ErrEmptyRequest)
	case jsonbody.Invalid:
		return zero, mapDecodeError(res.Err)
	case jsonbody.Valid:
		if len(res.Value) == 0 {
			return zero, apperror.BadRequest(ErrEmptyRequest)
		}
		out, err := run(ctx, res.Value)
		if err != nil {
			return zero, mapStorageError(err)
		}
		return out, nil
	}
	return zero, apperror.Unknown("unrecognised body classification")
}

// QueryAllOrSome dispatches a read. No filter means everything, so an absent
// body and an empty array both run all.
func QueryAllOrSome[S ~[]E, E any, Out any](ctx context.Context, res jsonbody.Result[S], all func(context.Context) (Out, error), some func(context.Context, S) (Out, error)) (Out, error) {
	var zero Out

	var (
		out Out
		err error
	)
	switch res.Kind {
	case jsonbody.Absent:
		out, err = all(ctx)
	case jsonbody.Invalid:
		return zero, mapDecodeError(res.Err)
	case jsonbody.Valid:
		if len(res.Value) == 0 {
			out, err = all(ctx)
		} else {
			out, err = some(ctx, res.Value)
		}
	default:
		return zero, apperror.Unknown("unrecognised body classification")
	}
	if err != nil {
		return zero, mapStorageError(err)
	}
	return out, nil
}

// mapDecodeError turns a classifier failure into a response category.
func mapDecodeError(err *jsonbody.Error) error {
	if err == nil {
		return apperror.Unknown("invalid body without a reason")
	}
	switch err.Reason {
	case jsonbody.ReasonOverflowKnownLength, jsonbody.ReasonOverflow:
		return apperror.PayloadTooLarge(err.Error())
	case jsonbody.ReasonContentType:
		return apperror.UnsupportedMediaType(err.Error())
	case jsonbody.ReasonDeserialize, jsonbody.ReasonPayload:
		return apperror.BadRequest(err.Error())
	}
	return apperror.Unknown(err.Error())
}

// mapStorageError turns an operation failure into a response category.
// Errors that already carry one pass through untouched.
func mapStorageError(err error) error {
	switch {
	case apperror.Categorized(err):
		return err
	case errors.Is(err, apperror.ErrInvalidArgument):
		return apperror.BadRequest(err.Error())
	}
	return apperror.Server(err.Error())
}
