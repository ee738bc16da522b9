package errors

import (
	"errors"
)

// As is a wrapper around errors.As for our Error type
func As(err error, target **Error) bool {
	return errors.As(err, target)
}

// Is reports whether err matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// GetCode extracts the code from an error, CodeInternal for foreign errors
func GetCode(err error) Code {
	if err == nil {
		return CodeOK
	}

	var structured *Error
	if errors.As(err, &structured) {
		return structured.Code
	}

	return CodeInternal
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return GetCode(err) == CodeNotFound
}

// IsInvalidArgument checks if an error is an invalid argument error
func IsInvalidArgument(err error) bool {
	return GetCode(err) == CodeInvalidArgument
}

// IsFailedPrecondition checks if an error is a failed precondition error
func IsFailedPrecondition(err error) bool {
	return GetCode(err) == CodeFailedPrecondition
}

// IsOutOfRange checks if an error is an out of range error
func IsOutOfRange(err error) bool {
	return GetCode(err) == CodeOutOfRange
}
