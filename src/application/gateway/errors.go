package gateway

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"staytuned/src/lib/werror"
)

// interface check
var _ = []GatewayError{
	UnsupportedFileError{},
	MissingURLError{},
	MissingOptionError{},
	FileNotFoundError{},
	ExtractionFailedError{},
	InternalError{},
}

func ErrorResponse(c echo.Context, s GatewayError) error {
	return c.JSON(s.StatusCode(), JSONGatewayError{
		Code: s.Code(),
		Msg:  s.Msg(),
	})
}

type JSONGatewayError struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

type GatewayError interface {
	StatusCode() int
	Code() string
	Msg() string
}

func NewErrorMsger(message string, err error) ErrorMsger {
	return ErrorMsger{
		Message: message,
		Err:     err,
	}
}

type ErrorMsger struct {
	Message string
	Err     error
}

func (m ErrorMsger) Msg() string {
	if m.Err == nil {
		return m.Message
	}

	return werror.WrapError(m.Message, m.Err).Error()
}

type BadRequestStatus struct{}

func (BadRequestStatus) StatusCode() int { return http.StatusBadRequest }

type NotFoundStatus struct{}

func (NotFoundStatus) StatusCode() int { return http.StatusNotFound }

type InternalErrorStatus struct{}

func (InternalErrorStatus) StatusCode() int { return http.StatusInternalServerError }

func NewUnsupportedFileError(err error) UnsupportedFileError {
	return UnsupportedFileError{
		ErrorMsger: NewErrorMsger("Unsupported file format", err),
	}
}

type UnsupportedFileError struct {
	BadRequestStatus
	ErrorMsger
}

func (UnsupportedFileError) Code() string { return "unsupported_file" }

func NewMissingURLError() MissingURLError {
	return MissingURLError{
		ErrorMsger: NewErrorMsger("URL is required", nil),
	}
}

type MissingURLError struct {
	BadRequestStatus
	ErrorMsger
}

func (MissingURLError) Code() string { return "missing_url" }

func NewMissingOptionError() MissingOptionError {
	return MissingOptionError{
		ErrorMsger: NewErrorMsger("At least one of audio extraction or video download must be requested", nil),
	}
}

type MissingOptionError struct {
	BadRequestStatus
	ErrorMsger
}

func (MissingOptionError) Code() string { return "missing_option" }

func NewFileNotFoundError(err error) FileNotFoundError {
	return FileNotFoundError{
		ErrorMsger: NewErrorMsger("The requested file couldn't be found", err),
	}
}

type FileNotFoundError struct {
	NotFoundStatus
	ErrorMsger
}

func (FileNotFoundError) Code() string { return "file_not_found" }

func NewExtractionFailedError(err error) ExtractionFailedError {
	return ExtractionFailedError{
		ErrorMsger: NewErrorMsger("Extraction failed", err),
	}
}

type ExtractionFailedError struct {
	InternalErrorStatus
	ErrorMsger
}

func (ExtractionFailedError) Code() string { return "extraction_failed" }

func NewInternalError(err error) InternalError {
	return InternalError{
		ErrorMsger: NewErrorMsger("Something unexpected happened", err),
	}
}

type InternalError struct {
	InternalErrorStatus
	ErrorMsger
}

func (InternalError) Code() string { return "internal_error" }
