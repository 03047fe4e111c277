package restapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/slotdao/cycled/pkg/model/ledger"
)

const (
	// ParameterAddress is used to identify an address.
	ParameterAddress = "address"

	// ParameterSlotIndex is used to identify a slot of the running cycle.
	ParameterSlotIndex = "index"

	// ParameterID is used to identify a proposal, candidate, auction or token.
	ParameterID = "id"
)

var (
	// ErrInvalidParameter defines the invalid parameter error.
	ErrInvalidParameter = echo.NewHTTPError(http.StatusBadRequest, "invalid parameter")

	// ErrNotFound defines the not found error.
	ErrNotFound = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// JSONResponse sends the JSON response with status code.
func JSONResponse(c echo.Context, statusCode int, result interface{}) error {
	return c.JSON(statusCode, result)
}

// HTTPErrorResponse defines the error struct for the HTTPErrorResponseEnvelope.
// Code is the ledger error code for rejected operations and the HTTP status code otherwise.
type HTTPErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HTTPErrorResponseEnvelope defines the error response schema for node API responses.
type HTTPErrorResponseEnvelope struct {
	Error HTTPErrorResponse `json:"error"`
}

// StatusCodeForError maps ledger errors to HTTP status codes.
func StatusCodeForError(err error) int {
	switch {
	case errors.Is(err, ledger.ErrUnknownProposal),
		errors.Is(err, ledger.ErrUnknownCandidate),
		errors.Is(err, ledger.ErrUnknownContract),
		errors.Is(err, ledger.ErrUnknownMethod):
		return http.StatusNotFound
	}

	switch ledger.KindOf(err) {
	case ledger.KindEligibility, ledger.KindAuthorization:
		return http.StatusForbidden
	case ledger.KindState:
		return http.StatusConflict
	case ledger.KindInput:
		return http.StatusBadRequest
	case ledger.KindInsufficientFunds:
		return http.StatusUnprocessableEntity
	case ledger.KindExternalCall:
		return http.StatusFailedDependency
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse builds the error envelope of err.
func ErrorResponse(err error) (int, *HTTPErrorResponseEnvelope) {
	if code := ledger.CodeOf(err); code != "" {
		return StatusCodeForError(err), &HTTPErrorResponseEnvelope{Error: HTTPErrorResponse{Code: code, Message: err.Error()}}
	}

	var statusCode int
	var message string

	var e *echo.HTTPError
	if errors.As(err, &e) {
		statusCode = e.Code
		message = fmt.Sprintf("%s, error: %s", e.Message, err)
	} else {
		statusCode = http.StatusInternalServerError
		message = fmt.Sprintf("internal server error. error: %s", err)
	}

	return statusCode, &HTTPErrorResponseEnvelope{Error: HTTPErrorResponse{Code: strconv.Itoa(statusCode), Message: message}}
}

// ErrorHandler writes every error as an error envelope.
func ErrorHandler() func(error, echo.Context) {
	return func(err error, c echo.Context) {
		statusCode, envelope := ErrorResponse(err)
		_ = c.JSON(statusCode, envelope)
	}
}

func ParseAddressParam(c echo.Context) (ledger.Address, error) {
	addressParam := strings.ToLower(c.Param(ParameterAddress))

	address, err := ledger.AddressFromHex(addressParam)
	if err != nil {
		return ledger.NullAddress, errors.WithMessagef(ErrInvalidParameter, "invalid address: %s, error: %s", addressParam, err)
	}
	return address, nil
}

func ParseUint64Param(c echo.Context, paramName string) (uint64, error) {
	param := c.Param(paramName)
	if param == "" {
		return 0, errors.WithMessagef(ErrInvalidParameter, "parameter \"%s\" not specified", paramName)
	}

	value, err := strconv.ParseUint(param, 10, 64)
	if err != nil {
		return 0, errors.WithMessagef(ErrInvalidParameter, "invalid %s: %s, error: %s", paramName, param, err)
	}
	return value, nil
}

func ParseSlotIndexParam(c echo.Context) (uint8, error) {
	param := c.Param(ParameterSlotIndex)

	index, err := strconv.ParseUint(param, 10, 8)
	if err != nil {
		return 0, errors.WithMessagef(ErrInvalidParameter, "invalid slot index: %s, error: %s", param, err)
	}
	return uint8(index), nil
}
