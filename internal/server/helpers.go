package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"mcpbox/internal/api"
	apperrors "mcpbox/internal/errors"
)

// extractErrorInfo extracts statusCode, errorCode, and errorDetails from an error.
func extractErrorInfo(err error) (statusCode int, errorCode, errorDetails string) {
	return apperrors.GetStatusCode(err),
		apperrors.GetErrorCode(err),
		apperrors.GetErrorDetails(err)
}

// writeErrorResponse writes a standardized JSON error response.
func writeErrorResponse(w http.ResponseWriter, statusCode int, message, details string) {
	writeErrorResponseWithCode(w, statusCode, "", message, details)
}

// writeErrorResponseWithCode writes a JSON error response carrying the
// machine-readable error code alongside the message.
func writeErrorResponseWithCode(w http.ResponseWriter, statusCode int, code, message, details string) {
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(api.ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}

// writeJSONResponse writes v as the JSON response body with the given status.
func writeJSONResponse(w http.ResponseWriter, statusCode int, v any) {
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeRequestBody decodes JSON request body into the provided value.
// If decoding fails, writes an error response and returns the error.
// Returns nil on success.
func decodeRequestBody(w http.ResponseWriter, req *http.Request, v any) error {
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid request body", err.Error())
		return fmt.Errorf("failed to decode request body: %w", err)
	}
	return nil
}

// getInstallationID extracts and validates the installationID URL parameter.
// If the parameter is missing or empty, writes a bad request error response
// and returns "", false.
func getInstallationID(w http.ResponseWriter, req *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(req, "installationID"))
	if id == "" {
		writeErrorResponse(w, http.StatusBadRequest, "invalid installationID", "installationID is required")
		return "", false
	}
	return id, true
}

// handleAndLogError logs an error and writes a standardized error response.
// Extracts HTTP status code, error code, and error details from the error,
// logs them with context, and writes a formatted error response.
// Use this for all service call failures in handlers.
func (r *Router) handleAndLogError(
	w http.ResponseWriter,
	req *http.Request,
	err error,
	operationName string,
) {
	logger := r.GetLoggerFromContext(req.Context())
	statusCode, errorCode, errorDetails := extractErrorInfo(err)

	logger.Error(
		"operation failed",
		"operation", operationName,
		"error", err,
		"status_code", statusCode,
		"error_code", errorCode,
	)

	writeErrorResponseWithCode(w, statusCode, errorCode, "failed to "+operationName, errorDetails)
}

// writeStepResult maps a step result to the wire: success is 200,
// a conflict-blocked step is 409 with the conflicting resources in the
// body so the client can offer force-replace.
func writeStepResult(w http.ResponseWriter, result *api.StepResult) {
	status := http.StatusOK
	if result.Outcome == api.OutcomeConflict {
		status = http.StatusConflict
	}
	writeJSONResponse(w, status, result)
}
