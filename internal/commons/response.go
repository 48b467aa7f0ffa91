package commons

import (
	"encoding/json"
	"net/http"
	"time"

	"bucheron/internal/dto"
	apperrors "bucheron/internal/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NewTrace returns a trace id and a logger carrying it.
func NewTrace(logger *zap.Logger) (string, *zap.Logger) {
	traceID := uuid.New().String()
	return traceID, logger.With(zap.String("traceId", traceID))
}

func WriteJSON(w http.ResponseWriter, logger *zap.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}

func WriteSuccess(w http.ResponseWriter, logger *zap.Logger, status int, traceID string, data interface{}) {
	WriteJSON(w, logger, status, dto.Response{
		Success:   true,
		Data:      data,
		TraceID:   traceID,
		Timestamp: time.Now().UTC(),
	})
}

func WriteValidationError(w http.ResponseWriter, logger *zap.Logger, traceID, message string, details ...apperrors.ValidationDetail) {
	WriteJSON(w, logger, http.StatusBadRequest, dto.Response{
		Message:   message,
		Type:      dto.TypeValidation,
		Details:   details,
		TraceID:   traceID,
		Timestamp: time.Now().UTC(),
	})
}

func writeFailure(w http.ResponseWriter, logger *zap.Logger, status int, traceID, typ, message string) {
	WriteJSON(w, logger, status, dto.Response{
		Message:   message,
		Type:      typ,
		TraceID:   traceID,
		Timestamp: time.Now().UTC(),
	})
}

// WriteError maps application errors to their HTTP status. Unknown errors are
// logged and reported as a generic 500.
func WriteError(w http.ResponseWriter, logger *zap.Logger, traceID string, err error) {
	if ve, ok := apperrors.IsValidationError(err); ok {
		WriteValidationError(w, logger, traceID, ve.Message, ve.Details...)
		return
	}
	if _, ok := apperrors.IsNotFoundError(err); ok {
		writeFailure(w, logger, http.StatusNotFound, traceID, dto.TypeNotFound, err.Error())
		return
	}
	if _, ok := apperrors.IsConflictError(err); ok {
		writeFailure(w, logger, http.StatusConflict, traceID, dto.TypeConflict, err.Error())
		return
	}
	if _, ok := apperrors.IsDeadlockError(err); ok {
		writeFailure(w, logger, http.StatusConflict, traceID, dto.TypeDeadlock, "La commande n'a pas pu être enregistrée, veuillez réessayer")
		return
	}
	if _, ok := apperrors.IsUnsupportedMediaError(err); ok {
		writeFailure(w, logger, http.StatusUnsupportedMediaType, traceID, dto.TypeUnsupportedMedia, err.Error())
		return
	}
	if _, ok := apperrors.IsTooLargeError(err); ok {
		writeFailure(w, logger, http.StatusRequestEntityTooLarge, traceID, dto.TypeTooLarge, err.Error())
		return
	}

	logger.Error("unexpected error", zap.Error(err))
	writeFailure(w, logger, http.StatusInternalServerError, traceID, dto.TypeInternal, "Une erreur inattendue est survenue")
}

// DecodeJSON reads a JSON body of at most 1 MiB.
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return apperrors.NewValidationError("Corps de requête JSON invalide", apperrors.ValidationDetail{
			Field:   "body",
			Message: "le corps de la requête doit être un JSON valide",
		})
	}
	return nil
}
