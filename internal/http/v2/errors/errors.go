package errors

import (
	"encoding/json"
	"net/http"

	"github.com/dropDatabas3/socialconnect/internal/observability/logger"
)

// errorResponse structura interna para la serialización JSON.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// WriteError escribe una respuesta HTTP basada en el error proporcionado.
// Maneja automáticamente errores de tipo *AppError y errores de dominio.
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)

	resp := errorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Detail:  appErr.Detail,
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(resp)
}

// Write es WriteError con log: 5xx como error, el resto como warn.
func Write(w http.ResponseWriter, r *http.Request, err error) {
	appErr := FromError(err)
	log := logger.From(r.Context())
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		log.Error("request failed", logger.String("error_code", appErr.Code), logger.Err(appErr.Err))
	} else if appErr.Err != nil {
		log.Warn("request rejected", logger.String("error_code", appErr.Code), logger.Err(appErr.Err))
	}
	WriteError(w, appErr)
}
