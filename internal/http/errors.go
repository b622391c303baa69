package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"seppe/internal/history"
	"seppe/internal/importer"
	"seppe/internal/services"
)

// APIError is the JSON body of every error response. Message is meant for
// the end user and is written in Portuguese.
type APIError struct {
	StatusCode int    `json:"status_code"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// Render implements render.Renderer
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

func newAPIError(status int, code, message string) *APIError {
	return &APIError{StatusCode: status, ErrorCode: code, Message: message}
}

var (
	errNotFound         = newAPIError(http.StatusNotFound, "NOT_FOUND", "Recurso não encontrado.")
	errMethodNotAllowed = newAPIError(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Método não permitido.")
	errRateLimited      = newAPIError(http.StatusTooManyRequests, "RATE_LIMITED", "Muitas requisições. Aguarde alguns instantes e tente novamente.")
	errImportNotFound   = newAPIError(http.StatusNotFound, "IMPORT_NOT_FOUND", "Importação não encontrada.")
	errInvalidLimit     = newAPIError(http.StatusBadRequest, "INVALID_LIMIT", "O parâmetro limit deve ser um número inteiro positivo.")
	errMissingFile      = newAPIError(http.StatusBadRequest, "MISSING_FILE", "Envie a planilha no campo \"file\" ou no corpo da requisição.")
	errInternal         = newAPIError(http.StatusInternalServerError, "INTERNAL_ERROR", "Erro interno. Tente novamente mais tarde.")
)

func errTooLarge(limit int64) *APIError {
	e := newAPIError(http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "O arquivo excede o tamanho máximo permitido.")
	e.Details = map[string]int64{"max_bytes": limit}
	return e
}

// importError maps an import failure to the message shown to the user.
func importError(err error) *APIError {
	var missing *importer.MissingColumnError
	switch {
	case errors.As(err, &missing):
		e := newAPIError(http.StatusUnprocessableEntity, "MISSING_EXECUTION_COLUMN",
			"A planilha não possui a coluna de percentual de execução. "+
				"Inclua uma coluna cujo título comece com \""+missing.Example+"\" (por exemplo \"% EXECUÇÃO\") e importe novamente.")
		e.Details = map[string][]string{"headers": missing.Headers}
		return e
	case errors.Is(err, importer.ErrTooFewRows):
		return newAPIError(http.StatusUnprocessableEntity, "TOO_FEW_ROWS",
			"A planilha precisa ter uma linha de cabeçalho e pelo menos uma linha de dados.")
	case errors.Is(err, importer.ErrEmptyFile):
		return newAPIError(http.StatusUnprocessableEntity, "EMPTY_FILE", "O arquivo enviado está vazio.")
	case errors.Is(err, importer.ErrUnsupportedFormat):
		return newAPIError(http.StatusUnprocessableEntity, "UNSUPPORTED_FORMAT",
			"Formato não suportado. Salve a planilha como .xlsx ou .csv e tente novamente.")
	case errors.Is(err, importer.ErrUnreadableFile):
		return newAPIError(http.StatusUnprocessableEntity, "UNREADABLE_FILE",
			"Não foi possível ler o arquivo. Verifique se é uma planilha .xlsx ou .csv válida.")
	case errors.Is(err, services.ErrSheetsNotConfigured):
		return newAPIError(http.StatusServiceUnavailable, "SHEETS_NOT_CONFIGURED",
			"A importação a partir do Google Sheets não está configurada.")
	case errors.Is(err, services.ErrSourceUnavailable):
		return newAPIError(http.StatusBadGateway, "SHEETS_UNAVAILABLE",
			"Não foi possível acessar a planilha do Google Sheets. Tente novamente mais tarde.")
	case errors.Is(err, context.DeadlineExceeded):
		return newAPIError(http.StatusGatewayTimeout, "TIMEOUT", "A importação excedeu o tempo limite.")
	default:
		return errInternal
	}
}

func lookupError(err error) *APIError {
	if errors.Is(err, history.ErrNotFound) {
		return errImportNotFound
	}
	return errInternal
}
