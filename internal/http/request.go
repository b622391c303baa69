package http

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
)

const (
	formFileField    = "file"
	filterParam      = "secretariat"
	maxMultipartMem  = 8 << 20
	defaultUploadMax = 20 << 20
)

var errNoUpload = errors.New("no file in request")

// readUpload returns the uploaded file name and bytes. Multipart requests
// carry the file in the "file" field; anything else is read as the raw body
// with an optional ?name= label.
func readUpload(r *http.Request, limit int64) (string, []byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(min(limit, maxMultipartMem)); err != nil {
			return "", nil, fmt.Errorf("parse multipart form: %w", err)
		}
		defer func() {
			if r.MultipartForm != nil {
				_ = r.MultipartForm.RemoveAll()
			}
		}()
		file, header, err := r.FormFile(formFileField)
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) {
				return "", nil, errNoUpload
			}
			return "", nil, fmt.Errorf("open form file: %w", err)
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return "", nil, fmt.Errorf("read form file: %w", err)
		}
		return header.Filename, data, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return "", nil, fmt.Errorf("read body: %w", err)
	}
	if len(data) == 0 {
		return "", nil, errNoUpload
	}
	return strings.TrimSpace(r.URL.Query().Get("name")), data, nil
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || errors.Is(err, multipart.ErrMessageTooLarge)
}

// parseLimit reads a positive ?limit=; zero means the recorder default.
func parseLimit(r *http.Request) (int, bool) {
	v := strings.TrimSpace(r.URL.Query().Get("limit"))
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
