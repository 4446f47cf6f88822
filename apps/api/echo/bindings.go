package echoapi

import (
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/earnyourwings/wings/core"
)

var (
	fileParam = "file"
	topParam  = "top"
)

// bindFile reads the uploaded multipart file, rejecting files larger than maxSize bytes.
func bindFile(ctx echo.Context, maxSize int64) (*core.FileHandle, error) {
	fh, err := ctx.FormFile(fileParam)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, core.NewValidationError(nil, core.FieldError{Field: fileParam, Error: errFileRequired})
		}
		return nil, errors.Wrap(err, "reading multipart form")
	}
	if maxSize > 0 && fh.Size > maxSize {
		return nil, core.NewValidationError(nil, core.FieldError{Field: fileParam, Error: errFileTooLarge})
	}

	src, err := fh.Open()
	if err != nil {
		return nil, errors.Wrap(err, "opening uploaded file")
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		return nil, errors.Wrap(err, "reading uploaded file")
	}
	return core.NewFileHandle(fh.Filename, fh.Header.Get(echo.HeaderContentType), content), nil
}

// bindTop reads the `top` query param, falling back to def when absent.
func bindTop(ctx echo.Context, def int) (int, error) {
	val := ctx.QueryParam(topParam)
	if val == "" {
		return def, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return 0, core.NewValidationError(nil, core.FieldError{Field: topParam, Error: errInvalidTopParam})
	}
	return n, nil
}
