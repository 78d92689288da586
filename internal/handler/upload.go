package handler

import (
	"io"

	"github.com/dafibh/proflow/proflow-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// uploadedFile is a multipart file read into memory
type uploadedFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// readUpload reads the multipart file field. With required unset a missing
// field yields nil and ok. ok is false once an error response has been written.
func readUpload(c echo.Context, field string, required bool) (file *uploadedFile, ok bool, err error) {
	header, formErr := c.FormFile(field)
	if formErr != nil {
		if !required {
			return nil, true, nil
		}
		return nil, false, NewValidationError(c, "No file provided", []ValidationError{
			{Field: field, Message: "File is required"},
		})
	}
	if header.Size > service.MaxFileSize {
		return nil, false, NewValidationError(c, "Validation failed", []ValidationError{
			{Field: field, Message: service.ErrFileTooLarge.Error()},
		})
	}

	src, openErr := header.Open()
	if openErr != nil {
		log.Error().Err(openErr).Msg("Failed to open uploaded file")
		return nil, false, NewInternalError(c, "Failed to process file")
	}
	defer src.Close()

	data, readErr := io.ReadAll(io.LimitReader(src, service.MaxFileSize+1))
	if readErr != nil {
		log.Error().Err(readErr).Msg("Failed to read uploaded file")
		return nil, false, NewInternalError(c, "Failed to read file")
	}

	return &uploadedFile{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, true, nil
}
