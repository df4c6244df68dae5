package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type upload struct {
	filename string
	data     []byte
}

// formFile reads the first file part named field. A part only counts as a file
// when it carries a filename parameter or its own Content-Type; plain text
// fields with the same name are skipped.
func formFile(c *gin.Context, field string, limit int64) (*upload, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	reader, err := c.Request.MultipartReader()
	if err != nil {
		return nil, ErrMissingFile
	}

	emptyFilename := false
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if isTooLarge(err) {
				return nil, ErrUploadTooLarge
			}
			return nil, ErrMissingFile
		}
		if part.FormName() != field || !isFilePart(part) {
			continue
		}
		if part.FileName() == "" {
			emptyFilename = true
			continue
		}

		data, err := io.ReadAll(part)
		if err != nil {
			if isTooLarge(err) {
				return nil, ErrUploadTooLarge
			}
			return nil, fmt.Errorf("failed to read upload: %w", err)
		}
		return &upload{filename: part.FileName(), data: data}, nil
	}

	if emptyFilename {
		return nil, ErrEmptyFilename
	}
	return nil, ErrMissingFile
}

func isFilePart(part *multipart.Part) bool {
	if part.Header.Get("Content-Type") != "" {
		return true
	}
	_, params, err := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
	if err != nil {
		return false
	}
	_, ok := params["filename"]
	return ok
}

func isTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge)
}

// parseClassID accepts only non-negative decimal integers, so other segments
// fall through as not found. ok is false when the segment does not match at all; a
// syntactically valid id that overflows maps to -1 so it is reported as unknown.
func parseClassID(raw string) (id int, ok bool) {
	if raw == "" {
		return 0, false
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return -1, true
	}
	return id, true
}
