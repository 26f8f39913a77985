package shared

import (
	"errors"
	"io"
	"net/http"

	"hrleave/internal/domain/errs"
)

// UploadField is the multipart field every upload endpoint reads.
const UploadField = "file"

// ReadUpload returns the bytes of the multipart file field, refusing more
// than maxBytes.
func ReadUpload(r *http.Request, maxBytes int64) ([]byte, error) {
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errs.Validation("file exceeds %d bytes", maxBytes)
		}
		return nil, errs.Validation("invalid multipart payload")
	}
	file, _, err := r.FormFile(UploadField)
	if err != nil {
		return nil, errs.Validation("multipart field %q is required", UploadField)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, errs.Validation("unable to read upload")
	}
	if int64(len(data)) > maxBytes {
		return nil, errs.Validation("file exceeds %d bytes", maxBytes)
	}
	return data, nil
}
