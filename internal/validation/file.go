package validation

import (
	"bufio"
	"errors"
	"io"
	"mime"
	"net/http"
)

// sniffLen is how much http.DetectContentType looks at.
const sniffLen = 512

// ContentType picks the content type to record for an upload.
// A well-formed declared type wins; otherwise the first bytes are sniffed
// for magic numbers. The returned reader yields the full stream, including
// the sniffed bytes, without buffering more than sniffLen of it.
func ContentType(declared string, content io.Reader) (string, io.Reader, error) {
	br := bufio.NewReaderSize(content, sniffLen)

	mediaType, params, err := mime.ParseMediaType(declared)
	if declared != "" && err == nil && mediaType != "application/octet-stream" {
		return mime.FormatMediaType(mediaType, params), br, nil
	}

	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return "", nil, err
	}

	return http.DetectContentType(head), br, nil
}
