package validate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
)

// ErrBadBody is returned when the request body cannot be parsed.
var ErrBadBody = errors.New("validate: invalid request body")

// maxBodyBytes bounds the body read for parameter extraction.
const maxBodyBytes = 1 << 20

// FromRequest merges query parameters with body parameters. JSON,
// urlencoded and multipart form bodies are understood; body values override query values.
func FromRequest(r *http.Request) (Input, error) {
	in := Input{}
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			in[k] = v[0]
		}
	}
	if r.Body == nil || r.Body == http.NoBody {
		return in, nil
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadBody, err)
		}
		for k, v := range r.PostForm {
			if len(v) > 0 {
				in[k] = v[0]
			}
		}
		return in, nil
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadBody, err)
		}
		for k, v := range r.MultipartForm.Value {
			if len(v) > 0 {
				in[k] = v[0]
			}
		}
		return in, nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadBody, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return in, nil
	}
	if err := mergeJSON(in, body); err != nil {
		return nil, err
	}
	return in, nil
}

func mergeJSON(in Input, body []byte) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return fmt.Errorf("%w: %v", ErrBadBody, err)
	}
	for k, v := range fields {
		switch val := v.(type) {
		case nil:
			// null counts as absent
		case string:
			in[k] = val
		case json.Number:
			in[k] = val.String()
		case bool:
			in[k] = strconv.FormatBool(val)
		default:
			// Objects and arrays never satisfy a scalar rule.
			raw, _ := json.Marshal(val)
			in[k] = string(raw)
		}
	}
	return nil
}
