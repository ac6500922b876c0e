package pkg

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/gorilla/schema"
)

const MaxRequestBodyBytes = 1 << 20

var formDecoder = newFormDecoder()

func newFormDecoder() *schema.Decoder {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	return decoder
}

// DecodeRequest fills dst from a JSON body, or from the posted form values
// when the request is not JSON. Form fields are matched by `schema` tags; a
// *map[string]any dst receives every posted field as a string.
func DecodeRequest(r *http.Request, dst any) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == ContentType.JSON {
		decoder := json.NewDecoder(io.LimitReader(r.Body, MaxRequestBodyBytes))
		if err := decoder.Decode(dst); err != nil {
			if errors.Is(err, io.EOF) {
				return errors.New("empty request body")
			}
			return fmt.Errorf("decode json body: %w", err)
		}
		return nil
	}

	r.Body = http.MaxBytesReader(nil, r.Body, MaxRequestBodyBytes)
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("parse form: %w", err)
	}

	if fields, ok := dst.(*map[string]any); ok {
		*fields = make(map[string]any, len(r.PostForm))
		for key := range r.PostForm {
			(*fields)[key] = r.PostForm.Get(key)
		}
		return nil
	}

	if err := formDecoder.Decode(dst, r.PostForm); err != nil {
		return fmt.Errorf("decode form: %w", err)
	}
	return nil
}
