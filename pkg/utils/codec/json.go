package codec

import (
	"io"
	"time"

	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/oj"
)

var writeOptions = func() ojg.Options {
	opts := ojg.DefaultOptions
	opts.UseTags = true
	opts.KeyExact = true
	opts.OmitNil = true
	opts.TimeFormat = time.RFC3339Nano
	return opts
}()

// Marshal encodes v as JSON honoring the json struct tags.
func Marshal(v any) ([]byte, error) {
	opts := writeOptions
	return oj.Marshal(v, &opts)
}

// Unmarshal decodes JSON data into the value pointed to by v.
func Unmarshal(data []byte, v any) error {
	return oj.Unmarshal(data, v)
}

func Decode(r io.Reader, v any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return Unmarshal(data, v)
}
