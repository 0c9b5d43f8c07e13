package main

import (
	"fmt"
	"io"

	"github.com/bytedance/sonic"
)

// writeJSON prints one JSON document per call so streamed results stay line-delimited
func writeJSON(w io.Writer, value any, pretty bool) error {
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = sonic.MarshalIndent(value, "", "  ")
	} else {
		data, err = sonic.Marshal(value)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
