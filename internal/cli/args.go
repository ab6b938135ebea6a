package cli

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// buildArgs assembles key.path=value pairs into one JSON document. Values that are
// valid JSON are inserted as-is, anything else becomes a string.
func buildArgs(pairs []string) (string, error) {
	doc := "{}"
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return "", errors.Errorf("invalid argument %q, expected key.path=value", p)
		}
		var err error
		if gjson.Valid(value) {
			doc, err = sjson.SetRaw(doc, key, value)
		} else {
			doc, err = sjson.Set(doc, key, value)
		}
		if err != nil {
			return "", errors.Wrapf(err, "invalid argument %q", p)
		}
	}
	return doc, nil
}

// queryResult selects part of a JSON document with a gjson path
func queryResult(doc []byte, path string) (gjson.Result, error) {
	if path == "" {
		return gjson.ParseBytes(doc), nil
	}
	res := gjson.GetBytes(doc, path)
	if !res.Exists() {
		return res, errors.Errorf("query %q matched nothing", path)
	}
	return res, nil
}
