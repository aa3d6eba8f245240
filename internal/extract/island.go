package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dop251/goja"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// IslandID is the element id and global name the platform uses for its page data.
const IslandID = "SIGI_STATE"

const scriptEvalTimeout = 2 * time.Second

var errIslandNotFound = errors.New("data island not found")

// LocateIsland returns the JSON page data embedded in body. body may be the
// JSON document itself, an HTML page with a JSON <script id="SIGI_STATE">
// element, or an HTML page whose script assigns the data to window.SIGI_STATE.
func LocateIsland(body string) ([]byte, error) {
	trimmed := strings.TrimSpace(body)
	if strings.HasPrefix(trimmed, "{") {
		return []byte(trimmed), nil
	}

	var assignments []string
	z := html.NewTokenizer(strings.NewReader(body))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			for _, script := range assignments {
				if data, err := evalIslandAssignment(script); err == nil {
					return data, nil
				}
			}
			return nil, errIslandNotFound
		case html.StartTagToken:
			name, hasAttr := z.TagName()
			if atom.Lookup(name) != atom.Script {
				continue
			}
			id := ""
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				if string(key) == "id" {
					id = string(val)
				}
			}
			if z.Next() != html.TextToken {
				continue
			}
			text := string(z.Text())
			if id == IslandID {
				data := bytes.TrimSpace([]byte(text))
				if json.Valid(data) {
					return data, nil
				}
				continue
			}
			if strings.Contains(text, "window['"+IslandID+"']") ||
				strings.Contains(text, `window["`+IslandID+`"]`) ||
				strings.Contains(text, "window."+IslandID) {
				assignments = append(assignments, text)
			}
		}
	}
}

const islandPreludeJS = `
var window = {};
var self = window;
var document = {};
var navigator = {};
`

// evalIslandAssignment runs a page script in an empty sandbox and serializes
// whatever it assigned to window.SIGI_STATE.
func evalIslandAssignment(script string) ([]byte, error) {
	vm := goja.New()
	timer := time.AfterFunc(scriptEvalTimeout, func() {
		vm.Interrupt("data island evaluation timed out")
	})
	defer timer.Stop()

	if _, err := vm.RunString(islandPreludeJS); err != nil {
		return nil, err
	}
	if _, err := vm.RunString(script); err != nil {
		return nil, err
	}
	out, err := vm.RunString(`JSON.stringify(window["` + IslandID + `"])`)
	if err != nil {
		return nil, err
	}
	if out == nil || goja.IsUndefined(out) || goja.IsNull(out) {
		return nil, fmt.Errorf("%s not assigned", IslandID)
	}
	return []byte(out.String()), nil
}
