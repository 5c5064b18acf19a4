package main

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hydrogen-tpl/hydrogen"
	"github.com/hydrogen-tpl/hydrogen/data"
)

func TestHandler(t *testing.T) {
	var engine = hydrogen.NewEngine(hydrogen.MapLoader{
		"index": "{{ greeting }}, {{ name }}",
		"bad":   "{{ nosuch }}",
	})
	var h = handler(engine, data.Map{"greeting": data.String("Hi"), "name": data.String("base")})

	var rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest("GET", "/?name=web", nil))
	if rec.Code != 200 || rec.Body.String() != "Hi, web" {
		t.Errorf("got %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest("GET", "/bad", nil))
	if rec.Code != 500 {
		t.Errorf("expected an error, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestReadData(t *testing.T) {
	var dir = t.TempDir()
	var tests = []struct{ file, content string }{
		{"page.yaml", "title: Home\nitems: [1, 2]\n"},
		{"page.json", `{"title": "Home", "items": [1, 2]}`},
	}
	for _, test := range tests {
		var path = filepath.Join(dir, test.file)
		if err := os.WriteFile(path, []byte(test.content), 0o644); err != nil {
			t.Fatal(err)
		}
		m, err := readData(path)
		if err != nil {
			t.Errorf("%s: %v", test.file, err)
			continue
		}
		var expected = data.Map{"title": data.String("Home"), "items": data.List{data.Int(1), data.Int(2)}}
		if d := cmp.Diff(expected, m); d != "" {
			t.Errorf("%s: (-expected +got)\n%s", test.file, d)
		}
	}

	if m, err := readData(""); err != nil || len(m) != 0 {
		t.Errorf("no file: got %v, %v", m, err)
	}
}
