/*
Command hydrogen renders templates from a directory.

Invoke it like so:

	hydrogen -dir views -data page.yaml index
	hydrogen -dir views -listing index
	hydrogen -dir views -http :9812

The first form renders the named templates to stdout with the values of the
data file (YAML or JSON).  The second prints the compiled program instead.  The
third serves every template at /<name>, with parameters taken from the URL
query string in addition to the data file, and recompiles templates when their
files change.
*/
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/hydrogen-tpl/hydrogen"
	"github.com/hydrogen-tpl/hydrogen/data"
	"gopkg.in/yaml.v3"
)

var (
	dir      = flag.String("dir", ".", "directory holding the templates")
	suffix   = flag.String("suffix", ".html", "suffix of template files")
	config   = flag.String("config", "", "YAML configuration file")
	globals  = flag.String("globals", "", "globals file of name = value lines")
	dataFile = flag.String("data", "", "YAML or JSON file of template values")
	listing  = flag.Bool("listing", false, "print the compiled programs instead of rendering")
	addr     = flag.String("http", "", "serve templates on this address")
)

func main() {
	flag.Parse()
	log.SetFlags(0)

	var engine, err = newEngine()
	if err != nil {
		log.Fatal(err)
	}
	defer engine.Close()

	ctx, err := readData(*dataFile)
	if err != nil {
		log.Fatal(err)
	}

	if *addr != "" {
		fmt.Print("Listening on ", *addr, "...\n")
		log.Fatal(http.ListenAndServe(*addr, handler(engine, ctx)))
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	for _, name := range flag.Args() {
		if err := run(os.Stdout, engine, name, ctx); err != nil {
			log.Fatal(err)
		}
	}
}

func newEngine() (*hydrogen.Engine, error) {
	var cfg = hydrogen.DefaultConfig()
	if *config != "" {
		var err error
		if cfg, err = hydrogen.LoadConfig(*config); err != nil {
			return nil, err
		}
	}
	var engine = hydrogen.NewEngine(hydrogen.DirLoader{Root: *dir, Suffix: *suffix}).
		WithConfig(cfg).
		WatchFiles(*addr != "")
	if *globals != "" {
		engine.AddGlobalsFile(*globals)
	}
	return engine, nil
}

// readData decodes the data file.  YAML is a superset of JSON, so one decoder
// serves both.
func readData(filename string) (data.Map, error) {
	if filename == "" {
		return data.Map{}, nil
	}
	var f, err = os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var raw map[string]interface{}
	if err := yaml.NewDecoder(f).Decode(&raw); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	if raw == nil {
		return data.Map{}, nil
	}
	return data.New(raw).(data.Map), nil
}

func run(wr io.Writer, engine *hydrogen.Engine, name string, ctx data.Map) error {
	if *listing {
		var prog, err = engine.Compile(name)
		if err != nil {
			return err
		}
		_, err = io.WriteString(wr, prog.String())
		return err
	}
	return engine.Render(wr, name, ctx)
}

func handler(engine *hydrogen.Engine, base data.Map) http.HandlerFunc {
	return func(res http.ResponseWriter, req *http.Request) {
		var name = strings.Trim(req.URL.Path, "/")
		if name == "" {
			name = "index"
		}

		var m = make(data.Map, len(base))
		for k, v := range base {
			m[k] = v
		}
		for k, v := range req.URL.Query() {
			m[k] = data.String(v[0])
		}

		var buf bytes.Buffer
		if err := run(&buf, engine, name, m); err != nil {
			http.Error(res, err.Error(), 500)
			return
		}
		if *listing {
			res.Header().Set("Content-Type", "text/plain; charset=utf-8")
		}
		io.Copy(res, &buf)
	}
}
