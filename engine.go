package hydrogen

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hydrogen-tpl/hydrogen/bytecode"
	"github.com/hydrogen-tpl/hydrogen/data"
	"github.com/hydrogen-tpl/hydrogen/errortypes"
	"github.com/hydrogen-tpl/hydrogen/filters"
	"github.com/hydrogen-tpl/hydrogen/i18n"
	"github.com/hydrogen-tpl/hydrogen/parse"
	"github.com/hydrogen-tpl/hydrogen/tags"
)

// Logger is used to print notifications when using the "WatchFiles" feature.
var Logger = log.New(os.Stderr, "[hydrogen] ", 0)

// Engine compiles templates from a loader, caches the programs, and renders
// them.  Its setup methods return the engine so that they chain; the first
// error they meet is reported by Compile.  Compile and Render may be called
// from many goroutines once setup is done.
type Engine struct {
	loader   Loader
	config   Config
	filters  filters.Registry
	tags     parse.Tags
	globals  data.Map
	catalogs *i18n.Catalogs
	err      error
	watcher  *fsnotify.Watcher

	mu    sync.RWMutex
	cache map[string]*entry
	paths map[string]string // watched file => template name
}

// entry is a compiled program and the versions of the templates it was
// compiled from.
type entry struct {
	prog     *bytecode.Program
	versions map[string]string
}

// NewEngine returns an engine with the default configuration, the builtin
// filters and the builtin tags.
func NewEngine(loader Loader) *Engine {
	return &Engine{
		loader:  loader,
		config:  DefaultConfig(),
		filters: filters.Default(),
		tags:    tags.Builtins(),
		globals: make(data.Map),
		cache:   make(map[string]*entry),
		paths:   make(map[string]string),
	}
}

// WithConfig applies a configuration, loading its globals and message
// catalogs.
func (e *Engine) WithConfig(cfg Config) *Engine {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = bytecode.DefaultMaxDepth
	}
	e.config = cfg
	if len(cfg.Globals) > 0 {
		globals, ok := data.New(cfg.Globals).(data.Map)
		if !ok {
			e.fail(fmt.Errorf("config globals: expected a map"))
			return e
		}
		e.AddGlobalsMap(globals)
	}
	if cfg.MessagesDir != "" {
		e.AddMessagesDir(cfg.MessagesDir)
	}
	return e
}

// Config returns the configuration in use.
func (e *Engine) Config() Config {
	return e.config
}

func (e *Engine) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

// AddFilters registers custom filters, replacing builtins of the same name.
func (e *Engine) AddFilters(more filters.Registry) *Engine {
	e.filters = e.filters.With(more)
	return e
}

// AddTags registers custom tags, replacing builtins of the same name.
func (e *Engine) AddTags(more parse.Tags) *Engine {
	e.tags = e.tags.With(more)
	return e
}

// AddGlobalsFile opens and parses the given filename for globals, and adds
// the resulting data map to the engine.
func (e *Engine) AddGlobalsFile(filename string) *Engine {
	var f, err = os.Open(filename)
	if err != nil {
		e.fail(err)
		return e
	}
	defer f.Close()
	globals, err := ParseGlobals(f)
	if err != nil {
		e.fail(fmt.Errorf("%s: %w", filename, err))
		return e
	}
	return e.AddGlobalsMap(globals)
}

// AddGlobalsMap adds values available to every template.
func (e *Engine) AddGlobalsMap(globals data.Map) *Engine {
	for k, v := range globals {
		if existing, ok := e.globals[k]; ok {
			e.fail(fmt.Errorf("global %q already defined as %q", k, existing))
			return e
		}
		e.globals[k] = v
	}
	return e
}

// AddMessagesDir loads the message catalogs used by the trans filter.
func (e *Engine) AddMessagesDir(dirname string) *Engine {
	catalogs, err := i18n.Dir(dirname)
	if err != nil {
		e.fail(err)
		return e
	}
	e.catalogs = catalogs
	return e
}

// WatchFiles tells the engine to watch the template files it compiles and to
// drop the cached programs built from them when they change.  It only has an
// effect for loaders that implement Locator, such as DirLoader.
func (e *Engine) WatchFiles(watch bool) *Engine {
	if !watch || e.watcher != nil {
		return e
	}
	if _, ok := e.loader.(Locator); !ok {
		return e
	}
	var err error
	if e.watcher, err = fsnotify.NewWatcher(); err != nil {
		e.fail(err)
		return e
	}
	go e.watch(e.watcher)
	return e
}

// Close stops watching files.
func (e *Engine) Close() error {
	if e.watcher == nil {
		return nil
	}
	return e.watcher.Close()
}

// Compile returns the program for the named template, compiling it unless an
// up to date program is cached.  Failed compiles are not cached.
func (e *Engine) Compile(name string) (*bytecode.Program, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.mu.RLock()
	var cached, ok = e.cache[name]
	e.mu.RUnlock()
	if ok && e.fresh(cached) {
		return cached.prog, nil
	}

	var c = &compiler{engine: e, loader: newRecorder(e.loader)}
	prog, err := c.compile(name)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.cache[name] = &entry{prog, c.loader.versions}
	e.mu.Unlock()
	e.watchTemplates(c.loader.versions)
	return prog, nil
}

// Include compiles a template included by a variable at render time.
func (e *Engine) Include(name string) (*bytecode.Program, error) {
	return e.Compile(name)
}

// fresh reports whether the templates a program was compiled from are
// unchanged.
func (e *Engine) fresh(ent *entry) bool {
	var v, ok = e.loader.(Versioner)
	if !ok {
		return true
	}
	for name, version := range ent.versions {
		if current, err := v.Version(name); err != nil || current != version {
			return false
		}
	}
	return true
}

// Purge drops the cached programs built from any of the named templates.
func (e *Engine) Purge(names ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for key, ent := range e.cache {
		for _, name := range names {
			if _, ok := ent.versions[name]; ok {
				delete(e.cache, key)
				break
			}
		}
	}
}

// Render compiles the named template if needed and executes it.
func (e *Engine) Render(wr io.Writer, name string, ctx data.Map) error {
	prog, err := e.Compile(name)
	if err != nil {
		return err
	}
	return e.Execute(wr, prog, ctx)
}

// RenderString renders the named template to a string.
func (e *Engine) RenderString(name string, ctx data.Map) (string, error) {
	var buf bytes.Buffer
	err := e.Render(&buf, name, ctx)
	return buf.String(), err
}

// Execute runs a compiled program against ctx, with the engine's globals
// beneath it.  Output is buffered so that nothing is written if the render
// fails.
func (e *Engine) Execute(wr io.Writer, prog *bytecode.Program, ctx data.Map) error {
	var merged = make(data.Map, len(e.globals)+len(ctx))
	for k, v := range e.globals {
		merged[k] = v
	}
	for k, v := range ctx {
		merged[k] = v
	}
	var buf bytes.Buffer
	if err := prog.Execute(&buf, merged, e.env()); err != nil {
		return err
	}
	_, err := buf.WriteTo(wr)
	return err
}

func (e *Engine) env() *bytecode.Env {
	return &bytecode.Env{
		Filters:      e.filters,
		FilterEnv:    filters.Env{Catalog: e.catalogs.Catalog(e.config.Locale)},
		PrintMissing: e.config.PrintMissing,
		Includer:     e,
		MaxDepth:     e.config.MaxDepth,
		BaseURL:      e.config.BaseURL,
	}
}

func (e *Engine) options() parse.Options {
	return parse.Options{
		Autoescape:   e.config.Autoescape,
		AllowRawCode: e.config.AllowRawCode,
		MaxDepth:     e.config.MaxDepth,
		Filters:      e.filters,
		Tags:         e.tags,
	}
}

// watchTemplates adds the files of newly compiled templates to the watcher.
func (e *Engine) watchTemplates(versions map[string]string) {
	if e.watcher == nil {
		return
	}
	var locator = e.loader.(Locator)
	e.mu.Lock()
	defer e.mu.Unlock()
	for name := range versions {
		var path = locator.Path(name)
		if _, ok := e.paths[path]; ok {
			continue
		}
		if err := e.watcher.Add(path); err != nil {
			Logger.Println(err)
			continue
		}
		e.paths[path] = name
	}
}

func (e *Engine) watch(watcher *fsnotify.Watcher) {
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			// If it's a rename, then fsnotify has removed the watch.
			// Add it back, after a delay.
			if ev.Op&(fsnotify.Rename|fsnotify.Remove) != 0 {
				time.Sleep(10 * time.Millisecond)
				if err := watcher.Add(ev.Name); err != nil {
					Logger.Println(err)
				}
			}
			e.mu.RLock()
			var name, known = e.paths[ev.Name]
			e.mu.RUnlock()
			if !known {
				continue
			}
			e.Purge(name)
			Logger.Printf("purged programs using %s (%v)", name, ev)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			Logger.Println(err)
		}
	}
}

// compiler compiles one template along with the templates it includes by
// name.
type compiler struct {
	engine *Engine
	loader *recorder
	depth  int
}

func (c *compiler) compile(name string) (*bytecode.Program, error) {
	c.depth++
	defer func() { c.depth-- }()
	if c.depth > c.engine.config.MaxDepth {
		return nil, errortypes.Errorf(errortypes.Recursion, errortypes.Pos{Origin: name},
			"including %s: nesting exceeds %d levels", name, c.engine.config.MaxDepth)
	}

	p, err := parse.New(name, c.loader, c.engine.options())
	if err != nil {
		return nil, err
	}
	list, err := p.Parse()
	if err != nil {
		return nil, err
	}
	var emitter = bytecode.NewEmitter(name)
	emitter.Includer = c
	if err := list.Render(emitter); err != nil {
		return nil, err
	}
	return emitter.Output()
}

// Include compiles a template included by name.
func (c *compiler) Include(name string) (*bytecode.Program, error) {
	return c.compile(name)
}

// Compile compiles the named template with the default configuration.
func Compile(name string, loader Loader) (*bytecode.Program, error) {
	return NewEngine(loader).Compile(name)
}

// Render executes a program against ctx with the default configuration.
func Render(prog *bytecode.Program, ctx data.Map) (string, error) {
	var buf bytes.Buffer
	var cfg = DefaultConfig()
	err := prog.Execute(&buf, ctx, &bytecode.Env{
		PrintMissing: cfg.PrintMissing,
		MaxDepth:     cfg.MaxDepth,
	})
	return buf.String(), err
}
