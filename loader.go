package hydrogen

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"
)

// ErrNoSuchView is returned by loaders asked for a template they do not have.
var ErrNoSuchView = errors.New("no such view")

// Loader provides template sources by name.
type Loader interface {
	Load(name string) (string, error)
}

// Versioner is implemented by loaders whose templates change over time.  A
// cached program is recompiled when the version of any template it was built
// from changes.
type Versioner interface {
	Version(name string) (string, error)
}

// Locator is implemented by loaders that read templates from files.  It lets
// the engine watch them.
type Locator interface {
	Path(name string) string
}

// MapLoader serves templates from memory.
type MapLoader map[string]string

func (m MapLoader) Load(name string) (string, error) {
	src, ok := m[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoSuchView, name)
	}
	return src, nil
}

// DirLoader serves the templates found below a directory.  The template
// "account/overview" is read from Root/account/overview<Suffix>.
type DirLoader struct {
	Root   string
	Suffix string
}

// Path returns the file holding the named template.  Names cannot refer to
// files outside of Root.
func (d DirLoader) Path(name string) string {
	return filepath.Join(d.Root, filepath.FromSlash(path.Clean("/"+name))) + d.Suffix
}

func (d DirLoader) Load(name string) (string, error) {
	content, err := os.ReadFile(d.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrNoSuchView, name)
	}
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// Version returns the modification time and size of the template file.
func (d DirLoader) Version(name string) (string, error) {
	info, err := os.Stat(d.Path(name))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(info.ModTime().UnixNano(), 10) + "/" + strconv.FormatInt(info.Size(), 10), nil
}

// recorder notes the version of every template loaded through it.
type recorder struct {
	Loader
	versions map[string]string
}

func newRecorder(loader Loader) *recorder {
	return &recorder{loader, make(map[string]string)}
}

func (r *recorder) Load(name string) (string, error) {
	src, err := r.Loader.Load(name)
	if err != nil {
		return "", err
	}
	var version string
	if v, ok := r.Loader.(Versioner); ok {
		version, _ = v.Version(name)
	}
	r.versions[name] = version
	return src, nil
}
