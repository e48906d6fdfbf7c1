package graph

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	ignore "github.com/sabhiram/go-gitignore"
	"go.uber.org/zap"

	"github.com/wippyai/nashorn-compat/errors"
)

// Reference is a located module: its editable descriptor, where it came
// from, and its packaged code.
type Reference struct {
	Builder  *DescriptorBuilder
	Location string
	Code     []byte
}

// Name returns the module name.
func (r *Reference) Name() string { return r.Builder.Name() }

// Finder locates modules. Find returns nil without error when no module of
// that name is known. A finder returns the same Reference on every call, so
// edits made to its builder are seen by later lookups.
type Finder interface {
	Find(name string) (*Reference, error)
	FindAll() ([]*Reference, error)
}

type refFinder struct {
	refs  map[string]*Reference
	order []*Reference
}

func newRefFinder(refs []*Reference) *refFinder {
	f := &refFinder{refs: make(map[string]*Reference, len(refs))}
	for _, r := range refs {
		if _, dup := f.refs[r.Name()]; dup {
			Logger().Debug("shadowed module", zap.String("module", r.Name()), zap.String("location", r.Location))
			continue
		}
		f.refs[r.Name()] = r
		f.order = append(f.order, r)
	}
	return f
}

func (f *refFinder) Find(name string) (*Reference, error) {
	return f.refs[name], nil
}

func (f *refFinder) FindAll() ([]*Reference, error) {
	return append([]*Reference(nil), f.order...), nil
}

// OfReferences returns a finder over already located modules. When two
// references share a name the first wins.
func OfReferences(refs ...*Reference) Finder {
	return newRefFinder(refs)
}

// Empty returns a finder that finds nothing.
func Empty() Finder {
	return newRefFinder(nil)
}

type pathFinder struct {
	load  func() ([]string, error)
	found *refFinder
	err   error
	once  sync.Once
}

func (f *pathFinder) init() {
	f.once.Do(func() {
		paths, err := f.load()
		if err != nil {
			f.err = err
			return
		}
		refs := make([]*Reference, 0, len(paths))
		for _, p := range paths {
			ref, err := readReference(p)
			if err != nil {
				f.err = err
				return
			}
			refs = append(refs, ref)
		}
		f.found = newRefFinder(refs)
	})
}

func (f *pathFinder) Find(name string) (*Reference, error) {
	f.init()
	if f.err != nil {
		return nil, f.err
	}
	return f.found.Find(name)
}

func (f *pathFinder) FindAll() ([]*Reference, error) {
	f.init()
	if f.err != nil {
		return nil, f.err
	}
	return f.found.FindAll()
}

// OfPaths returns a finder over packaged components. Each path is either a
// component file or a directory whose *.wasm entries are components.
// Files are read on first use.
func OfPaths(paths ...string) Finder {
	return &pathFinder{load: func() ([]string, error) {
		var files []string
		for _, p := range paths {
			info, err := os.Stat(p)
			if err != nil {
				return nil, errors.Wrap(errors.PhaseDiscover, errors.KindNotFound, err, "stat "+p)
			}
			if !info.IsDir() {
				files = append(files, p)
				continue
			}
			entries, err := os.ReadDir(p)
			if err != nil {
				return nil, errors.Wrap(errors.PhaseDiscover, errors.KindInvalidInput, err, "read dir "+p)
			}
			for _, e := range entries {
				if !e.IsDir() && strings.HasSuffix(e.Name(), ".wasm") {
					files = append(files, filepath.Join(p, e.Name()))
				}
			}
		}
		return files, nil
	}}
}

// ScanDirs returns a finder over every file below dirs whose path, relative
// to its directory, matches the gitignore-style pattern. Missing directories
// are skipped.
func ScanDirs(dirs []string, pattern string) Finder {
	matcher := ignore.CompileIgnoreLines(pattern)
	return &pathFinder{load: func() ([]string, error) {
		var files []string
		for _, dir := range dirs {
			if _, err := os.Stat(dir); err != nil {
				Logger().Debug("skipping search dir", zap.String("dir", dir), zap.Error(err))
				continue
			}
			var matched []string
			err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if d.IsDir() {
					return nil
				}
				rel, err := filepath.Rel(dir, path)
				if err != nil {
					return err
				}
				if matcher.MatchesPath(filepath.ToSlash(rel)) {
					matched = append(matched, path)
				}
				return nil
			})
			if err != nil {
				return nil, errors.Wrap(errors.PhaseDiscover, errors.KindInvalidInput, err, "scan "+dir)
			}
			sort.Strings(matched)
			files = append(files, matched...)
		}
		Logger().Debug("scanned search path", zap.Strings("dirs", dirs), zap.String("pattern", pattern), zap.Int("matches", len(files)))
		return files, nil
	}}
}

type composite struct {
	finders []Finder
}

// Compose returns a finder that consults finders in order.
func Compose(finders ...Finder) Finder {
	return &composite{finders: finders}
}

func (c *composite) Find(name string) (*Reference, error) {
	for _, f := range c.finders {
		ref, err := f.Find(name)
		if err != nil {
			return nil, err
		}
		if ref != nil {
			return ref, nil
		}
	}
	return nil, nil
}

func (c *composite) FindAll() ([]*Reference, error) {
	var all []*Reference
	for _, f := range c.finders {
		refs, err := f.FindAll()
		if err != nil {
			return nil, err
		}
		all = append(all, refs...)
	}
	return newRefFinder(all).order, nil
}

func readReference(path string) (*Reference, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDiscover, errors.KindNotFound, err, "read "+path)
	}
	b, err := ReadDescriptor(code)
	if err != nil {
		return nil, errors.New(errors.PhaseDescriptor, errors.KindInvalidData).
			Path(path).
			Cause(err).
			Detail("read module descriptor").
			Build()
	}
	return &Reference{Builder: b, Location: path, Code: code}, nil
}
