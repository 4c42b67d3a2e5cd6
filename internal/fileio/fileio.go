// Package fileio moves files in and out of arena pools.
package fileio

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/pavanmanishd/memarena"
	"github.com/pavanmanishd/memarena/internal/dynarray"
)

// MaxFilepath is the buffer AbsPath reserves for a resolved path.
const MaxFilepath = 260

var (
	// ErrEmptyFile is returned by ReadFile for zero-length files.
	ErrEmptyFile = errors.New("fileio: empty file")

	// ErrPathTooLong is returned by AbsPath when the resolved path does not
	// fit in MaxFilepath bytes.
	ErrPathTooLong = errors.New("fileio: path too long")
)

// ReadFile reads path into a fresh allocation from a and returns its Ref and
// the file size. With addNull a zero byte follows the contents, so the Ref
// is one byte longer than the size. On a read error the allocation is freed.
func ReadFile(path string, addNull bool, a *memarena.Allocator) (memarena.Ref, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return memarena.Ref{}, 0, errors.Wrap(err, "open")
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return memarena.Ref{}, 0, errors.Wrapf(err, "stat %s", path)
	}
	size := int(info.Size())
	if size == 0 {
		return memarena.Ref{}, 0, errors.Wrapf(ErrEmptyFile, "%s", path)
	}

	n := size
	if addNull {
		n++
	}
	r, err := memarena.Allocate[byte](a, n, false)
	if err != nil {
		return memarena.Ref{}, 0, errors.Wrapf(err, "read %s", path)
	}
	buf, err := a.Bytes(r)
	if err != nil {
		return memarena.Ref{}, 0, err
	}
	if _, err := io.ReadFull(f, buf[:size]); err != nil {
		a.Free(r)
		return memarena.Ref{}, 0, errors.Wrapf(err, "read %s", path)
	}
	if addNull {
		buf[size] = 0
	}
	return r, size, nil
}

// WriteFile writes data to path, replacing any previous contents.
func WriteFile(path string, data []byte) error {
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "write %s", path)
}

// AbsPath resolves path to an absolute path stored in a. The returned Ref is
// shrunk to the length of the path.
func AbsPath(path string, a *memarena.Allocator) (memarena.Ref, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return memarena.Ref{}, errors.Wrapf(err, "resolve %s", path)
	}
	if len(abs) > MaxFilepath {
		return memarena.Ref{}, errors.Wrapf(ErrPathTooLong, "%d bytes", len(abs))
	}
	r, buf, err := a.AllocBytes(MaxFilepath)
	if err != nil {
		return memarena.Ref{}, err
	}
	n := copy(buf, abs)
	return a.Shrink(r, n), nil
}

var includeDirective = []byte(`#include "`)

// ExpandIncludes returns a copy of the first size bytes of code with every
// #include "name" directive outside comments and literals replaced by the contents of
// root/name. The copy is attached to code, so freeing code frees both.
// Includes that cannot be read are logged and left in place. Included text
// is not expanded again.
func ExpandIncludes(root string, code memarena.Ref, size int, a *memarena.Allocator, log *zap.Logger) (memarena.Ref, int, error) {
	if log == nil {
		log = zap.NewNop()
	}
	out, err := dynarray.New[byte](a, size*2+8192)
	if err != nil {
		return memarena.Ref{}, 0, errors.Wrap(err, "expand includes")
	}
	if err := out.InsertGap(0, size); err != nil {
		return memarena.Ref{}, 0, errors.Wrap(err, "expand includes")
	}
	src, err := a.Bytes(code)
	if err != nil {
		return memarena.Ref{}, 0, err
	}
	dst, err := out.Items()
	if err != nil {
		return memarena.Ref{}, 0, err
	}
	copy(dst, src[:size])

	// delta tracks how far the output has drifted from the source offsets.
	delta := 0
	inLine, inBlock := false, false
	var quote byte // open literal delimiter, 0 outside literals
	escaped := false
	for i := 0; i < size; i++ {
		// Reading an include may grow the pool, so re-derive the view.
		src, err = a.Bytes(code)
		if err != nil {
			return memarena.Ref{}, 0, err
		}
		c := src[i]
		switch {
		case inLine:
			inLine = c != '\n'
			continue
		case inBlock:
			if c == '*' && i+1 < size && src[i+1] == '/' {
				inBlock = false
				i++
			}
			continue
		case quote != 0:
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote || c == '\n':
				quote = 0
			}
			continue
		case c == '"' || c == '\'':
			quote = c
			continue
		case c == '/' && i+1 < size && src[i+1] == '/':
			inLine = true
			i++
			continue
		case c == '/' && i+1 < size && src[i+1] == '*':
			inBlock = true
			i++
			continue
		case c != '#' || !bytes.HasPrefix(src[i:size], includeDirective):
			continue
		}

		nameStart := i + len(includeDirective)
		nameLen := bytes.IndexByte(src[nameStart:size], '"')
		if nameLen <= 0 {
			continue
		}
		name := string(src[nameStart : nameStart+nameLen])
		directiveLen := len(includeDirective) + nameLen + 1

		inc, incSize, err := ReadFile(filepath.Join(root, name), false, a)
		if err != nil {
			log.Warn("include not expanded", zap.String("name", name), zap.Error(err))
			i += directiveLen - 1
			continue
		}
		if err := splice(out, i+delta, directiveLen, a, inc, incSize); err != nil {
			return memarena.Ref{}, 0, errors.Wrapf(err, "expand %q", name)
		}
		a.Free(inc)
		delta += incSize - directiveLen
		i += directiveLen - 1
		log.Debug("include expanded", zap.String("name", name), zap.Int("bytes", incSize))
	}

	expanded := a.Shrink(out.Ref(), out.Len())
	a.Attach(expanded, code)
	return expanded, out.Len(), nil
}

// splice replaces n bytes at pos in out with the first size bytes of inc.
func splice(out *dynarray.Array[byte], pos, n int, a *memarena.Allocator, inc memarena.Ref, size int) error {
	switch {
	case size > n:
		if err := out.InsertGap(pos+n, size-n); err != nil {
			return err
		}
	case size < n:
		if err := out.Remove(pos+size, n-size); err != nil {
			return err
		}
	}
	// Fetched after the gap is opened, which may have grown the pool.
	content, err := a.Bytes(inc)
	if err != nil {
		return err
	}
	return out.Paste(pos, content[:size])
}
