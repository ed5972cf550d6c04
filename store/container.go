package store

import (
	"strings"

	"github.com/scigolib/hdf5"

	"github.com/YuminosukeSato/foldfile/pkg/errors"
)

// container is the write side of the HDF5 file. Every hdf5 write call of the
// package goes through it.
type container struct {
	path string
	fw   *hdf5.FileWriter
}

func createContainer(path string) (*container, error) {
	fw, err := hdf5.CreateForWrite(path, hdf5.CreateTruncate)
	if err != nil {
		return nil, errors.NewIOError("create container", path, err)
	}
	return &container{path: path, fw: fw}, nil
}

func (c *container) group(name string) error {
	if _, err := c.fw.CreateGroup(name); err != nil {
		return errors.NewIOError("create group "+name, c.path, err)
	}
	return nil
}

func (c *container) writeFloat32(name string, dims []uint64, data []float32) error {
	ds, err := c.fw.CreateDataset(name, hdf5.Float32, dims)
	if err != nil {
		return errors.NewIOError("create dataset "+name, c.path, err)
	}
	if err := ds.Write(data); err != nil {
		return errors.NewIOError("write dataset "+name, c.path, err)
	}
	return nil
}

func (c *container) writeFloat64(name string, data []float64) error {
	ds, err := c.fw.CreateDataset(name, hdf5.Float64, []uint64{uint64(len(data))})
	if err != nil {
		return errors.NewIOError("create dataset "+name, c.path, err)
	}
	if err := ds.Write(data); err != nil {
		return errors.NewIOError("write dataset "+name, c.path, err)
	}
	return nil
}

func (c *container) writeInt64(name string, data []int64) error {
	ds, err := c.fw.CreateDataset(name, hdf5.Int64, []uint64{uint64(len(data))})
	if err != nil {
		return errors.NewIOError("create dataset "+name, c.path, err)
	}
	if err := ds.Write(data); err != nil {
		return errors.NewIOError("write dataset "+name, c.path, err)
	}
	return nil
}

// writeString stores doc as a single fixed-length, null-terminated string.
func (c *container) writeString(name, doc string) error {
	size := uint32(len(doc) + 1)
	ds, err := c.fw.CreateDataset(name, hdf5.String, []uint64{1}, hdf5.WithStringSize(size))
	if err != nil {
		return errors.NewIOError("create dataset "+name, c.path, err)
	}
	if err := ds.Write([]string{doc}); err != nil {
		return errors.NewIOError("write dataset "+name, c.path, err)
	}
	return nil
}

// close flushes the file. A panic inside the hdf5 writer is returned as a
// PanicError so the caller can still remove the temporary file.
func (c *container) close() error {
	err := errors.SafeExecute("hdf5 close "+c.path, c.fw.Close)
	if err != nil {
		return errors.NewIOError("close container", c.path, err)
	}
	return nil
}

// archive is the read side of the HDF5 file. The file is walked once on open
// to index its datasets; values are read only when asked for.
type archive struct {
	path     string
	f        *hdf5.File
	datasets map[string]*hdf5.Dataset
}

func openArchive(path string) (*archive, error) {
	f, err := hdf5.Open(path)
	if err != nil {
		return nil, errors.NewIOError("open container", path, err)
	}
	a := &archive{path: path, f: f, datasets: make(map[string]*hdf5.Dataset)}
	f.Walk(func(p string, obj hdf5.Object) {
		if ds, ok := obj.(*hdf5.Dataset); ok {
			a.datasets["/"+strings.Trim(p, "/")] = ds
		}
	})
	return a, nil
}

func (a *archive) has(name string) bool {
	_, ok := a.datasets[name]
	return ok
}

// children lists the dataset names directly under a group.
func (a *archive) children(group string) []string {
	prefix := group + "/"
	var out []string
	for p := range a.datasets {
		if rest, ok := strings.CutPrefix(p, prefix); ok && !strings.Contains(rest, "/") {
			out = append(out, rest)
		}
	}
	return out
}

func (a *archive) read(name string) ([]float64, error) {
	ds, ok := a.datasets[name]
	if !ok {
		return nil, errors.NewMissingFieldError("store.read", name, a.path)
	}
	data, err := ds.Read()
	if err != nil {
		return nil, errors.NewIOError("read dataset "+name, a.path, err)
	}
	return data, nil
}

func (a *archive) readString(name string) (string, error) {
	ds, ok := a.datasets[name]
	if !ok {
		return "", errors.NewMissingFieldError("store.read", name, a.path)
	}
	values, err := ds.ReadStrings()
	if err != nil {
		return "", errors.NewIOError("read dataset "+name, a.path, err)
	}
	if len(values) != 1 {
		return "", errors.NewDimensionError("store.read "+name, 1, len(values), 0)
	}
	return values[0], nil
}

func (a *archive) close() error {
	if err := errors.SafeExecute("hdf5 close "+a.path, a.f.Close); err != nil {
		return errors.NewIOError("close container", a.path, err)
	}
	return nil
}
