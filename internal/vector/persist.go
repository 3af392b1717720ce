package vector

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/hyperjump/kiku/internal/models"
	"github.com/hyperjump/kiku/internal/storage"
)

// Files inside a persisted index directory.
const (
	VectorsFile   = "vectors.bin"
	DocumentsFile = "documents.db"
)

// vectors.bin layout: magic, metric code, uint32 dimensions, uint32 count, then count*dimensions
// little-endian float32 values.
const indexDirMode = 0755

const (
	vectorsMagic      = "KIKUVEC1"
	vectorsHeaderSize = len(vectorsMagic) + 1 + 4 + 4
)

// Persist writes the index to dir. The files are written to a sibling temporary directory that is
// then renamed over dir, so readers never observe a half-written index. Replacing an existing
// index takes two renames; a Load that runs between them finds no directory and fails with
// models.ErrIndexIO. The installed directory is mode 0755.
func (idx *Index) Persist(ctx context.Context, dir string) (err error) {
	if idx == nil {
		return models.ErrIndexNotReady
	}
	dir = filepath.Clean(dir)
	parent, base := filepath.Dir(dir), filepath.Base(dir)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return ioErr("create index parent", err)
	}
	tmp, err := os.MkdirTemp(parent, "."+base+".tmp-")
	if err != nil {
		return ioErr("create staging dir", err)
	}
	defer func() {
		if err != nil {
			_ = os.RemoveAll(tmp)
		}
	}()

	if err := idx.writeVectors(filepath.Join(tmp, VectorsFile)); err != nil {
		return ioErr("write vectors", err)
	}
	if err := idx.writeDocuments(ctx, filepath.Join(tmp, DocumentsFile)); err != nil {
		return ioErr("write documents", err)
	}
	if err := os.Chmod(tmp, indexDirMode); err != nil {
		return ioErr("chmod staging dir", err)
	}
	if err := swapDir(tmp, dir); err != nil {
		return ioErr("install index", err)
	}
	return nil
}

func (idx *Index) writeVectors(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	header := make([]byte, 0, vectorsHeaderSize)
	header = append(header, vectorsMagic...)
	header = append(header, idx.metric.code())
	header = binary.LittleEndian.AppendUint32(header, uint32(idx.dimensions))
	header = binary.LittleEndian.AppendUint32(header, uint32(len(idx.records)))
	if _, err := w.Write(header); err != nil {
		return err
	}
	for _, rec := range idx.records {
		if err := binary.Write(w, binary.LittleEndian, rec.Vector); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	return f.Close()
}

func (idx *Index) writeDocuments(ctx context.Context, path string) error {
	store, err := storage.NewSQLiteStore(path)
	if err != nil {
		return err
	}
	docs := make([]models.Document, len(idx.records))
	for i, rec := range idx.records {
		docs[i] = rec.Document
	}
	if err := store.WriteDocuments(ctx, docs); err != nil {
		_ = store.Close()
		return err
	}
	meta := storage.Meta{
		Dimensions: idx.dimensions,
		Metric:     string(idx.metric),
		Count:      len(idx.records),
		BuildID:    idx.buildID,
		CreatedAt:  idx.createdAt,
	}
	if err := store.WriteMeta(ctx, meta); err != nil {
		_ = store.Close()
		return err
	}
	return store.Close()
}

// swapDir moves staged into place at target, replacing any existing directory.
func swapDir(staged, target string) error {
	old := ""
	if _, err := os.Stat(target); err == nil {
		old = filepath.Join(filepath.Dir(target), "."+filepath.Base(target)+".old-"+uuid.NewString())
		if err := os.Rename(target, old); err != nil {
			return err
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.Rename(staged, target); err != nil {
		if old != "" {
			_ = os.Rename(old, target)
		}
		return err
	}
	if old != "" {
		return os.RemoveAll(old)
	}
	return nil
}

// Load reads an index persisted by Persist. dimensions is the dimensionality of the embedder the
// caller will query with; a different stored dimensionality fails with models.ErrDimensionMismatch
// before any vector is read. Both files are validated against each other; nothing is deserialized
// beyond fixed-width floats and plain SQLite rows, but loading from an untrusted directory still
// exposes the process to a crafted SQLite file and should be avoided.
func Load(ctx context.Context, dir string, dimensions int) (*Index, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("declared dimensions %d: %w", dimensions, models.ErrConfiguration)
	}
	metric, count, vectors, err := readVectors(filepath.Join(dir, VectorsFile), dimensions)
	if err != nil {
		return nil, err
	}

	store, err := storage.OpenSQLiteStore(filepath.Join(dir, DocumentsFile))
	if err != nil {
		return nil, ioErr("open documents", err)
	}
	defer store.Close()

	meta, err := store.ReadMeta(ctx)
	if err != nil {
		return nil, ioErr("read meta", err)
	}
	if meta.Dimensions != dimensions {
		return nil, fmt.Errorf("documents meta has %d dimensions, expected %d: %w",
			meta.Dimensions, dimensions, models.ErrDimensionMismatch)
	}
	if Metric(meta.Metric) != metric {
		return nil, ioErr("validate meta", fmt.Errorf("metric %q disagrees with vectors file %q", meta.Metric, metric))
	}
	records, err := store.ReadDocuments(ctx)
	if err != nil {
		return nil, ioErr("read documents", err)
	}
	if meta.Count != count || len(records) != count {
		return nil, ioErr("validate documents", fmt.Errorf("record counts disagree: vectors %d, meta %d, documents %d",
			count, meta.Count, len(records)))
	}
	for i := range records {
		if records[i].ID != i {
			return nil, ioErr("validate documents", fmt.Errorf("record ids not contiguous at %d (found %d)", i, records[i].ID))
		}
		records[i].Vector = vectors[i*dimensions : (i+1)*dimensions : (i+1)*dimensions]
	}

	return &Index{
		dimensions: dimensions,
		metric:     metric,
		records:    records,
		buildID:    meta.BuildID,
		createdAt:  meta.CreatedAt,
	}, nil
}

func readVectors(path string, dimensions int) (Metric, int, []float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, nil, ioErr("open vectors", err)
	}
	defer f.Close()

	header := make([]byte, vectorsHeaderSize)
	if _, err := io.ReadFull(f, header); err != nil {
		return "", 0, nil, ioErr("read vectors header", err)
	}
	if string(header[:len(vectorsMagic)]) != vectorsMagic {
		return "", 0, nil, ioErr("read vectors header", errors.New("bad magic"))
	}
	rest := header[len(vectorsMagic):]
	metric, ok := metricFromCode(rest[0])
	if !ok {
		return "", 0, nil, ioErr("read vectors header", fmt.Errorf("unknown metric code %d", rest[0]))
	}
	storedDims := int(binary.LittleEndian.Uint32(rest[1:5]))
	if storedDims != dimensions {
		return "", 0, nil, fmt.Errorf("index has %d dimensions, embedder has %d: %w",
			storedDims, dimensions, models.ErrDimensionMismatch)
	}
	count := int(binary.LittleEndian.Uint32(rest[5:9]))

	info, err := f.Stat()
	if err != nil {
		return "", 0, nil, ioErr("stat vectors", err)
	}
	want := int64(vectorsHeaderSize) + int64(count)*int64(dimensions)*4
	if info.Size() != want {
		return "", 0, nil, ioErr("read vectors", fmt.Errorf("file is %d bytes, header implies %d", info.Size(), want))
	}

	vectors := make([]float32, count*dimensions)
	if err := binary.Read(bufio.NewReader(f), binary.LittleEndian, vectors); err != nil {
		return "", 0, nil, ioErr("read vectors", err)
	}
	return metric, count, vectors, nil
}

func ioErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, models.ErrIndexIO, err)
}
