package index

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"brandstudio/internal/logging"
)

// Persistence uses two co-located artifacts: a binary vector file and a
// JSON ordered-document file. They are written and read together;
// loading one without the other is an error, because row i of the
// vector file must correspond to documents[i].

// vectorMagic identifies the vector file format.
const vectorMagic uint32 = 0x42535658 // "BSVX"

// Save writes the vector matrix to vectorPath and the document sequence
// to docsPath.
func (ix *Index) Save(vectorPath, docsPath string) error {
	timer := logging.StartTimer(logging.CategoryIndex, "Save")
	defer timer.Stop()

	vecs, docs := ix.snapshot()

	for _, p := range []string{vectorPath, docsPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return fmt.Errorf("create index directory: %w", err)
		}
	}

	if err := writeVectors(vectorPath, vecs); err != nil {
		return err
	}

	data, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("marshal documents: %w", err)
	}
	if err := os.WriteFile(docsPath, data, 0644); err != nil {
		return fmt.Errorf("write documents: %w", err)
	}

	logging.Index("saved index: %d vectors to %s, documents to %s", len(vecs), vectorPath, docsPath)
	return nil
}

// Load replaces the index contents from the two artifacts. A missing
// file yields ErrIndexNotFound; a row-count mismatch between the
// artifacts is a corruption error.
func (ix *Index) Load(vectorPath, docsPath string) error {
	timer := logging.StartTimer(logging.CategoryIndex, "Load")
	defer timer.Stop()

	vecs, err := readVectors(vectorPath)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(docsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrIndexNotFound, docsPath)
		}
		return fmt.Errorf("read documents: %w", err)
	}
	var docs []string
	if err := json.Unmarshal(data, &docs); err != nil {
		return fmt.Errorf("parse documents: %w", err)
	}

	if len(vecs) != len(docs) {
		return fmt.Errorf("index corrupt: %d vectors but %d documents", len(vecs), len(docs))
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.vectors = vecs
	ix.documents = docs

	logging.Index("loaded index: %d documents from %s", len(docs), vectorPath)
	return nil
}

func writeVectors(path string, vecs [][]float32) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create vector file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)

	dim := 0
	if len(vecs) > 0 {
		dim = len(vecs[0])
	}
	header := []uint32{vectorMagic, uint32(len(vecs)), uint32(dim)}
	for _, v := range header {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("write vector header: %w", err)
		}
	}

	for i, vec := range vecs {
		if len(vec) != dim {
			return fmt.Errorf("vector %d has dimension %d, expected %d", i, len(vec), dim)
		}
		if err := binary.Write(w, binary.LittleEndian, vec); err != nil {
			return fmt.Errorf("write vector %d: %w", i, err)
		}
	}

	return w.Flush()
}

func readVectors(path string) ([][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, path)
		}
		return nil, fmt.Errorf("open vector file: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)

	var magic, count, dim uint32
	for _, p := range []*uint32{&magic, &count, &dim} {
		if err := binary.Read(r, binary.LittleEndian, p); err != nil {
			return nil, fmt.Errorf("read vector header: %w", err)
		}
	}
	if magic != vectorMagic {
		return nil, fmt.Errorf("not a brandstudio vector file: %s", path)
	}

	// The header is untrusted input: check the declared payload against
	// the actual file size before allocating count*dim floats.
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat vector file: %w", err)
	}
	const headerBytes = 12
	payload := uint64(info.Size()) - headerBytes // size >= 12: the header was just read
	if declared := uint64(count) * uint64(dim) * 4; declared != payload {
		return nil, fmt.Errorf("vector file corrupt: header declares %d vectors of dim %d but %s holds %d payload bytes",
			count, dim, path, payload)
	}

	vecs := make([][]float32, count)
	for i := range vecs {
		vec := make([]float32, dim)
		if err := binary.Read(r, binary.LittleEndian, vec); err != nil {
			return nil, fmt.Errorf("read vector %d: %w", i, err)
		}
		vecs[i] = vec
	}
	return vecs, nil
}
