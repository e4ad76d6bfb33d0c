package qlearning

import (
	"bytes"
	"encoding/gob"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// DefaultCheckpoint is the checkpoint name used by the trainer and the
// learned play mode.
const DefaultCheckpoint = "model.gob"

var (
	// ErrCheckpointNotFound means no checkpoint exists under the name.
	ErrCheckpointNotFound = errors.New("qlearning: checkpoint not found")
	// ErrCheckpointCorrupt means the checkpoint could not be decoded or does
	// not describe a valid network.
	ErrCheckpointCorrupt = errors.New("qlearning: checkpoint corrupt")
)

// Store persists opaque checkpoint blobs by name.
type Store interface {
	Put(name string, blob []byte) error
	// Get returns ErrCheckpointNotFound when name does not exist.
	Get(name string) ([]byte, error)
}

// FileStore keeps checkpoints as files under Dir.
type FileStore struct {
	Dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

// Put writes blob atomically: a temporary file is renamed over the target.
func (s *FileStore) Put(name string, blob []byte) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return errors.Wrap(err, "create checkpoint dir")
	}
	tmp, err := os.CreateTemp(s.Dir, name+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp checkpoint")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write checkpoint")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close checkpoint")
	}
	return errors.Wrap(os.Rename(tmp.Name(), filepath.Join(s.Dir, name)), "rename checkpoint")
}

func (s *FileStore) Get(name string) ([]byte, error) {
	blob, err := os.ReadFile(filepath.Join(s.Dir, name))
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrCheckpointNotFound, "%s in %s", name, s.Dir)
	}
	if err != nil {
		return nil, errors.Wrap(err, "read checkpoint")
	}
	return blob, nil
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (s *MemoryStore) Put(name string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[name] = append([]byte(nil), blob...)
	return nil
}

func (s *MemoryStore) Get(name string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	blob, ok := s.blobs[name]
	if !ok {
		return nil, errors.Wrap(ErrCheckpointNotFound, name)
	}
	return append([]byte(nil), blob...), nil
}

// Meta is stored alongside the weights.
type Meta struct {
	// Record is the best score reached when the checkpoint was written.
	Record int
}

// checkpoint is the gob wire form of the network weights.
type checkpoint struct {
	Inputs, Hidden, Outputs int
	W1, B1, W2, B2          []float64
	Record                  int
}

// Save writes the current weights and meta to store under name.
func (m *Model) Save(store Store, name string, meta Meta) error {
	cp := checkpoint{
		Record:  meta.Record,
		Inputs:  m.cfg.Inputs,
		Hidden:  m.cfg.Hidden,
		Outputs: m.cfg.Outputs,
		W1:      denseData(m.params.W1),
		B1:      denseData(m.params.B1),
		W2:      denseData(m.params.W2),
		B2:      denseData(m.params.B2),
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(cp); err != nil {
		return errors.Wrap(err, "encode checkpoint")
	}
	return store.Put(name, buf.Bytes())
}

// Load replaces the weights with the checkpoint stored under name and
// returns its meta. The model is left untouched when loading fails.
// Checkpoints written without a record load with Record 0.
func (m *Model) Load(store Store, name string) (Meta, error) {
	blob, err := store.Get(name)
	if err != nil {
		return Meta{}, err
	}
	var cp checkpoint
	if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&cp); err != nil {
		return Meta{}, errors.Wrapf(ErrCheckpointCorrupt, "%s: %v", name, err)
	}
	if cp.Inputs != m.cfg.Inputs || cp.Hidden != m.cfg.Hidden || cp.Outputs != m.cfg.Outputs {
		return Meta{}, errors.Wrapf(ErrShapeMismatch, "%s is %dx%dx%d, model is %dx%dx%d", name,
			cp.Inputs, cp.Hidden, cp.Outputs, m.cfg.Inputs, m.cfg.Hidden, m.cfg.Outputs)
	}
	if cp.Record < 0 {
		return Meta{}, errors.Wrapf(ErrCheckpointCorrupt, "%s: negative record %d", name, cp.Record)
	}
	p, err := cp.params()
	if err != nil {
		return Meta{}, errors.Wrapf(ErrCheckpointCorrupt, "%s: %v", name, err)
	}
	if err := m.SetParams(p); err != nil {
		return Meta{}, err
	}
	return Meta{Record: cp.Record}, nil
}

func (cp checkpoint) params() (Params, error) {
	dense := func(name string, data []float64, rows, cols int) (*tensor.Dense, error) {
		if len(data) != rows*cols {
			return nil, errors.Errorf("%s has %d values, want %d", name, len(data), rows*cols)
		}
		return tensor.New(tensor.WithShape(rows, cols), tensor.WithBacking(data)), nil
	}
	var p Params
	var err error
	if p.W1, err = dense("w1", cp.W1, cp.Inputs, cp.Hidden); err != nil {
		return p, err
	}
	if p.B1, err = dense("b1", cp.B1, 1, cp.Hidden); err != nil {
		return p, err
	}
	if p.W2, err = dense("w2", cp.W2, cp.Hidden, cp.Outputs); err != nil {
		return p, err
	}
	if p.B2, err = dense("b2", cp.B2, 1, cp.Outputs); err != nil {
		return p, err
	}
	return p, nil
}

func denseData(t *tensor.Dense) []float64 {
	data := t.Data().([]float64)
	out := make([]float64, len(data))
	copy(out, data)
	return out
}
