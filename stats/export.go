package stats

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
	"github.com/pkg/errors"
)

const (
	SummaryFile = "summary.json"
	EpisodeFile = "episodes.parquet"
)

// RunDir is the output directory of one run: <root>/runs/<id>.
func RunDir(root string, id uuid.UUID) string {
	return filepath.Join(root, "runs", id.String())
}

// Save writes the JSON summary and the parquet episode history into dir.
func (h *History) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create run dir")
	}
	if err := h.WriteSummary(filepath.Join(dir, SummaryFile)); err != nil {
		return err
	}
	return h.WriteParquet(filepath.Join(dir, EpisodeFile))
}

func (h *History) WriteSummary(path string) error {
	data, err := json.MarshalIndent(h.Summary(), "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal summary")
	}
	return errors.Wrap(writeAtomic(path, data), "write summary")
}

// WriteParquet writes every record as one zstd-compressed row.
func (h *History) WriteParquet(path string) error {
	rows := h.Records()
	tmp := path + ".tmp"
	_ = os.Remove(tmp)

	if err := parquet.WriteFile(tmp, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("run_id", h.runID.String()),
		parquet.KeyValueMetadata("schema", "episode_v1"),
	); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, "write parquet")
	}
	return errors.Wrap(os.Rename(tmp, path), "rename parquet")
}

// ReadParquet loads the records written by WriteParquet.
func ReadParquet(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open parquet")
	}
	defer f.Close()

	reader := parquet.NewGenericReader[Record](f)
	defer reader.Close()

	out := make([]Record, 0, reader.NumRows())
	buf := make([]Record, 256)
	for {
		n, err := reader.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read parquet")
		}
	}
	return out, nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
