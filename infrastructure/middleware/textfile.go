package middleware

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/ahrav/go-tally/internal/ports"
)

// EncodeText writes every metric family gathered from g in the Prometheus
// text exposition format.
func EncodeText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return ports.NewMetricsError("all", "gather", err)
	}

	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return ports.NewMetricsError(mf.GetName(), "encode", err)
		}
	}
	return nil
}

// WriteTextfile writes g's metrics to path for a node_exporter style
// textfile collector. The file is replaced atomically.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create metrics file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := EncodeText(tmp, g); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close metrics file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move metrics file into place: %w", err)
	}
	return nil
}
