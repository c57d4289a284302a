package history

import (
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/ttcp/internal/model"
	"github.com/verte-zerg/ttcp/internal/units"
)

type yamlDoc struct {
	Unit    string      `yaml:"unit"`
	Summary yamlSummary `yaml:"summary"`
	Runs    []yamlRun   `yaml:"runs"`
}

type yamlSummary struct {
	Runs       int     `yaml:"runs"`
	TotalBytes int64   `yaml:"total_bytes"`
	AvgRate    float64 `yaml:"avg_rate"`
	BestRate   float64 `yaml:"best_rate"`
}

type yamlRun struct {
	ID          int64     `yaml:"id"`
	StartedAt   time.Time `yaml:"started_at"`
	EndedAt     time.Time `yaml:"ended_at"`
	Role        string    `yaml:"role"`
	Proto       string    `yaml:"proto"`
	Peer        string    `yaml:"peer,omitempty"`
	BufLen      int       `yaml:"buflen"`
	NumBufs     int       `yaml:"nbuf"`
	Bytes       int64     `yaml:"bytes"`
	Calls       int64     `yaml:"calls"`
	RealSeconds float64   `yaml:"real_seconds"`
	CPUSeconds  float64   `yaml:"cpu_seconds"`
	Rate        float64   `yaml:"rate"`
	Interrupted bool      `yaml:"interrupted,omitempty"`
}

// RenderYAML writes the summary and runs as a YAML document. Rates are
// expressed in the unit selected by f.
func RenderYAML(w io.Writer, sum model.RunSummary, runs []model.Run, f units.Format) error {
	_, label := f.Scale()
	doc := yamlDoc{
		Unit: label + "/s",
		Summary: yamlSummary{
			Runs:       sum.Runs,
			TotalBytes: sum.TotalBytes,
			AvgRate:    units.Value(sum.AvgRate, f),
			BestRate:   units.Value(sum.BestRate, f),
		},
		Runs: make([]yamlRun, 0, len(runs)),
	}
	for _, run := range runs {
		doc.Runs = append(doc.Runs, yamlRun{
			ID:          run.ID,
			StartedAt:   run.StartedAt.UTC(),
			EndedAt:     run.EndedAt.UTC(),
			Role:        run.Role,
			Proto:       run.Proto,
			Peer:        run.Peer,
			BufLen:      run.BufLen,
			NumBufs:     run.NumBufs,
			Bytes:       run.Bytes,
			Calls:       run.Calls,
			RealSeconds: run.RealSeconds,
			CPUSeconds:  run.CPUSeconds,
			Rate:        units.Value(run.BytesPerSec, f),
			Interrupted: run.Interrupted,
		})
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}
