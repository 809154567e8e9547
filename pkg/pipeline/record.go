package pipeline

import (
	"encoding/json"
	"errors"

	"github.com/matzehuels/tileroute/pkg/buildinfo"
	tferrors "github.com/matzehuels/tileroute/pkg/errors"
	"github.com/matzehuels/tileroute/pkg/store"
	"github.com/matzehuels/tileroute/pkg/worker"
)

// Record converts a run result into a store record.
func (r *Result) Record(opts Options, label string) (*store.Run, error) {
	run := &store.Run{
		Label:    label,
		TechName: r.Inputs.Tech.Name,
		TechHash: r.Inputs.TechHash,
		Config:   opts.ConfigJSON(),
		Version:  buildinfo.CacheTag(),
	}
	for _, t := range r.Tiles {
		st := store.Tile{
			Tile:       t.Tile,
			Status:     store.StatusDone,
			Iterations: t.Iterations(),
			Markers:    t.Markers(),
			Duration:   t.Duration,
			Cached:     t.Cached,
		}
		if t.Err != nil {
			st.Status = store.StatusFailed
			var fe *worker.FatalError
			if errors.As(t.Err, &fe) {
				st.Status = store.StatusFatal
			}
			st.ErrorCode = string(tferrors.GetCode(t.Err))
			st.Error = t.Err.Error()
		}
		if t.Result != nil {
			data, err := json.Marshal(t.Result)
			if err != nil {
				return nil, err
			}
			st.Result = data
		}
		run.Tiles = append(run.Tiles, st)
	}
	return run, nil
}

// DecodeResult decodes a worker result stored by Record or written by
// `tileroute route --json`.
func DecodeResult(data []byte) (*worker.Result, error) {
	var res worker.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, tferrors.Wrap(tferrors.ErrCodeInvalidInput, err, "decode tile result")
	}
	if res.Tile == "" {
		return nil, tferrors.New(tferrors.ErrCodeInvalidInput, "tile result has no tile name")
	}
	return &res, nil
}
