package main

import (
	"context"
	"fmt"

	"github.com/verte-zerg/ttcp/internal/bench"
	"github.com/verte-zerg/ttcp/internal/config"
	"github.com/verte-zerg/ttcp/internal/model"
	"github.com/verte-zerg/ttcp/internal/store"
)

func resolveDBPath(path string) string {
	if path != "" {
		return path
	}
	return config.DefaultDBPath()
}

func runFromResult(res bench.Result) model.Run {
	return model.Run{
		StartedAt:   res.StartedAt,
		EndedAt:     res.EndedAt,
		Role:        string(rune(res.Role)),
		Proto:       res.Proto,
		Peer:        res.Peer,
		BufLen:      res.BufLen,
		NumBufs:     res.NumBufs,
		Bytes:       int64(res.Bytes),
		Calls:       int64(res.Calls),
		RealSeconds: res.Reading.RealSeconds(),
		CPUSeconds:  res.Reading.CPUSeconds(),
		BytesPerSec: res.BytesPerSecond(),
		Interrupted: res.Interrupted,
	}
}

func recordRun(ctx context.Context, dbPath string, res bench.Result) error {
	st, err := store.Open(resolveDBPath(dbPath))
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()
	if _, err := st.InsertRun(ctx, runFromResult(res)); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}
