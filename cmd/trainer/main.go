// The trainer is the offline batch job that produces the model bundle the
// server loads. It never runs inside the serving process.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/archaeoscan/archaeoscan/internal/classifier"
	apperrors "github.com/archaeoscan/archaeoscan/internal/errors"
	"github.com/archaeoscan/archaeoscan/internal/monitoring"
	"github.com/archaeoscan/archaeoscan/internal/types"
)

func main() {
	dataPath := flag.String("data", "", "optional CSV of labeled rows (piezo,tds,distance,material); synthetic data is generated when omitted")
	outPath := flag.String("out", "./data/material_classifier.json", "output path for the model bundle")
	seed := flag.Int64("seed", 42, "random seed for dataset generation and fitting")
	samples := flag.Int("samples", 200, "synthetic samples per material class")
	flag.Parse()

	monitoring.SetupLogger(slog.LevelInfo)

	cfg := classifier.DefaultTrainConfig()
	cfg.Seed = *seed
	cfg.SamplesPerClass = *samples

	var (
		bundle *classifier.Bundle
		eval   classifier.Evaluation
		err    error
	)

	if *dataPath != "" {
		rows, loadErr := loadCSV(*dataPath)
		if loadErr != nil {
			slog.Error("failed to load dataset", "path", *dataPath, "error", loadErr)
			os.Exit(1)
		}
		slog.Info("dataset loaded", "path", *dataPath, "rows", len(rows))
		bundle, eval, err = classifier.Train(rows, cfg)
	} else {
		slog.Info("no dataset provided, generating synthetic data",
			"per_class", cfg.SamplesPerClass, "seed", cfg.Seed)
		bundle, eval, err = classifier.TrainSynthetic(cfg)
	}

	if err != nil {
		slog.Error("training failed, nothing persisted", "error", err)
		os.Exit(1)
	}

	for label, m := range eval.PerClass {
		slog.Info("class report", "material", label,
			"precision", fmt.Sprintf("%.3f", m.Precision),
			"recall", fmt.Sprintf("%.3f", m.Recall),
			"support", m.Support)
	}
	slog.Info("training complete",
		"accuracy", fmt.Sprintf("%.4f", eval.Accuracy),
		"train_size", eval.TrainSize,
		"test_size", eval.TestSize)

	if err := classifier.SaveBundle(bundle, *outPath); err != nil {
		slog.Error("failed to persist model bundle", "error", err)
		os.Exit(1)
	}
	slog.Info("model bundle saved", "path", *outPath)
}

// loadCSV reads labeled rows: piezo,tds,distance,material with an optional
// header line.
func loadCSV(path string) ([]classifier.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to open dataset %s", path)
	}
	defer apperrors.SafeClose(f, "dataset file")

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to read dataset %s", path)
	}

	valid := make(map[types.Material]bool, len(types.Materials))
	for _, m := range types.Materials {
		valid[m] = true
	}

	var rows []classifier.Sample
	for i, rec := range records {
		if len(rec) != 4 {
			return nil, fmt.Errorf("row %d: expected 4 columns, got %d", i+1, len(rec))
		}

		piezo, err1 := strconv.ParseFloat(rec[0], 64)
		tds, err2 := strconv.ParseFloat(rec[1], 64)
		distance, err3 := strconv.ParseFloat(rec[2], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			if i == 0 {
				// Header line.
				continue
			}
			return nil, fmt.Errorf("row %d: non-numeric sensor value", i+1)
		}

		label := types.Material(rec[3])
		if !valid[label] {
			return nil, fmt.Errorf("row %d: unknown material %q", i+1, rec[3])
		}

		rows = append(rows, classifier.Sample{Piezo: piezo, TDS: tds, Distance: distance, Label: label})
	}

	return rows, nil
}
