package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"strconv"

	"eventml/pkg/artifact"
	"eventml/pkg/crossval"
	"eventml/pkg/ensemble"
	"eventml/pkg/model"
)

// generateBinaryData creates a simple binary classification dataset.
// Rule: if x1 * x2 > 0 → class 1, else class 0. x3 is noise.
func generateBinaryData(rnd *rand.Rand, n int) (X [][]float64, y []int) {
	X = make([][]float64, n)
	y = make([]int, n)
	for i := 0; i < n; i++ {
		x1 := rnd.Float64()*2 - 1 // [-1,1]
		x2 := rnd.Float64()*2 - 1
		X[i] = []float64{x1, x2, rnd.Float64()}
		if x1*x2 > 0 {
			y[i] = 1
		}
	}
	return
}

func main() {
	folds := flag.Int("folds", 5, "number of stratified folds")
	seed := flag.Int64("seed", 1, "seed for data and folds")
	depth := flag.Int("max-depth", 6, "maximum tree depth")
	plotDir := flag.String("plot-dir", "", "directory for the importance chart (empty = no chart)")
	flag.Parse()

	rnd := rand.New(rand.NewSource(*seed))
	X, y := generateBinaryData(rnd, 2000)
	XTest, yTest := generateBinaryData(rnd, 200)

	trainer := crossval.NewTrainer(model.TreeFactory(model.Params{MaxDepth: *depth}, *seed), nil)
	scores, split, err := trainer.Evaluate(X, y, *folds, *seed)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("Cross-validation on synthetic data:")
	for i, r := range scores.Test {
		fmt.Printf("Fold %d: AUC=%.4f F1=%.4f Accuracy=%.4f\n", i, r.AUC, r.F1, r.Accuracy)
	}

	models, err := trainer.FitFolds(X, y, split)
	if err != nil {
		log.Fatal(err)
	}
	keys := make([]string, len(XTest))
	for i := range keys {
		keys[i] = strconv.Itoa(i)
	}
	res, err := ensemble.Predict(models, XTest, keys)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Ensemble of %d trees, held-out accuracy: %.4f\n", len(models), model.AccuracyInt(yTest, res.RowLabels))

	features := []string{"x1", "x2", "noise"}
	for j, name := range features {
		fmt.Printf("Importance %-6s fold 0: %.4f\n", name, res.Importances.At(0, j))
	}
	if *plotDir != "" {
		path, err := artifact.PlotImportances(*plotDir, features, res.Importances)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Saved importance chart to %s\n", path)
	}
}
