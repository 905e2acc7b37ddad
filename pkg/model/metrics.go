package model

import (
	"math"
	"sort"
)

// Classification metrics for binary labels 0/1; the positive class is 1.

func AccuracyInt(yTrue []int, yPred []int) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	c := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			c++
		}
	}
	return float64(c) / float64(len(yTrue))
}

func PrecisionRecallF1(yTrue []int, yPred []int) (prec, rec, f1 float64) {
	tp, fp, fn := 0, 0, 0
	for i := range yTrue {
		if yPred[i] == 1 && yTrue[i] == 1 {
			tp++
		}
		if yPred[i] == 1 && yTrue[i] == 0 {
			fp++
		}
		if yPred[i] == 0 && yTrue[i] == 1 {
			fn++
		}
	}
	if tp+fp > 0 {
		prec = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		rec = float64(tp) / float64(tp+fn)
	}
	if prec+rec > 0 {
		f1 = 2 * prec * rec / (prec + rec)
	}
	return
}

// ROCAUC is the area under the ROC curve of score against yTrue, computed
// from the Mann-Whitney rank statistic with averaged ranks for ties. It is
// NaN when only one class is present.
func ROCAUC(yTrue []int, score []float64) float64 {
	n := len(yTrue)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return score[order[a]] < score[order[b]] })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && score[order[j+1]] == score[order[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[order[k]] = avg
		}
		i = j + 1
	}

	var pos, neg int
	var rankSum float64
	for i, y := range yTrue {
		if y == 1 {
			pos++
			rankSum += ranks[i]
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return math.NaN()
	}
	return (rankSum - float64(pos*(pos+1))/2) / float64(pos*neg)
}

// Report holds the five scores computed for one prediction set.
type Report struct {
	AUC       float64
	F1        float64
	Accuracy  float64
	Recall    float64
	Precision float64
}

// Score computes a Report from hard predictions and positive-class
// probabilities.
func Score(yTrue, yPred []int, proba []float64) Report {
	prec, rec, f1 := PrecisionRecallF1(yTrue, yPred)
	return Report{
		AUC:       ROCAUC(yTrue, proba),
		F1:        f1,
		Accuracy:  AccuracyInt(yTrue, yPred),
		Recall:    rec,
		Precision: prec,
	}
}
