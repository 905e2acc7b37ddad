package model

import (
	"bytes"
	"encoding/gob"
	"errors"
	"math"
	"math/rand"
	"sort"
	"sync"
)

// ---------------------------
// Types & options
// ---------------------------

// DecisionTreeClassifier is a CART-style classifier.
type DecisionTreeClassifier struct {
	MaxDepth            int     // maximum depth (root depth = 0). 0 => no limit
	MinSamplesSplit     int     // minimum samples to attempt a split
	MinSamplesLeaf      int     // minimum samples required in each leaf
	Criterion           string  // "gini" (default) or "entropy"
	MaxFeatures         int     // 0 => all features, >0 => features sampled per split
	MinImpurityDecrease float64 // minimal impurity decrease to accept a split
	RandomState         int64   // seed for feature subsampling

	root      *Node
	classes   []int // sorted class labels, aligned with Node.Probas
	nFeatures int
}

// Node is one node of a fitted tree. Fields are exported so the tree can
// be gob encoded.
type Node struct {
	Leaf      bool
	Feature   int
	Threshold float64 // x <= Threshold goes left
	IsCat     bool    // equality split: x == Threshold goes left
	Gain      float64 // impurity decrease of the split, relative to this node
	Left      *Node
	Right     *Node

	N         int
	Probas    []float64
	PredIndex int
}

// Option functional config
type Option func(*DecisionTreeClassifier)

func WithMaxDepth(d int) Option { return func(t *DecisionTreeClassifier) { t.MaxDepth = d } }
func WithMinSamplesSplit(n int) Option {
	return func(t *DecisionTreeClassifier) { t.MinSamplesSplit = n }
}
func WithMinSamplesLeaf(n int) Option {
	return func(t *DecisionTreeClassifier) { t.MinSamplesLeaf = n }
}
func WithCriterion(c string) Option { return func(t *DecisionTreeClassifier) { t.Criterion = c } }
func WithMaxFeatures(k int) Option  { return func(t *DecisionTreeClassifier) { t.MaxFeatures = k } }
func WithMinImpurityDecrease(v float64) Option {
	return func(t *DecisionTreeClassifier) { t.MinImpurityDecrease = v }
}
func WithRandomState(seed int64) Option {
	return func(t *DecisionTreeClassifier) { t.RandomState = seed }
}

// NewDecisionTreeClassifier returns a classifier with the usual CART
// defaults and a fixed seed.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	d := &DecisionTreeClassifier{
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Criterion:       "gini",
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

var (
	ErrEmpty      = errors.New("dtree: empty X")
	ErrShape      = errors.New("dtree: X and y shape mismatch")
	ErrNotTrained = errors.New("dtree: tree not trained")
)

// ---------------------------
// Public API
// ---------------------------

// Fit trains the tree on X (n x p) and y (n labels). Missing values must
// be math.NaN(). Categorical features are expected as integer codes.
func (t *DecisionTreeClassifier) Fit(X [][]float64, y []int) error {
	if len(X) == 0 {
		return ErrEmpty
	}
	n := len(X)
	if len(y) != n {
		return ErrShape
	}
	p := len(X[0])
	for i := range X {
		if len(X[i]) != p {
			return ErrShape
		}
	}

	seen := map[int]struct{}{}
	t.classes = nil
	for _, lab := range y {
		if _, ok := seen[lab]; !ok {
			seen[lab] = struct{}{}
			t.classes = append(t.classes, lab)
		}
	}
	sort.Ints(t.classes)
	t.nFeatures = p

	idx := make([]int, n)
	for i := 0; i < n; i++ {
		idx[i] = i
	}

	rnd := rand.New(rand.NewSource(t.RandomState))

	impurityFunc := func(counts []int) float64 {
		if t.Criterion == "entropy" {
			return entropyFromCounts(counts)
		}
		return giniFromCounts(counts)
	}

	t.root = t.buildNode(X, y, idx, 0, p, len(t.classes), impurityFunc, rnd)
	return nil
}

// Predict returns the majority class for each row, the smallest label on
// ties. An unfitted tree predicts nothing.
func (t *DecisionTreeClassifier) Predict(X [][]float64) []int {
	if t.root == nil {
		return nil
	}
	out := make([]int, len(X))
	for i := range X {
		probs := t.predictProbaSingle(X[i])
		out[i] = t.classes[argmaxFloat(probs)]
	}
	return out
}

// PredictProba returns the per-class probability vectors, in ascending label order.
func (t *DecisionTreeClassifier) PredictProba(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i := range X {
		out[i] = t.predictProbaSingle(X[i])
	}
	return out
}

// ProbaOf returns the probability of label for each row; 0 when the tree
// never saw label.
func (t *DecisionTreeClassifier) ProbaOf(X [][]float64, label int) []float64 {
	out := make([]float64, len(X))
	ci := -1
	for i, c := range t.classes {
		if c == label {
			ci = i
		}
	}
	if ci < 0 {
		return out
	}
	for i := range X {
		out[i] = t.predictProbaSingle(X[i])[ci]
	}
	return out
}

// FeatureImportances returns the total impurity decrease contributed by
// each feature, weighted by node size and normalised to sum to 1. A tree
// without splits yields all zeros.
func (t *DecisionTreeClassifier) FeatureImportances() []float64 {
	imp := make([]float64, t.nFeatures)
	if t.root == nil {
		return imp
	}
	var walk func(n *Node)
	walk = func(n *Node) {
		if n == nil || n.Leaf {
			return
		}
		imp[n.Feature] += float64(n.N) * n.Gain
		walk(n.Left)
		walk(n.Right)
	}
	walk(t.root)

	total := 0.0
	for _, v := range imp {
		total += v
	}
	if total > 0 {
		for i := range imp {
			imp[i] /= total
		}
	}
	return imp
}

// Depth returns the depth of the fitted tree (a single leaf is 0).
func (t *DecisionTreeClassifier) Depth() int {
	var depth func(n *Node) int
	depth = func(n *Node) int {
		if n == nil || n.Leaf {
			return 0
		}
		return 1 + max(depth(n.Left), depth(n.Right))
	}
	return depth(t.root)
}

// MarshalBinary implements encoding.BinaryMarshaler using gob.
func (t *DecisionTreeClassifier) MarshalBinary() ([]byte, error) {
	if t.root == nil {
		return nil, ErrNotTrained
	}
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	for _, v := range []any{
		t.MaxDepth, t.MinSamplesSplit, t.MinSamplesLeaf, t.Criterion,
		t.MaxFeatures, t.MinImpurityDecrease, t.RandomState,
		t.classes, t.nFeatures, t.root,
	} {
		if err := enc.Encode(v); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler using gob.
func (t *DecisionTreeClassifier) UnmarshalBinary(data []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(data))
	for _, v := range []any{
		&t.MaxDepth, &t.MinSamplesSplit, &t.MinSamplesLeaf, &t.Criterion,
		&t.MaxFeatures, &t.MinImpurityDecrease, &t.RandomState,
		&t.classes, &t.nFeatures, &t.root,
	} {
		if err := dec.Decode(v); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------
// Internal builders & helpers
// ---------------------------

// splitResult holds the best split found for a single feature.
type splitResult struct {
	gain      float64
	feature   int
	threshold float64
	isCat     bool
	leftIdx   []int
	rightIdx  []int
}

// pair is a feature value and its sample index.
type pair struct {
	v float64
	i int
}

func (t *DecisionTreeClassifier) leaf(node *Node, counts []int) *Node {
	node.Leaf = true
	node.Probas = countsToProbas(counts)
	node.PredIndex = argmax(counts)
	return node
}

func (t *DecisionTreeClassifier) buildNode(X [][]float64, y []int, idx []int, depth, p, nClasses int, impurity func([]int) float64, rnd *rand.Rand) *Node {
	node := &Node{N: len(idx)}

	counts := countsFromIndices(y, idx, nClasses, t.classes)
	if isPure(counts) || (t.MinSamplesSplit > 0 && len(idx) < t.MinSamplesSplit) {
		return t.leaf(node, counts)
	}
	if t.MaxDepth > 0 && depth >= t.MaxDepth {
		return t.leaf(node, counts)
	}

	featIndices := make([]int, p)
	for j := 0; j < p; j++ {
		featIndices[j] = j
	}
	if t.MaxFeatures > 0 && t.MaxFeatures < p {
		for i := 0; i < p; i++ {
			j := i + rnd.Intn(p-i)
			featIndices[i], featIndices[j] = featIndices[j], featIndices[i]
		}
		featIndices = featIndices[:t.MaxFeatures]
		sort.Ints(featIndices)
	}

	parentImpurity := impurity(counts)

	// Features are searched in parallel; each goroutine owns its slot so
	// the reduction below runs in feature order.
	results := make([]splitResult, len(featIndices))
	var wg sync.WaitGroup
	for k, f := range featIndices {
		wg.Add(1)
		go func(k, f int) {
			defer wg.Done()
			results[k] = t.findBestSplitForFeature(X, y, idx, f, nClasses, parentImpurity, impurity)
		}(k, f)
	}
	wg.Wait()

	best := splitResult{feature: -1}
	for _, r := range results {
		if r.feature >= 0 && r.gain > best.gain {
			best = r
		}
	}

	if best.feature == -1 || best.gain <= t.MinImpurityDecrease {
		return t.leaf(node, counts)
	}

	node.Feature = best.feature
	node.Threshold = best.threshold
	node.IsCat = best.isCat
	node.Gain = best.gain
	node.Left = t.buildNode(X, y, best.leftIdx, depth+1, p, nClasses, impurity, rnd)
	node.Right = t.buildNode(X, y, best.rightIdx, depth+1, p, nClasses, impurity, rnd)
	return node
}

// findBestSplitForFeature finds the best split for a single feature. It
// only reads shared state.
func (t *DecisionTreeClassifier) findBestSplitForFeature(X [][]float64, y []int, idx []int, f, nClasses int, parentImpurity float64, impurity func([]int) float64) splitResult {
	result := splitResult{feature: -1}

	var nans []int
	valid := make([]pair, 0, len(idx))
	for _, ii := range idx {
		if v := X[ii][f]; math.IsNaN(v) {
			nans = append(nans, ii)
		} else {
			valid = append(valid, pair{v, ii})
		}
	}
	if len(valid) == 0 {
		return result
	}

	consider := func(left, right []int, threshold float64, isCat bool) {
		if !okSplit(left, right, t.MinSamplesLeaf) {
			return
		}
		impL := impurity(countsFromIndices(y, left, nClasses, t.classes))
		impR := impurity(countsFromIndices(y, right, nClasses, t.classes))
		weighted := (float64(len(left))/float64(len(idx)))*impL + (float64(len(right))/float64(len(idx)))*impR
		if gain := parentImpurity - weighted; gain > result.gain {
			result = splitResult{gain: gain, feature: f, threshold: threshold, isCat: isCat, leftIdx: left, rightIdx: right}
		}
	}

	// equality splits for small integer-coded value sets
	uniqueVals := uniqueValuesFromPairs(valid)
	if len(uniqueVals) <= 30 && allInt(uniqueVals) {
		for _, uv := range uniqueVals {
			var leftIdx, rightIdx []int
			for _, pv := range valid {
				if pv.v == uv {
					leftIdx = append(leftIdx, pv.i)
				} else {
					rightIdx = append(rightIdx, pv.i)
				}
			}
			consider(concat(leftIdx, nans), concat(rightIdx, nil), uv, true)
			consider(concat(leftIdx, nil), concat(rightIdx, nans), uv, true)
		}
	}

	// threshold splits between distinct sorted values
	sort.SliceStable(valid, func(a, b int) bool { return valid[a].v < valid[b].v })
	for s := 1; s < len(valid); s++ {
		if valid[s].v == valid[s-1].v {
			continue
		}
		thr := (valid[s-1].v + valid[s].v) / 2.0
		left, right := indicesFromPairs(valid[:s]), indicesFromPairs(valid[s:])
		consider(concat(left, nans), right, thr, false)
		consider(left, concat(right, nans), thr, false)
	}
	return result
}

func concat(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
	return append(append(out, a...), b...)
}

func allInt(vals []float64) bool {
	for _, v := range vals {
		if !almostInt(v) {
			return false
		}
	}
	return true
}

func almostInt(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	_, frac := math.Modf(math.Abs(v))
	return frac < 1e-9 || frac > 1-1e-9
}

func uniqueValuesFromPairs(pairs []pair) []float64 {
	m := make(map[float64]struct{})
	out := make([]float64, 0, len(pairs))
	for _, p := range pairs {
		if _, ok := m[p.v]; !ok {
			m[p.v] = struct{}{}
			out = append(out, p.v)
		}
	}
	sort.Float64s(out)
	return out
}

func indicesFromPairs(pairs []pair) []int {
	out := make([]int, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, p.i)
	}
	return out
}

func countsFromIndices(y []int, idx []int, nClasses int, classes []int) []int {
	counts := make([]int, nClasses)
	for _, ii := range idx {
		counts[classIndex(y[ii], classes)]++
	}
	return counts
}

func okSplit(left, right []int, minLeaf int) bool {
	return len(left) >= minLeaf && len(right) >= minLeaf && len(left) > 0 && len(right) > 0
}

// ---------------------------
// Prediction helper
// ---------------------------

func (t *DecisionTreeClassifier) predictProbaSingle(x []float64) []float64 {
	if t.root == nil {
		p := make([]float64, len(t.classes))
		for i := range p {
			p[i] = 1.0 / float64(len(p))
		}
		return p
	}
	node := t.root
	for !node.Leaf {
		val := x[node.Feature]
		switch {
		case math.IsNaN(val):
			// missing: follow the larger child
			if node.Left.N >= node.Right.N {
				node = node.Left
			} else {
				node = node.Right
			}
		case node.IsCat && val == node.Threshold, !node.IsCat && val <= node.Threshold:
			node = node.Left
		default:
			node = node.Right
		}
	}
	return node.Probas
}

// ---------------------------
// Utilities: impurity & misc
// ---------------------------

func giniFromCounts(counts []int) float64 {
	n := 0.0
	for _, c := range counts {
		n += float64(c)
	}
	if n == 0 {
		return 0
	}
	res := 0.0
	for _, c := range counts {
		p := float64(c) / n
		res += p * (1 - p)
	}
	return res
}

func entropyFromCounts(counts []int) float64 {
	n := 0.0
	for _, c := range counts {
		n += float64(c)
	}
	if n == 0 {
		return 0
	}
	res := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		res -= p * math.Log2(p)
	}
	return res
}

func isPure(counts []int) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func countsToProbas(counts []int) []float64 {
	n := 0
	for _, c := range counts {
		n += c
	}
	p := make([]float64, len(counts))
	if n == 0 {
		return p
	}
	for i := range counts {
		p[i] = float64(counts[i]) / float64(n)
	}
	return p
}

func argmax(counts []int) int {
	best := 0
	for i := 1; i < len(counts); i++ {
		if counts[i] > counts[best] {
			best = i
		}
	}
	return best
}

func argmaxFloat(arr []float64) int {
	best := 0
	for i := 1; i < len(arr); i++ {
		if arr[i] > arr[best] {
			best = i
		}
	}
	return best
}

// classIndex returns index of label in classes slice.
func classIndex(label int, classes []int) int {
	for i, v := range classes {
		if v == label {
			return i
		}
	}
	return 0
}
