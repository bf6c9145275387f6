package charts

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/floats"

	"github.com/aristath/lossdash/internal/domain"
)

// Kind identifies one of the four chart views.
type Kind string

const (
	KindHistogram  Kind = "histogram"
	KindCDF        Kind = "cdf"
	KindLine       Kind = "line"
	KindCumulative Kind = "cumulative"
)

// Kinds lists every chart kind in page order.
var Kinds = []Kind{KindHistogram, KindCDF, KindLine, KindCumulative}

// ParseKind validates a chart kind coming from a URL or flag.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Rendering limits.
const (
	DefaultHistogramBins = 25
	CDFMaxPoints         = 100
	SequenceMaxPoints    = 200
)

// View is the render-ready data for one chart: labels for the category axis
// plus the numeric x/y pairs they were derived from.
type View struct {
	Kind   Kind      `json:"kind"`
	Title  string    `json:"title"`
	XTitle string    `json:"x_title"`
	YTitle string    `json:"y_title"`
	Labels []string  `json:"labels"`
	X      []float64 `json:"x"`
	Y      []float64 `json:"y"`
}

// Len returns the number of points (or bins) in the view.
func (v View) Len() int {
	return len(v.Y)
}

// Summary holds the formatted statistics shown above the charts.
type Summary struct {
	MeanLoss       string `json:"mean_loss"`
	MedianLoss     string `json:"median_loss"`
	VaR95          string `json:"var_95"`
	VaR99          string `json:"var_99"`
	StdLoss        string `json:"std_loss"`
	NumSimulations string `json:"num_simulations"`
	MinLoss        string `json:"min_loss,omitempty"`
	MaxLoss        string `json:"max_loss,omitempty"`
}

// Summarize formats the scalar fields of a simulation result.
func Summarize(result *domain.SimulationResult) Summary {
	s := Summary{
		MeanLoss:       FormatCurrency(result.MeanLoss),
		MedianLoss:     FormatCurrency(result.MedianLoss),
		VaR95:          FormatCurrency(result.VaR95),
		VaR99:          FormatCurrency(result.VaR99),
		StdLoss:        FormatCurrency(result.StdLoss),
		NumSimulations: FormatCount(result.NumSimulations),
	}
	if lo, hi, ok := result.Range(); ok {
		s.MinLoss = FormatCurrency(lo)
		s.MaxLoss = FormatCurrency(hi)
	}
	return s
}

// Stride is the fixed sampling step that keeps at most roughly target points
// out of n: max(1, floor(n/target)).
func Stride(n, target int) int {
	if target <= 0 {
		return 1
	}
	step := n / target
	if step < 1 {
		return 1
	}
	return step
}

// Histogram partitions losses into numBins equal-width bins between the
// smallest and largest value. A zero-width range uses a bin width of 1, and
// the maximum value is clamped into the last bin.
func Histogram(losses []float64, numBins int) View {
	v := View{
		Kind:   KindHistogram,
		Title:  "Loss Distribution",
		XTitle: "Portfolio Loss",
		YTitle: "Frequency",
	}
	if numBins <= 0 {
		numBins = DefaultHistogramBins
	}
	if len(losses) == 0 {
		return v
	}

	lo, hi := floats.Min(losses), floats.Max(losses)
	binWidth := (hi - lo) / float64(numBins)
	if binWidth == 0 || math.IsNaN(binWidth) {
		binWidth = 1
	}

	v.Labels = make([]string, numBins)
	v.X = make([]float64, numBins)
	v.Y = make([]float64, numBins)
	for i := 0; i < numBins; i++ {
		edge := lo + float64(i)*binWidth
		v.Labels[i] = FormatCurrency(edge)
		v.X[i] = edge
	}

	for _, val := range losses {
		idx := int(math.Floor((val - lo) / binWidth))
		if idx > numBins-1 {
			idx = numBins - 1
		}
		if idx < 0 {
			idx = 0
		}
		v.Y[idx]++
	}

	return v
}

// CDF builds the empirical cumulative distribution over sorted losses,
// sampled every Stride(n, maxPoints) positions. Y is the cumulative
// probability in percent, rounded to one decimal.
func CDF(losses []float64, maxPoints int) View {
	v := View{
		Kind:   KindCDF,
		Title:  "Cumulative Distribution",
		XTitle: "Portfolio Loss",
		YTitle: "Cumulative Probability (%)",
	}
	n := len(losses)
	if n == 0 {
		return v
	}

	sorted := make([]float64, n)
	copy(sorted, losses)
	sort.Float64s(sorted)

	step := Stride(n, maxPoints)
	for i := 0; i < n; i += step {
		pct, _ := strconv.ParseFloat(toFixed(float64(i+1)/float64(n)*100, 1), 64)
		v.Labels = append(v.Labels, FormatCurrency(sorted[i]))
		v.X = append(v.X, sorted[i])
		v.Y = append(v.Y, pct)
	}

	return v
}

// LossSequence samples the raw per-simulation losses in run order.
// Labels are 1-based simulation numbers.
func LossSequence(losses []float64, maxPoints int) View {
	v := View{
		Kind:   KindLine,
		Title:  "Loss per Simulation",
		XTitle: "Simulation #",
		YTitle: "Portfolio Loss",
	}
	sampleInto(&v, losses, Stride(len(losses), maxPoints))
	return v
}

// CumulativeLosses sums the full loss sequence first and then samples the
// running total with the same stride as LossSequence.
func CumulativeLosses(losses []float64, maxPoints int) View {
	v := View{
		Kind:   KindCumulative,
		Title:  "Cumulative Losses",
		XTitle: "Simulation #",
		YTitle: "Cumulative Loss",
	}
	if len(losses) == 0 {
		return v
	}

	cumulative := floats.CumSum(make([]float64, len(losses)), losses)
	sampleInto(&v, cumulative, Stride(len(losses), maxPoints))
	return v
}

func sampleInto(v *View, values []float64, step int) {
	for i := 0; i < len(values); i += step {
		v.Labels = append(v.Labels, strconv.Itoa(i+1))
		v.X = append(v.X, float64(i+1))
		v.Y = append(v.Y, values[i])
	}
}

// BuildViews derives all four chart views from the same loss sequence.
func BuildViews(losses []float64, numBins int) map[Kind]View {
	return map[Kind]View{
		KindHistogram:  Histogram(losses, numBins),
		KindCDF:        CDF(losses, CDFMaxPoints),
		KindLine:       LossSequence(losses, SequenceMaxPoints),
		KindCumulative: CumulativeLosses(losses, SequenceMaxPoints),
	}
}
