// Package diag renders debug views of a point cloud: a radial histogram PNG
// (gonum/plot), a 3D scatter page (go-echarts) and summary statistics.
package diag

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/aura/internal/aura/palette"
	"github.com/banshee-data/aura/internal/aura/render"
)

// ErrEmpty is returned when a cloud has no points to plot.
var ErrEmpty = errors.New("point cloud is empty")

const (
	histogramBins   = 40
	scatterMaxPoint = 4000
	echartsAssets   = "https://go-echarts.github.io/go-echarts-assets/assets/"
)

// Radii returns the distance from the origin of every point in pc.
func Radii(pc *render.PointCloud) []float64 {
	if pc == nil {
		return nil
	}
	out := make([]float64, pc.PointCount)
	for i := range out {
		x, y, z := float64(pc.X[i]), float64(pc.Y[i]), float64(pc.Z[i])
		out[i] = math.Sqrt(x*x + y*y + z*z)
	}
	return out
}

// Summary describes the radial distribution of a cloud.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	// ShellFraction is the share of points within ±10% of the mean radius.
	ShellFraction float64 `json:"shell_fraction"`
}

// RadialSummary computes Summary for pc.
func RadialSummary(pc *render.PointCloud) Summary {
	radii := Radii(pc)
	if len(radii) == 0 {
		return Summary{}
	}
	mean, variance := stat.MeanVariance(radii, nil)
	s := Summary{
		Count: len(radii),
		Mean:  mean,
		Min:   math.Inf(1),
		Max:   math.Inf(-1),
	}
	if len(radii) > 1 {
		s.StdDev = math.Sqrt(variance)
	}
	var inShell int
	for _, r := range radii {
		s.Min = math.Min(s.Min, r)
		s.Max = math.Max(s.Max, r)
		if math.Abs(r-mean) <= 0.1*mean {
			inShell++
		}
	}
	s.ShellFraction = float64(inShell) / float64(len(radii))
	return s
}

// WriteRadialHistogram writes a PNG histogram of point radii to w.
func WriteRadialHistogram(w io.Writer, pc *render.PointCloud, width, height vg.Length) error {
	radii := Radii(pc)
	if len(radii) == 0 {
		return ErrEmpty
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Radial distribution (%d points)", len(radii))
	p.X.Label.Text = "radius"
	p.Y.Label.Text = "count"

	h, err := plotter.NewHist(plotter.Values(radii), histogramBins)
	if err != nil {
		return fmt.Errorf("failed to build histogram: %w", err)
	}
	h.FillColor = color.RGBA{R: 0x31, G: 0x68, B: 0x8e, A: 0xff}
	p.Add(h)

	s := RadialSummary(pc)
	p.Legend.Add(fmt.Sprintf("mean %.2f sd %.2f", s.Mean, s.StdDev), h)

	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("failed to create png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write png: %w", err)
	}
	return nil
}

// WriteScatterPage writes a standalone HTML page with a 3D scatter of pc,
// one symbol per point in the point's own colour. Clouds larger than the
// page limit are strided down.
func WriteScatterPage(w io.Writer, pc *render.PointCloud, title string) error {
	if pc == nil || pc.PointCount == 0 {
		return ErrEmpty
	}
	stride := 1
	if pc.PointCount > scatterMaxPoint {
		stride = int(math.Ceil(float64(pc.PointCount) / scatterMaxPoint))
	}

	data := make([]opts.Chart3DData, 0, pc.PointCount/stride+1)
	for i := 0; i < pc.PointCount; i += stride {
		c := palette.RGB{R: float64(pc.R[i]), G: float64(pc.G[i]), B: float64(pc.B[i])}
		data = append(data, opts.Chart3DData{
			Value:     []interface{}{pc.X[i], pc.Y[i], pc.Z[i]},
			ItemStyle: &opts.ItemStyle{Color: c.Hex()},
		})
	}

	scatter := charts.NewScatter3D()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Theme: "dark", Width: "900px", Height: "900px", AssetsHost: echartsAssets}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("frame=%d points=%d stride=%d", pc.FrameID, len(data), stride)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxis3DOpts(opts.XAxis3D{Name: "x"}),
		charts.WithYAxis3DOpts(opts.YAxis3D{Name: "y"}),
		charts.WithZAxis3DOpts(opts.ZAxis3D{Name: "z"}),
	)
	scatter.AddSeries("aura", data)

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
