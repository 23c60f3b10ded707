package sim

import (
	"fmt"
	"image/color"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// New2DPlot creates new plot of a localization run from four data sources:
// truth:     ground truth poses
// odometry:  dead-reckoned poses
// filtered:  filter corrected poses
// landmarks: landmark positions
// Each matrix holds one point per row; the first two columns are plotted.
// It returns error if the plot fails to be created. This can be due to either of the following conditions:
// * either of the supplied data matrices is nil
// * either of the supplied data matrices does not have at least 2 columns
// * gonum plot fails to be created
func New2DPlot(truth, odometry, filtered, landmarks *mat.Dense) (*plot.Plot, error) {
	if truth == nil || odometry == nil || filtered == nil || landmarks == nil {
		return nil, fmt.Errorf("invalid data supplied")
	}

	for _, m := range []*mat.Dense{truth, odometry, filtered, landmarks} {
		if _, c := m.Dims(); c < 2 {
			return nil, fmt.Errorf("invalid data dimensions")
		}
	}

	p := plot.New()

	p.Title.Text = "Localization"
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"

	legend := plot.NewLegend()
	legend.Top = true
	p.Legend = legend

	// Make a scatter plotter for ground truth data
	truthScatter, err := plotter.NewScatter(makePoints(truth))
	if err != nil {
		return nil, err
	}
	truthScatter.GlyphStyle.Color = color.RGBA{R: 255, B: 128, A: 255}
	truthScatter.Shape = draw.PyramidGlyph{}
	truthScatter.GlyphStyle.Radius = vg.Points(3)

	p.Add(truthScatter)
	p.Legend.Add("truth", truthScatter)

	// Make a scatter plotter for odometry data
	odoScatter, err := plotter.NewScatter(makePoints(odometry))
	if err != nil {
		return nil, err
	}
	odoScatter.GlyphStyle.Color = color.RGBA{G: 255, A: 128}
	odoScatter.GlyphStyle.Radius = vg.Points(3)

	p.Add(odoScatter)
	p.Legend.Add("odometry", odoScatter)

	// Make a scatter plotter for filtered data
	filterScatter, err := plotter.NewScatter(makePoints(filtered))
	if err != nil {
		return nil, fmt.Errorf("failed to create scatter: %v", err)
	}
	filterScatter.GlyphStyle.Color = color.RGBA{R: 169, G: 169, B: 169}
	filterScatter.Shape = draw.CrossGlyph{}
	filterScatter.GlyphStyle.Radius = vg.Points(3)

	p.Add(filterScatter)
	p.Legend.Add("filtered", filterScatter)

	// Make a scatter plotter for landmark positions
	lmScatter, err := plotter.NewScatter(makePoints(landmarks))
	if err != nil {
		return nil, err
	}
	lmScatter.GlyphStyle.Color = color.RGBA{B: 255, A: 255}
	lmScatter.Shape = draw.RingGlyph{}
	lmScatter.GlyphStyle.Radius = vg.Points(4)

	p.Add(lmScatter)
	p.Legend.Add("landmarks", lmScatter)

	return p, nil
}

func makePoints(m *mat.Dense) plotter.XYs {
	r, _ := m.Dims()
	pts := make(plotter.XYs, r)
	for i := 0; i < r; i++ {
		pts[i].X = m.At(i, 0)
		pts[i].Y = m.At(i, 1)
	}

	return pts
}
