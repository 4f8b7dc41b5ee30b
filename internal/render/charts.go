// Package render turns analysed datasets into the chart images, reports and
// export files served by the API.
package render

import (
	"context"
	"image"
	"sync"

	"vizninja/domain/dataset"
	"vizninja/internal/analysis"

	"golang.org/x/sync/errgroup"
)

// Options control chart rendering.
type Options struct {
	TileWidth   int
	TileHeight  int
	Bins        int
	MaxPairplot int
	Workers     int
}

// DefaultOptions returns the rendering defaults.
func DefaultOptions() Options {
	return Options{
		TileWidth:   320,
		TileHeight:  240,
		Bins:        20,
		MaxPairplot: 10,
		Workers:     4,
	}
}

// Charts maps a chart name to encoded PNG bytes.
type Charts map[string][]byte

// Visualizations encodes every chart as a data URI payload.
func (c Charts) Visualizations() dataset.Visualizations {
	out := make(dataset.Visualizations, len(c))
	for name, data := range c {
		out[name] = dataset.PNGDataURI(data)
	}
	return out
}

type job struct {
	name string
	draw func() image.Image
}

func run(ctx context.Context, jobs []job, workers int) (Charts, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))

	var mu sync.Mutex
	out := make(Charts, len(jobs))
	for _, j := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := encodePNG(j.draw())
			if err != nil {
				return err
			}
			mu.Lock()
			out[j.name] = data
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// PreprocessCharts renders the exploration charts of a cleaned frame:
// correlation heatmap, histograms, boxplots and, for 2 to MaxPairplot
// numeric columns, a pairplot.
func PreprocessCharts(ctx context.Context, f *analysis.Frame, opts Options) (Charts, error) {
	numeric := f.NumericColumns()
	jobs := []job{
		{dataset.ChartCorrelationHeatmap, func() image.Image {
			return Heatmap(analysis.CorrelationMatrix(f))
		}},
		{dataset.ChartHistograms, func() image.Image {
			return histogramGrid(f, numeric, opts)
		}},
		{dataset.ChartBoxplots, func() image.Image {
			return boxplotGrid(f, numeric, opts)
		}},
	}
	if len(numeric) >= 2 && len(numeric) <= opts.MaxPairplot {
		jobs = append(jobs, job{dataset.ChartPairplot, func() image.Image {
			return pairplot(f, numeric, opts)
		}})
	}
	return run(ctx, jobs, opts.Workers)
}

// RegressionCharts renders the predicted-vs-actual plot and the feature
// importance chart of a fitted model.
func RegressionCharts(ctx context.Context, fit *analysis.Fit, opts Options) (Charts, error) {
	jobs := []job{
		{dataset.ChartRegressionPlot, func() image.Image {
			return Scatter("Actual vs Predicted: "+fit.Target, "actual", "predicted",
				fit.Actual, fit.Predicted, 2*opts.TileWidth, 2*opts.TileHeight, true)
		}},
		{dataset.ChartFeatureImportance, func() image.Image {
			return Importance(fit.Importance, 2*opts.TileWidth, 2*opts.TileHeight)
		}},
	}
	return run(ctx, jobs, opts.Workers)
}

func gridColumns(n int) int {
	switch {
	case n <= 1:
		return 1
	case n <= 4:
		return 2
	default:
		return 3
	}
}

func histogramGrid(f *analysis.Frame, numeric []string, opts Options) image.Image {
	if len(numeric) == 0 {
		return placeholder(opts.TileWidth*2, opts.TileHeight, "Histograms", "no numeric columns")
	}
	tiles := make([]image.Image, len(numeric))
	for k, name := range numeric {
		tiles[k] = Histogram(name, f.Present(f.Index(name)), opts.Bins, opts.TileWidth, opts.TileHeight)
	}
	return grid("Histograms", tiles, gridColumns(len(tiles)))
}

func boxplotGrid(f *analysis.Frame, numeric []string, opts Options) image.Image {
	if len(numeric) == 0 {
		return placeholder(opts.TileWidth*2, opts.TileHeight, "Boxplots", "no numeric columns")
	}
	w := opts.TileWidth / 2
	tiles := make([]image.Image, len(numeric))
	for k, name := range numeric {
		tiles[k] = Boxplot(name, f.Present(f.Index(name)), w, opts.TileHeight)
	}
	return grid("Boxplots", tiles, min(len(tiles), 6))
}

// pairplot draws histograms on the diagonal and pairwise scatter plots elsewhere.
func pairplot(f *analysis.Frame, numeric []string, opts Options) image.Image {
	size := max(opts.TileHeight*2/3, 120)
	if len(numeric) > 6 {
		size = max(size*2/3, 100)
	}
	tiles := make([]image.Image, 0, len(numeric)*len(numeric))
	for _, row := range numeric {
		ri := f.Index(row)
		for _, col := range numeric {
			ci := f.Index(col)
			if ri == ci {
				tiles = append(tiles, Histogram(row, f.Present(ri), opts.Bins, size, size))
				continue
			}
			x, y := f.Pairwise(ci, ri)
			tiles = append(tiles, Scatter(axisTitle(col, row), "", "", x, y, size, size, false))
		}
	}
	return grid("Pairplot", tiles, len(numeric))
}
