package combine

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/earwighaven/masterflatmaker/fits"
)

// combineMean merges the files by per-pixel arithmetic mean.
func (c *Combiner) combineMean(ctx context.Context, paths []string) (fits.Image, error) {
	c.cons.PushLevel()
	defer c.cons.PopLevel()
	c.cons.Message("Combining by simple mean", 1)

	images, err := c.readCalibrated(ctx, paths)
	if err != nil {
		return fits.Image{}, err
	}

	pixelCount := len(images[0].Pixels)
	means := make([]float64, pixelCount)
	for _, image := range images {
		for p, v := range image.Pixels {
			means[p] += v
		}
	}
	layers := float64(len(images))
	for p := range means {
		means[p] /= layers
	}
	return fits.Image{Pixels: means, Width: images[0].Width, Height: images[0].Height}, nil
}

// combineMedian merges the files by per-pixel median. An even number of
// layers averages the two middle values.
func (c *Combiner) combineMedian(ctx context.Context, paths []string) (fits.Image, error) {
	c.cons.PushLevel()
	defer c.cons.PopLevel()
	c.cons.Message("Combine by simple Median", 1)

	images, err := c.readCalibrated(ctx, paths)
	if err != nil {
		return fits.Image{}, err
	}

	pixelCount := len(images[0].Pixels)
	medians := make([]float64, pixelCount)
	column := make([]float64, len(images))
	for p := 0; p < pixelCount; p++ {
		for f, image := range images {
			column[f] = image.Pixels[p]
		}
		sort.Float64s(column)
		n := len(column)
		if n%2 == 1 {
			medians[p] = column[n/2]
		} else {
			medians[p] = (column[n/2-1] + column[n/2]) / 2
		}
	}
	return fits.Image{Pixels: medians, Width: images[0].Width, Height: images[0].Height}, nil
}

// combineMinMax merges the files with the iterative min-max clip: each
// iteration discards the extreme values of every pixel column, then the
// survivors are averaged.
func (c *Combiner) combineMinMax(ctx context.Context, paths []string, drops int) (fits.Image, error) {
	images, err := c.readCalibrated(ctx, paths)
	if err != nil {
		return fits.Image{}, err
	}
	means, err := c.minMaxClipStack(ctx, images, drops)
	if err != nil {
		return fits.Image{}, err
	}
	return fits.Image{Pixels: means, Width: images[0].Width, Height: images[0].Height}, nil
}

// minMaxClipStack performs the min-max clipping on calibrated layers. Each
// iteration masks every occurrence of each pixel column's minimum, then of
// its maximum among the values still unmasked. Columns that lose all their
// values are repaired with a mean clipped one drop less aggressively.
func (c *Combiner) minMaxClipStack(ctx context.Context, images []fits.Image, drops int) ([]float64, error) {
	c.cons.PushLevel()
	defer c.cons.PopLevel()
	c.cons.Message(fmt.Sprintf("Using min-max clip with %d iterations", drops), 1)

	layers := len(images)
	pixelCount := len(images[0].Pixels)
	masked := make([][]bool, layers)
	for f := range masked {
		masked[f] = make([]bool, pixelCount)
	}

	for iteration := 1; iteration <= drops; iteration++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c.cons.PushLevel()
		c.cons.Message(fmt.Sprintf("Iteration %d of %d.", iteration, drops), 1)

		maskExtreme(images, masked, pixelCount, func(v, extreme float64) bool { return v < extreme })
		c.cons.TempMessage("Masked minimums.", 1)

		maskExtreme(images, masked, pixelCount, func(v, extreme float64) bool { return v > extreme })
		c.cons.TempMessage("Masked maximums.", 1)
		c.cons.PopLevel()
	}

	c.cons.Message("Calculating mean of remaining data.", 0)
	means := make([]float64, pixelCount)
	var repairs []int
	for p := 0; p < pixelCount; p++ {
		sum := 0.0
		count := 0
		for f := 0; f < layers; f++ {
			if !masked[f][p] {
				sum += images[f].Pixels[p]
				count++
			}
		}
		if count == 0 {
			repairs = append(repairs, p)
		} else {
			means[p] = sum / float64(count)
		}
	}

	if len(repairs) > 0 {
		c.cons.Message("Some columns lost all their values; reducing drops for those columns.", 0)
		columnPlural, needPlural := "s", ""
		if len(repairs) == 1 {
			columnPlural, needPlural = "", "s"
		}
		c.cons.Message(fmt.Sprintf("%d column%s need%s repair.", len(repairs), columnPlural, needPlural), 1)
		column := make([]float64, layers)
		for _, p := range repairs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			for f := 0; f < layers; f++ {
				column[f] = images[f].Pixels[p]
			}
			means[p] = math.RoundToEven(clippedMean(column, drops-1))
		}
	}

	for p := range means {
		means[p] = math.RoundToEven(means[p])
	}
	return means, nil
}

// maskExtreme masks, for every pixel column, all occurrences of the most
// extreme unmasked value. Columns with no unmasked values left are skipped.
func maskExtreme(images []fits.Image, masked [][]bool, pixelCount int, moreExtreme func(v, extreme float64) bool) {
	for p := 0; p < pixelCount; p++ {
		extreme := 0.0
		found := false
		for f := range images {
			if masked[f][p] {
				continue
			}
			if v := images[f].Pixels[p]; !found || moreExtreme(v, extreme) {
				extreme = v
				found = true
			}
		}
		if !found {
			continue
		}
		for f := range images {
			if !masked[f][p] && images[f].Pixels[p] == extreme {
				masked[f][p] = true
			}
		}
	}
}

// combineSigmaClip merges the files by masking values whose z-score exceeds
// the threshold, then averaging the survivors of every pixel column.
func (c *Combiner) combineSigmaClip(ctx context.Context, paths []string, threshold float64) (fits.Image, error) {
	c.cons.PushLevel()
	defer c.cons.PopLevel()
	c.cons.Message("Combine by sigma-clipped mean, z-score threshold "+FloatText(threshold), 1)

	images, err := c.readCalibrated(ctx, paths)
	if err != nil {
		return fits.Image{}, err
	}
	layers := len(images)
	pixelCount := len(images[0].Pixels)

	c.cons.Message("Calculating unclipped means", 1)
	means := make([]float64, pixelCount)
	for _, image := range images {
		for p, v := range image.Pixels {
			means[p] += v
		}
	}
	for p := range means {
		means[p] /= float64(layers)
	}
	if err := ctx.Err(); err != nil {
		return fits.Image{}, err
	}

	c.cons.Message("Calculating standard deviations", 0)
	deviations := make([]float64, pixelCount)
	for _, image := range images {
		for p, v := range image.Pixels {
			d := v - means[p]
			deviations[p] += d * d
		}
	}
	for p := range deviations {
		deviations[p] = math.Sqrt(deviations[p] / float64(layers))
		// A zero deviation would divide away to infinity; substituting a
		// huge value gives those columns a z-score of effectively zero.
		if deviations[p] == 0 {
			deviations[p] = math.MaxFloat64
		}
	}
	if err := ctx.Err(); err != nil {
		return fits.Image{}, err
	}

	c.cons.Message("Calculating z-scores", 0)
	c.cons.Message("Eliminated data outside threshold", 0)
	masked := make([][]bool, layers)
	discarded := 0
	for f, image := range images {
		masked[f] = make([]bool, pixelCount)
		for p, v := range image.Pixels {
			if math.Abs(v-means[p])/deviations[p] > threshold {
				masked[f][p] = true
				discarded++
			}
		}
	}

	total := layers * pixelCount
	percentage := 100.0 * float64(discarded) / float64(total)
	c.cons.Message(countPrinter.Sprintf("Discarded %d pixels of %d (%.3f%% of data)",
		discarded, total, percentage), 1)

	c.cons.Message("Calculating adjusted means", -1)
	adjusted := make([]float64, pixelCount)
	var repairs []int
	for p := 0; p < pixelCount; p++ {
		sum := 0.0
		count := 0
		for f := 0; f < layers; f++ {
			if !masked[f][p] {
				sum += images[f].Pixels[p]
				count++
			}
		}
		if count == 0 {
			repairs = append(repairs, p)
		} else {
			adjusted[p] = sum / float64(count)
		}
	}
	if err := ctx.Err(); err != nil {
		return fits.Image{}, err
	}

	if len(repairs) > 0 {
		c.cons.Message("Some columns lost all their values; min-max clipping those columns.", 0)
		column := make([]float64, layers)
		for _, p := range repairs {
			if err := ctx.Err(); err != nil {
				return fits.Image{}, err
			}
			for f := 0; f < layers; f++ {
				column[f] = images[f].Pixels[p]
			}
			adjusted[p] = math.RoundToEven(clippedMean(column, 2))
		}
	}

	for p := range adjusted {
		adjusted[p] = math.RoundToEven(adjusted[p])
	}
	return fits.Image{Pixels: adjusted, Width: images[0].Width, Height: images[0].Height}, nil
}

// clippedMean averages a pixel column after dropping the given number of
// runs of equal minimum and maximum values from either end. If the clipping
// consumes the whole column the drop count is reduced and the clip retried;
// when no reduction is left the plain mean of the column is returned.
func clippedMean(column []float64, drops int) float64 {
	remaining := append([]float64(nil), column...)
	sort.Float64s(remaining)

	for drop := drops; drop > 0 && len(remaining) > 0; drop-- {
		minimum := remaining[0]
		past := sort.Search(len(remaining), func(i int) bool { return remaining[i] > minimum })
		remaining = remaining[past:]
	}
	for drop := drops; drop > 0 && len(remaining) > 0; drop-- {
		maximum := remaining[len(remaining)-1]
		first := sort.Search(len(remaining), func(i int) bool { return remaining[i] >= maximum })
		remaining = remaining[:first]
	}

	if len(remaining) == 0 {
		if drops > 1 {
			return clippedMean(column, drops-1)
		}
		return meanOf(column)
	}
	return meanOf(remaining)
}

func meanOf(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// readCalibrated loads and precalibrates the pixel data for the given files.
func (c *Combiner) readCalibrated(ctx context.Context, paths []string) ([]fits.Image, error) {
	descriptors, err := c.reader.Describe(ctx, paths)
	if err != nil {
		return nil, err
	}
	images, err := c.reader.Read(ctx, paths)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.calibrator.Calibrate(ctx, images, descriptors, c.cons); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return images, nil
}
