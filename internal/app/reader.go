package app

import (
	"context"

	"github.com/alitto/pond/v2"

	"github.com/earwighaven/masterflatmaker/fits"
)

// FileReader loads FITS files through worker pools, so large input sets
// read in parallel. Results always come back in the order the paths were
// given, which is what the combiner relies on to match headers to pixels.
type FileReader struct {
	descriptors pond.ResultPool[fits.FileDescriptor]
	images      pond.ResultPool[fits.Image]
}

// NewFileReader creates a FileReader with the given number of workers in
// each of its pools
func NewFileReader(ctx context.Context, workers int) *FileReader {
	return &FileReader{
		descriptors: pond.NewResultPool[fits.FileDescriptor](workers, pond.WithContext(ctx), pond.WithoutPanicRecovery()),
		images:      pond.NewResultPool[fits.Image](workers, pond.WithContext(ctx), pond.WithoutPanicRecovery()),
	}
}

// Describe inspects the headers of the given files in parallel
func (r *FileReader) Describe(ctx context.Context, paths []string) ([]fits.FileDescriptor, error) {
	group := r.descriptors.NewGroupContext(ctx)
	for _, path := range paths {
		group.SubmitErr(func() (fits.FileDescriptor, error) {
			return fits.Inspect(path)
		})
	}
	return group.Wait()
}

// Read loads the pixel data of the given files in parallel
func (r *FileReader) Read(ctx context.Context, paths []string) ([]fits.Image, error) {
	group := r.images.NewGroupContext(ctx)
	for _, path := range paths {
		group.SubmitErr(func() (fits.Image, error) {
			return fits.ReadImage(path)
		})
	}
	return group.Wait()
}

// Shutdown gracefully stops the reader's worker pools
func (r *FileReader) Shutdown() {
	r.descriptors.StopAndWait()
	r.images.StopAndWait()
}
