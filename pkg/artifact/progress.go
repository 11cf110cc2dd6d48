package artifact

import (
	"io"
	"sync/atomic"

	"go.uber.org/zap"
)

const largeArtifactBytes = 1 << 30

// progressLogger logs download progress in steps of ten percent.
type progressLogger struct {
	log *zap.Logger
}

func (p *progressLogger) TrackProgress(src string, currentSize, totalSize int64, stream io.ReadCloser) io.ReadCloser {
	log := p.log.With(zap.String("src", src), zap.Int64("total_bytes", totalSize))
	if totalSize > largeArtifactBytes {
		log.Info("downloading a large artifact, this could take a while")
	}
	r := &progressReader{ReadCloser: stream, log: log, total: totalSize}
	r.read.Store(currentSize)
	return r
}

type progressReader struct {
	io.ReadCloser
	log      *zap.Logger
	total    int64
	read     atomic.Int64
	lastStep atomic.Int64
}

func (r *progressReader) Read(b []byte) (int, error) {
	n, err := r.ReadCloser.Read(b)
	read := r.read.Add(int64(n))

	if r.total > 0 {
		step := read * 10 / r.total
		if last := r.lastStep.Load(); step > last && r.lastStep.CompareAndSwap(last, step) {
			r.log.Info("download progress", zap.Int64("percent", step*10), zap.Int64("bytes", read))
		}
	}
	return n, err
}

func (r *progressReader) Close() error {
	r.log.Debug("download finished", zap.Int64("bytes", r.read.Load()))
	return r.ReadCloser.Close()
}
