package transcription

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/codebuildervaibhav/media-transcription/internal/chunker"
	"github.com/codebuildervaibhav/media-transcription/internal/media"
)

// DefaultFailureMarker is the line emitted for a chunk that could not be transcribed
const DefaultFailureMarker = "[transcription failed]"

// Transcriber turns one audio file into text
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
	Name() string
}

// MediaTranscoder is the subset of ffmpeg operations the pipeline uses
type MediaTranscoder interface {
	ExtractAudio(ctx context.Context, src, dst string) error
	CompressAudio(ctx context.Context, src, dst string) error
	CompressVideo(ctx context.Context, src, dst string) error
	ExtractTimeRange(ctx context.Context, src, dst string, start, length float64) error
}

// Options configures one Pipeline
type Options struct {
	// ToolchainAvailable gates every compress, split and extract step
	ToolchainAvailable bool

	// TempDir holds chunk and derived files; shared between requests
	TempDir string

	// Workers bounds concurrent chunk transcription; 1 is sequential
	Workers int

	// TranscribeAttempts is how often a chunk's transcription is tried
	TranscribeAttempts int

	// MaxResplitDepth bounds how often an oversized chunk is split again
	MaxResplitDepth int

	// PassthroughOversized sends oversized files to the backend untouched
	// when the toolchain is missing instead of rejecting them
	PassthroughOversized bool

	FailureMarker string
}

// ChunkResult is the outcome for one chunk, identified by its ordinal
type ChunkResult struct {
	Ordinal int     `json:"ordinal"`
	Start   float64 `json:"start"`
	Length  float64 `json:"length"`
	Text    string  `json:"text"`
	Err     error   `json:"-"`

	warning string
}

// Failed reports whether the chunk produced no transcript
func (c ChunkResult) Failed() bool {
	return c.Err != nil
}

// Result is the assembled transcript with per-chunk detail
type Result struct {
	Transcript string
	Chunks     []ChunkResult
	Warnings   []string
	Compressed bool
	Duration   float64 // seconds; zero when the file was never probed
}

// FailedChunks returns the ordinals of failed chunks
func (r *Result) FailedChunks() []int {
	var failed []int
	for _, c := range r.Chunks {
		if c.Failed() {
			failed = append(failed, c.Ordinal)
		}
	}
	return failed
}

func (r *Result) warnf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Printf("WARNING: %s", msg)
	r.Warnings = append(r.Warnings, msg)
}

// chunkFile is a file ready for transcription and the source range it covers
type chunkFile struct {
	path   string
	kind   media.Kind
	start  float64
	length float64
	owned  bool // created by this invocation and removed after use
}

// Pipeline compresses, splits and transcribes media that may exceed the
// transcription backend's upload limit
type Pipeline struct {
	prober      media.DurationProber
	transcoder  MediaTranscoder
	transcriber Transcriber
	opts        Options
	backoff     func(attempt int) time.Duration
}

// NewPipeline creates a pipeline
func NewPipeline(prober media.DurationProber, transcoder MediaTranscoder, transcriber Transcriber, opts Options) *Pipeline {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.TranscribeAttempts < 1 {
		opts.TranscribeAttempts = 1
	}
	if opts.MaxResplitDepth < 0 {
		opts.MaxResplitDepth = 0
	}
	if opts.FailureMarker == "" {
		opts.FailureMarker = DefaultFailureMarker
	}
	return &Pipeline{
		prober:      prober,
		transcoder:  transcoder,
		transcriber: transcriber,
		opts:        opts,
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt*attempt) * time.Second
		},
	}
}

// TranscribeLarge transcribes file, chunking it when it exceeds budget bytes.
//
// The caller keeps ownership of file; every file the pipeline derives from it
// is removed before TranscribeLarge returns, on success and on failure.
// A failed chunk is reported in the result and marked in the transcript.
// The returned error is always fatal for the whole request.
func (p *Pipeline) TranscribeLarge(ctx context.Context, file *media.File, budget int64) (*Result, error) {
	if file == nil {
		return nil, errors.New("media file is required")
	}
	if file.Size <= 0 {
		return nil, fmt.Errorf("media file is empty: %s", file.Path)
	}
	if budget <= 0 {
		return nil, fmt.Errorf("invalid size budget: %d bytes", budget)
	}

	s, err := newScratch(p.opts.TempDir)
	if err != nil {
		return nil, err
	}
	defer s.releaseAll()

	res := &Result{}
	chunks, err := p.prepare(ctx, s, file, budget, res)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	results, err := p.transcribeChunks(ctx, s, chunks, budget)
	if err != nil {
		return nil, err
	}
	res.Chunks = results
	for _, r := range results {
		if r.warning != "" {
			res.warnf("%s", r.warning)
		}
	}

	transcript, err := p.assemble(results)
	if err != nil {
		return nil, err
	}
	res.Transcript = transcript

	if failed := res.FailedChunks(); len(failed) > 0 {
		res.warnf("%d of %d chunks failed to transcribe (ordinals %v)", len(failed), len(results), failed)
	}

	return res, nil
}

// prepare runs intake, planning and splitting and returns the files to transcribe
func (p *Pipeline) prepare(ctx context.Context, s *scratch, file *media.File, budget int64, res *Result) ([]chunkFile, error) {
	whole := func(f *media.File, owned bool) []chunkFile {
		return []chunkFile{{path: f.Path, kind: f.Kind, owned: owned}}
	}

	if file.Size <= budget {
		return whole(file, false), nil
	}

	if !p.opts.ToolchainAvailable {
		msg := fmt.Sprintf("%s is %s, above the %s budget, and ffmpeg is unavailable to split it",
			file.Path, humanize.IBytes(uint64(file.Size)), humanize.IBytes(uint64(budget)))
		if !p.opts.PassthroughOversized {
			res.warnf("%s", msg)
			return nil, fmt.Errorf("%w: %s", ErrToolchainUnavailable, msg)
		}
		res.warnf("%s; sending the whole file to the transcription backend", msg)
		return whole(file, false), nil
	}

	current := p.compress(ctx, s, file, res)
	derived := current != file
	if current.Size <= budget {
		return whole(current, derived), nil
	}

	duration, err := current.Duration(ctx, p.prober)
	if err != nil {
		return nil, fmt.Errorf("failed to probe duration: %w", err)
	}
	res.Duration = duration

	log.Printf("Splitting %s (%s, %.1fs) for a %s budget",
		current.Path, humanize.IBytes(uint64(current.Size)), duration, humanize.IBytes(uint64(budget)))

	chunks, err := p.split(ctx, s, current, 0, current.Size, duration, budget, 0, res)
	if derived {
		s.release(current.Path)
	}
	if err != nil {
		return nil, err
	}

	return chunks, nil
}

// compress returns a smaller derivative of f, or f itself if compression fails
func (p *Pipeline) compress(ctx context.Context, s *scratch, f *media.File, res *Result) *media.File {
	var (
		dst string
		err error
	)
	switch f.Kind {
	case media.KindVideo:
		dst = s.path("compressed", ".mp4")
		err = p.transcoder.CompressVideo(ctx, f.Path, dst)
	default:
		dst = s.path("compressed", ".mp3")
		err = p.transcoder.CompressAudio(ctx, f.Path, dst)
	}
	if err != nil {
		s.release(dst)
		res.warnf("compression failed, continuing with the original file: %s", firstLine(err.Error()))
		return f
	}

	compressed, err := media.Open(dst)
	if err != nil {
		s.release(dst)
		res.warnf("compressed file unreadable, continuing with the original file: %v", err)
		return f
	}

	log.Printf("Compressed %s: %s -> %s", f.Path,
		humanize.IBytes(uint64(f.Size)), humanize.IBytes(uint64(compressed.Size)))
	res.Compressed = true
	return compressed
}

// split cuts src into chunk files. offset is src's position in the original
// timeline. On any failure every chunk file created so far is removed.
func (p *Pipeline) split(ctx context.Context, s *scratch, src *media.File, offset float64, size int64, duration float64, budget int64, depth int, res *Result) ([]chunkFile, error) {
	plan, err := chunker.PlanChunks(size, duration, budget)
	if err != nil {
		return nil, fmt.Errorf("chunk planning failed: %w", err)
	}

	var out []chunkFile
	fail := func(err error) ([]chunkFile, error) {
		for _, c := range out {
			s.release(c.path)
		}
		return nil, err
	}

	for i, spec := range plan {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		dst := s.path("chunk", src.Ext())
		if err := p.transcoder.ExtractTimeRange(ctx, src.Path, dst, spec.Start, spec.Length); err != nil {
			s.release(dst)
			return fail(&SplitError{Chunk: i, Start: offset + spec.Start, Err: err})
		}

		info, err := os.Stat(dst)
		if err != nil {
			s.release(dst)
			return fail(&SplitError{Chunk: i, Start: offset + spec.Start, Err: err})
		}

		chunk := chunkFile{
			path:   dst,
			kind:   src.Kind,
			start:  offset + spec.Start,
			length: spec.Length,
			owned:  true,
		}

		if info.Size() > budget {
			if depth >= p.opts.MaxResplitDepth {
				res.warnf("chunk at %.1fs is %s, still above the %s budget", chunk.start,
					humanize.IBytes(uint64(info.Size())), humanize.IBytes(uint64(budget)))
			} else {
				sub := &media.File{Path: dst, Size: info.Size(), Kind: src.Kind}
				parts, err := p.split(ctx, s, sub, chunk.start, info.Size(), spec.Length, budget, depth+1, res)
				s.release(dst)
				if err != nil {
					return fail(err)
				}
				out = append(out, parts...)
				continue
			}
		}

		out = append(out, chunk)
	}

	return out, nil
}

// transcribeChunks processes chunks on a bounded pool. Results land in an
// ordinal-indexed slot array so completion order never matters.
func (p *Pipeline) transcribeChunks(ctx context.Context, s *scratch, chunks []chunkFile, budget int64) ([]ChunkResult, error) {
	results := make([]ChunkResult, len(chunks))

	var g errgroup.Group
	g.SetLimit(p.opts.Workers)
	for i := range chunks {
		i := i
		g.Go(func() error {
			results[i] = p.transcribeChunk(ctx, s, i, chunks[i], budget)
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// transcribeChunk never fails the request; errors are recorded on the result
func (p *Pipeline) transcribeChunk(ctx context.Context, s *scratch, ordinal int, c chunkFile, budget int64) (result ChunkResult) {
	result = ChunkResult{Ordinal: ordinal, Start: c.start, Length: c.length}
	audioPath := c.path

	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC transcribing chunk %d: %v\n%s", ordinal, r, string(debug.Stack()))
			result.Text = ""
			result.Err = fmt.Errorf("chunk panic: %v", r)
		}
		if audioPath != c.path {
			s.release(audioPath)
		}
		if c.owned {
			s.release(c.path)
		}
	}()

	if err := ctx.Err(); err != nil {
		result.Err = err
		return result
	}

	if c.kind == media.KindVideo && p.opts.ToolchainAvailable {
		wav := s.path("audio", ".wav")
		if err := p.transcoder.ExtractAudio(ctx, c.path, wav); err != nil {
			s.release(wav)
			log.Printf("Chunk %d: audio extraction failed: %v", ordinal, err)
			result.Err = err
			return result
		}
		audioPath = wav

		// 16 kHz PCM grows faster than a compressed chunk
		if info, err := os.Stat(wav); err == nil && info.Size() > budget {
			result.warning = fmt.Sprintf("chunk %d audio track is %s, above the %s budget",
				ordinal, humanize.IBytes(uint64(info.Size())), humanize.IBytes(uint64(budget)))
		}
	}

	text, err := p.transcribeWithRetry(ctx, ordinal, audioPath)
	if err != nil {
		log.Printf("Chunk %d: %v", ordinal, err)
		result.Err = err
		return result
	}

	result.Text = text
	return result
}

func (p *Pipeline) transcribeWithRetry(ctx context.Context, ordinal int, path string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= p.opts.TranscribeAttempts; attempt++ {
		text, err := p.transcriber.Transcribe(ctx, path)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if attempt == p.opts.TranscribeAttempts || ctx.Err() != nil {
			break
		}
		log.Printf("Chunk %d: transcription attempt %d/%d failed: %v", ordinal, attempt, p.opts.TranscribeAttempts, err)

		timer := time.NewTimer(p.backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
		if ctx.Err() != nil {
			break
		}
	}

	var tErr *TranscriptionError
	if !errors.As(lastErr, &tErr) {
		lastErr = &TranscriptionError{Path: path, Err: lastErr}
	}
	return "", lastErr
}

// assemble joins chunk texts in ordinal order, one line per chunk
func (p *Pipeline) assemble(results []ChunkResult) (string, error) {
	lines := make([]string, len(results))
	var errs []error
	for i, r := range results {
		if r.Failed() {
			lines[i] = p.opts.FailureMarker
			errs = append(errs, fmt.Errorf("chunk %d: %w", r.Ordinal, r.Err))
			continue
		}
		lines[i] = r.Text
	}

	if len(results) > 0 && len(errs) == len(results) {
		return "", fmt.Errorf("%w: %w", ErrAllChunksFailed, errors.Join(errs...))
	}

	return strings.Join(lines, "\n"), nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
