// Command profiler exercises archive decode paths under pprof, fgprof,
// and the execution tracer. It assembles a synthetic archive in memory,
// optionally wrapping each asset in a block-compressed stream, then runs
// one workload in a loop and reports throughput.
package main

import (
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"math/rand" //nolint:gosec // intentional use for reproducible benchmarks
	"net/http"
	_ "net/http/pprof" //nolint:gosec // intentional profiling endpoint
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"time"

	"github.com/felixge/fgprof"

	"github.com/hmtools/hpk"
	"github.com/hmtools/hpk/blockstream"
	"github.com/hmtools/hpk/cache"
	"github.com/hmtools/hpk/compress"
)

const (
	cacheNone = "none"
	codecNone = "none"
)

type config struct {
	mode        string
	files       int
	fileSize    int
	dirCount    int
	codec       string
	blockSize   int
	pattern     string
	rangeSize   int
	cache       string
	cacheBlocks int
	fgProfile   string
	duration    time.Duration
	iterations  int
	pprofAddr   string
	cpuProfile  string
	memProfile  string
	traceFile   string
	readRandom  bool
	randomSeed  int64
}

//nolint:unused // sink variables prevent compiler optimizations in profiling
var (
	sinkBytes []byte
	sinkCount int
)

func main() {
	cfg := parseFlags()

	if cfg.pprofAddr != "" {
		go func() {
			log.Printf("pprof listening on %s", cfg.pprofAddr)
			//nolint:gosec // intentional pprof server without timeouts for profiling
			if err := http.ListenAndServe(cfg.pprofAddr, nil); err != nil {
				log.Printf("pprof server error: %v", err)
			}
		}()
	}

	paths, payloads, err := makeAssets(cfg)
	if err != nil {
		log.Fatal(err)
	}

	a, raw, err := buildArchive(paths, payloads, cfg)
	if err != nil {
		log.Fatal(err)
	}

	var stopFG func() error
	if cfg.fgProfile != "" {
		fgFile, fgErr := os.Create(cfg.fgProfile)
		if fgErr != nil {
			log.Fatal(fgErr)
		}
		stopFG = fgprof.Start(fgFile, fgprof.FormatPprof)
		defer func() {
			if err := stopFG(); err != nil {
				log.Printf("fgprof stop error: %v", err)
			}
			_ = fgFile.Close()
		}()
	}

	if cfg.cpuProfile != "" {
		cpuFile, cpuErr := os.Create(cfg.cpuProfile)
		if cpuErr != nil {
			log.Fatal(cpuErr)
		}
		if cpuErr = pprof.StartCPUProfile(cpuFile); cpuErr != nil {
			log.Fatal(cpuErr)
		}
		defer func() {
			pprof.StopCPUProfile()
			_ = cpuFile.Close()
		}()
	}

	if cfg.traceFile != "" {
		traceFile, traceErr := os.Create(cfg.traceFile)
		if traceErr != nil {
			log.Fatal(traceErr)
		}
		if traceErr = trace.Start(traceFile); traceErr != nil {
			log.Fatal(traceErr)
		}
		defer func() {
			trace.Stop()
			_ = traceFile.Close()
		}()
	}

	stats, err := runProfile(cfg, a, raw, paths, payloads)
	if err != nil {
		log.Fatal(err) //nolint:gocritic // exitAfterDefer is intentional - profiles above are best-effort
	}

	if cfg.memProfile != "" {
		runtime.GC()
		f, err := os.Create(cfg.memProfile)
		if err != nil {
			log.Fatal(err)
		}
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatal(err)
		}
		_ = f.Close()
	}

	fmt.Printf("mode=%s ops=%d bytes=%d elapsed=%s throughput=%.2f MB/s\n",
		cfg.mode,
		stats.ops,
		stats.bytes,
		stats.elapsed,
		float64(stats.bytes)/(1024*1024)/stats.elapsed.Seconds(),
	)
}

type profileStats struct {
	ops     int
	bytes   int64
	elapsed time.Duration
}

// rangeReader is the surface shared by blockstream.Reader and its cached
// wrapper, so the rangeread mode can run with or without a block cache.
type rangeReader interface {
	Size() int64
	ReadRange(start, length int64) ([]byte, error)
}

//nolint:gocognit,gocyclo,gocritic // complexity is inherent to multi-mode profiler dispatch; hugeParam acceptable for profiler
func runProfile(cfg config, a *hpk.Archive, raw []byte, paths []string, payloads [][]byte) (profileStats, error) {
	start := time.Now()
	ops := 0
	var byteCount int64

	shouldContinue := func() bool {
		if cfg.iterations > 0 {
			return ops < cfg.iterations
		}
		return time.Since(start) < cfg.duration
	}

	switch cfg.mode {
	case "readfile":
		readFS := fs.ReadFileFS(a)
		rng := rand.New(rand.NewSource(cfg.randomSeed)) //nolint:gosec // intentional for reproducible benchmarks
		for shouldContinue() {
			path := pickPath(paths, ops, rng, cfg.readRandom)
			data, err := readFS.ReadFile(path)
			if err != nil {
				return profileStats{}, err
			}
			sinkBytes = data
			byteCount += int64(len(data))
			ops++
		}

	case "rangeread":
		readers, err := openRangeReaders(a, cfg)
		if err != nil {
			return profileStats{}, err
		}
		rng := rand.New(rand.NewSource(cfg.randomSeed)) //nolint:gosec // intentional for reproducible benchmarks
		for shouldContinue() {
			r := readers[ops%len(readers)]
			length := int64(cfg.rangeSize)
			if length > r.Size() {
				length = r.Size()
			}
			off := int64(0)
			if cfg.readRandom && r.Size() > length {
				off = rng.Int63n(r.Size() - length + 1)
			}
			data, err := r.ReadRange(off, length)
			if err != nil {
				return profileStats{}, err
			}
			sinkBytes = data
			byteCount += length
			ops++
		}

	case "extract":
		for shouldContinue() {
			n, err := extractAll(a)
			if err != nil {
				return profileStats{}, err
			}
			byteCount += n
			ops++
		}

	case "open":
		for shouldContinue() {
			a2, err := hpk.OpenBytes(raw)
			if err != nil {
				return profileStats{}, err
			}
			count := 0
			for range a2.Root().Walk() {
				count++
			}
			sinkCount = count
			byteCount += int64(len(raw))
			ops++
		}

	case "build":
		for shouldContinue() {
			out, err := assembleArchive(paths, payloads, cfg)
			if err != nil {
				return profileStats{}, err
			}
			sinkBytes = out
			byteCount += int64(len(out))
			ops++
		}

	default:
		return profileStats{}, fmt.Errorf("unknown mode: %s", cfg.mode)
	}

	return profileStats{
		ops:     ops,
		bytes:   byteCount,
		elapsed: time.Since(start),
	}, nil
}

func parseFlags() config {
	var cfg config
	flag.StringVar(&cfg.mode, "mode", "readfile", "mode: readfile, rangeread, extract, open, build")
	flag.IntVar(&cfg.files, "files", 512, "number of files")
	flag.IntVar(&cfg.fileSize, "file-size", 16<<10, "file size in bytes")
	flag.IntVar(&cfg.dirCount, "dir-count", 16, "number of directories")
	flag.StringVar(&cfg.codec, "codec", "zlib", "block compression: none, zlib, lz4, zstd")
	flag.IntVar(&cfg.blockSize, "block-size", blockstream.DefaultBlockSize, "block size for compressed assets")
	flag.StringVar(&cfg.pattern, "pattern", "compressible", "pattern: compressible or random")
	flag.IntVar(&cfg.rangeSize, "range-size", 4<<10, "bytes per range read (rangeread mode)")
	flag.StringVar(&cfg.cache, "cache", "memory", "block cache for rangeread: memory or none")
	flag.IntVar(&cfg.cacheBlocks, "cache-blocks", cache.DefaultMaxBlocks, "block cache capacity")
	flag.StringVar(&cfg.fgProfile, "fgprofile", "", "write fgprof (wall clock) profile to file")
	flag.DurationVar(&cfg.duration, "duration", 10*time.Second, "duration to run (ignored if iterations > 0)")
	flag.IntVar(&cfg.iterations, "iterations", 0, "number of iterations to run")
	flag.StringVar(&cfg.pprofAddr, "pprof-addr", "", "pprof listen address (e.g. :6060)")
	flag.StringVar(&cfg.cpuProfile, "cpuprofile", "", "write CPU profile to file")
	flag.StringVar(&cfg.memProfile, "memprofile", "", "write heap profile to file")
	flag.StringVar(&cfg.traceFile, "trace", "", "write trace to file")
	flag.BoolVar(&cfg.readRandom, "read-random", true, "randomize path and offset selection")
	flag.Int64Var(&cfg.randomSeed, "seed", 1, "random seed")
	flag.Parse()
	return cfg
}

func pickPath(paths []string, idx int, rng *rand.Rand, random bool) string {
	if random {
		return paths[rng.Intn(len(paths))]
	}
	return paths[idx%len(paths)]
}

// makeAssets generates deterministic file paths and payloads.
func makeAssets(cfg config) ([]string, [][]byte, error) {
	dirCount := cfg.dirCount
	if dirCount <= 0 {
		dirCount = 1
	}
	paths := make([]string, 0, cfg.files)
	payloads := make([][]byte, 0, cfg.files)
	rng := rand.New(rand.NewSource(cfg.randomSeed)) //nolint:gosec // intentional use for reproducible benchmarks
	for i := range cfg.files {
		content := make([]byte, cfg.fileSize)
		switch cfg.pattern {
		case "random":
			if _, err := rng.Read(content); err != nil {
				return nil, nil, err
			}
		default:
			fillByte := byte('a' + (i % 26))
			for j := range content {
				content[j] = fillByte
			}
			if len(content) > 0 {
				content[0] = byte(i)
			}
		}
		paths = append(paths, fmt.Sprintf("dir%02d/file%05d.dat", i%dirCount, i))
		payloads = append(payloads, content)
	}
	return paths, payloads, nil
}

// assembleArchive builds the archive image, wrapping each payload in a
// block-compressed stream when a codec is selected.
func assembleArchive(paths []string, payloads [][]byte, cfg config) ([]byte, error) {
	codec := parseCodec(cfg.codec)
	b := hpk.NewBuilder()
	for i, path := range paths {
		data := payloads[i]
		if codec != nil {
			enc, err := blockstream.Encode(data,
				blockstream.WithCodec(codec),
				blockstream.WithBlockSize(cfg.blockSize),
			)
			if err != nil {
				return nil, err
			}
			data = enc
		}
		if err := b.AddFile(path, data); err != nil {
			return nil, err
		}
	}
	return b.Bytes()
}

func buildArchive(paths []string, payloads [][]byte, cfg config) (*hpk.Archive, []byte, error) {
	raw, err := assembleArchive(paths, payloads, cfg)
	if err != nil {
		return nil, nil, err
	}
	a, err := hpk.OpenBytes(raw)
	if err != nil {
		return nil, nil, err
	}
	return a, raw, nil
}

func parseCodec(name string) compress.Codec {
	if name == codecNone {
		return nil
	}
	c, ok := compress.ByName(name)
	if !ok {
		log.Fatalf("unknown codec: %s", name)
	}
	return c
}

// openRangeReaders opens a decoder for every block-compressed asset,
// wrapped in a shared block cache unless caching is disabled.
func openRangeReaders(a *hpk.Archive, cfg config) ([]rangeReader, error) {
	var blocks *cache.Blocks
	if cfg.cache != cacheNone {
		c, err := cache.NewBlocks(cfg.cacheBlocks)
		if err != nil {
			return nil, err
		}
		blocks = c
	}

	var readers []rangeReader
	for path, node := range a.Root().Walk() {
		f, ok := node.(*hpk.File)
		if !ok {
			continue
		}
		src := a.Data(f)
		if !blockstream.Detect(src) {
			continue
		}
		r, err := blockstream.Open(src)
		if err != nil {
			return nil, fmt.Errorf("open stream %s: %w", path, err)
		}
		if r.Size() == 0 {
			continue
		}
		if blocks != nil {
			readers = append(readers, cache.NewReader(r, blocks))
		} else {
			readers = append(readers, r)
		}
	}
	if len(readers) == 0 {
		return nil, fmt.Errorf("rangeread needs block-compressed assets; use -codec")
	}
	return readers, nil
}

// extractAll decodes every file once, discarding the output.
func extractAll(a *hpk.Archive) (int64, error) {
	var total int64
	for path, node := range a.Root().Walk() {
		f, ok := node.(*hpk.File)
		if !ok {
			continue
		}
		src := a.Data(f)
		if blockstream.Detect(src) {
			r, err := blockstream.Open(src)
			if err != nil {
				return 0, fmt.Errorf("open stream %s: %w", path, err)
			}
			n, err := r.WriteTo(io.Discard)
			if err != nil {
				return 0, fmt.Errorf("extract %s: %w", path, err)
			}
			total += n
			continue
		}
		data, err := a.ReadAll(f)
		if err != nil {
			return 0, fmt.Errorf("extract %s: %w", path, err)
		}
		sinkBytes = data
		total += int64(len(data))
	}
	return total, nil
}
