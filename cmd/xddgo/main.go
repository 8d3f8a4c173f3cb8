// Command xddgo runs a parallel storage I/O benchmark against one target,
// the CLI-surface analog of the teacher's cmd/ublk-mem.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ehrlich-b/xddgo"
	"github.com/ehrlich-b/xddgo/internal/backend"
	"github.com/ehrlich-b/xddgo/internal/interfaces"
	"github.com/ehrlich-b/xddgo/internal/logging"
	"github.com/ehrlich-b/xddgo/internal/pattern"
	"github.com/ehrlich-b/xddgo/internal/seeklist"
	"github.com/ehrlich-b/xddgo/internal/target"
	"github.com/ehrlich-b/xddgo/internal/throttle"
	"github.com/ehrlich-b/xddgo/internal/worker"
)

func main() {
	var (
		path       = flag.String("target", "", "path to the file or block device to exercise (empty uses an in-memory backend)")
		sizeStr    = flag.String("size", "64M", "size of the target (e.g., 64M, 1G)")
		blockSize  = flag.Int64("bs", 4096, "block size B in bytes")
		reqBlocks  = flag.Int64("reqsize", 1, "request size R in blocks")
		queueDepth = flag.Int("qd", 4, "queue depth Q (number of Worker Agents)")
		passes     = flag.Int("passes", 1, "number of passes to run")
		patternStr = flag.String("pattern", "sequential", "seek pattern: sequential, random, staggered, interleaved, none")
		orderStr   = flag.String("ordering", "unordered", "ordering regime: unordered, loose, strict")
		readFrac   = flag.Float64("readfrac", 0.0, "fraction of ops that are reads (0 => all writes)")
		opsPerSec  = flag.Float64("ops-per-sec", 0, "throttle to N ops/sec (0 disables)")
		mbPerSec   = flag.Float64("mb-per-sec", 0, "throttle to N MB/sec (0 disables)")
		runtime    = flag.Duration("runtime", 0, "deadline for the whole run (0 means run until passes complete)")
		verbose    = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	size, err := parseSize(*sizeStr)
	if err != nil {
		log.Fatalf("invalid size %q: %v", *sizeStr, err)
	}

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	seekPattern, err := parseSeekPattern(*patternStr)
	if err != nil {
		log.Fatalf("invalid pattern: %v", err)
	}
	ordering, err := parseOrdering(*orderStr)
	if err != nil {
		log.Fatalf("invalid ordering: %v", err)
	}

	var be interfaces.Backend
	if *path == "" {
		be = backend.NewMemory(size)
		logger.Info("using in-memory backend", "size", formatSize(size))
	} else {
		f, err := backend.OpenFile(backend.FileParams{Path: *path, Size: size})
		if err != nil {
			logger.Error("failed to open target", "path", *path, "error", err)
			os.Exit(1)
		}
		be = f
		logger.Info("opened target", "path", *path, "size", formatSize(size))
	}

	metrics := xddgo.NewMetrics()
	observer := xddgo.NewMetricsObserver(metrics)

	rc := xddgo.NewRunContext(xddgo.RunOptions{
		Runtime:  *runtime,
		Logger:   logger,
		Observer: observer,
	})

	entry := xddgo.TargetEntry{
		Name: "t0",
		Params: target.Params{
			Name:       "t0",
			QueueDepth: *queueDepth,
			Ordering:   ordering,
			SeekParams: seeklist.Params{
				Pattern:      seekPattern,
				BlockSize:    *blockSize,
				ReqBlocks:    *reqBlocks,
				TotalBytes:   size,
				ReadFraction: *readFrac,
				AllWrites:    *readFrac == 0,
			},
			Pattern:    pattern.Spec{Kind: pattern.KindSequenced},
			Backend:    be,
			BufferSize: int(*blockSize * *reqBlocks),
			Throttle: throttle.Spec{
				Mode:       throttleMode(*opsPerSec, *mbPerSec),
				OpsPerSec:  *opsPerSec,
				MBPerSec:   *mbPerSec,
			},
			Logger:   logger,
			Observer: observer,
		},
		Passes: *passes,
	}

	controller := xddgo.NewController(rc, []xddgo.TargetEntry{entry})
	controller.Heartbeat = func(s xddgo.Snapshot) {
		logger.Info("progress", "pass", s.PassNumber, "elapsed", s.Elapsed)
	}
	controller.HeartbeatInterval = time.Second

	results := controller.Run()
	metrics.Stop()

	for _, r := range results {
		fmt.Printf("%s pass %d: ops=%d bytes=%d errors=%d elapsed=%s\n",
			r.TargetName, r.Result.Pass, r.Result.OpsCompleted, r.Result.BytesXfered, r.Result.ErrorCount, r.Result.Elapsed)
	}

	snap := metrics.Snapshot()
	fmt.Printf("\ntotals: ops=%d bytes=%d read_iops=%.1f write_iops=%.1f p99=%dns\n",
		snap.TotalOps, snap.TotalBytes, snap.ReadIOPS, snap.WriteIOPS, snap.LatencyP99Ns)
}

func throttleMode(opsPerSec, mbPerSec float64) throttle.Mode {
	switch {
	case opsPerSec > 0:
		return throttle.ModeOpsPerSec
	case mbPerSec > 0:
		return throttle.ModeMBPerSec
	default:
		return throttle.ModeNone
	}
}

func parseSeekPattern(s string) (seeklist.Pattern, error) {
	switch strings.ToLower(s) {
	case "sequential":
		return seeklist.PatternSequential, nil
	case "random":
		return seeklist.PatternRandom, nil
	case "staggered":
		return seeklist.PatternStaggered, nil
	case "interleaved":
		return seeklist.PatternInterleaved, nil
	case "none":
		return seeklist.PatternNone, nil
	default:
		return 0, fmt.Errorf("unknown seek pattern %q", s)
	}
}

func parseOrdering(s string) (worker.Ordering, error) {
	switch strings.ToLower(s) {
	case "unordered":
		return worker.OrderingUnordered, nil
	case "loose":
		return worker.OrderingLoose, nil
	case "strict":
		return worker.OrderingStrict, nil
	default:
		return 0, fmt.Errorf("unknown ordering %q", s)
	}
}

// parseSize parses a size string like "64M", "1G", "512K".
func parseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))

	var multiplier int64 = 1
	var numStr string

	switch {
	case strings.HasSuffix(s, "K"):
		multiplier = 1024
		numStr = strings.TrimSuffix(s, "K")
	case strings.HasSuffix(s, "M"):
		multiplier = 1024 * 1024
		numStr = strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "G"):
		multiplier = 1024 * 1024 * 1024
		numStr = strings.TrimSuffix(s, "G")
	default:
		numStr = s
	}

	num, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil {
		return 0, err
	}
	return num * multiplier, nil
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	units := []string{"K", "M", "G", "T"}
	return fmt.Sprintf("%.1f %sB", float64(bytes)/float64(div), units[exp])
}
