package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ivlev/storyvideo/internal/config"
)

// BenchmarkLog is appended to after every render with stats enabled.
var BenchmarkLog = "benchmark.log"

var benchmarkMu sync.Mutex

func (r *Renderer) report(cfg *config.Config, res *Result) {
	report := fmt.Sprintf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Run: %s\n"+
			"Video Length: %.2fs\n"+
			"Total Time: %.2fs\n"+
			"Compositing+Encoding: %.2fs\n"+
			"Effective FPS: %.2f\n"+
			"Memory: %s\n"+
			"----------------------------\n",
		cfg.BuildVersion, res.RunID, res.Duration.Seconds(), res.Elapsed.Seconds(),
		res.Video.Elapsed.Seconds(), res.Video.FPS(), res.Memory,
	)
	fmt.Fprint(r.Out, report)

	entry := fmt.Sprintf("[%s] Build: %s | Input: %s | Pages: %d | Frames: %d | Total: %.2fs | Video: %.2fs | FPS: %.2f | RSS: %d\n",
		time.Now().Format("2006-01-02 15:04:05"),
		cfg.BuildVersion,
		filepath.Base(res.Story),
		res.Pages,
		res.Video.Frames,
		res.Elapsed.Seconds(),
		res.Video.Elapsed.Seconds(),
		res.Video.FPS(),
		res.Memory.ProcessRSS,
	)

	benchmarkMu.Lock()
	defer benchmarkMu.Unlock()
	f, err := os.OpenFile(BenchmarkLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		r.Log.Warn().Err(err).Str("path", BenchmarkLog).Msg("cannot write benchmark log")
		return
	}
	defer f.Close()
	f.WriteString(entry)
}
