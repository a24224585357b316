package benchmark

import (
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/fogfactory/datapipe"
	"github.com/samber/lo"
)

// Profile generates a CPU profile of a parallel map pipeline. It will be
// outputted as datapipe_{date}_n{items}_p{parallelism}.prof.
//
// - items Number of records pushed through the pipeline.
// - parallelism Worker pool size of the map operator.
//
// use pprof to read the file (go install github.com/google/pprof@latest).
func Profile(items, parallelism int) {
	// Profile file
	f, err := os.Create(fmt.Sprintf("datapipe_%s_n%d_p%d.prof",
		time.Now().Truncate(time.Second).Format("2006-01-02-15-04-05"),
		items,
		parallelism))
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	// Init pipeline
	records := lo.Map(lo.Range(items), func(i, _ int) datapipe.Record { return datapipe.IntVal(int64(i)) })
	slowDouble := func(r datapipe.Record) (datapipe.Record, error) {
		time.Sleep(time.Millisecond)
		return datapipe.IntVal(r.Int() * 2), nil
	}
	p, err := datapipe.ReadSequence(records).
		Map(slowDouble, datapipe.WithParallelism(parallelism)).
		Prefetch(parallelism).
		AndReturn()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	// Start profiling
	func() {
		_ = pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()

		// Drain pipeline
		start := time.Now()
		for {
			_, ok, err := p.Next()
			if err != nil {
				fmt.Println(err)
				os.Exit(1)
			}
			if !ok {
				break
			}
		}
		fmt.Printf("(par: %s)\n", time.Since(start))
	}()

	// linear processing equivalent
	start := time.Now()
	for _, r := range records {
		if _, err := slowDouble(r); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	}
	fmt.Printf("(seq: %s)\n", time.Since(start))
	fmt.Printf("profile:%s\n", f.Name())

	// Call pprof on a file
	// pprof -http=:8080 $file
}
