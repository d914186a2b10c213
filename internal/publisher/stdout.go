package publisher

import (
	"context"
	"fmt"
	"strings"

	"github.com/rkanno/arxiv-daily/internal/pipeline"
)

// StdoutPublisher prints the run to stdout.
type StdoutPublisher struct{}

func NewStdoutPublisher() *StdoutPublisher {
	return &StdoutPublisher{}
}

func (p *StdoutPublisher) Publish(_ context.Context, run *pipeline.Run) error {
	fmt.Println(strings.Repeat("=", 72))
	fmt.Printf("arXiv Daily: %s\n", run.Date.Format("2006-01-02"))
	fmt.Printf("Window: last %d day(s) | Selected: %d\n", run.DaysBack, run.TotalSelected())
	fmt.Println(strings.Repeat("=", 72))

	for _, tr := range run.Topics {
		fmt.Println()
		fmt.Printf("%s (%d)\n", tr.Topic, len(tr.Papers))
		fmt.Println(strings.Repeat("-", 72))
		if len(tr.Papers) == 0 {
			fmt.Println("  no matches today")
			continue
		}
		for i, s := range tr.Papers {
			fmt.Printf("%2d. [%d] %s\n", i+1, s.Score, s.Paper.Title)
			fmt.Printf("    %s\n", s.Paper.URL)
			if len(s.Matched) > 0 {
				fmt.Printf("    matched: %s\n", strings.Join(s.Matched, ", "))
			}
		}
	}

	fmt.Println()
	fmt.Println(strings.Repeat("=", 72))
	return nil
}
