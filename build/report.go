package build

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	d "github.com/invertedv/factdf"
	"github.com/invertedv/factdf/schema"
)

// StageReport holds the join statistics of one stage.
type StageReport struct {
	Stage string
	Left  string
	Right string

	d.JoinStats
}

// Report describes one build.
type Report struct {
	RunID   uuid.UUID
	Mode    schema.KeyMode
	Backend Backend
	Table   string

	Stages []StageReport
	Rows   int

	Started time.Time
	Elapsed time.Duration
}

// Dropped is the number of rows discarded by all stages.
func (r *Report) Dropped() int {
	n := 0
	for _, s := range r.Stages {
		n += s.JoinStats.Dropped()
	}

	return n
}

func (r *Report) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "run %s: %s built in %s mode (%s backend), %d rows in %s\n",
		r.RunID, r.Table, r.Mode, r.Backend, r.Rows, r.Elapsed.Round(time.Millisecond))
	for _, s := range r.Stages {
		fmt.Fprintf(&sb, "  %-10s %s x %s: %s\n", s.Stage, s.Left, s.Right, s.JoinStats.String())
	}

	if n := r.Dropped(); n > 0 {
		fmt.Fprintf(&sb, "  %d rows had no match and were dropped\n", n)
	}

	return sb.String()
}
