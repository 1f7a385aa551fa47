package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/pkg/client"
)

type checkCase struct {
	Name     string               `json:"name"`
	Critical bool                 `json:"critical"`
	Request  dto.CheckMoveRequest `json:"request"`
}

type casesFile struct {
	Cases []checkCase `json:"cases"`
}

type comparison struct {
	Case              checkCase
	Diffs             []string
	Error             error
	DurationCandidate time.Duration
	DurationBaseline  time.Duration
}

func main() {
	var (
		candidateBase string
		baselineBase  string
		casesPath     string
		timeout       time.Duration
		retries       int
	)

	flag.StringVar(&candidateBase, "candidate", "http://localhost:8080/api/v1", "Candidate API base URL including prefix")
	flag.StringVar(&baselineBase, "baseline", "http://localhost:8081/api/v1", "Baseline API base URL including prefix")
	flag.StringVar(&casesPath, "cases", filepath.Join("scripts", "shadow_compare", "cases.json"), "Path to JSON check-move cases")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.IntVar(&retries, "retries", 1, "Retries on transport failures")
	flag.Parse()

	cases, err := loadCases(casesPath)
	if err != nil {
		log.Fatalf("failed to load cases: %v", err)
	}

	newClient := func(base string) *client.Client {
		return client.New(base, client.WithHTTPClient(&http.Client{Timeout: timeout}), client.WithRetries(retries, 200*time.Millisecond))
	}
	candidate := newClient(candidateBase)
	baseline := newClient(baselineBase)

	var (
		comparisons  []comparison
		breaking     int
		optionalDiff int
	)
	ctx := context.Background()
	for _, c := range cases {
		comp := compareCase(ctx, candidate, baseline, c)
		if comp.Error != nil || len(comp.Diffs) > 0 {
			if c.Critical {
				breaking++
			} else {
				optionalDiff++
			}
		}
		comparisons = append(comparisons, comp)
	}

	printReport(comparisons)

	fmt.Printf("Breaking diffs: %d, Optional diffs: %d\n", breaking, optionalDiff)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadCases(path string) ([]checkCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file casesFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if len(file.Cases) == 0 {
		return nil, fmt.Errorf("no cases defined in %s", path)
	}
	return file.Cases, nil
}

func compareCase(ctx context.Context, candidate, baseline *client.Client, c checkCase) comparison {
	comp := comparison{Case: c}

	start := time.Now()
	candidateResp, err := candidate.CheckMove(ctx, c.Request)
	comp.DurationCandidate = time.Since(start)
	if err != nil {
		comp.Error = fmt.Errorf("candidate request failed: %w", err)
		return comp
	}

	start = time.Now()
	baselineResp, err := baseline.CheckMove(ctx, c.Request)
	comp.DurationBaseline = time.Since(start)
	if err != nil {
		comp.Error = fmt.Errorf("baseline request failed: %w", err)
		return comp
	}

	comp.Diffs = diffVerdicts(candidateResp.Slots, baselineResp.Slots)
	return comp
}

// diffVerdicts compares validity and conflict types per slot. Messages are free text and ignored.
func diffVerdicts(candidate, baseline []dto.SlotValidation) []string {
	var diffs []string
	if len(candidate) != len(baseline) {
		diffs = append(diffs, fmt.Sprintf("slot count: candidate %d, baseline %d", len(candidate), len(baseline)))
	}

	index := make(map[[2]int]dto.SlotValidation, len(baseline))
	for _, s := range baseline {
		index[[2]int{s.Day, s.Period}] = s
	}
	for _, got := range candidate {
		want, ok := index[[2]int{got.Day, got.Period}]
		if !ok {
			diffs = append(diffs, fmt.Sprintf("day %d period %d: missing from baseline", got.Day, got.Period))
			continue
		}
		if got.Valid != want.Valid {
			diffs = append(diffs, fmt.Sprintf("day %d period %d: valid candidate=%t baseline=%t", got.Day, got.Period, got.Valid, want.Valid))
		}
		if a, b := conflictTypes(got), conflictTypes(want); a != b {
			diffs = append(diffs, fmt.Sprintf("day %d period %d: conflicts candidate=[%s] baseline=[%s]", got.Day, got.Period, a, b))
		}
	}
	return diffs
}

func conflictTypes(s dto.SlotValidation) string {
	types := make([]string, 0, len(s.Conflicts))
	for _, c := range s.Conflicts {
		types = append(types, string(c.Type))
	}
	sort.Strings(types)
	return strings.Join(types, ",")
}

func printReport(results []comparison) {
	fmt.Println("Shadow Compare Report")
	fmt.Println("======================")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if len(res.Diffs) > 0 {
			status = "DIFF"
		}
		fmt.Printf("[%s] %s (lesson %s)\n", status, res.Case.Name, res.Case.Request.LessonID)
		fmt.Printf("  Candidate: %s | Baseline: %s | Critical: %t\n", res.DurationCandidate, res.DurationBaseline, res.Case.Critical)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
			continue
		}
		for _, d := range res.Diffs {
			fmt.Printf("  - %s\n", d)
		}
	}
}
