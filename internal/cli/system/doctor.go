package system

import (
	"context"
	"fmt"
	"time"

	"github.com/julianstephens/habitloop/internal/cli"
	"github.com/julianstephens/habitloop/internal/keyring"
)

type DoctorCmd struct{}

type checkStatus int

const (
	statusOK checkStatus = iota
	statusWarn
	statusFail
	statusSkip
)

type checkResult struct {
	Name   string
	Status checkStatus
	Detail string
}

func (r checkResult) String() string {
	var mark string
	switch r.Status {
	case statusOK:
		mark = cli.OKStyle.Render("✓")
	case statusWarn:
		mark = cli.WarnStyle.Render("⚠")
	case statusFail:
		mark = cli.FailStyle.Render("✗")
	default:
		mark = cli.LabelStyle.UnsetWidth().Render("⊘")
	}
	line := fmt.Sprintf("%s %s", mark, r.Name)
	if r.Detail != "" {
		line += "\n   " + r.Detail
	}
	return line
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	results := runChecks(ctx)

	out := ctx.Stdout()
	fmt.Fprintln(out, cli.TitleStyle.Render("Running diagnostics..."))
	failed := 0
	for _, r := range results {
		fmt.Fprintln(out, r.String())
		if r.Status == statusFail {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}

func runChecks(ctx *cli.Context) []checkResult {
	var results []checkResult

	dbCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := ctx.Store.Load(dbCtx); err != nil {
		results = append(results,
			checkResult{Name: "Database schema", Status: statusFail, Detail: err.Error()},
			checkResult{Name: "Database reachable", Status: statusSkip, Detail: "schema not loaded"},
		)
	} else {
		results = append(results, checkResult{Name: "Database schema", Status: statusOK})
		if err := ctx.Store.Ping(dbCtx); err != nil {
			results = append(results, checkResult{Name: "Database reachable", Status: statusFail, Detail: err.Error()})
		} else {
			results = append(results, checkResult{Name: "Database reachable", Status: statusOK, Detail: ctx.Store.GetConfigPath()})
		}
		ctx.Store.Close()
	}

	if engine, err := ctx.Config.Engine(); err != nil {
		results = append(results, checkResult{Name: "Cycle timezone", Status: statusFail, Detail: err.Error()})
	} else {
		now := time.Now()
		detail := fmt.Sprintf("current cycle %s to %s",
			engine.Start(now).Format("Mon 15:04"), engine.NextStart(now).Format("Mon 15:04 MST"))
		results = append(results, checkResult{Name: "Cycle timezone", Status: statusOK, Detail: detail})
	}

	if keyring.IsAvailable() {
		results = append(results, checkResult{Name: "OS keyring", Status: statusOK})
	} else {
		results = append(results, checkResult{Name: "OS keyring", Status: statusWarn, Detail: "secrets must come from config or environment"})
	}

	if _, err := ctx.NewTokens(); err != nil {
		results = append(results, checkResult{Name: "Token secret", Status: statusFail, Detail: err.Error()})
	} else {
		results = append(results, checkResult{Name: "Token secret", Status: statusOK})
	}

	if keyring.Lookup(keyring.ExtractAPIKey, ctx.Config.Extract.APIKey) == "" && ctx.Extractor == nil {
		results = append(results, checkResult{Name: "Extraction API key", Status: statusWarn, Detail: "habit creation will fail until extract.api_key is set"})
	} else {
		results = append(results, checkResult{Name: "Extraction API key", Status: statusOK})
	}

	return results
}
