package modules

import (
	"context"
	"fmt"

	"tnctl/middleware"
	"tnctl/types"
)

type ScrubTaskParams struct {
	Pool        string  `yaml:"pool" validate:"required,notblank"`
	State       string  `yaml:"state" validate:"oneof=present absent"`
	Description *string `yaml:"description"`
	Threshold   *int    `yaml:"threshold" validate:"omitempty,min=0"`
	Enabled     *bool   `yaml:"enabled"`

	// Scrubs always start on the hour, so minute is accepted for cron compatibility and ignored
	Minute  *string `yaml:"minute"`
	Hour    *string `yaml:"hour"`
	Day     *string `yaml:"day"`
	Month   *string `yaml:"month"`
	Weekday *string `yaml:"weekday"`
}

var poolScrubTaskModule = define(
	"pool_scrub_task",
	"Schedule periodic pool scrubs",
	map[string]string{
		"date": "day",
		"dom":  "day",
		"dow":  "weekday",
	},
	func() *ScrubTaskParams { return &ScrubTaskParams{State: StatePresent} },
	runPoolScrubTask,
)

func runPoolScrubTask(ctx context.Context, env *Env, p *ScrubTaskParams) (*types.Result, error) {
	res := types.NewResult()

	if p.Minute != nil {
		res.Warn("minute is ignored: scrub tasks run on the hour")
	}

	task, err := queryOne[types.ScrubTask](ctx, env.MW, "pool.scrub.query", middleware.Eq("pool_name", p.Pool))

	if err != nil {
		return nil, fmt.Errorf("error looking up scrub task for %s: %w", p.Pool, err)
	}

	switch {
	case task == nil && p.State == StateAbsent:
		return res, nil

	case task == nil:
		pool, err := queryOne[types.Pool](ctx, env.MW, "pool.query", middleware.Eq("name", p.Pool))

		if err != nil {
			return nil, fmt.Errorf("error looking up pool %s: %w", p.Pool, err)
		}

		if pool == nil {
			return nil, fmt.Errorf("no such pool: %s", p.Pool)
		}

		d := newDiff()
		d.Set("pool", pool.ID)
		add(d, "description", p.Description)
		add(d, "threshold", p.Threshold)
		add(d, "enabled", p.Enabled)

		sched := newDiff()
		add(sched, "hour", p.Hour)
		add(sched, "dom", p.Day)
		add(sched, "month", p.Month)
		add(sched, "dow", p.Weekday)

		if !sched.Empty() {
			d.Set("schedule", sched)
		}

		res.Changed = true
		res.Set("invocation", d)

		if env.CheckMode {
			res.Msg = fmt.Sprintf("Would have created scrub task with %s", d)
			return res, nil
		}

		created, err := env.MW.Call(ctx, "pool.scrub.create", d)

		if err != nil {
			return nil, fmt.Errorf("error creating scrub task: %w", err)
		}

		res.Msg = fmt.Sprintf("Created scrub task for %s", p.Pool)
		res.Set("task", created)

	case p.State == StateAbsent:
		res.Changed = true

		if env.CheckMode {
			res.Msg = fmt.Sprintf("Would have deleted scrub task for %s", p.Pool)
			return res, nil
		}

		if _, err := env.MW.Call(ctx, "pool.scrub.delete", task.ID); err != nil {
			return nil, fmt.Errorf("error deleting scrub task: %w", err)
		}

		res.Msg = fmt.Sprintf("Deleted scrub task for %s", p.Pool)

	default:
		d := newDiff()
		update(d, "description", p.Description, task.Description)
		update(d, "threshold", p.Threshold, task.Threshold)
		update(d, "enabled", p.Enabled, task.Enabled)

		sched := newDiff()
		update(sched, "hour", p.Hour, task.Schedule.Hour)
		update(sched, "dom", p.Day, task.Schedule.Dom)
		update(sched, "month", p.Month, task.Schedule.Month)
		update(sched, "dow", p.Weekday, task.Schedule.Dow)

		if !sched.Empty() {
			d.Set("schedule", sched)
		}

		if d.Empty() {
			return res, nil
		}

		res.Changed = true
		res.Set("invocation", d)

		if env.CheckMode {
			res.Msg = fmt.Sprintf("Would have updated scrub task: %s", d)
			return res, nil
		}

		if _, err := env.MW.Call(ctx, "pool.scrub.update", task.ID, d); err != nil {
			return nil, fmt.Errorf("error updating scrub task with %s: %w", d, err)
		}

		res.Msg = fmt.Sprintf("Updated scrub task for %s", p.Pool)
	}

	return res, nil
}
