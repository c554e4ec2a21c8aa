package modules

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"tnctl/middleware"
	"tnctl/types"
)

type SnapshotMatch struct {
	ID         *int    `yaml:"id"`
	Dataset    *string `yaml:"dataset"`
	NameFormat *string `yaml:"name_format"`
}

type SnapshotTaskParams struct {
	Match         SnapshotMatch `yaml:"match"`
	State         string        `yaml:"state" validate:"oneof=present absent"`
	Dataset       string        `yaml:"dataset" validate:"required,notblank"`
	Recursive     *bool         `yaml:"recursive" validate:"required"`
	LifetimeValue *int          `yaml:"lifetime_value" validate:"required,min=1"`
	LifetimeUnit  string        `yaml:"lifetime_unit" validate:"required"`
	NameFormat    string        `yaml:"name_format" validate:"required,notblank"`
	BeginTime     *string       `yaml:"begin_time"`
	EndTime       *string       `yaml:"end_time"`
	Exclude       []string      `yaml:"exclude"`
	AllowEmpty    *bool         `yaml:"allow_empty"`
	Enabled       *bool         `yaml:"enabled"`

	Minute  *string `yaml:"minute"`
	Hour    *string `yaml:"hour"`
	Day     *string `yaml:"day"`
	Month   *string `yaml:"month"`
	Weekday *string `yaml:"weekday"`
}

var lifetimeUnits = map[string]string{
	"hour":  "HOUR",
	"day":   "DAY",
	"week":  "WEEK",
	"month": "MONTH",
	"year":  "YEAR",
}

var clockRe = regexp.MustCompile(`^\d?\d:\d\d$`)

// clockTime checks an HH:MM time and pads a single-digit hour
func clockTime(name string, s *string) error {
	if s == nil {
		return nil
	}

	t := strings.TrimSpace(*s)

	if !clockRe.MatchString(t) {
		return fmt.Errorf("illegal value for %s: %q, should be of the form HH:MM", name, *s)
	}

	if len(t) == 4 {
		t = "0" + t
	}

	*s = t
	return nil
}

func (p *SnapshotTaskParams) check() error {
	if p.Match.ID == nil && p.Match.Dataset == nil && p.Match.NameFormat == nil {
		return errors.New("no match conditions given")
	}

	unit, ok := lifetimeUnits[strings.TrimSuffix(strings.ToLower(p.LifetimeUnit), "s")]

	if !ok {
		return fmt.Errorf("unknown lifetime_unit %q", p.LifetimeUnit)
	}

	p.LifetimeUnit = unit

	if err := clockTime("begin_time", p.BeginTime); err != nil {
		return err
	}

	return clockTime("end_time", p.EndTime)
}

var poolSnapshotTaskModule = define(
	"pool_snapshot_task",
	"Schedule periodic ZFS snapshots",
	map[string]string{
		"date": "day",
		"dom":  "day",
		"dow":  "weekday",
	},
	func() *SnapshotTaskParams { return &SnapshotTaskParams{State: StatePresent} },
	runPoolSnapshotTask,
)

func (p *SnapshotTaskParams) filters() middleware.Filters {
	var f middleware.Filters

	if p.Match.ID != nil {
		f = f.And("id", "=", *p.Match.ID)
	}
	if p.Match.Dataset != nil {
		f = f.And("dataset", "=", *p.Match.Dataset)
	}
	if p.Match.NameFormat != nil {
		f = f.And("naming_schema", "~", *p.Match.NameFormat)
	}

	return f
}

func runPoolSnapshotTask(ctx context.Context, env *Env, p *SnapshotTaskParams) (*types.Result, error) {
	res := types.NewResult()

	raw, err := env.MW.Call(ctx, "pool.snapshottask.query", p.filters())

	if err != nil {
		return nil, fmt.Errorf("error looking up snapshot task: %w", err)
	}

	var tasks []types.SnapshotTask

	if err := middleware.Decode(raw, &tasks); err != nil {
		return nil, fmt.Errorf("can't decode pool.snapshottask.query result: %w", err)
	}

	switch {
	case len(tasks) == 0 && p.State == StateAbsent:
		return res, nil

	case len(tasks) == 0:
		d := newDiff()
		d.Set("dataset", p.Dataset)
		d.Set("recursive", *p.Recursive)
		d.Set("lifetime_value", *p.LifetimeValue)
		d.Set("lifetime_unit", p.LifetimeUnit)
		d.Set("naming_schema", p.NameFormat)

		if p.Exclude != nil && *p.Recursive {
			d.Set("exclude", p.Exclude)
		}

		add(d, "allow_empty", p.AllowEmpty)
		add(d, "enabled", p.Enabled)

		sched := newDiff()
		add(sched, "begin", p.BeginTime)
		add(sched, "end", p.EndTime)
		add(sched, "minute", p.Minute)
		add(sched, "hour", p.Hour)
		add(sched, "dom", p.Day)
		add(sched, "month", p.Month)
		add(sched, "dow", p.Weekday)

		if !sched.Empty() {
			d.Set("schedule", sched)
		}

		res.Changed = true
		res.Set("changes", d)

		if env.CheckMode {
			res.Msg = "Would have created snapshot task. See 'changes'."
			return res, nil
		}

		created, err := env.MW.Call(ctx, "pool.snapshottask.create", d)

		if err != nil {
			return nil, fmt.Errorf("error creating snapshot task: %w", err)
		}

		res.Msg = fmt.Sprintf("Created snapshot task for %s", p.Dataset)
		res.Set("task", created)

	case p.State == StateAbsent:
		res.Changed = true
		res.Set("deleted_tasks", tasks)

		if env.CheckMode {
			res.Msg = "Would have deleted snapshot tasks."
			return res, nil
		}

		for _, task := range tasks {
			if _, err := env.MW.Call(ctx, "pool.snapshottask.delete", task.ID); err != nil {
				return nil, fmt.Errorf("error deleting snapshot task %d: %w", task.ID, err)
			}
		}

		res.Msg = fmt.Sprintf("Deleted %d snapshot task(s)", len(tasks))

	default:
		task := tasks[0]

		d := newDiff()
		update(d, "dataset", &p.Dataset, task.Dataset)
		update(d, "recursive", p.Recursive, task.Recursive)
		update(d, "lifetime_value", p.LifetimeValue, task.LifetimeValue)
		update(d, "lifetime_unit", &p.LifetimeUnit, task.LifetimeUnit)
		update(d, "naming_schema", &p.NameFormat, task.NamingSchema)

		switch {
		case !*p.Recursive && len(task.Exclude) > 0:
			// Only recursive tasks can exclude children
			d.Set("exclude", []string{})
		case *p.Recursive:
			updateSet(d, "exclude", p.Exclude, task.Exclude)
		}

		update(d, "allow_empty", p.AllowEmpty, task.AllowEmpty)
		update(d, "enabled", p.Enabled, task.Enabled)

		sched := newDiff()
		update(sched, "minute", p.Minute, task.Schedule.Minute)
		update(sched, "hour", p.Hour, task.Schedule.Hour)
		update(sched, "dom", p.Day, task.Schedule.Dom)
		update(sched, "month", p.Month, task.Schedule.Month)
		update(sched, "dow", p.Weekday, task.Schedule.Dow)
		update(sched, "begin", p.BeginTime, task.Schedule.Begin)
		update(sched, "end", p.EndTime, task.Schedule.End)

		if !sched.Empty() {
			d.Set("schedule", sched)
		}

		if d.Empty() {
			return res, nil
		}

		res.Changed = true
		res.Set("changes", d)

		if env.CheckMode {
			res.Msg = "Would have updated snapshot task. See 'changes'."
			return res, nil
		}

		updated, err := env.MW.Call(ctx, "pool.snapshottask.update", task.ID, d)

		if err != nil {
			return nil, fmt.Errorf("error updating snapshot task with %s: %w", d, err)
		}

		res.Msg = fmt.Sprintf("Updated snapshot task %d", task.ID)
		res.Set("task", updated)
	}

	return res, nil
}
